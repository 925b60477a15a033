package feed

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httperr "github.com/sorters-club/sorters/internal/core/errors"
	"github.com/sorters-club/sorters/internal/core/render"
)

const maxQueryLimit = 5000

// Response is the JSON body of every feed route.
type Response struct {
	Feed string           `json:"feed"`
	Days []render.DayView `json:"days"`
}

func (s *Service) globalHandler(feed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > maxQueryLimit {
				c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
					ErrorType: httperr.HttpInvalidQueryError,
					Message:   "limit must be an integer between 1 and 5000",
				})
				return
			}
			limit = parsed
		}

		days, err := s.Global(c.Request.Context(), feed, limit)
		if err != nil {
			writeFeedError(c, feed, err)
			return
		}
		c.JSON(http.StatusOK, Response{Feed: feed, Days: days})
	}
}

// UserFeedHandler serves a single user's home feed.
func (s *Service) UserFeedHandler(c *gin.Context) {
	username := c.Param("username")

	days, err := s.User(c.Request.Context(), username)
	if err != nil {
		writeFeedError(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, Response{Feed: "user", Days: days})
}

func writeFeedError(c *gin.Context, feed string, err error) {
	switch {
	case IsDigestError(err):
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpDigestFailedError,
			Message:   err.Error(),
		})
	default:
		slog.Error("[Feed] Failed to build feed", "feed", feed, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to build feed",
		})
	}
}
