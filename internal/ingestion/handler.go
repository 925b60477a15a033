package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	v1 "github.com/sorters-club/sorters/internal/api/v1"
	httperr "github.com/sorters-club/sorters/internal/core/errors"
	"github.com/sorters-club/sorters/internal/core/storage"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgPersistFailed   = "Failed to persist event"
	msgDuplicateEvent  = "Event already exists"
	msgListFailed      = "Failed to list events"
	msgUnrecognizedTag = "Unrecognized event type"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles HTTP POST requests for event ingestion.
func (s *Service) IngestHandler(c *gin.Context) {
	evt, payloadSize, err := s.parseEvent(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := validateEvent(evt); err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Received Event",
		"event_id", evt.ID,
		"user_id", evt.User.ID,
		"event_type", evt.Type.String(),
		"payload_size", payloadSize)

	if err := s.persistEvent(c.Request.Context(), evt); err != nil {
		writeError(c, err)
		return
	}

	s.metrics.EventsIngested.WithLabelValues(evt.Type.String()).Inc()
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": evt.ID})
}

// parseEvent reads the raw request body and binds it into an Event struct.
// Returns the parsed event and the raw payload size (used for structured logging upstream).
func (s *Service) parseEvent(c *gin.Context) (*v1.Event, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var evt v1.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		var unrecognized *v1.UnrecognizedEventTypeError
		if errors.As(err, &unrecognized) {
			slog.Warn("Unrecognized event type received", "type", unrecognized.Type)
			return nil, len(bodyBytes), &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpUnrecognizedTypeError,
				message:    msgUnrecognizedTag,
				details:    map[string]interface{}{"type": unrecognized.Type},
			}
		}

		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	return &evt, len(bodyBytes), nil
}

// validateEvent runs envelope validation. Returns nil on success.
func validateEvent(evt *v1.Event) *ingestionError {
	if err := evt.Validate(); err != nil {
		slog.Warn("Envelope validation failed", "error", err, "event_id", evt.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    err.Error(),
		}
	}
	return nil
}

// persistEvent saves the event to the backing store.
func (s *Service) persistEvent(ctx context.Context, evt *v1.Event) *ingestionError {
	if err := s.store.SaveEvent(ctx, evt); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("Duplicate event rejected", "event_id", evt.ID, "user_id", evt.User.ID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateEventError,
				message:    msgDuplicateEvent,
			}
		}

		slog.Error("Failed to persist event", "error", err, "event_id", evt.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// ListEventsHandler returns a user's raw events, newest first.
// Query: limit (default 50, max 1000).
func (s *Service) ListEventsHandler(c *gin.Context) {
	username := c.Param("username")

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			writeError(c, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidQueryError,
				message:    "limit must be an integer between 1 and 1000",
			})
			return
		}
		limit = parsed
	}

	events, err := s.store.UserEvents(c.Request.Context(), username, limit)
	if err != nil {
		slog.Error("Failed to list events", "error", err, "username", username)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgListFailed,
		})
		return
	}
	if events == nil {
		events = []*v1.Event{}
	}

	c.JSON(http.StatusOK, events)
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
