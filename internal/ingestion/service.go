package ingestion

import (
	"github.com/gin-gonic/gin"
	"github.com/sorters-club/sorters/internal/core/storage"
	"github.com/sorters-club/sorters/internal/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Invalidator is notified after an event is persisted so cached feeds can be dropped.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	store            storage.EventStore
	metrics          *metrics.Metrics
	invalidator      Invalidator
	maxBodySizeBytes int
}

func NewService(repo storage.EventStore, m *metrics.Metrics, inv Invalidator, maxBodySizeMB int) *Service {
	if repo == nil {
		panic("ingestion: store must not be nil")
	}
	if m == nil {
		panic("ingestion: metrics must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            repo,
		metrics:          m,
		invalidator:      inv,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
	r.GET("/v1/users/:username/events", s.ListEventsHandler)
}
