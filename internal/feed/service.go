package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"github.com/sorters-club/sorters/internal/core/digest"
	"github.com/sorters-club/sorters/internal/core/render"
	"github.com/sorters-club/sorters/internal/core/storage"
	"github.com/sorters-club/sorters/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownFeed is returned for a feed name that is not configured.
var ErrUnknownFeed = errors.New("unknown feed")

// Error kinds reported on sorters_digest_errors_total.
const (
	kindStore            = "store"
	kindUnrecognizedType = "unrecognized_type"
	kindUnknownProgram   = "unknown_program"
	kindOther            = "other"
)

// sharedReadTimeout bounds a store read shared by concurrent requests.
const sharedReadTimeout = 30 * time.Second

// Options configures the feed service.
type Options struct {
	GlobalLimit  int
	UserLimit    int // <= 0 reads the user's whole history
	DisplayLimit int
	Location     *time.Location
	Programs     digest.Catalog
	CacheTTL     time.Duration // 0 disables caching
}

type view struct {
	config   digest.Config
	renderer *render.Renderer
}

type Service struct {
	store   storage.EventStore
	metrics *metrics.Metrics
	views   map[string]view
	opts    Options

	cache *cache.Cache
	group singleflight.Group
	// generation advances on every Invalidate. A computation started under
	// an older generation never populates the cache.
	generation atomic.Uint64
	fillMu     sync.Mutex
}

// NewService binds the home and news feeds to store. It fails when a feed
// config and its presentation rules disagree.
func NewService(store storage.EventStore, m *metrics.Metrics, opts Options) (*Service, error) {
	if store == nil {
		panic("feed: store must not be nil")
	}
	if m == nil {
		panic("feed: metrics must not be nil")
	}
	if opts.GlobalLimit <= 0 {
		return nil, fmt.Errorf("feed: global limit must be > 0")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	s := &Service{
		store:   store,
		metrics: m,
		views:   make(map[string]view),
		opts:    opts,
	}

	for _, def := range []struct {
		config digest.Config
		rules  render.Rules
	}{
		{config: digest.HomeFeed(), rules: render.HomeRules()},
		{config: digest.NewsFeed(), rules: render.NewsRules()},
	} {
		cfg := def.config.WithLocation(opts.Location)
		if opts.Programs.Len() > 0 {
			cfg = cfg.WithPrograms(opts.Programs)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		r, err := render.NewRenderer(cfg, def.rules)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", cfg.Name, err)
		}
		s.views[cfg.Name] = view{config: cfg, renderer: r.WithDisplayLimit(opts.DisplayLimit)}
	}

	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	slog.Info("[Feed] Service initialized",
		"feeds", len(s.views),
		"global_limit", opts.GlobalLimit,
		"user_limit", opts.UserLimit,
		"timezone", opts.Location.String(),
		"cache_ttl", opts.CacheTTL)
	return s, nil
}

// RegisterRoutes registers the feed routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/feed", s.globalHandler(digest.FeedHome))
	r.GET("/v1/news", s.globalHandler(digest.FeedNews))
	r.GET("/v1/users/:username/feed", s.UserFeedHandler)
}

// Global digests the latest limit events across all users into the named feed.
// limit <= 0 uses the configured global limit. Results are cached per
// (feed, limit); failures are not.
func (s *Service) Global(ctx context.Context, feed string, limit int) ([]render.DayView, error) {
	v, ok := s.views[feed]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeed, feed)
	}
	if limit <= 0 {
		limit = s.opts.GlobalLimit
	}

	key := fmt.Sprintf("%s:%d", feed, limit)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			s.metrics.CacheHits.WithLabelValues(feed).Inc()
			return cached.([]render.DayView), nil
		}
	}

	// Concurrent misses for one key and generation share a single store
	// read and digest. The read outlives any single caller's cancellation.
	gen := s.generation.Load()
	shared := context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		days, err := s.compute(v, func() ([]*v1.Event, error) {
			readCtx, cancel := context.WithTimeout(shared, sharedReadTimeout)
			defer cancel()
			return s.store.RecentEvents(readCtx, limit)
		})
		if err != nil {
			return nil, err
		}
		s.fill(key, gen, days)
		return days, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]render.DayView), nil
}

// User digests one user's events with the home feed.
func (s *Service) User(ctx context.Context, username string) ([]render.DayView, error) {
	return s.compute(s.views[digest.FeedHome], func() ([]*v1.Event, error) {
		return s.store.UserEvents(ctx, username, s.opts.UserLimit)
	})
}

// Invalidate drops every cached feed. Digests still in flight when it is
// called are returned to their callers but not cached.
func (s *Service) Invalidate() {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Flush()
	}
}

func (s *Service) fill(key string, gen uint64, days []render.DayView) {
	if s.cache == nil {
		return
	}
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.generation.Load() != gen {
		return
	}
	s.cache.Set(key, days, cache.DefaultExpiration)
}

func (s *Service) compute(v view, load func() ([]*v1.Event, error)) ([]render.DayView, error) {
	name := v.config.Name
	start := time.Now()
	defer func() {
		s.metrics.DigestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	events, err := load()
	if err != nil {
		s.metrics.DigestErrors.WithLabelValues(name, errorKind(err, kindStore)).Inc()
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	days, err := digest.Digest(events, v.config)
	if err != nil {
		kind := errorKind(err, kindOther)
		s.metrics.DigestErrors.WithLabelValues(name, kind).Inc()
		slog.Error("[Feed] Digest failed", "feed", name, "kind", kind, "events", len(events), "error", err)
		return nil, err
	}

	s.metrics.Digests.WithLabelValues(name).Inc()
	slog.Debug("[Feed] Digest computed", "feed", name, "events", len(events), "days", len(days))
	return v.renderer.Render(days), nil
}

// IsDigestError reports whether err means the stored events cannot be
// digested, as opposed to the store being unavailable.
func IsDigestError(err error) bool {
	return errorKind(err, "") != ""
}

func errorKind(err error, fallback string) string {
	var unrecognized *v1.UnrecognizedEventTypeError
	if errors.As(err, &unrecognized) {
		return kindUnrecognizedType
	}
	var unknownProgram *digest.UnknownProgramError
	if errors.As(err, &unknownProgram) {
		return kindUnknownProgram
	}
	return fallback
}
