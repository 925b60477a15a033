package memory

import (
	"context"
	"sort"
	"sync"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"github.com/sorters-club/sorters/internal/core/storage"
)

type record struct {
	seq   int64
	event v1.Event
}

// Store is an in-memory implementation of storage.EventStore.
// Useful for testing and development.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	records []record
	ids     map[string]struct{}
	users   map[string]v1.User
}

var _ storage.EventStore = (*Store)(nil)

// NewStore creates an empty in-memory event store.
func NewStore() *Store {
	return &Store{
		ids:   make(map[string]struct{}),
		users: make(map[string]v1.User),
	}
}

func (s *Store) SaveEvent(ctx context.Context, event *v1.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[event.ID]; exists {
		return storage.ErrDuplicate
	}

	user := s.users[event.User.ID]
	user.ID = event.User.ID
	if event.User.Username != "" {
		user.Username = event.User.Username
	}
	if event.User.DisplayName != "" {
		user.DisplayName = event.User.DisplayName
	}
	s.users[user.ID] = user

	s.seq++
	s.records = append(s.records, record{seq: s.seq, event: cloneEvent(event)})
	s.ids[event.ID] = struct{}{}
	return nil
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*v1.Event, error) {
	return s.collect(limit, func(v1.User) bool { return true }), nil
}

func (s *Store) UserEvents(ctx context.Context, username string, limit int) ([]*v1.Event, error) {
	return s.collect(limit, func(u v1.User) bool { return u.Username == username }), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// collect returns matching events newest first, resolving each event's
// user to the latest known state. limit <= 0 means no limit.
func (s *Store) collect(limit int, match func(v1.User) bool) []*v1.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]record, 0, len(s.records))
	for _, r := range s.records {
		if match(s.users[r.event.User.ID]) {
			matched = append(matched, r)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].event.Date.Equal(matched[j].event.Date) {
			return matched[i].event.Date.After(matched[j].event.Date)
		}
		return matched[i].seq > matched[j].seq
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]*v1.Event, 0, len(matched))
	for _, r := range matched {
		evt := cloneEvent(&r.event)
		evt.User = s.users[evt.User.ID]
		result = append(result, &evt)
	}
	return result
}

// cloneEvent copies event deeply enough that neither the caller nor a
// reader shares Values or Entity with the stored record.
func cloneEvent(event *v1.Event) v1.Event {
	c := *event
	if event.Values != nil {
		c.Values = append([]string(nil), event.Values...)
	}
	if event.Entity != nil {
		entity := *event.Entity
		c.Entity = &entity
	}
	return c
}
