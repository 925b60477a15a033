package v1

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvent_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		event   Event
		wantErr string
	}{
		{
			name: "valid keyed event",
			event: Event{
				ID:    "evt_123",
				Type:  CreatedGoal,
				Date:  now,
				User:  User{ID: "u1", Username: "alice"},
				Title: "Read more",
			},
		},
		{
			name: "user without username is still a valid envelope",
			event: Event{
				ID:   "evt_124",
				Type: UpdatedGoals,
				Date: now,
				User: User{ID: "u2"},
			},
		},
		{
			name:    "missing id",
			event:   Event{Type: CreatedGoal, Date: now, User: User{ID: "u1"}},
			wantErr: "id is required",
		},
		{
			name:    "missing type",
			event:   Event{ID: "evt", Date: now, User: User{ID: "u1"}},
			wantErr: "type is required",
		},
		{
			name:    "missing date",
			event:   Event{ID: "evt", Type: CreatedGoal, User: User{ID: "u1"}},
			wantErr: "date is required",
		},
		{
			name:    "missing user id",
			event:   Event{ID: "evt", Type: CreatedGoal, Date: now},
			wantErr: "user.id is required",
		},
		{
			name: "entity without id",
			event: Event{
				ID:     "evt",
				Type:   CreatedEssay,
				Date:   now,
				User:   User{ID: "u1"},
				Entity: &Entity{Title: "On order"},
			},
			wantErr: "entity.id is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestEvent_UnmarshalJSON(t *testing.T) {
	raw := `{
		"id": "evt-1",
		"type": "created-essay",
		"date": "2026-02-07T10:00:00Z",
		"user": {"id": "u1", "username": "alice", "displayName": "Alice"},
		"entity": {"id": "essay-9", "title": "On order", "url": "https://example.com/e"}
	}`

	var evt Event
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))
	require.Equal(t, CreatedEssay, evt.Type)
	require.Equal(t, "alice", evt.User.Username)
	require.Equal(t, "Alice", evt.User.DisplayName)
	require.NotNil(t, evt.Entity)
	require.Equal(t, "essay-9", evt.Entity.ID)
	require.Equal(t, time.Date(2026, 2, 7, 10, 0, 0, 0, time.UTC), evt.Date.UTC())
}

func TestEvent_UnmarshalJSON_UnknownType(t *testing.T) {
	raw := `{"id": "evt-1", "type": "not-a-real-type", "date": "2026-02-07T10:00:00Z", "user": {"id": "u1"}}`

	var evt Event
	err := json.Unmarshal([]byte(raw), &evt)
	require.Error(t, err)

	var typeErr *UnrecognizedEventTypeError
	require.True(t, errors.As(err, &typeErr))
	require.Equal(t, "not-a-real-type", typeErr.Type)
}

func TestEventType_RoundTripsEveryName(t *testing.T) {
	types := AllEventTypes()
	require.Len(t, types, int(eventTypeCount)-1)

	seen := make(map[string]bool, len(types))
	for _, et := range types {
		name := et.String()
		require.NotEmpty(t, name)
		require.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true

		parsed, err := ParseEventType(name)
		require.NoError(t, err)
		require.Equal(t, et, parsed)
	}
}

func TestEventType_MarshalUnknownFails(t *testing.T) {
	_, err := json.Marshal(struct {
		Type EventType `json:"type"`
	}{})
	require.Error(t, err)
}
