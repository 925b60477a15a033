package digest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"github.com/stretchr/testify/require"
)

var (
	alice = v1.User{ID: "u-alice", Username: "alice", DisplayName: "Alice"}
	bob   = v1.User{ID: "u-bob", Username: "bob"}
	ghost = v1.User{ID: "u-ghost"}
)

func at(day, hour int) time.Time {
	return time.Date(2026, 2, day, hour, 0, 0, 0, time.UTC)
}

func goalEvent(t v1.EventType, user v1.User, title string, date time.Time) *v1.Event {
	return &v1.Event{ID: fmt.Sprintf("%s-%s-%d", t, title, date.Unix()), Type: t, User: user, Title: title, Date: date}
}

func TestDigest_GoalLifecycle(t *testing.T) {
	events := []*v1.Event{
		goalEvent(v1.CreatedGoal, alice, "Read more", at(7, 9)),
		goalEvent(v1.DoingGoal, alice, "Read more", at(7, 10)),
		goalEvent(v1.DoneGoal, alice, "Read more", at(7, 11)),
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, "20260207", days[0].Key)
	require.Len(t, days[0].Buckets, 1)

	b := days[0].Buckets[0]
	require.Equal(t, alice, b.User)
	require.Equal(t, at(7, 11), b.Date)
	require.Len(t, b.Keyed, 3)
	for _, et := range []v1.EventType{v1.CreatedGoal, v1.DoingGoal, v1.DoneGoal} {
		require.Contains(t, b.Keyed[et], "Read more", "missing %s", et)
	}
}

func TestDigest_GroupsEveryEventIntoItsDay(t *testing.T) {
	events := []*v1.Event{
		goalEvent(v1.CreatedGoal, alice, "A", at(5, 23)),
		goalEvent(v1.CreatedGoal, bob, "B", at(6, 0)),
		goalEvent(v1.CreatedGoal, alice, "C", at(6, 12)),
		goalEvent(v1.CreatedTopic, bob, "D", at(5, 1)),
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)

	found := 0
	for _, day := range days {
		for _, b := range day.Buckets {
			for _, byKey := range b.Keyed {
				for _, evt := range byKey {
					require.Equal(t, day.Key, evt.Date.UTC().Format(DayKeyLayout))
					require.Equal(t, evt.User.ID, b.User.ID)
					found++
				}
			}
		}
	}
	require.Equal(t, len(events), found)
}

func TestDigest_DayKeyUsesConfiguredLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	// 03:00 UTC on the 7th is still the 6th on the US east coast.
	events := []*v1.Event{goalEvent(v1.CreatedGoal, alice, "A", at(7, 3))}

	days, err := Digest(events, HomeFeed().WithLocation(est))
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, "20260206", days[0].Key)
	require.Equal(t, est, days[0].Date.Location())
}

func TestDigest_KeyedLastWriteWins(t *testing.T) {
	first := goalEvent(v1.CreatedRead, alice, "Maps of Meaning", at(7, 9))
	first.URL = "https://old.example.com"
	second := goalEvent(v1.CreatedRead, alice, "Maps of Meaning", at(7, 8))
	second.URL = "https://new.example.com"

	days, err := Digest([]*v1.Event{first, second}, HomeFeed())
	require.NoError(t, err)

	b := days[0].Buckets[0]
	require.Len(t, b.Keyed[v1.CreatedRead], 1)
	require.Same(t, second, b.Keyed[v1.CreatedRead]["Maps of Meaning"])
	// date still tracks the max, not the last arrival
	require.Equal(t, at(7, 9), b.Date)
}

func TestDigest_DuplicateEventsAreIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		event *v1.Event
		check func(t *testing.T, b *Bucket)
	}{
		{
			name:  "singleton",
			event: &v1.Event{Type: v1.UpdatedReading, User: alice, Date: at(7, 9)},
			check: func(t *testing.T, b *Bucket) {
				require.Equal(t, map[Flag]bool{FlagUpdatedReading: true}, b.Flags)
			},
		},
		{
			name:  "profile update",
			event: &v1.Event{Type: v1.UpdatedProfile, User: alice, Date: at(7, 9), Values: []string{"bio", "avatar"}},
			check: func(t *testing.T, b *Bucket) {
				require.Equal(t, map[string]bool{"bio": true, "avatar": true}, b.UpdatedProfile)
			},
		},
		{
			name:  "program",
			event: &v1.Event{Type: v1.CompletedProgram, User: alice, Date: at(7, 9), Name: "futureAuthoring"},
			check: func(t *testing.T, b *Bucket) {
				require.Equal(t, map[string]bool{"futureAuthoring": true}, b.Programs)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			once, err := Digest([]*v1.Event{tc.event}, HomeFeed())
			require.NoError(t, err)
			twice, err := Digest([]*v1.Event{tc.event, tc.event}, HomeFeed())
			require.NoError(t, err)

			require.Equal(t, once, twice)
			tc.check(t, twice[0].Buckets[0])
		})
	}
}

func TestDigest_ProfileUpdateFiltersUnknownFields(t *testing.T) {
	events := []*v1.Event{
		{Type: v1.UpdatedProfile, User: alice, Date: at(7, 9), Values: []string{"bio", "password"}},
		{Type: v1.UpdatedProfile, User: bob, Date: at(7, 9), Values: []string{"password"}},
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, days[0].Buckets, 1, "bob only touched unknown fields")
	require.Equal(t, map[string]bool{"bio": true}, days[0].Buckets[0].UpdatedProfile)
}

func TestDigest_StubUsersAreDropped(t *testing.T) {
	events := []*v1.Event{
		{Type: v1.UpdatedEntry, User: bob, Date: at(7, 12), Entity: &v1.Entity{ID: "e1"}},
		{Type: v1.DeletedEssay, User: bob, Date: at(7, 13), Entity: &v1.Entity{ID: "s1"}},
		goalEvent(v1.CreatedGoal, alice, "A", at(7, 9)),
		// only ignored events on the 6th: the day disappears
		{Type: v1.DeletedSpeech, User: alice, Date: at(6, 9), Entity: &v1.Entity{ID: "sp1"}},
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, "20260207", days[0].Key)
	require.Len(t, days[0].Buckets, 1)
	require.Equal(t, alice.ID, days[0].Buckets[0].User.ID)
}

func TestDigest_KeyedEventWithoutIdentityIsSkipped(t *testing.T) {
	events := []*v1.Event{
		{Type: v1.CreatedGoal, User: alice, Date: at(7, 9)},
		{Type: v1.CreatedEssay, User: alice, Date: at(7, 10)},
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Empty(t, days)
}

func TestDigest_EntityKeyedByEntityID(t *testing.T) {
	events := []*v1.Event{
		{Type: v1.CreatedEssay, User: alice, Date: at(7, 9), Entity: &v1.Entity{ID: "es-1", Title: "Draft"}},
		{Type: v1.CreatedEssay, User: alice, Date: at(7, 10), Entity: &v1.Entity{ID: "es-1", Title: "Final"}},
		{Type: v1.CreatedEssay, User: alice, Date: at(7, 11), Entity: &v1.Entity{ID: "es-2", Title: "Final"}},
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)

	essays := days[0].Buckets[0].Keyed[v1.CreatedEssay]
	require.Len(t, essays, 2)
	require.Equal(t, "Final", essays["es-1"].Entity.Title)
}

func TestDigest_DaysDescendingUsersByLatestActivity(t *testing.T) {
	carol := v1.User{ID: "u-carol", Username: "carol"}
	events := []*v1.Event{
		goalEvent(v1.CreatedGoal, alice, "A", at(5, 9)),
		goalEvent(v1.CreatedGoal, alice, "B", at(7, 8)),
		goalEvent(v1.CreatedGoal, bob, "C", at(7, 10)),
		goalEvent(v1.CreatedGoal, carol, "D", at(7, 8)),
		goalEvent(v1.CreatedGoal, alice, "E", at(6, 9)),
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Len(t, days, 3)
	require.Equal(t, []string{"20260207", "20260206", "20260205"}, []string{days[0].Key, days[1].Key, days[2].Key})

	var order []string
	for _, b := range days[0].Buckets {
		order = append(order, b.User.Username)
	}
	// alice and carol tie at 08:00; alice was seen first
	require.Equal(t, []string{"bob", "alice", "carol"}, order)

	for i := 1; i < len(days); i++ {
		require.Greater(t, days[i-1].Key, days[i].Key)
	}
}

func TestDigest_CrossDaySplit(t *testing.T) {
	events := []*v1.Event{
		goalEvent(v1.CreatedTopic, alice, "Responsibility", at(6, 20)),
		goalEvent(v1.CreatedTopic, alice, "Responsibility", at(7, 8)),
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Len(t, days, 2)
	for _, day := range days {
		require.Len(t, day.Buckets, 1)
		require.Equal(t, alice.ID, day.Buckets[0].User.ID)
		require.Contains(t, day.Buckets[0].Keyed[v1.CreatedTopic], "Responsibility")
	}
}

func TestDigest_NoUsernameIsDropped(t *testing.T) {
	events := make([]*v1.Event, 0, len(v1.AllEventTypes()))
	for _, et := range v1.AllEventTypes() {
		events = append(events, &v1.Event{
			Type:   et,
			User:   ghost,
			Date:   at(7, 9),
			Title:  "anything",
			Name:   "not-a-program",
			Values: []string{"bio"},
			Entity: &v1.Entity{ID: "x"},
		})
	}

	days, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Empty(t, days)
}

func TestDigest_UnrecognizedTypeFailsClosed(t *testing.T) {
	cfg := HomeFeed()
	delete(cfg.Rules, v1.CreatedSpeech)

	events := []*v1.Event{
		goalEvent(v1.CreatedGoal, alice, "A", at(7, 9)),
		{Type: v1.CreatedSpeech, User: alice, Date: at(7, 10), Entity: &v1.Entity{ID: "sp"}},
	}

	days, err := Digest(events, cfg)
	require.Nil(t, days)

	var typeErr *v1.UnrecognizedEventTypeError
	require.True(t, errors.As(err, &typeErr))
	require.Equal(t, "created-speech", typeErr.Type)
}

func TestDigest_UnknownProgramFailsClosed(t *testing.T) {
	events := []*v1.Event{
		goalEvent(v1.CreatedGoal, alice, "A", at(7, 9)),
		{Type: v1.CompletedProgram, User: alice, Date: at(7, 10), Name: "not-a-program"},
	}

	days, err := Digest(events, HomeFeed())
	require.Nil(t, days)

	var progErr *UnknownProgramError
	require.True(t, errors.As(err, &progErr))
	require.Equal(t, "not-a-program", progErr.Program)
}

func TestDigest_LegacyTypesDifferPerFeed(t *testing.T) {
	events := []*v1.Event{
		goalEvent(v1.WroteAboutRead, alice, "Beyond Order", at(7, 9)),
		{Type: v1.CreatedConversation, User: bob, Date: at(7, 10), Entity: &v1.Entity{ID: "c1", Title: "Chat"}},
	}

	home, err := Digest(events, HomeFeed())
	require.NoError(t, err)
	require.Len(t, home[0].Buckets, 1)
	require.Equal(t, bob.ID, home[0].Buckets[0].User.ID)

	news, err := Digest(events, NewsFeed())
	require.NoError(t, err)
	require.Len(t, news[0].Buckets, 1)
	require.Equal(t, alice.ID, news[0].Buckets[0].User.ID)
	require.Contains(t, news[0].Buckets[0].Keyed[v1.WroteAboutRead], "Beyond Order")
}

func TestDigest_EmptyInput(t *testing.T) {
	days, err := Digest(nil, HomeFeed())
	require.NoError(t, err)
	require.Empty(t, days)
}
