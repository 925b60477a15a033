package v1

import (
	"fmt"
	"time"
)

// Event is a single user action on the platform.
// Events are written once by the producing collaborator and never mutated.
type Event struct {
	// ID is the unique immutable identifier of the event.
	// Assigned by the ingestion service when the producer leaves it empty.
	ID string `json:"id"`

	// Type is the action tag from the closed vocabulary (see EventType).
	Type EventType `json:"type"`

	// Date is the creation instant. It decides the calendar day the event is
	// digested into and orders users within that day.
	Date time.Time `json:"date"`

	// User is the acting user. A user without Username has no public feed.
	User User `json:"user"`

	// --- Type-specific payload ---

	// Title identifies goal, read and topic events.
	Title string `json:"title,omitempty"`

	// URL is an optional external link for title-keyed events (e.g. a book page).
	URL string `json:"url,omitempty"`

	// Name is the program id for completed-program events.
	Name string `json:"name,omitempty"`

	// Values lists the profile fields touched by an updated-profile event.
	Values []string `json:"values,omitempty"`

	// Entity is the created item for entry, essay, speech and conversation events.
	Entity *Entity `json:"entity,omitempty"`
}

// User is the acting user as resolved by the event store.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Entity is the stub of a created item carried by entity-keyed events.
type Entity struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Validate ensures the event has all required envelope attributes.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if e.Type == EventTypeUnknown {
		return fmt.Errorf("type is required")
	}

	if e.Date.IsZero() {
		return fmt.Errorf("date is required")
	}

	if e.User.ID == "" {
		return fmt.Errorf("user.id is required")
	}

	if e.Entity != nil && e.Entity.ID == "" {
		return fmt.Errorf("entity.id is required when entity is set")
	}

	return nil
}
