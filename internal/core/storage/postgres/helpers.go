package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
)

// eventPayload is the JSONB shape of the type-specific event fields.
type eventPayload struct {
	Title  string     `json:"title,omitempty"`
	URL    string     `json:"url,omitempty"`
	Name   string     `json:"name,omitempty"`
	Values []string   `json:"values,omitempty"`
	Entity *v1.Entity `json:"entity,omitempty"`
}

// marshalPayload marshals the type-specific fields of an event to JSON.
func marshalPayload(event *v1.Event) ([]byte, error) {
	data, err := json.Marshal(eventPayload{
		Title:  event.Title,
		URL:    event.URL,
		Name:   event.Name,
		Values: event.Values,
		Entity: event.Entity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into an Event struct.
// A type tag outside the vocabulary fails the scan: the stored data and
// the code disagree and the caller must not digest a partial result.
func scanEventRow(row scanner) (*v1.Event, error) {
	var (
		evt         v1.Event
		typeTag     string
		date        time.Time
		payloadJSON []byte
	)

	err := row.Scan(
		&evt.ID,
		&typeTag,
		&date,
		&evt.User.ID,
		&evt.User.Username,
		&evt.User.DisplayName,
		&payloadJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	evt.Type, err = v1.ParseEventType(typeTag)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", evt.ID, err)
	}
	evt.Date = date.UTC()

	if len(payloadJSON) > 0 {
		var payload eventPayload
		if err := json.Unmarshal(payloadJSON, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		evt.Title = payload.Title
		evt.URL = payload.URL
		evt.Name = payload.Name
		evt.Values = payload.Values
		evt.Entity = payload.Entity
	}

	return &evt, nil
}
