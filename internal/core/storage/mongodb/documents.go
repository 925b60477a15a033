package mongodb

import (
	"fmt"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection names
const (
	CollectionUsers  = "users"
	CollectionEvents = "events"
)

type userDocument struct {
	ID          string `bson:"_id"`
	Username    string `bson:"username,omitempty"`
	DisplayName string `bson:"displayName,omitempty"`
}

type entityDocument struct {
	ID    string `bson:"id"`
	Title string `bson:"title,omitempty"`
	URL   string `bson:"url,omitempty"`
}

// eventDocument references its user by id; the user is resolved on read so
// a username learned later applies to earlier events.
type eventDocument struct {
	ID         string          `bson:"_id"`
	Type       string          `bson:"type"`
	Date       time.Time       `bson:"date"`
	UserID     string          `bson:"userId"`
	IngestedAt time.Time       `bson:"ingestedAt"`
	Title      string          `bson:"title,omitempty"`
	URL        string          `bson:"url,omitempty"`
	Name       string          `bson:"name,omitempty"`
	Values     []string        `bson:"values,omitempty"`
	Entity     *entityDocument `bson:"entity,omitempty"`
}

func toDocument(event *v1.Event, ingestedAt time.Time) eventDocument {
	doc := eventDocument{
		ID:         event.ID,
		Type:       event.Type.String(),
		Date:       event.Date.UTC(),
		UserID:     event.User.ID,
		IngestedAt: ingestedAt.UTC(),
		Title:      event.Title,
		URL:        event.URL,
		Name:       event.Name,
		Values:     event.Values,
	}
	if event.Entity != nil {
		doc.Entity = &entityDocument{ID: event.Entity.ID, Title: event.Entity.Title, URL: event.Entity.URL}
	}
	return doc
}

// toEvent converts a stored document back to an event owned by user.
// An unrecognized type tag is an error.
func (d eventDocument) toEvent(user userDocument) (*v1.Event, error) {
	t, err := v1.ParseEventType(d.Type)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", d.ID, err)
	}

	evt := &v1.Event{
		ID:     d.ID,
		Type:   t,
		Date:   d.Date.UTC(),
		User:   v1.User{ID: d.UserID, Username: user.Username, DisplayName: user.DisplayName},
		Title:  d.Title,
		URL:    d.URL,
		Name:   d.Name,
		Values: d.Values,
	}
	if d.Entity != nil {
		evt.Entity = &v1.Entity{ID: d.Entity.ID, Title: d.Entity.Title, URL: d.Entity.URL}
	}
	return evt, nil
}

// userUpdate builds the upsert for the acting user. Empty fields never
// overwrite stored ones.
func userUpdate(user v1.User, seen time.Time) bson.M {
	set := bson.M{}
	if user.Username != "" {
		set["username"] = user.Username
	}
	if user.DisplayName != "" {
		set["displayName"] = user.DisplayName
	}

	update := bson.M{
		"$setOnInsert": bson.M{"firstSeen": seen.UTC()},
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	return update
}
