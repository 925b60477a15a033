package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"github.com/sorters-club/sorters/internal/core/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	connectTimeout  = 10 * time.Second
	defaultDatabase = "sorters"
)

// Adapter implements storage.EventStore for MongoDB.
//
// Users and events live in separate collections. SaveEvent upserts the
// user before inserting the event without a transaction, so a duplicate
// event still refreshes the user's names.
type Adapter struct {
	client *mongo.Client
	users  *mongo.Collection
	events *mongo.Collection
	now    func() time.Time
}

var _ storage.EventStore = (*Adapter)(nil)

// NewAdapter connects to MongoDB and ensures the collection indexes.
// The database name comes from the URI path, defaulting to "sorters".
func NewAdapter(uri string, maxPoolSize uint64) (*Adapter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	dbName := databaseName(uri)
	db := client.Database(dbName)
	a := &Adapter{
		client: client,
		users:  db.Collection(CollectionUsers),
		events: db.Collection(CollectionEvents),
		now:    time.Now,
	}

	if err := a.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("[MongoDB] Adapter initialized", "database", dbName)
	return a, nil
}

func databaseName(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

func (a *Adapter) ensureIndexes(ctx context.Context) error {
	if _, err := a.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
		},
	}); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	if _, err := a.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}, {Key: "ingestedAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create events indexes: %w", err)
	}
	return nil
}

// SaveEvent upserts the acting user and inserts the event.
// Returns storage.ErrDuplicate if an event with the same id already exists.
func (a *Adapter) SaveEvent(ctx context.Context, event *v1.Event) error {
	now := a.now()

	_, err := a.users.UpdateOne(ctx,
		bson.M{"_id": event.User.ID},
		userUpdate(event.User, now),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	if _, err := a.events.InsertOne(ctx, toDocument(event, now)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to save event: %w", err)
	}

	slog.Debug("[MongoDB] Saved event",
		"event_id", event.ID,
		"type", event.Type.String(),
		"user_id", event.User.ID)
	return nil
}

// RecentEvents fetches the newest events across all users.
func (a *Adapter) RecentEvents(ctx context.Context, limit int) ([]*v1.Event, error) {
	return a.findEvents(ctx, bson.M{}, limit)
}

// UserEvents fetches the newest events of the user with the given username.
// An unknown username yields no events.
func (a *Adapter) UserEvents(ctx context.Context, username string, limit int) ([]*v1.Event, error) {
	var user userDocument
	err := a.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return a.findEvents(ctx, bson.M{"userId": user.ID}, limit)
}

func (a *Adapter) findEvents(ctx context.Context, filter bson.M, limit int) ([]*v1.Event, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: -1},
		{Key: "ingestedAt", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := a.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	users, err := a.resolveUsers(ctx, docs)
	if err != nil {
		return nil, err
	}

	events := make([]*v1.Event, 0, len(docs))
	for _, doc := range docs {
		evt, err := doc.toEvent(users[doc.UserID])
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, nil
}

func (a *Adapter) resolveUsers(ctx context.Context, docs []eventDocument) (map[string]userDocument, error) {
	users := make(map[string]userDocument)
	if len(docs) == 0 {
		return users, nil
	}

	ids := make([]string, 0, len(docs))
	seen := make(map[string]bool)
	for _, doc := range docs {
		if !seen[doc.UserID] {
			seen[doc.UserID] = true
			ids = append(ids, doc.UserID)
		}
	}

	cursor, err := a.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var found []userDocument
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}

// Ping checks the primary is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (a *Adapter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongodb: %w", err)
	}
	slog.Info("[MongoDB] Adapter closed gracefully")
	return nil
}
