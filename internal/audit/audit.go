// Package audit keeps an append-only trail of order status transitions.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/swaadanna/storefront/internal/domain"
)

const CollectionName = "order_status_events"

type Log interface {
	Append(ctx context.Context, changes ...domain.StatusChange) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.StatusChange, error)
}

type MongoLog struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoLog(db *mongo.Database) *MongoLog {
	return &MongoLog{
		collection: db.Collection(CollectionName),
		now:        time.Now,
	}
}

func (m *MongoLog) Append(ctx context.Context, changes ...domain.StatusChange) error {
	if len(changes) == 0 {
		return nil
	}

	now := m.now().UTC()
	docs := make([]interface{}, len(changes))
	for i := range changes {
		if changes[i].At.IsZero() {
			changes[i].At = now
		}
		docs[i] = changes[i]
	}

	if _, err := m.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to append status changes: %w", err)
	}
	return nil
}

// ListByOrder returns the trail oldest first. An order with no changes yields an empty slice.
func (m *MongoLog) ListByOrder(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	filter := bson.M{"order_id": orderID}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find status changes: %w", err)
	}
	defer cursor.Close(ctx)

	changes := []domain.StatusChange{}
	if err := cursor.All(ctx, &changes); err != nil {
		return nil, fmt.Errorf("failed to decode status changes: %w", err)
	}
	return changes, nil
}

func (m *MongoLog) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
