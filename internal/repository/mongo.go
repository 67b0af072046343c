package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

type mongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) Store {
	return &mongoStore{col: col}
}

// EnsureIndexes creates the chat_key/created_at index used by history reads.
func EnsureIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_key", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

func (s *mongoStore) Append(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	m.CreatedAt = time.Now().UTC()
	res, err := s.col.InsertOne(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected inserted id type %T", domain.ErrStore, res.InsertedID)
	}
	m.ID = oid.Hex()
	return m, nil
}

func (s *mongoStore) QueryByChatKey(ctx context.Context, chatKey string, limit int64, before time.Time) ([]*domain.Message, error) {
	filter := bson.M{"chat_key": chatKey}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer cur.Close(ctx)

	var out []*domain.Message
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	// newest-first from the cursor, chronological for the caller
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *mongoStore) MarkRead(ctx context.Context, chatKey, userID string) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"chat_key": chatKey, "receiver_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}
