package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Amit43verma/alumni-portal/models"
)

type MessageRepository interface {
	Save(ctx context.Context, msg *models.Message) (*models.Message, error)
	// Page returns one page of a room's messages in chronological order.
	// Pages count from the newest message backward: page 1 holds the most
	// recent limit messages. An out-of-range page yields an empty slice.
	Page(ctx context.Context, roomID primitive.ObjectID, page, limit int) ([]models.Message, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	DeleteByRoom(ctx context.Context, roomID primitive.ObjectID) error
}

type MongoMessageRepo struct {
	coll *mongo.Collection
}

func NewMongoMessageRepo(db *mongo.Database) *MongoMessageRepo {
	return &MongoMessageRepo{coll: db.Collection("messages")}
}

func (r *MongoMessageRepo) Save(ctx context.Context, msg *models.Message) (*models.Message, error) {
	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MongoMessageRepo) Page(ctx context.Context, roomID primitive.ObjectID, page, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	// Query is newest-first; reverse so the page reads chronologically.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *MongoMessageRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MongoMessageRepo) DeleteByRoom(ctx context.Context, roomID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"roomId": roomID})
	return err
}

type InMemoryMessageRepo struct {
	mu     sync.RWMutex
	data   map[primitive.ObjectID]*models.Message
	byRoom map[primitive.ObjectID][]primitive.ObjectID
}

func NewInMemoryMessageRepo() *InMemoryMessageRepo {
	return &InMemoryMessageRepo{
		data:   make(map[primitive.ObjectID]*models.Message),
		byRoom: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (r *InMemoryMessageRepo) Save(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	r.data[msg.ID] = &cp
	r.byRoom[msg.RoomID] = append(r.byRoom[msg.RoomID], msg.ID)
	return msg, nil
}

func (r *InMemoryMessageRepo) Page(_ context.Context, roomID primitive.ObjectID, page, limit int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRoom[roomID]
	msgs := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, *r.data[id])
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	// Window counted from the newest message backward.
	end := len(msgs) - (page-1)*limit
	if end <= 0 {
		return []models.Message{}, nil
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return msgs[start:end], nil
}

func (r *InMemoryMessageRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *InMemoryMessageRepo) DeleteByRoom(_ context.Context, roomID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.byRoom[roomID] {
		delete(r.data, id)
	}
	delete(r.byRoom, roomID)
	return nil
}
