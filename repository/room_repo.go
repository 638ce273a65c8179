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

type RoomRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatRoom, error)
	FindDirect(ctx context.Context, directKey string) (*models.ChatRoom, error)
	ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.ChatRoom, error)
	AddMembers(ctx context.Context, roomID primitive.ObjectID, memberIDs []primitive.ObjectID) (*models.ChatRoom, error)
	SetMembers(ctx context.Context, roomID primitive.ObjectID, members []primitive.ObjectID, admin *primitive.ObjectID) error
	SetLastMessage(ctx context.Context, roomID, messageID primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, roomID primitive.ObjectID) error
	IsMember(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error)
}

type MongoRoomRepo struct {
	coll *mongo.Collection
}

func NewMongoRoomRepo(db *mongo.Database) *MongoRoomRepo {
	return &MongoRoomRepo{coll: db.Collection("rooms")}
}

func (r *MongoRoomRepo) Create(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error) {
	room.ID = primitive.NewObjectID()
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, room); err != nil {
		// The unique directKey index turns a concurrent duplicate direct
		// room into this conflict; the service re-fetches the winner.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return room, nil
}

func (r *MongoRoomRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *MongoRoomRepo) FindDirect(ctx context.Context, directKey string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.coll.FindOne(ctx, bson.M{"directKey": directKey}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *MongoRoomRepo) ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.ChatRoom, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rooms := []models.ChatRoom{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *MongoRoomRepo) AddMembers(ctx context.Context, roomID primitive.ObjectID, memberIDs []primitive.ObjectID) (*models.ChatRoom, error) {
	update := bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": memberIDs}},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var room models.ChatRoom
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": roomID}, update, opts).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *MongoRoomRepo) SetMembers(ctx context.Context, roomID primitive.ObjectID, members []primitive.ObjectID, admin *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"members": members, "admin": admin, "updatedAt": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRoomRepo) SetLastMessage(ctx context.Context, roomID, messageID primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastMessage": messageID, "updatedAt": at}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRoomRepo) Delete(ctx context.Context, roomID primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRoomRepo) IsMember(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"_id": roomID, "members": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type InMemoryRoomRepo struct {
	mu       sync.RWMutex
	data     map[primitive.ObjectID]*models.ChatRoom
	byDirect map[string]primitive.ObjectID
}

func NewInMemoryRoomRepo() *InMemoryRoomRepo {
	return &InMemoryRoomRepo{
		data:     make(map[primitive.ObjectID]*models.ChatRoom),
		byDirect: make(map[string]primitive.ObjectID),
	}
}

func (r *InMemoryRoomRepo) Create(_ context.Context, room *models.ChatRoom) (*models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room.DirectKey != "" {
		if _, exists := r.byDirect[room.DirectKey]; exists {
			return nil, ErrDuplicateKey
		}
	}
	room.ID = primitive.NewObjectID()
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	cp := cloneRoom(room)
	r.data[room.ID] = cp
	if room.DirectKey != "" {
		r.byDirect[room.DirectKey] = room.ID
	}
	return room, nil
}

func (r *InMemoryRoomRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRoom(room), nil
}

func (r *InMemoryRoomRepo) FindDirect(_ context.Context, directKey string) (*models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDirect[directKey]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRoom(r.data[id]), nil
}

func (r *InMemoryRoomRepo) ListByMember(_ context.Context, userID primitive.ObjectID) ([]models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := []models.ChatRoom{}
	for _, room := range r.data {
		if room.HasMember(userID) {
			rooms = append(rooms, *cloneRoom(room))
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
	})
	return rooms, nil
}

func (r *InMemoryRoomRepo) AddMembers(_ context.Context, roomID primitive.ObjectID, memberIDs []primitive.ObjectID) (*models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.data[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, id := range memberIDs {
		if !room.HasMember(id) {
			room.Members = append(room.Members, id)
		}
	}
	room.UpdatedAt = time.Now()
	return cloneRoom(room), nil
}

func (r *InMemoryRoomRepo) SetMembers(_ context.Context, roomID primitive.ObjectID, members []primitive.ObjectID, admin *primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.data[roomID]
	if !ok {
		return ErrNotFound
	}
	room.Members = append([]primitive.ObjectID(nil), members...)
	room.Admin = admin
	room.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryRoomRepo) SetLastMessage(_ context.Context, roomID, messageID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.data[roomID]
	if !ok {
		return ErrNotFound
	}
	id := messageID
	room.LastMessageID = &id
	room.UpdatedAt = at
	return nil
}

func (r *InMemoryRoomRepo) Delete(_ context.Context, roomID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.data[roomID]
	if !ok {
		return ErrNotFound
	}
	if room.DirectKey != "" {
		delete(r.byDirect, room.DirectKey)
	}
	delete(r.data, roomID)
	return nil
}

func (r *InMemoryRoomRepo) IsMember(_ context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.data[roomID]
	if !ok {
		return false, nil
	}
	return room.HasMember(userID), nil
}

func cloneRoom(room *models.ChatRoom) *models.ChatRoom {
	cp := *room
	cp.Members = append([]primitive.ObjectID(nil), room.Members...)
	if room.Admin != nil {
		admin := *room.Admin
		cp.Admin = &admin
	}
	if room.LastMessageID != nil {
		last := *room.LastMessageID
		cp.LastMessageID = &last
	}
	return &cp
}
