package repository

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LikeRepository is the read contract the gateway uses to recompute like
// state when a like event arrives. The posts collection itself is owned by
// the feed layer; only this lookup is needed here.
type LikeRepository interface {
	PostLikes(ctx context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error)
	CommentLikes(ctx context.Context, postID, commentID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type MongoLikeRepo struct {
	coll *mongo.Collection
}

func NewMongoLikeRepo(db *mongo.Database) *MongoLikeRepo {
	return &MongoLikeRepo{coll: db.Collection("posts")}
}

type postLikesDoc struct {
	Likes    []primitive.ObjectID `bson:"likes"`
	Comments []struct {
		ID    primitive.ObjectID   `bson:"_id"`
		Likes []primitive.ObjectID `bson:"likes"`
	} `bson:"comments"`
}

func (r *MongoLikeRepo) PostLikes(ctx context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var doc postLikesDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": postID},
		options.FindOne().SetProjection(bson.M{"likes": 1})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Likes, nil
}

func (r *MongoLikeRepo) CommentLikes(ctx context.Context, postID, commentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var doc postLikesDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": postID},
		options.FindOne().SetProjection(bson.M{"comments": 1})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, c := range doc.Comments {
		if c.ID == commentID {
			return c.Likes, nil
		}
	}
	return nil, ErrNotFound
}

type InMemoryLikeRepo struct {
	mu           sync.RWMutex
	postLikes    map[primitive.ObjectID][]primitive.ObjectID
	commentLikes map[primitive.ObjectID][]primitive.ObjectID
}

func NewInMemoryLikeRepo() *InMemoryLikeRepo {
	return &InMemoryLikeRepo{
		postLikes:    make(map[primitive.ObjectID][]primitive.ObjectID),
		commentLikes: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (r *InMemoryLikeRepo) SetPostLikes(postID primitive.ObjectID, likers []primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postLikes[postID] = append([]primitive.ObjectID(nil), likers...)
}

func (r *InMemoryLikeRepo) SetCommentLikes(commentID primitive.ObjectID, likers []primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commentLikes[commentID] = append([]primitive.ObjectID(nil), likers...)
}

func (r *InMemoryLikeRepo) PostLikes(_ context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	likes, ok := r.postLikes[postID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]primitive.ObjectID(nil), likes...), nil
}

func (r *InMemoryLikeRepo) CommentLikes(_ context.Context, _, commentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	likes, ok := r.commentLikes[commentID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]primitive.ObjectID(nil), likes...), nil
}
