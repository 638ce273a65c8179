package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDirectKeyForIsOrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, DirectKeyFor(a, b), DirectKeyFor(b, a))
	assert.NotEqual(t, DirectKeyFor(a, b), DirectKeyFor(a, primitive.NewObjectID()))
}

func TestMessageTypeForMIME(t *testing.T) {
	assert.Equal(t, MessageTypeImage, MessageTypeForMIME("image/png"))
	assert.Equal(t, MessageTypeImage, MessageTypeForMIME("image/jpeg"))
	assert.Equal(t, MessageTypeVideo, MessageTypeForMIME("video/mp4"))
	assert.Equal(t, MessageTypeVideo, MessageTypeForMIME("application/octet-stream"))
}

func TestHasMember(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	room := ChatRoom{Members: []primitive.ObjectID{a, b}}

	assert.True(t, room.HasMember(b))
	assert.False(t, room.HasMember(primitive.NewObjectID()))
}
