package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRoom is a direct (2-member) or group conversation. A direct room
// additionally carries DirectKey, a deterministic key over its member pair
// backed by a unique index so the same pair can never yield two rooms.
type ChatRoom struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Members       []primitive.ObjectID `bson:"members" json:"members"`
	IsGroup       bool                 `bson:"isGroup" json:"isGroup"`
	Admin         *primitive.ObjectID  `bson:"admin,omitempty" json:"admin,omitempty"`
	DirectKey     string               `bson:"directKey,omitempty" json:"-"`
	LastMessageID *primitive.ObjectID  `bson:"lastMessage,omitempty" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasMember reports membership regardless of stored order.
func (r *ChatRoom) HasMember(userID primitive.ObjectID) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// DirectKeyFor builds the canonical key for an unordered member pair.
func DirectKeyFor(a, b primitive.ObjectID) string {
	ids := []string{a.Hex(), b.Hex()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// RoomView is a room joined with member display info and its last message,
// as returned by the room listing.
type RoomView struct {
	ChatRoom
	MemberInfos []MemberInfo `json:"memberInfos"`
	LastMessage *Message     `json:"lastMessage,omitempty"`
}
