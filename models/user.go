package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an alumni account. PasswordHash is never serialized.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Batch        string             `bson:"batch" json:"batch"`
	Center       string             `bson:"center" json:"center"`
	AvatarURL    string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// MemberInfo is the display projection of a user embedded in room and
// message responses.
type MemberInfo struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	AvatarURL string             `json:"avatarUrl,omitempty"`
}

func (u *User) Info() MemberInfo {
	return MemberInfo{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}
