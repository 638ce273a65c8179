package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
)

// MessageTypeForMIME derives the message type tag from an upload's MIME
// class; anything that is not an image is treated as video.
func MessageTypeForMIME(mimeType string) MessageType {
	if strings.HasPrefix(mimeType, "image/") {
		return MessageTypeImage
	}
	return MessageTypeVideo
}

// Message is an immutable chat message. Sender display fields are joined
// in at read time and never persisted.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID    primitive.ObjectID `bson:"roomId" json:"roomId"`
	SenderID  primitive.ObjectID `bson:"senderId" json:"senderId"`
	Sender    *MemberInfo        `bson:"-" json:"sender,omitempty"`
	Text      string             `bson:"text" json:"text"`
	MediaURL  string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	Type      MessageType        `bson:"messageType" json:"messageType"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
