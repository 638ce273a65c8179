package ws

import (
	"encoding/json"
	"log"
)

// Client-to-server events.
const (
	EventJoinRoom     = "joinRoom"
	EventLeaveRoom    = "leaveRoom"
	EventSendMessage  = "sendMessage"
	EventJoinPost     = "joinPost"
	EventLeavePost    = "leavePost"
	EventPostLiked    = "postLiked"
	EventCommentLiked = "commentLiked"
)

// Server-to-client events.
const (
	EventNewMessage        = "newMessage"
	EventUserOnline        = "userOnline"
	EventUserOffline       = "userOffline"
	EventPostLikeUpdate    = "postLikeUpdate"
	EventCommentLikeUpdate = "commentLikeUpdate"
	EventError             = "error"
)

// Frame is the wire envelope for every event in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessagePayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type postLikedPayload struct {
	PostID string `json:"postId"`
}

type commentLikedPayload struct {
	CommentID string `json:"commentId"`
	PostID    string `json:"postId"`
}

type postLikeUpdatePayload struct {
	PostID       string   `json:"postId"`
	LikesCount   int      `json:"likesCount"`
	LikedUserIDs []string `json:"likedUserIds"`
}

type commentLikeUpdatePayload struct {
	CommentID    string   `json:"commentId"`
	LikesCount   int      `json:"likesCount"`
	LikedUserIDs []string `json:"likedUserIds"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encodeFrame(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshalling %s payload: %v", event, err)
		return nil
	}
	b, err := json.Marshal(Frame{Event: event, Data: raw})
	if err != nil {
		log.Printf("Error marshalling %s frame: %v", event, err)
		return nil
	}
	return b
}

// Channel keys. Rooms are keyed by their id, posts carry a prefix so a
// post channel can never collide with a room channel.
func roomChannel(roomID string) string { return roomID }
func postChannel(postID string) string { return "post:" + postID }
