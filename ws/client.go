package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/repository"
	"github.com/Amit43verma/alumni-portal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced on the HTTP layer; the handshake was already
		// authenticated by token.
		return true
	},
}

// Client is one authenticated websocket connection. attached is the set
// of channels this connection receives broadcasts for; it is touched only
// by the readPump goroutine, so it needs no lock.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	userID   string
	attached map[string]bool

	msgSvc *services.MessageService
	likes  repository.LikeRepository
}

type eventHandler func(c *Client, data json.RawMessage)

// dispatch maps an inbound event name to its handler. Unknown events are
// logged and dropped; a failing handler emits an error frame to this
// connection only and never closes it.
var dispatch = map[string]eventHandler{
	EventJoinRoom:     (*Client).handleJoinRoom,
	EventLeaveRoom:    (*Client).handleLeaveRoom,
	EventSendMessage:  (*Client).handleSendMessage,
	EventJoinPost:     (*Client).handleJoinPost,
	EventLeavePost:    (*Client).handleLeavePost,
	EventPostLiked:    (*Client).handlePostLiked,
	EventCommentLiked: (*Client).handleCommentLiked,
}

// ServeWS upgrades an already-authenticated request and starts the
// connection's pumps. userID is the identity resolved at handshake time;
// it is trusted for the lifetime of the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string, msgSvc *services.MessageService, likes repository.LikeRepository) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for user %s: %v", userID, err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		userID:   userID,
		attached: make(map[string]bool),
		msgSvc:   msgSvc,
		likes:    likes,
	}
	h.register <- client

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Client %s read error: %v", c.userID, err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("Client %s sent malformed frame: %v", c.userID, err)
			continue
		}

		handler, ok := dispatch[frame.Event]
		if !ok {
			log.Printf("Client %s sent unknown event %q", c.userID, frame.Event)
			continue
		}
		handler(c, frame.Data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Client %s write error: %v", c.userID, err)
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(message string) {
	frame := encodeFrame(EventError, errorPayload{Message: message})
	select {
	case c.send <- frame:
	default:
	}
}

// Channel attachment is deliberately not checked against room directory
// membership, matching the permissive join the rest of the system was
// built around; the attachment set alone gates sendMessage.
func (c *Client) handleJoinRoom(data json.RawMessage) {
	roomID, ok := decodeID(c, data)
	if !ok {
		return
	}
	ch := roomChannel(roomID)
	c.attached[ch] = true
	c.hub.attach <- subscription{client: c, channel: ch}
}

func (c *Client) handleLeaveRoom(data json.RawMessage) {
	roomID, ok := decodeID(c, data)
	if !ok {
		return
	}
	ch := roomChannel(roomID)
	delete(c.attached, ch)
	c.hub.detach <- subscription{client: c, channel: ch}
}

// handleSendMessage persists the message and lets the service broadcast
// it. Events for rooms this connection is not attached to are ignored
// outright; nothing is persisted and nothing is sent back.
func (c *Client) handleSendMessage(data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("Malformed sendMessage payload")
		return
	}
	if !c.attached[roomChannel(payload.RoomID)] {
		log.Printf("Client %s sent message to unattached room %s, ignoring", c.userID, payload.RoomID)
		return
	}

	roomID, err := primitive.ObjectIDFromHex(payload.RoomID)
	if err != nil {
		c.sendError("Invalid room id")
		return
	}
	senderID, err := primitive.ObjectIDFromHex(c.userID)
	if err != nil {
		c.sendError("Invalid user id")
		return
	}

	if _, err := c.msgSvc.Send(context.Background(), roomID, senderID, payload.Text, "", ""); err != nil {
		log.Printf("Client %s send message error: %v", c.userID, err)
		c.sendError(apperrors.Message(err))
	}
}

func (c *Client) handleJoinPost(data json.RawMessage) {
	postID, ok := decodeID(c, data)
	if !ok {
		return
	}
	ch := postChannel(postID)
	c.attached[ch] = true
	c.hub.attach <- subscription{client: c, channel: ch}
}

func (c *Client) handleLeavePost(data json.RawMessage) {
	postID, ok := decodeID(c, data)
	if !ok {
		return
	}
	ch := postChannel(postID)
	delete(c.attached, ch)
	c.hub.detach <- subscription{client: c, channel: ch}
}

// handlePostLiked re-reads like state from storage and broadcasts the
// authoritative count. The client payload names the post and nothing
// else; counts supplied by clients are never echoed.
func (c *Client) handlePostLiked(data json.RawMessage) {
	var payload postLikedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("Malformed postLiked payload")
		return
	}
	postID, err := primitive.ObjectIDFromHex(payload.PostID)
	if err != nil {
		c.sendError("Invalid post id")
		return
	}

	likers, err := c.likes.PostLikes(context.Background(), postID)
	if err != nil {
		log.Printf("Client %s post like lookup error: %v", c.userID, err)
		c.sendError("Failed to load like state")
		return
	}

	c.hub.broadcast <- outbound{
		channel: postChannel(payload.PostID),
		data: encodeFrame(EventPostLikeUpdate, postLikeUpdatePayload{
			PostID:       payload.PostID,
			LikesCount:   len(likers),
			LikedUserIDs: hexIDs(likers),
		}),
	}
}

func (c *Client) handleCommentLiked(data json.RawMessage) {
	var payload commentLikedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("Malformed commentLiked payload")
		return
	}
	postID, err := primitive.ObjectIDFromHex(payload.PostID)
	if err != nil {
		c.sendError("Invalid post id")
		return
	}
	commentID, err := primitive.ObjectIDFromHex(payload.CommentID)
	if err != nil {
		c.sendError("Invalid comment id")
		return
	}

	likers, err := c.likes.CommentLikes(context.Background(), postID, commentID)
	if err != nil {
		log.Printf("Client %s comment like lookup error: %v", c.userID, err)
		c.sendError("Failed to load like state")
		return
	}

	c.hub.broadcast <- outbound{
		channel: postChannel(payload.PostID),
		data: encodeFrame(EventCommentLikeUpdate, commentLikeUpdatePayload{
			CommentID:    payload.CommentID,
			LikesCount:   len(likers),
			LikedUserIDs: hexIDs(likers),
		}),
	}
}

// decodeID decodes payloads that are a bare JSON string id (joinRoom,
// leaveRoom, joinPost, leavePost).
func decodeID(c *Client, data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil || id == "" {
		c.sendError("Malformed payload, expected an id string")
		return "", false
	}
	return id, true
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
