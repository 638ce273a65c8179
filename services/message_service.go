package services

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/config"
	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/repository"
)

// MessageBroadcaster is implemented by the websocket hub; an interface
// here keeps services free of a ws import cycle.
type MessageBroadcaster interface {
	BroadcastMessage(msg models.Message)
}

// MessageService owns the append-only message log. Sends persist first
// and broadcast only after the write succeeds; membership authorization
// is the caller's responsibility (HTTP handler or gateway attachment
// check), not re-verified here.
type MessageService struct {
	msgs   repository.MessageRepository
	rooms  repository.RoomRepository
	users  repository.UserRepository
	hub    MessageBroadcaster
	config *config.Config

	// sendMu serializes persist+broadcast so fan-out order within a room
	// always equals persistence-commit order.
	sendMu sync.Mutex
}

func NewMessageService(mr repository.MessageRepository, rr repository.RoomRepository, ur repository.UserRepository, hub MessageBroadcaster, cfg *config.Config) *MessageService {
	return &MessageService{msgs: mr, rooms: rr, users: ur, hub: hub, config: cfg}
}

// Send appends a message, advances the room's last-message pointer and
// fans the persisted message out to the room's channel.
func (s *MessageService) Send(ctx context.Context, roomID, senderID primitive.ObjectID, text, mediaURL, mimeType string) (*models.Message, error) {
	if text == "" && mediaURL == "" {
		return nil, apperrors.E(apperrors.InvalidArgument, "Message text or media is required")
	}
	if len(text) > s.config.MaxMessageLength {
		return nil, apperrors.E(apperrors.InvalidArgument, "Message too long")
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err == repository.ErrNotFound {
		return nil, apperrors.E(apperrors.NotFound, "Sender not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	msg := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
		Type:     models.MessageTypeText,
	}
	if mediaURL != "" {
		msg.MediaURL = mediaURL
		msg.Type = models.MessageTypeForMIME(mimeType)
	}

	saved, err := s.msgs.Save(ctx, msg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to send message", err)
	}
	if err := s.rooms.SetLastMessage(ctx, roomID, saved.ID, saved.CreatedAt); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Failed to send message", err)
	}

	info := sender.Info()
	saved.Sender = &info
	s.hub.BroadcastMessage(*saved)
	return saved, nil
}

// Page returns one chronological page of a room's history; the caller
// must be a member.
func (s *MessageService) Page(ctx context.Context, userID, roomID primitive.ObjectID, page, limit int) ([]models.Message, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	isMember, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	if !isMember {
		return nil, apperrors.E(apperrors.Forbidden, "Access denied")
	}

	msgs, err := s.msgs.Page(ctx, roomID, page, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}

	senderIDs := make([]primitive.ObjectID, 0, len(msgs))
	seen := make(map[primitive.ObjectID]bool)
	for _, m := range msgs {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	users, err := s.users.FindByIDs(ctx, senderIDs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	infos := make(map[primitive.ObjectID]models.MemberInfo, len(users))
	for _, u := range users {
		infos[u.ID] = u.Info()
	}
	for i := range msgs {
		if info, ok := infos[msgs[i].SenderID]; ok {
			msgs[i].Sender = &info
		}
	}
	return msgs, nil
}
