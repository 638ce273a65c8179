package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/repository"
)

// RoomService owns the room directory: membership, direct-room
// deduplication, admin rules and the room/message cascade on last leave.
type RoomService struct {
	rooms    repository.RoomRepository
	users    repository.UserRepository
	messages repository.MessageRepository
}

func NewRoomService(rr repository.RoomRepository, ur repository.UserRepository, mr repository.MessageRepository) *RoomService {
	return &RoomService{rooms: rr, users: ur, messages: mr}
}

// ListRoomsForUser returns the caller's rooms newest-activity-first, each
// joined with member display info and its last message.
func (s *RoomService) ListRoomsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.RoomView, error) {
	rooms, err := s.rooms.ListByMember(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}

	views := make([]models.RoomView, 0, len(rooms))
	for i := range rooms {
		view, err := s.populate(ctx, &rooms[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// CreateRoom merges the requester into memberIDs and creates a room, or
// returns the existing direct room for a 2-member non-group pair. The
// unique directKey index turns the duplicate-check race into a conflict
// that is resolved by returning the winning room.
func (s *RoomService) CreateRoom(ctx context.Context, requesterID primitive.ObjectID, memberIDs []primitive.ObjectID, isGroup bool, name string) (*models.RoomView, bool, error) {
	if len(memberIDs) == 0 {
		return nil, false, apperrors.E(apperrors.InvalidArgument, "At least one member is required")
	}

	members := mergeMembers(requesterID, memberIDs)

	if !isGroup && len(members) != 2 {
		return nil, false, apperrors.E(apperrors.InvalidArgument, "A direct chat must have exactly 2 members")
	}

	room := &models.ChatRoom{
		Name:    name,
		Members: members,
		IsGroup: isGroup,
	}
	if isGroup {
		admin := requesterID
		room.Admin = &admin
		if room.Name == "" {
			room.Name = "Group Chat"
		}
	} else {
		room.DirectKey = models.DirectKeyFor(members[0], members[1])
		if room.Name == "" {
			room.Name = "Direct Chat"
		}

		if existing, err := s.rooms.FindDirect(ctx, room.DirectKey); err == nil {
			view, err := s.populate(ctx, existing)
			return view, false, err
		} else if err != repository.ErrNotFound {
			return nil, false, apperrors.Wrap(apperrors.Internal, "Server error", err)
		}
	}

	created, err := s.rooms.Create(ctx, room)
	if err == repository.ErrDuplicateKey {
		// Lost the race for the direct pair; hand back the winner.
		existing, ferr := s.rooms.FindDirect(ctx, room.DirectKey)
		if ferr != nil {
			return nil, false, apperrors.Wrap(apperrors.Internal, "Server error", ferr)
		}
		view, verr := s.populate(ctx, existing)
		return view, false, verr
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}

	view, err := s.populate(ctx, created)
	return view, true, err
}

// AddMembers extends a group room; only its admin may do so. Identities
// already present are skipped, new ones keep their input order.
func (s *RoomService) AddMembers(ctx context.Context, requesterID, roomID primitive.ObjectID, memberIDs []primitive.ObjectID) (*models.RoomView, error) {
	if len(memberIDs) == 0 {
		return nil, apperrors.E(apperrors.InvalidArgument, "At least one member is required")
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err == repository.ErrNotFound {
		return nil, apperrors.E(apperrors.NotFound, "Room not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	if !room.IsGroup || room.Admin == nil || *room.Admin != requesterID {
		return nil, apperrors.E(apperrors.Forbidden, "Only the group admin can add members")
	}

	updated, err := s.rooms.AddMembers(ctx, roomID, dedupe(memberIDs))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return s.populate(ctx, updated)
}

// Leave removes userID from the room. The departing admin's role passes to
// the first remaining member in stored order; an emptied room is deleted
// together with its messages.
func (s *RoomService) Leave(ctx context.Context, userID, roomID primitive.ObjectID) error {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err == repository.ErrNotFound {
		return apperrors.E(apperrors.NotFound, "Room not found")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	if !room.HasMember(userID) {
		return apperrors.E(apperrors.NotFound, "Room not found")
	}

	remaining := make([]primitive.ObjectID, 0, len(room.Members)-1)
	for _, m := range room.Members {
		if m != userID {
			remaining = append(remaining, m)
		}
	}

	if len(remaining) == 0 {
		if err := s.rooms.Delete(ctx, roomID); err != nil {
			return apperrors.Wrap(apperrors.Internal, "Server error", err)
		}
		if err := s.messages.DeleteByRoom(ctx, roomID); err != nil {
			return apperrors.Wrap(apperrors.Internal, "Server error", err)
		}
		return nil
	}

	admin := room.Admin
	if admin != nil && *admin == userID {
		next := remaining[0]
		admin = &next
	}
	if err := s.rooms.SetMembers(ctx, roomID, remaining, admin); err != nil {
		return apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID primitive.ObjectID) (*models.ChatRoom, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err == repository.ErrNotFound {
		return nil, apperrors.E(apperrors.NotFound, "Room not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return room, nil
}

func (s *RoomService) IsMember(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	ok, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return ok, nil
}

func (s *RoomService) populate(ctx context.Context, room *models.ChatRoom) (*models.RoomView, error) {
	users, err := s.users.FindByIDs(ctx, room.Members)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	view := &models.RoomView{ChatRoom: *room}
	for _, m := range room.Members {
		if u, ok := byID[m]; ok {
			view.MemberInfos = append(view.MemberInfos, u.Info())
		}
	}

	if room.LastMessageID != nil {
		msg, err := s.messages.FindByID(ctx, *room.LastMessageID)
		if err == nil {
			if sender, ok := byID[msg.SenderID]; ok {
				info := sender.Info()
				msg.Sender = &info
			}
			view.LastMessage = msg
		} else if err != repository.ErrNotFound {
			return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
		}
	}
	return view, nil
}

// mergeMembers puts the requester first and drops duplicates, preserving
// the input order of the rest.
func mergeMembers(requesterID primitive.ObjectID, memberIDs []primitive.ObjectID) []primitive.ObjectID {
	return dedupe(append([]primitive.ObjectID{requesterID}, memberIDs...))
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
