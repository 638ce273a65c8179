package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/repository"
	"github.com/Amit43verma/alumni-portal/services"
	"github.com/Amit43verma/alumni-portal/storage"
	"github.com/Amit43verma/alumni-portal/ws"
)

type ChatHandler struct {
	hub     *ws.Hub
	roomSvc *services.RoomService
	msgSvc  *services.MessageService
	authSvc *services.AuthService
	likes   repository.LikeRepository
	media   storage.MediaStore
	maxBody int64
}

func NewChatHandler(hub *ws.Hub, roomSvc *services.RoomService, msgSvc *services.MessageService, authSvc *services.AuthService, likes repository.LikeRepository, media storage.MediaStore, maxBody int64) *ChatHandler {
	return &ChatHandler{
		hub:     hub,
		roomSvc: roomSvc,
		msgSvc:  msgSvc,
		authSvc: authSvc,
		likes:   likes,
		media:   media,
		maxBody: maxBody,
	}
}

// Rooms lists the caller's rooms, most recently active first.
func (h *ChatHandler) Rooms(w http.ResponseWriter, r *http.Request, user *models.User) {
	rooms, err := h.roomSvc.ListRoomsForUser(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// CreateRoom opens a direct or group chat. Creating a direct chat for a
// pair that already has one returns the existing room with 200 instead
// of 201.
func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"memberIds"`
		IsGroup   bool     `json:"isGroup"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.InvalidArgument, "Bad request format"))
		return
	}

	memberIDs, err := parseMemberIDs(req.MemberIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	room, created, err := h.roomSvc.CreateRoom(r.Context(), user.ID, memberIDs, req.IsGroup, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{"room": room})
}

// Messages serves one page of a room's history in chronological order.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request, user *models.User) {
	roomID, err := pathRoomID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)

	msgs, err := h.msgSvc.Page(r.Context(), user.ID, roomID, page, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// SendMessage is the multipart path for media-bearing sends; plain text
// sends normally travel over the websocket. Unlike the socket path this
// one checks directory membership and reports the violation.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request, user *models.User) {
	roomID, err := pathRoomID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	isMember, err := h.roomSvc.IsMember(r.Context(), roomID, user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !isMember {
		respondError(w, apperrors.E(apperrors.Forbidden, "Access denied"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		respondError(w, apperrors.E(apperrors.InvalidArgument, "Bad request format"))
		return
	}

	text := r.FormValue("text")
	var mediaURL, mimeType string
	if file, header, err := r.FormFile("media"); err == nil {
		defer file.Close()
		mimeType = header.Header.Get("Content-Type")
		mediaURL, err = h.media.Save(file, mimeType)
		if err != nil {
			log.Printf("Media upload failed: %v", err)
			respondError(w, apperrors.Wrap(apperrors.Internal, "Failed to store media", err))
			return
		}
	}

	msg, err := h.msgSvc.Send(r.Context(), roomID, user.ID, text, mediaURL, mimeType)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

// AddMembers extends a group room; admin only.
func (h *ChatHandler) AddMembers(w http.ResponseWriter, r *http.Request, user *models.User) {
	roomID, err := pathRoomID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		MemberIDs []string `json:"memberIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.InvalidArgument, "Bad request format"))
		return
	}
	memberIDs, err := parseMemberIDs(req.MemberIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	room, err := h.roomSvc.AddMembers(r.Context(), user.ID, roomID, memberIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"room": room})
}

func (h *ChatHandler) Leave(w http.ResponseWriter, r *http.Request, user *models.User) {
	roomID, err := pathRoomID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.roomSvc.Leave(r.Context(), user.ID, roomID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Left room successfully"})
}

// WS authorizes the handshake with the same bearer credential as the HTTP
// surface (passed as the token query parameter) and hands the connection
// to the hub. A bad credential rejects the connection before upgrade.
func (h *ChatHandler) WS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	user, err := h.authSvc.Verify(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}
	h.hub.ServeWS(w, r, user.ID.Hex(), h.msgSvc, h.likes)
}

func pathRoomID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["roomId"])
	if err != nil {
		return primitive.NilObjectID, apperrors.E(apperrors.NotFound, "Room not found")
	}
	return id, nil
}

func parseMemberIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, s := range ids {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, apperrors.E(apperrors.InvalidArgument, "Invalid member id")
		}
		out = append(out, id)
	}
	return out, nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
