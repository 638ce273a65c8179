package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amit43verma/alumni-portal/config"
	"github.com/Amit43verma/alumni-portal/repository"
	"github.com/Amit43verma/alumni-portal/services"
	"github.com/Amit43verma/alumni-portal/storage"
	"github.com/Amit43verma/alumni-portal/ws"
)

// testServer wires the full HTTP and websocket surface against in-memory
// repositories, mirroring the wiring in cmd/server.
type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	hub   *ws.Hub
	likes *repository.InMemoryLikeRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Config{
		JWTSecret:        "test-secret",
		JWTExpiry:        1,
		MaxMessageLength: 2000,
		MaxUploadBytes:   1 << 20,
	}

	userRepo := repository.NewInMemoryUserRepo()
	roomRepo := repository.NewInMemoryRoomRepo()
	msgRepo := repository.NewInMemoryMessageRepo()
	likeRepo := repository.NewInMemoryLikeRepo()

	mediaStore, err := storage.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	hub := ws.NewHub(ws.NewPresenceTracker())
	go hub.Run()

	authSvc := services.NewAuthService(userRepo, &cfg)
	userSvc := services.NewUserService(userRepo)
	roomSvc := services.NewRoomService(roomRepo, userRepo, msgRepo)
	msgSvc := services.NewMessageService(msgRepo, roomRepo, userRepo, hub, &cfg)

	authH := NewAuthHandler(authSvc)
	userH := NewUserHandler(userSvc)
	chatH := NewChatHandler(hub, roomSvc, msgSvc, authSvc, likeRepo, mediaStore, cfg.MaxUploadBytes)

	router := mux.NewRouter()
	router.HandleFunc("/api/auth/signup", authH.Signup).Methods("POST")
	router.HandleFunc("/api/auth/login", authH.Login).Methods("POST")
	router.HandleFunc("/api/auth/me", authH.Me).Methods("GET")
	router.HandleFunc("/api/users", authH.WithAuth(userH.List)).Methods("GET")
	router.HandleFunc("/api/chat/rooms", authH.WithAuth(chatH.Rooms)).Methods("GET")
	router.HandleFunc("/api/chat/rooms", authH.WithAuth(chatH.CreateRoom)).Methods("POST")
	router.HandleFunc("/api/chat/rooms/{roomId}/messages", authH.WithAuth(chatH.Messages)).Methods("GET")
	router.HandleFunc("/api/chat/rooms/{roomId}/messages", authH.WithAuth(chatH.SendMessage)).Methods("POST")
	router.HandleFunc("/api/chat/rooms/{roomId}/members", authH.WithAuth(chatH.AddMembers)).Methods("POST")
	router.HandleFunc("/api/chat/rooms/{roomId}/leave", authH.WithAuth(chatH.Leave)).Methods("DELETE")
	router.HandleFunc("/ws", chatH.WS)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{t: t, srv: srv, hub: hub, likes: likeRepo}
}

type account struct {
	ID    string
	Token string
}

func (ts *testServer) signup(name, email string) account {
	ts.t.Helper()
	status, body := ts.request(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "secret123",
		"batch":    "2015",
		"center":   "Pune",
	})
	require.Equal(ts.t, http.StatusCreated, status, "signup failed: %s", body)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(ts.t, json.Unmarshal(body, &resp))
	require.NotEmpty(ts.t, resp.Token)
	return account{ID: resp.User.ID, Token: resp.Token}
}

func (ts *testServer) request(method, path, token string, payload any) (int, []byte) {
	ts.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(ts.t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, body)
	require.NoError(ts.t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	return resp.StatusCode, raw
}

func (ts *testServer) dial(token string) *websocket.Conn {
	ts.t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Frame{Event: event, Data: raw}))
}

// readUntil reads frames, skipping presence noise, until one with the
// wanted event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) ws.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var frame ws.Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Event == event {
			return frame
		}
	}
}

func TestSignupLoginMe(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")

	status, body := ts.request(http.MethodPost, "/api/auth/login", "", map[string]any{
		"identifier": "alice@example.com",
		"password":   "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))

	status, body = ts.request(http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		User struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, alice.ID, me.User.ID)
	assert.Equal(t, "Alice", me.User.Name)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("Alice", "alice@example.com")

	status, body := ts.request(http.MethodPost, "/api/auth/login", "", map[string]any{
		"identifier": "alice@example.com",
		"password":   "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "Invalid credentials")
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.request(http.MethodGet, "/api/chat/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Invalid token", resp.Message)
}

// Two users open a direct chat, attach over the websocket, and one sends
// a message; both connections receive the fan-out and the history shows
// the persisted message.
func TestDirectChatScenario(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")
	bob := ts.signup("Bob", "bob@example.com")

	status, body := ts.request(http.MethodPost, "/api/chat/rooms", alice.Token, map[string]any{
		"memberIds": []string{bob.ID},
		"isGroup":   false,
	})
	require.Equal(t, http.StatusCreated, status, "first direct room creation: %s", body)
	var created struct {
		Room struct {
			ID      string   `json:"id"`
			Name    string   `json:"name"`
			Members []string `json:"members"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "Direct Chat", created.Room.Name)
	assert.Len(t, created.Room.Members, 2)

	// The reverse request returns the same room, not a second one.
	status, body = ts.request(http.MethodPost, "/api/chat/rooms", bob.Token, map[string]any{
		"memberIds": []string{alice.ID},
		"isGroup":   false,
	})
	require.Equal(t, http.StatusOK, status)
	var again struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, created.Room.ID, again.Room.ID)

	aliceConn := ts.dial(alice.Token)
	bobConn := ts.dial(bob.Token)

	sendFrame(t, aliceConn, ws.EventJoinRoom, created.Room.ID)
	sendFrame(t, bobConn, ws.EventJoinRoom, created.Room.ID)
	require.Eventually(t, func() bool {
		return ts.hub.CountAttached(created.Room.ID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, aliceConn, ws.EventSendMessage, map[string]string{
		"roomId": created.Room.ID,
		"text":   "hello bob",
	})

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		frame := readUntil(t, conn, ws.EventNewMessage)
		var msg struct {
			RoomID string `json:"roomId"`
			Text   string `json:"text"`
			Sender struct {
				Name string `json:"name"`
			} `json:"sender"`
		}
		require.NoError(t, json.Unmarshal(frame.Data, &msg))
		assert.Equal(t, created.Room.ID, msg.RoomID)
		assert.Equal(t, "hello bob", msg.Text)
		assert.Equal(t, "Alice", msg.Sender.Name)
	}

	status, body = ts.request(http.MethodGet,
		fmt.Sprintf("/api/chat/rooms/%s/messages", created.Room.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var history struct {
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hello bob", history.Messages[0].Text)
}

func TestMessagesForbiddenForNonMember(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")
	bob := ts.signup("Bob", "bob@example.com")
	carol := ts.signup("Carol", "carol@example.com")

	status, body := ts.request(http.MethodPost, "/api/chat/rooms", alice.Token, map[string]any{
		"memberIds": []string{bob.ID},
		"isGroup":   false,
	})
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	status, _ = ts.request(http.MethodGet,
		fmt.Sprintf("/api/chat/rooms/%s/messages", created.Room.ID), carol.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.request(http.MethodPost,
		fmt.Sprintf("/api/chat/rooms/%s/messages", created.Room.ID), carol.Token,
		map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestCreateDirectRoomRejectsBadMemberCount(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")

	status, _ := ts.request(http.MethodPost, "/api/chat/rooms", alice.Token, map[string]any{
		"memberIds": []string{},
		"isGroup":   false,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSendMediaMessage(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")
	bob := ts.signup("Bob", "bob@example.com")

	status, body := ts.request(http.MethodPost, "/api/chat/rooms", alice.Token, map[string]any{
		"memberIds": []string{bob.ID},
		"isGroup":   false,
	})
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", "look at this"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="media"; filename="pic.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost,
		ts.srv.URL+fmt.Sprintf("/api/chat/rooms/%s/messages", created.Room.ID), &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "media send: %s", raw)

	var sent struct {
		Message struct {
			Text     string `json:"text"`
			MediaURL string `json:"mediaUrl"`
			Type     string `json:"messageType"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &sent))
	assert.Equal(t, "look at this", sent.Message.Text)
	assert.True(t, strings.HasPrefix(sent.Message.MediaURL, "/uploads/"), "got %q", sent.Message.MediaURL)
	assert.Equal(t, "image", sent.Message.Type)
}

func TestGroupLeaveFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")
	bob := ts.signup("Bob", "bob@example.com")
	carol := ts.signup("Carol", "carol@example.com")

	status, body := ts.request(http.MethodPost, "/api/chat/rooms", alice.Token, map[string]any{
		"name":      "Batch of 2015",
		"memberIds": []string{bob.ID, carol.ID},
		"isGroup":   true,
	})
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		Room struct {
			ID    string `json:"id"`
			Admin string `json:"admin"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, alice.ID, created.Room.Admin)

	status, _ = ts.request(http.MethodDelete,
		fmt.Sprintf("/api/chat/rooms/%s/leave", created.Room.ID), bob.Token, nil)
	assert.Equal(t, http.StatusOK, status)

	// Leaving twice: bob is no longer a member.
	status, _ = ts.request(http.MethodDelete,
		fmt.Sprintf("/api/chat/rooms/%s/leave", created.Room.ID), bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// The room no longer shows up for bob.
	status, body = ts.request(http.MethodGet, "/api/chat/rooms", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var listing struct {
		Rooms []json.RawMessage `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Empty(t, listing.Rooms)
}

func TestUserSearch(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")
	ts.signup("Bob", "bob@example.com")
	ts.signup("Bobby", "bobby@example.com")

	status, body := ts.request(http.MethodGet, "/api/users?search=bob", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var resp struct {
		Users []struct {
			Name string `json:"name"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	names := make([]string, 0, len(resp.Users))
	for _, u := range resp.Users {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{"Bob", "Bobby"}, names)
}

func TestPostLikeFanOutOverSocket(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice", "alice@example.com")
	bob := ts.signup("Bob", "bob@example.com")

	aliceOID, err := primitive.ObjectIDFromHex(alice.ID)
	require.NoError(t, err)
	bobOID, err := primitive.ObjectIDFromHex(bob.ID)
	require.NoError(t, err)

	postID := primitive.NewObjectID()
	ts.likes.SetPostLikes(postID, []primitive.ObjectID{aliceOID, bobOID})

	aliceConn := ts.dial(alice.Token)
	bobConn := ts.dial(bob.Token)
	sendFrame(t, aliceConn, ws.EventJoinPost, postID.Hex())
	sendFrame(t, bobConn, ws.EventJoinPost, postID.Hex())
	require.Eventually(t, func() bool {
		return ts.hub.CountAttached("post:"+postID.Hex()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, bobConn, ws.EventPostLiked, map[string]string{"postId": postID.Hex()})

	frame := readUntil(t, aliceConn, ws.EventPostLikeUpdate)
	var update struct {
		PostID       string   `json:"postId"`
		LikesCount   int      `json:"likesCount"`
		LikedUserIDs []string `json:"likedUserIds"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &update))
	assert.Equal(t, postID.Hex(), update.PostID)
	assert.Equal(t, 2, update.LikesCount)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, update.LikedUserIDs)
}

func TestWSRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
