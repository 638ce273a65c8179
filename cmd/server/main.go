package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Amit43verma/alumni-portal/config"
	"github.com/Amit43verma/alumni-portal/database"
	"github.com/Amit43verma/alumni-portal/handlers"
	"github.com/Amit43verma/alumni-portal/repository"
	"github.com/Amit43verma/alumni-portal/services"
	"github.com/Amit43verma/alumni-portal/storage"
	"github.com/Amit43verma/alumni-portal/ws"
)

// loggingMiddleware adds request logging
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	cfg := config.Load()

	log.Printf("Starting alumni portal server on port %s", cfg.Port)

	// --- storage ---
	client, db, err := database.Connect(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer database.Disconnect(client)

	if err := database.EnsureIndexes(db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	userRepo := repository.NewMongoUserRepo(db)
	roomRepo := repository.NewMongoRoomRepo(db)
	msgRepo := repository.NewMongoMessageRepo(db)
	likeRepo := repository.NewMongoLikeRepo(db)

	mediaStore, err := storage.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("Failed to set up media store: %v", err)
	}

	// --- websocket hub ---
	presence := ws.NewPresenceTracker()
	hub := ws.NewHub(presence)
	go hub.Run()

	// --- services ---
	authSvc := services.NewAuthService(userRepo, &cfg)
	userSvc := services.NewUserService(userRepo)
	roomSvc := services.NewRoomService(roomRepo, userRepo, msgRepo)
	msgSvc := services.NewMessageService(msgRepo, roomRepo, userRepo, hub, &cfg)

	// --- handlers ---
	authH := handlers.NewAuthHandler(authSvc)
	userH := handlers.NewUserHandler(userSvc)
	chatH := handlers.NewChatHandler(hub, roomSvc, msgSvc, authSvc, likeRepo, mediaStore, cfg.MaxUploadBytes)

	// --- routes ---
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

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

	router.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(loggingMiddleware(router))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on http://localhost:%s", cfg.Port)
		log.Printf("WS endpoint: ws://localhost:%s/ws?token=<token>", cfg.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
