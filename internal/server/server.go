package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lovestory/apiserver/config"
	"github.com/lovestory/apiserver/internal/db"
	"github.com/lovestory/apiserver/internal/handlers"
	"github.com/lovestory/apiserver/internal/services"
	"github.com/lovestory/apiserver/internal/storage"
	"github.com/lovestory/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and store connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	mongo      *mongo.Client
}

// New constructs a Server with its store and media connections opened and
// every route registered.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	mongoClient, database, err := db.Open(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("ACCESS_TOKEN_SECRET"))
	if jwtSecret == "" {
		_ = mongoClient.Disconnect(context.Background())
		return nil, errors.New("ACCESS_TOKEN_SECRET is required")
	}

	mediaStorage, err := newMediaStorage(ctx, cfg.Media)
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}
	if err := mediaStorage.EnsureBucket(ctx); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}
	log.Printf("media storage ready: bucket %s", mediaStorage.Bucket())

	userRepo := store.NewUserRepository(database)
	storyRepo := store.NewStoryRepository(database)

	userService := services.NewUserService(userRepo)
	storyService := services.NewStoryService(storyRepo)
	mediaService := services.NewMediaService(mediaStorage, cfg.Media.PublicBaseURL)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, jwtSecret, authMiddleware)
	handlers.StoryRouter(router, storyService, mediaService, authMiddleware)
	handlers.MediaRouter(router, mediaService)

	assetsDir := cfg.Media.AssetsDir
	router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(assetsDir))))

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		mongo:      mongoClient,
	}, nil
}

func newMediaStorage(ctx context.Context, cfg config.MediaConfig) (*storage.Storage, error) {
	switch cfg.Backend {
	case config.MediaBackendGCS:
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(backend), nil
	case config.MediaBackendMinio, "":
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(backend), nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and disconnects the store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mongo != nil {
		if derr := s.mongo.Disconnect(ctx); err == nil {
			err = derr
		}
	}
	return err
}
