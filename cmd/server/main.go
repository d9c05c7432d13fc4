package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/config"
	"github.com/Dias221467/Chat_Manager/internal/database"
	"github.com/Dias221467/Chat_Manager/internal/handlers"
	"github.com/Dias221467/Chat_Manager/internal/jobs"
	"github.com/Dias221467/Chat_Manager/internal/realtime"
	"github.com/Dias221467/Chat_Manager/internal/repository"
	"github.com/Dias221467/Chat_Manager/internal/repository/memory"
	cronjobs "github.com/Dias221467/Chat_Manager/internal/scheduler"
	"github.com/Dias221467/Chat_Manager/internal/services"
	"github.com/Dias221467/Chat_Manager/internal/session"
	"github.com/Dias221467/Chat_Manager/internal/storage"
	"github.com/Dias221467/Chat_Manager/pkg/email"
	"github.com/Dias221467/Chat_Manager/pkg/logger"
	"github.com/Dias221467/Chat_Manager/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type stores struct {
	users    repository.UserStore
	accounts repository.AccountStore
	friends  repository.FriendRequestStore
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Log.Warn("Using in-memory store; data is lost on restart")
		m := memory.NewStore()
		return &stores{users: m, accounts: m, friends: m}, func() {}, nil
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	for _, ensure := range []func(context.Context) error{
		userRepo.EnsureIndexes,
		accountRepo.EnsureIndexes,
		friendRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			database.Disconnect(db)
			return nil, nil, err
		}
	}

	return &stores{users: userRepo, accounts: accountRepo, friends: friendRepo}, func() { database.Disconnect(db) }, nil
}

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger(cfg.LogLevel)
	logger.Log.WithField("env", cfg.AppEnv).Info("Logger initialized")

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	st, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}
	defer closeStores()

	redisClient, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Log.Fatalf("Redis connection error: %v", err)
	}
	defer redisClient.Close()

	var blobs services.BlobUploader
	var fileStore *storage.FileStore
	switch cfg.BlobDriver {
	case config.BlobLocal:
		fileStore = storage.NewFileStore(cfg.UploadDir, cfg.PublicBaseURL)
		blobs = fileStore
	default:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Log.Fatalf("Blob storage error: %v", err)
		}
		blobs = s3Store
	}

	// --- Services ---
	mailer := email.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPassword)
	authService := services.NewAuthService(st.accounts, st.users, blobs, session.NewRevocationStore(redisClient, ""), mailer, services.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		TokenExpiry:      cfg.TokenExpiry,
		KeepAliveExpiry:  cfg.KeepAliveExpiry,
		ResetContinueURL: cfg.ResetContinueURL,
	})
	userService := services.NewUserService(st.users)
	friendService := services.NewFriendService(st.friends, st.users, realtime.NewRedisBroker(redisClient))

	// --- Jobs ---
	scheduler, err := cronjobs.StartMaintenanceCronJobs(jobs.NewResetTokenSweeper(st.accounts))
	if err != nil {
		logger.Log.Fatalf("Scheduler error: %v", err)
	}
	defer scheduler.Stop()

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(authService, userService)
	friendHandler := handlers.NewFriendHandler(friendService, userService)
	streamHandler := handlers.NewFriendStreamHandler(friendService, authService, cfg.AllowedOrigins)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router, userHandler, friendHandler, streamHandler, authService)

	if fileStore != nil {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(fileStore.Dir()))))
	}

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("Graceful shutdown failed")
	}
}
