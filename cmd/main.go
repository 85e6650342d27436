// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"voice_kani/internal/config"
	"voice_kani/internal/handlers"
	"voice_kani/internal/middleware"
	"voice_kani/internal/model"
	"voice_kani/internal/repository"
	"voice_kani/internal/service"
	"voice_kani/internal/wanikani"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	//　設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	// Configを読み込み
	if err := config.LoadConfig("./configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		tintOpts := &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		}
		handler = tint.NewHandler(os.Stderr, tintOpts)
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}
		handler = slog.NewJSONHandler(os.Stderr, jsonOpts)
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...",
		slog.String("app", config.AppName),
		slog.String("version", config.AppVersion),
	)

	// 2. ストアバックエンドの初期化
	var sessionRepo repository.SessionRepository
	var healthCheck func(ctx context.Context) error

	switch strings.ToLower(config.Cfg.Store.Backend) {
	case config.StoreBackendPostgres:
		db, err := repository.NewDB(config.Cfg.Database.URL, logger)
		if err != nil {
			slog.Error("Error initializing database", slog.Any("error", err))
			os.Exit(1)
		}
		sqlDB, err := db.DB()
		if err != nil {
			slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				slog.Error("Error closing database connection", slog.Any("error", err))
			} else {
				slog.Info("Database connection closed.")
			}
		}()
		sessionRepo = repository.NewGormSessionRepository(db)
		healthCheck = func(ctx context.Context) error { return sqlDB.PingContext(ctx) }
		slog.Info("Using postgres session store")

	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.Cfg.Redis.Addr,
			Password: config.Cfg.Redis.Password,
			DB:       config.Cfg.Redis.DB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				slog.Error("Error closing redis connection", slog.Any("error", err))
			}
		}()
		sessionRepo = repository.NewRedisSessionRepository(client)
		healthCheck = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		slog.Info("Using redis session store", slog.String("addr", config.Cfg.Redis.Addr))

	default:
		sessionRepo = repository.NewMemorySessionRepository()
		healthCheck = func(ctx context.Context) error { return nil }
		slog.Info("Using in-memory session store")
	}

	// 3. Dependency Injection
	wkClient := wanikani.NewClient(
		config.Cfg.WaniKani.BaseURL,
		config.Cfg.WaniKani.APIKey,
		config.Cfg.WaniKani.Revision,
	)

	sessionService := service.NewSessionService(sessionRepo, &config.Cfg)

	sessionHandler := handlers.NewSessionHandler(sessionService, logger)
	userHandler := handlers.NewUserHandler(sessionService, logger)
	reviewHandler := handlers.NewReviewHandler(wkClient, sessionService, logger)
	voiceHandler := handlers.NewVoiceHandler(model.VoiceInputConfig{
		Language:        config.Cfg.Voice.Language,
		MaxDurationMs:   config.Cfg.Voice.MaxDurationMs,
		MinDurationMs:   config.Cfg.Voice.MinDurationMs,
		Continuous:      config.Cfg.Voice.Continuous,
		InterimResults:  config.Cfg.Voice.InterimResults,
		MaxAlternatives: config.Cfg.Voice.MaxAlternatives,
	}, logger)

	// 4. Setup Router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	corsOptions := cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
	}
	corsHandler := cors.New(corsOptions)
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.UserContextMiddleware)

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocketは長時間接続のためタイムアウトを適用しない
		r.Get("/voice/stream", voiceHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(60 * time.Second))

			// Session routes
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.StartSession)
				r.Get("/current", sessionHandler.GetCurrentSession)
				r.Delete("/current", sessionHandler.ClearCurrentSession)
				r.Get("/{session_id}", sessionHandler.GetSession)
				r.Post("/{session_id}/answers", sessionHandler.SubmitAnswer)
				r.Post("/{session_id}/end", sessionHandler.EndSession)
				r.Get("/{session_id}/progress", sessionHandler.GetProgress)
				r.Post("/{session_id}/items/{item_id}/presented", sessionHandler.MarkItemPresented)
				r.Post("/{session_id}/voice-failures", sessionHandler.RecordVoiceFailure)
			})

			// WaniKani連携
			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", reviewHandler.GetDueItems)
				r.Post("/sessions", reviewHandler.StartWaniKaniSession)
				r.Put("/{review_id}/result", reviewHandler.SubmitResult)
			})

			// ユーザーデータ
			r.Route("/user", func(r chi.Router) {
				r.Get("/sessions", userHandler.ListSessions)
				r.Get("/export", userHandler.ExportData)
				r.Delete("/data", userHandler.DeleteData)
			})
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := healthCheck(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Health check failed", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // WebSocketのためWriteTimeoutは設定しない
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	slog.Info("Server exited gracefully")
}
