package main

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"clinical-scribe/internal/auth"
	"clinical-scribe/internal/cache"
	"clinical-scribe/internal/capture"
	"clinical-scribe/internal/config"
	"clinical-scribe/internal/consultation"
	"clinical-scribe/internal/doctor"
	"clinical-scribe/internal/notegen"
	"clinical-scribe/internal/platform/logging"
	"clinical-scribe/internal/report"
	"clinical-scribe/internal/transcribe"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "clinical-scribe")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 1. Infrastructure
	db, err := connectDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("could not connect to database", zap.Error(err))
	}
	defer db.Close()

	runMigrations(cfg, logger)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	// 2. Clients
	transcriber := transcribe.NewClient(cfg.TranscribeURL, logger)
	noteGen := notegen.NewClient(cfg.NoteGenURL, cfg.NoteGenAPIKey, logger)

	// 3. Services
	store := consultation.NewStore(cfg.ConsultationLogPath, logger)
	consultationSvc := consultation.NewService(store, transcriber, noteGen, logger)
	reportSvc := report.NewService(logger)
	consultationHandler := consultation.NewHandler(consultationSvc, reportSvc, logger)

	queryCache := cache.New(rdb, "doctors:query:", cache.DefaultTTL, logger)
	doctorRepo := doctor.NewRepository(db, logger)
	doctorHandler := doctor.NewHandler(doctorRepo, queryCache, logger)

	authHandler := auth.NewHandler(cfg.JWTSecret, logger)

	captureManager := capture.NewManager(capture.StreamOpener{SampleRate: 16000, Channels: 1}, logger)
	captureHandler := capture.NewHandler(captureManager, logger)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultationHandler)
		doctor.RegisterRoutes(r, doctorHandler)
		auth.RegisterRoutes(r, authHandler)
		capture.RegisterRoutes(r, captureHandler)
	})

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func connectDB(connStr string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			logger.Info("connected to database")
			return db, nil
		}
		logger.Warn("waiting for database", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func runMigrations(cfg *config.Config, logger *zap.Logger) {
	m, err := migrate.New(cfg.MigrationsDir, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("migration init failed", zap.Error(err))
		return
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Warn("migration up failed", zap.Error(err))
		return
	}
	logger.Info("migrations applied")
}
