package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/movie-recommender/internal/auth"
	"github.com/ayush/movie-recommender/internal/config"
	"github.com/ayush/movie-recommender/internal/logging"
	"github.com/ayush/movie-recommender/internal/middleware"
	"github.com/ayush/movie-recommender/internal/poster"
	"github.com/ayush/movie-recommender/internal/recommend"
	"github.com/ayush/movie-recommender/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		var cerr *config.ConfigError
		if errors.As(err, &cerr) {
			logging.Fatal().Str("key", cerr.Key).Msg(cerr.Reason)
		}
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	if err := store.EnsureDatabase(ctx, cfg.Database.AdminDSN(), cfg.Database.Name); err != nil {
		logging.Fatal().Err(err).Msg("postgres ensure database")
	}
	pgPool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logging.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.EnsureSchema(ctx); err != nil {
		logging.Fatal().Err(err).Msg("postgres schema")
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		logging.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MongoDB (optional) ───────────────────────────────────
	var history recommend.HistoryStore
	if cfg.Mongo.URI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			logging.Fatal().Err(err).Msg("mongo connect")
		}
		defer mongoClient.Disconnect(context.Background())
		mongoStore := store.NewMongoStore(mongoClient.Database(cfg.Mongo.DB))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			logging.Fatal().Err(err).Msg("mongo indexes")
		}
		history = mongoStore
	} else {
		logging.Info().Msg("MONGO_URI not set, recommendation history disabled")
	}

	// ── Artifacts ────────────────────────────────────────────
	var src recommend.Source = recommend.FileSource{Dir: cfg.Artifacts.Dir}
	if cfg.Artifacts.Source == "minio" {
		minioStore, err := store.NewMinioStore(
			ctx, cfg.Minio.Endpoint, cfg.Minio.AccessKey,
			cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL,
		)
		if err != nil {
			logging.Fatal().Err(err).Msg("minio connect")
		}
		src = minioStore
	}
	catalog, err := recommend.Load(ctx, src, cfg.Artifacts.MoviesFile, cfg.Artifacts.SimilarityFile)
	if err != nil {
		logging.Fatal().Err(err).Str("source", cfg.Artifacts.Source).Msg("load catalog")
	}
	logging.Info().Int("movies", catalog.Len()).Str("source", cfg.Artifacts.Source).Msg("catalog loaded")

	// ── Services ─────────────────────────────────────────────
	posters := poster.NewClient(cfg.TMDB.BaseURL, cfg.TMDB.APIKey, cfg.TMDB.Timeout)
	engine := recommend.NewEngine(catalog, posters)
	authService := auth.NewService(pgStore, auth.NewHasher(cfg.Auth.PasswordScheme))

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(authService, sessions)
	recommendHandler := recommend.NewHandler(engine, history)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes (public, rate limited)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(cfg.Auth.RateLimit, cfg.Auth.RateLimitWindow))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireAuth(sessions)).Get("/me", authHandler.Me)
	})

	// Movie routes (protected)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Get("/movies", recommendHandler.Movies)
		r.Get("/recommendations", recommendHandler.Recommend)
		r.Get("/history", recommendHandler.History)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
}
