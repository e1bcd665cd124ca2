package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cpcoach/backend/internal/auth"
	"github.com/cpcoach/backend/internal/catalog"
	"github.com/cpcoach/backend/internal/coach"
	"github.com/cpcoach/backend/internal/config"
	"github.com/cpcoach/backend/internal/database"
	"github.com/cpcoach/backend/internal/feedback"
	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/middleware"
	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/practice"
	"github.com/cpcoach/backend/internal/ratingsource"
	"github.com/cpcoach/backend/internal/recommend"
	"github.com/cpcoach/backend/internal/supervisor"
	"github.com/cpcoach/backend/internal/userstate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the catalog refresher",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func newRatingClient(cfg *config.Config) *ratingsource.Client {
	return ratingsource.NewClient(ratingsource.ClientConfig{
		BaseURL:           cfg.RatingSource.BaseURL,
		Timeout:           cfg.RatingSource.Timeout,
		MaxRetries:        cfg.RatingSource.MaxRetries,
		RetryBase:         cfg.RatingSource.RetryBase,
		RequestsPerSecond: cfg.RatingSource.RequestsPerSecond,
		BreakerFailures:   cfg.RatingSource.BreakerFailures,
		BreakerCooldown:   cfg.RatingSource.BreakerCooldown,
	})
}

// openDatabase connects and migrates, or returns nil when the database is
// disabled.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	db, err := database.Connect(ctx, cfg.Database.Options())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newCache(ctx context.Context, cfg *config.Config) (ratingsource.Cache, func(), error) {
	if cfg.Redis.Addr == "" {
		return ratingsource.NewMemoryCache(cfg.Cache.UserMaxEntries), func() {}, nil
	}
	client, err := ratingsource.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return ratingsource.NewRedisCache(client, "cpcoach:"), func() { client.Close() }, nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.WithComponent("server")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	var (
		store     userstate.Store
		persister catalog.Persister
	)
	if db != nil {
		defer db.Close()
		store = userstate.NewPostgresStore(db)
		persister = catalog.NewStore(db)
	} else {
		log.Warn().Msg("database disabled, user state is kept in memory")
		store = userstate.NewMemoryStore()
	}

	cache, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	client := newRatingClient(cfg)
	source := ratingsource.NewCachedSource(client, cache, cfg.Cache.UserTTL, cfg.Cache.ProblemsTTL)

	// The refresher talks to the API directly so a refresh is never served
	// from cache.
	manager := catalog.NewManager(catalog.New(), persister, client, cfg.Cache.ProblemsTTL)
	if err := manager.Load(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		log.Error().Err(err).Msg("initial catalog load failed, starting with an empty catalog")
	}

	svc := practice.NewService(store, manager, source, practice.Options{
		Engine: recommend.Engine{
			Limit:      cfg.Recommend.Limit,
			Window:     cfg.Recommend.Window,
			TopicFloor: cfg.Recommend.TopicFloor,
		},
		Processor:    feedback.NewProcessor(loc),
		Coach:        coach.New(cfg.Coach.AnthropicAPIKey, cfg.Coach.Model, cfg.Coach.CLIPath, cfg.Coach.Timeout),
		StaleAfter:   cfg.RatingSource.RefreshInterval,
		SkipCooldown: cfg.Recommend.SkipCooldown,
	})

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := practice.NewHandler(svc, cfg.Auth.RequireToken)

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst))
	handler.RegisterRoutes(api, middleware.Auth(issuer, cfg.Auth.RequireToken), middleware.AdminOnly(cfg.Auth.AdminKeyHash))
	if issuer.Enabled() {
		pick := func() (models.Problem, bool) { return manager.Catalog().Snapshot().Random() }
		sessions := auth.NewHandler(issuer, svc, client, pick)
		api.HandleFunc("/auth/challenge", sessions.CreateChallenge).Methods("POST")
		api.HandleFunc("/auth/session", sessions.CreateSession).Methods("POST")
	}

	r.HandleFunc("/health", handler.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      c.Handler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sup := supervisor.New("cpcoach", supervisor.Config{})
	sup.Add(supervisor.NewHTTPService(server, 0))
	sup.Add(manager)

	log.Info().Str("addr", server.Addr).Int("problems", manager.Catalog().Snapshot().Len()).
		Bool("database", db != nil).Bool("redis", cfg.Redis.Addr != "").Msg("server starting")

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
