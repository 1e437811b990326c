package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chathub/internal/config"
	"github.com/chathub/internal/handler"
	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/middleware"
	"github.com/chathub/internal/observability"
	"github.com/chathub/internal/presence"
	"github.com/chathub/internal/push"
	"github.com/chathub/internal/retention"
	"github.com/chathub/internal/session"
	sessionmemory "github.com/chathub/internal/session/memory"
	sessionredis "github.com/chathub/internal/session/redis"
	"github.com/chathub/internal/startup"
	"github.com/chathub/internal/store"
	"github.com/chathub/internal/store/jsonfile"
	"github.com/chathub/internal/store/memory"
	"github.com/chathub/internal/store/pgdoc"
	"github.com/chathub/internal/ws"
)

func main() {
	logger.SetPrefix("api")
	dev := flag.Bool("dev", false, "with the postgres backend, start embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting chat service")
	cfg := config.Load()

	backend, cleanup, err := openBackend(cfg, *dev)
	if err != nil {
		logger.Errorf("open store backend: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	openCtx, openCancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := store.Open(openCtx, backend)
	openCancel()
	if err != nil {
		logger.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Infof("store ready (backend=%s)", cfg.StoreBackend)

	tokens := openTokenStore(cfg)
	defer tokens.Close()

	pushSvc := openPushService()

	reg := presence.NewRegistry()
	hub := ws.NewHub(st, reg, pushSvc)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	retentionCtx, retentionCancel := context.WithCancel(context.Background())
	defer retentionCancel()
	if err := retention.Start(retentionCtx, st, cfg.RetentionCron, cfg.MessageTTL); err != nil {
		logger.Errorf("retention: %v", err)
		os.Exit(1)
	}

	authH := handler.NewAuthHandler(st, tokens, hub)
	groupH := handler.NewGroupHandler(st, hub)
	pushH := handler.NewPushHandler(pushSvc)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Never compress WebSocket upgrades: the wrapped ResponseWriter would
	// lose http.Hijacker and the upgrade fails with a 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(observability.HTTPMetrics)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/register", authH.Register)
	r.Post("/api/login", authH.Login)
	r.Get("/api/push/vapid-public-key", pushH.VAPIDPublicKey)
	r.Get("/ws", wsH.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(tokens))
		r.Post("/api/user/update", authH.UpdateUser)
		r.Post("/api/groups/create", groupH.Create)
		r.Post("/api/push/subscribe", pushH.Subscribe)
		r.Post("/api/push/unsubscribe", pushH.Unsubscribe)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

// openBackend builds the document backend named in the config. The
// returned cleanup stops whatever the backend needs stopped (the
// embedded database in dev mode); the backend itself is closed by the
// store.
func openBackend(cfg *config.Config, dev bool) (store.Backend, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "jsonfile", "":
		return jsonfile.New(cfg.DataFile), noop, nil
	case "memory":
		return memory.New(), noop, nil
	case "postgres":
		cleanup := noop
		if dev {
			embedded, err := startEmbeddedPostgres(cfg)
			if err != nil {
				return nil, noop, fmt.Errorf("embedded postgres: %w", err)
			}
			cleanup = func() {
				logger.Info("stopping embedded postgres...")
				if err := embedded.Stop(); err != nil {
					logger.Errorf("embedded postgres stop: %v", err)
				}
			}
		}
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("parse db config: %w", err)
		}
		pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		backend, err := pgdoc.New(ctx, pool)
		if err != nil {
			pool.Close()
			cleanup()
			return nil, noop, fmt.Errorf("init db schema: %w", err)
		}
		return backend, cleanup, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openTokenStore(cfg *config.Config) session.TokenStore {
	if cfg.RedisURL == "" {
		logger.Info("sessions: in-memory token store")
		return sessionmemory.New()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := sessionredis.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Errorf("sessions: redis unavailable (%v), falling back to in-memory", err)
		return sessionmemory.New()
	}
	logger.Info("sessions: redis token store")
	return client
}

func openPushService() *push.Service {
	keys, err := push.EnsureVAPIDKeys("")
	if err != nil {
		logger.Errorf("push disabled, no VAPID keys: %v", err)
		return nil
	}
	return push.NewService(keys)
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chathub"
		password = "chathub_secret"
		database = "chathub"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
