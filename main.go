package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventdir/config"
	"eventdir/db"
	"eventdir/deref"
	"eventdir/entity"
	"eventdir/geocode"
	"eventdir/middleware"
	"eventdir/models"
	"eventdir/mq"
	"eventdir/ratelim"
	"eventdir/rdx"
	"eventdir/routes"
	"eventdir/validate"
	"eventdir/workflow"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func openStore(ctx context.Context, cfg *config.Config) (db.Store, func(), error) {
	if cfg.Store == "memory" {
		log.Println("Using in-memory store; data is lost on exit")
		return db.NewMemory(), func() {}, nil
	}
	m, err := db.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		log.Printf("EnsureIndexes: %v", err)
	}
	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Close(ctx); err != nil {
			log.Printf("Mongo disconnect: %v", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, closeStore, err := openStore(startCtx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("❌ %v", err)
	}
	defer closeStore()

	var geo geocode.Resolver = geocode.NewClient(cfg.Geocoder.URL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)
	var notifier mq.Notifier = mq.Log{}
	var conn *redis.Client
	if cfg.Redis.Addr != "" {
		conn, err = rdx.Connect(startCtx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Printf("Redis unavailable, running without cache and notifications: %v", err)
		} else {
			defer conn.Close()
			geo = &geocode.Cached{Next: geo, Redis: conn, TTL: cfg.Geocoder.CacheTTL}
			notifier = mq.NewRedis(conn)
			go func() {
				err := mq.Listen(ctx, conn, mq.Channel, func(e models.Index) {
					log.Printf("[ModerationWorker] %s %s %s (was %s)", e.Method, e.EntityType, e.EntityId, e.PreviousId)
				})
				if err != nil && ctx.Err() == nil {
					log.Printf("[ModerationWorker] stopped: %v", err)
				}
			}()
		}
	}
	cancel()

	v := validate.New(store, geo, cfg.Locale())
	env := &entity.Env{
		Store:    store,
		Deref:    deref.New(store, cfg.Locale()),
		Validate: v,
		Workflow: workflow.New(store, v, notifier),
	}
	router := routes.New(env, middleware.NewAuth(cfg.JWTSecret), ratelim.NewRateLimiter(cfg.RateLimit, cfg.RateBurst))

	// apply middleware: CORS → security headers → timeout → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)
	handler := middleware.Logging(middleware.Timeout(cfg.RequestTimeout)(middleware.SecurityHeaders(corsHandler)))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
	log.Println("✅ Server stopped cleanly")
}
