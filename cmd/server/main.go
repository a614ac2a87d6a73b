package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/technohub6911/smartcropx/internal/api"
	"github.com/technohub6911/smartcropx/internal/config"
	"github.com/technohub6911/smartcropx/internal/data"
	"github.com/technohub6911/smartcropx/internal/health"
	"github.com/technohub6911/smartcropx/internal/ingest"
	"github.com/technohub6911/smartcropx/internal/irrigation"
	"github.com/technohub6911/smartcropx/internal/middleware"
	"github.com/technohub6911/smartcropx/internal/ratelimit"
	"github.com/technohub6911/smartcropx/internal/realtime"
	"github.com/technohub6911/smartcropx/internal/telemetry"
)

const serviceName = "smartcropx"

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "Path to config file")
	flag.Parse()

	// 1. Config
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []health.Check

	// 2. Settings store: PostgreSQL when configured, memory otherwise
	var settings irrigation.SettingsStore = irrigation.NewMemorySettings()
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("DB open error: %v", err)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("DB ping error: %v", err)
		}
		defer db.Close()
		settings = irrigation.NewRepoSettings(data.SettingsModel{DB: db})
		checks = append(checks, health.PostgresCheck(db))
		log.Println("Settings: PostgreSQL")
	} else {
		log.Println("Settings: in-memory (postgres.dsn empty)")
	}

	// 3. Telemetry archive
	var archive telemetry.Archive
	if cfg.Influx.URL != "" {
		influx := telemetry.NewInfluxArchive(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		defer influx.Close()
		archive = influx
		checks = append(checks, health.InfluxCheck(influx))
		log.Printf("Telemetry archive: InfluxDB %s bucket=%s", cfg.Influx.URL, cfg.Influx.Bucket)
	}

	// 4. Actuation events
	var notifier ingest.Notifier
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(serviceName))
		if err != nil {
			log.Printf("Warning: NATS Connect Failed: %v. Actuation events disabled.", err)
		} else {
			defer nc.Close()
			checks = append(checks, health.NATSCheck(nc))
			tracker := ingest.NewTransitionTracker(cfg.NATS.TrackedDevices)
			notifier = ingest.NewNATSNotifier(nc, cfg.NATS.Subject, cfg.NATS.PublishRetryMax, tracker)
			log.Printf("Actuation events: NATS subject=%s", cfg.NATS.Subject)
		}
	}

	// 5. Redis: rate limit + presence mirror
	var rl *middleware.RateLimitMiddleware
	var mirror realtime.PresenceMirror
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		checks = append(checks, health.RedisCheck(rdb))
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis ping failed: %v. Rate limiting fails open.", err)
		}

		limiter := ratelimit.NewLimiter(rdb, os.Getenv("RATE_LIMIT_SALT"))
		rl = middleware.NewRateLimitMiddleware(limiter, "soil_data", cfg.RateLimit.SoilData)

		presence := realtime.NewRedisPresence(rdb, cfg.Realtime.PresenceKey)
		if err := presence.Reset(ctx); err != nil {
			log.Printf("Warning: presence reset failed: %v", err)
		}
		mirror = presence
	}

	// 6. Core
	store := telemetry.NewStore(cfg.Telemetry.Capacity)
	svc := ingest.NewService(store, settings, archive, notifier)
	hub := realtime.NewHub(realtime.NewRegistry(), mirror)

	healthSvc := health.NewService(2*time.Second, checks...)
	healthScheduler := health.NewScheduler(health.SchedulerConfig{}, healthSvc)
	healthScheduler.Start()
	defer healthScheduler.Stop()

	// 7. Config hot reload (rate limits only)
	if rl != nil {
		config.NewWatcher(*cfgPath, func(c *config.Config) {
			rl.SetConfig(c.RateLimit.SoilData)
		}).Start(ctx)
	}

	handler := api.NewRouter(api.RouterConfig{
		Soil:           api.NewSoilHandler(svc, cfg.Telemetry.DefaultHours),
		Settings:       api.NewSettingsHandler(settings),
		WS:             api.NewWSHandler(hub, cfg.Realtime.SendBuffer),
		SoilRateLimit:  rl,
		Health:         healthSvc,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("%s listening on :%s", serviceName, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Graceful shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
