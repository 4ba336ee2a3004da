package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/database"
	"github.com/iamjameskeane/realpolitik-sub000/internal/dispatch"
	"github.com/iamjameskeane/realpolitik-sub000/internal/logging"
	"github.com/iamjameskeane/realpolitik-sub000/internal/push"
	"github.com/iamjameskeane/realpolitik-sub000/internal/server"
	redisstore "github.com/iamjameskeane/realpolitik-sub000/internal/store/redis"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store/sqlite"
)

func main() {
	genKeys := flag.Bool("genkeys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("REALPOLITIK_VAPID_PUBLIC_KEY=%s\nREALPOLITIK_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("REALPOLITIK_LOG_LEVEL"), os.Getenv("REALPOLITIK_LOG_FORMAT"))

	port := os.Getenv("REALPOLITIK_PORT")
	if port == "" {
		port = "8080"
	}

	vapidPublic := os.Getenv("REALPOLITIK_VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("REALPOLITIK_VAPID_PRIVATE_KEY")
	if vapidPublic == "" || vapidPrivate == "" {
		slog.Error("VAPID keys not configured, run with -genkeys to create a pair")
		os.Exit(1)
	}
	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      os.Getenv("REALPOLITIK_VAPID_SUBSCRIBER"),
	})

	backend := os.Getenv("REALPOLITIK_BACKEND")
	if backend == "" {
		backend = "sqlite"
	}

	var (
		stores       server.Stores
		pruneExpired func(context.Context) (int64, error)
	)
	switch backend {
	case "sqlite":
		dbPath := os.Getenv("REALPOLITIK_DB_PATH")
		if dbPath == "" {
			dbPath = "realpolitik.db"
		}
		db, err := database.Open(dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		subs := sqlite.NewSubscriptionStore(db)
		stores = server.Stores{
			Subscriptions: subs,
			Preferences:   sqlite.NewPreferenceStore(db),
			Dedup:         sqlite.NewDedupStore(db),
			Inbox:         sqlite.NewInboxStore(db),
			Stats:         sqlite.NewStatsStore(db),
		}
		pruneExpired = subs.PruneExpired

	case "redis":
		addr := os.Getenv("REALPOLITIK_REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		redisDB := 0
		if raw := os.Getenv("REALPOLITIK_REDIS_DB"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				slog.Error("invalid REALPOLITIK_REDIS_DB", "value", raw)
				os.Exit(1)
			}
			redisDB = n
		}
		client, err := redisstore.Connect(context.Background(), addr, os.Getenv("REALPOLITIK_REDIS_PASSWORD"), redisDB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		st := redisstore.New(client, logger.With("component", "redis"))
		stores = server.Stores{
			Subscriptions: st,
			Preferences:   st,
			Dedup:         st,
			Inbox:         st,
			Stats:         st,
		}
		// Redis expires subscription keys natively; nothing to prune.

	default:
		slog.Error("unknown backend", "backend", backend)
		os.Exit(1)
	}

	engineCfg := dispatch.Config{
		RefreshOnSend: os.Getenv("REALPOLITIK_REFRESH_ON_SEND") == "true",
	}
	if raw := os.Getenv("REALPOLITIK_BATCH_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			slog.Error("invalid REALPOLITIK_BATCH_SIZE", "value", raw)
			os.Exit(1)
		}
		engineCfg.BatchSize = n
	}
	engine := dispatch.New(stores.Subscriptions, stores.Preferences, stores.Dedup,
		stores.Inbox, stores.Stats, pushSvc, engineCfg, logger.With("component", "dispatch"))

	srv := server.New(stores, engine, pushSvc, os.Getenv("REALPOLITIK_INGEST_TOKEN"), logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if pruneExpired != nil {
					if n, err := pruneExpired(cleanupCtx); err != nil {
						slog.Error("prune expired subscriptions", "error", err)
					} else if n > 0 {
						slog.Info("pruned expired subscriptions", "count", n)
					}
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("realpolitik notification service starting", "addr", ":"+port, "backend", backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
