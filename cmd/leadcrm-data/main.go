package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadcrm/common/amqp"
	commoncfg "leadcrm/common/config"
	"leadcrm/common/database"
	"leadcrm/common/logger"
	"leadcrm/common/mqtt"
	commonredis "leadcrm/common/redis"
	"leadcrm/internal/config"
	"leadcrm/internal/filestore"
	httpapi "leadcrm/internal/http"
	"leadcrm/internal/notify"
	"leadcrm/internal/repository"
	"leadcrm/internal/service"
	"leadcrm/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type repos struct {
	users      repository.UsersRepository
	agents     repository.AgentsRepository
	leads      repository.LeadsRepository
	categories repository.CategoriesRepository
	followUps  repository.FollowUpsRepository
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "leadcrm-data")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDBWithRetry(&cfg.Database, cfg.DBConnectTimeout, log); err == nil {
			db = d
			defer database.Close(db)
			log.Info("DB enabled for leadcrm-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	r := buildRepos(db)

	var redisClient *redis.Client
	var kv store.KV = store.NewMemoryKV()
	if cfg.Redis.Enabled {
		client := commonredis.NewRedisClient(&commoncfg.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := commonredis.Ping(pingCtx, client)
		cancel()
		if err == nil {
			redisClient = client
			kv = store.NewRedisKV(client)
			defer client.Close()
		} else {
			log.Warn("Redis unavailable, sessions kept in memory", zap.Error(err))
			_ = client.Close()
		}
	}

	notifier, closeNotifier, err := buildNotifier(cfg, redisClient, log)
	if err != nil {
		log.Warn("Notifier unavailable, falling back to log", zap.String("driver", cfg.Notify.Driver), zap.Error(err))
		notifier, closeNotifier = notify.NewLogNotifier(cfg.Notify.From, log), func() {}
	}
	defer closeNotifier()

	files := filestore.NewLocalStore(cfg.Upload.Dir, cfg.Upload.MaxSize)
	passwords := service.NewPasswordHasher(0)

	svcs := httpapi.Services{
		Auth:       service.NewAuthService(r.users, kv, passwords, cfg.Session.TTL, log),
		Leads:      service.NewLeadService(r.leads, r.categories, r.agents, files, notifier, cfg.Notify.From, log),
		FollowUps:  service.NewFollowUpService(r.followUps, r.leads, files, log),
		Categories: service.NewCategoryService(r.categories, r.leads, log),
		Agents:     service.NewAgentService(r.users, r.agents, passwords, notifier, log),
		Dashboard:  service.NewDashboardService(r.leads, log),
		Messages:   service.NewMessages(kv, cfg.Session.TTL),
	}
	handler, err := httpapi.NewAPI(svcs, httpapi.Options{
		CookieName: cfg.Session.CookieName,
		MaxUpload:  cfg.Upload.MaxSize,
		Metrics:    httpapi.NewMetrics(),
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP API", zap.Error(err))
	}

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(), nil
}

func buildRepos(db *sql.DB) repos {
	if db != nil {
		return repos{
			users:      repository.NewPostgresUsersRepository(db),
			agents:     repository.NewPostgresAgentsRepository(db),
			leads:      repository.NewPostgresLeadsRepository(db),
			categories: repository.NewPostgresCategoriesRepository(db),
			followUps:  repository.NewPostgresFollowUpsRepository(db),
		}
	}
	// DB 未就绪：使用内存 repo（重启后数据丢失）
	s := repository.NewMemoryStore()
	return repos{
		users:      repository.NewMemoryUsersRepo(s),
		agents:     repository.NewMemoryAgentsRepo(s),
		leads:      repository.NewMemoryLeadsRepo(s),
		categories: repository.NewMemoryCategoriesRepo(s),
		followUps:  repository.NewMemoryFollowUpsRepo(s),
	}
}

// buildNotifier picks the outbound channel from NOTIFY_DRIVER. The returned func
// releases the broker connection.
func buildNotifier(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (notify.Notifier, func(), error) {
	noop := func() {}
	from := cfg.Notify.From

	switch cfg.Notify.Driver {
	case "", "log":
		return notify.NewLogNotifier(from, log), noop, nil
	case "smtp":
		if !cfg.SMTP.Configured() {
			return nil, noop, fmt.Errorf("smtp host not configured")
		}
		return notify.NewSMTPNotifier(cfg.SMTP), noop, nil
	case "stream":
		if redisClient == nil {
			return nil, noop, fmt.Errorf("stream driver requires redis")
		}
		return notify.NewStreamNotifier(redisClient, cfg.Notify.Stream, from), noop, nil
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			return nil, noop, err
		}
		return notify.NewMQTTNotifier(client, cfg.Notify.MQTTTopic, from), client.Disconnect, nil
	case "amqp":
		client, err := amqp.Dial(&cfg.AMQP)
		if err != nil {
			return nil, noop, err
		}
		return notify.NewAMQPNotifier(client, from), func() { _ = client.Close() }, nil
	case "webhook":
		if cfg.Notify.WebhookURL == "" {
			return nil, noop, fmt.Errorf("webhook url not configured")
		}
		return notify.NewWebhookNotifier(cfg.Notify.WebhookURL, from), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown notify driver %q", cfg.Notify.Driver)
	}
}
