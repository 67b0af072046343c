package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/laibaTLD/logic-camp-messaging/internal/api"
	"github.com/laibaTLD/logic-camp-messaging/internal/auth"
	"github.com/laibaTLD/logic-camp-messaging/internal/config"
	"github.com/laibaTLD/logic-camp-messaging/internal/events"
	"github.com/laibaTLD/logic-camp-messaging/internal/logger"
	"github.com/laibaTLD/logic-camp-messaging/internal/presence"
	"github.com/laibaTLD/logic-camp-messaging/internal/registry"
	"github.com/laibaTLD/logic-camp-messaging/internal/repository"
	"github.com/laibaTLD/logic-camp-messaging/internal/router"
	"github.com/laibaTLD/logic-camp-messaging/internal/service"
	"github.com/laibaTLD/logic-camp-messaging/internal/typing"
	"github.com/laibaTLD/logic-camp-messaging/internal/unread"
	"github.com/laibaTLD/logic-camp-messaging/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.App.JWTSecret == "" {
		log.Fatal("app.jwt_secret is required")
	}

	zlog, err := logger.New(cfg.App.Env == "development")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// message store
	var store repository.Store
	var mongoClient *mongo.Client
	if cfg.Mongo.URI != "" {
		mongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			zlog.Fatalw("mongo connect", "err", err)
		}
		if err := mongoClient.Ping(ctx, nil); err != nil {
			zlog.Fatalw("mongo ping", "err", err)
		}
		col := mongoClient.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		if err := repository.EnsureIndexes(ctx, col); err != nil {
			zlog.Warnw("ensure indexes", "err", err)
		}
		store = repository.NewMongoStore(col)
	} else {
		zlog.Warn("no mongo uri configured, using in-memory store")
		store = repository.NewMemoryStore()
	}

	// unread counters and presence
	var tracker unread.Tracker
	var pres *presence.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatalw("redis ping", "err", err)
		}
		tracker = unread.NewRedisTracker(rdb, cfg.Redis.Prefix)
		pres = presence.NewStore(rdb, cfg.Redis.Prefix, 24*time.Hour)
	} else {
		zlog.Warn("no redis addr configured, unread counters are in-memory")
		tracker = unread.NewMemoryTracker()
	}

	// message.sent events for the notification pipeline
	var pub events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.TopicMessageSent != "" {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent)
	}

	reg := registry.New()
	rt := router.New(reg, zlog)
	svc := service.NewChatService(store, rt, tracker, pub, zlog, cfg.Chat.MaxContentLength)
	tc := typing.NewCoordinator(rt, zlog, cfg.TypingExpiry, cfg.TypingSweep)
	tc.Start()

	validator := auth.NewValidator(cfg.App.JWTSecret)
	gw := ws.NewGateway(reg, svc, tc, pres, validator, zlog, ws.Options{
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		ReadTimeout:   cfg.ReadTimeout,
		MaxMsgSize:    cfg.WS.MaxMessageSizeBytes,
	})
	app := api.New(svc, gw, pres, validator, zlog, cfg.Chat.HistoryPageSize)

	errs := make(chan error, 1)
	go func() {
		zlog.Infow("messaging service listening", "port", cfg.App.Port)
		errs <- app.Listen(":" + cfg.App.Port)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zlog.Errorw("server error", "err", err)
	case s := <-sig:
		zlog.Infow("signal received", "signal", s.String())
	}

	tc.Stop()
	if err := app.Shutdown(); err != nil {
		zlog.Warnw("fiber shutdown", "err", err)
	}
	if err := pub.Close(); err != nil {
		zlog.Warnw("publisher close", "err", err)
	}
	if mongoClient != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			zlog.Warnw("mongo disconnect", "err", err)
		}
	}
	zlog.Info("shutdown complete")
}
