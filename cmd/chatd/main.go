package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/auth"
	"github.com/rackup-app/messaging/internal/config"
	"github.com/rackup-app/messaging/internal/delivery"
	"github.com/rackup-app/messaging/internal/handlers"
	"github.com/rackup-app/messaging/internal/listing"
	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/resolver"
	"github.com/rackup-app/messaging/internal/router"
	"github.com/rackup-app/messaging/internal/server"
	"github.com/rackup-app/messaging/internal/store"
	"github.com/rackup-app/messaging/internal/store/badgerstore"
	"github.com/rackup-app/messaging/internal/store/memstore"
	"github.com/rackup-app/messaging/internal/store/postgres"
	"github.com/rackup-app/messaging/internal/ws"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer tp.Shutdown(context.Background())
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	instanceID := getOrGenerateInstanceID(cfg.InstanceID)

	chatStore, ready := initStore(cfg, log)
	defer chatStore.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = initRedis(ctx, cfg.RedisAddr, log)
		defer redisClient.Close()
	}

	listings := initListings(cfg, redisClient, log)

	hub := ws.NewHub()

	var relay *delivery.Relay
	if redisClient != nil {
		relay = delivery.NewRelay(redisClient, hub, instanceID)
		relay.Subscribe(ctx)
	}

	var events *delivery.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		events = delivery.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer events.Close()
	}

	coordinator := delivery.NewCoordinator(chatStore, hub, relay, events, cfg.ServiceName)
	convResolver := resolver.New(chatStore, listings)

	verifier := &auth.Verifier{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}

	wsHandler := ws.NewHandler(hub, chatStore, coordinator, verifier, cfg.ServiceName)
	apiHandler := router.New(
		handlers.NewListingHandler(listings),
		handlers.NewConversationHandler(convResolver),
		handlers.NewMessageHandler(chatStore, coordinator),
		wsHandler,
		verifier,
		cfg.ServiceName,
	)

	obsSrv := initObservabilityServer(cfg, ready)
	apiSrv := server.New(cfg.HTTPAddr, apiHandler)

	startServers(cfg, obsSrv, apiSrv, log)

	<-ctx.Done()
	performGracefulShutdown(obsSrv, apiSrv, hub, log)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func getOrGenerateInstanceID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func initStore(cfg *config.Config, log *zap.Logger) (store.ConversationStore, observability.Pinger) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db open failed", zap.Error(err))
		}
		s := postgres.New(db)
		return s, s
	case "badger":
		s, err := badgerstore.Open(cfg.BadgerDir)
		if err != nil {
			log.Fatal("badger open failed", zap.Error(err))
		}
		return s, nil
	case "memory":
		log.Warn("using in-memory store; messages will not survive a restart")
		return memstore.New(), nil
	default:
		log.Fatal("unknown store driver", zap.String("driver", cfg.StoreDriver))
		return nil, nil
	}
}

func initRedis(ctx context.Context, addr string, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return client
}

func initListings(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) listing.Service {
	var svc listing.Service
	if cfg.ListingBaseURL != "" {
		svc = listing.NewHTTPClient(cfg.ListingBaseURL)
	} else {
		log.Warn("no listing catalog configured, using demo catalog")
		svc = listing.NewStaticDemo()
	}
	if redisClient != nil {
		svc = listing.NewCache(svc, redisClient)
	}
	return svc
}

func initObservabilityServer(cfg *config.Config, ready observability.Pinger) *http.Server {
	mux := chi.NewRouter()
	mux.Use(observability.MetricsMiddleware(cfg.ServiceName))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health/live", observability.HealthLiveHandler)
	if ready != nil {
		mux.Get("/health/ready", observability.HealthReadyHandler(ready))
	} else {
		mux.Get("/health/ready", observability.HealthReadyHandler())
	}
	return &http.Server{Addr: cfg.ObsHTTPAddr, Handler: mux}
}

func startServers(cfg *config.Config, obsSrv *http.Server, apiSrv *server.Server, log *zap.Logger) {
	go func() {
		log.Info("starting observability server", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server error", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting api server", zap.String("addr", cfg.HTTPAddr))
		if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api server error", zap.Error(err))
		}
	}()
}

func performGracefulShutdown(obsSrv *http.Server, apiSrv *server.Server, hub *ws.Hub, log *zap.Logger) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.CloseAll()
	if err := apiSrv.Shutdown(ctx); err != nil {
		log.Error("error during api server shutdown", zap.Error(err))
	}
	if err := obsSrv.Shutdown(ctx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}
	log.Info("shutdown complete")
}
