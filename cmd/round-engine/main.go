package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/admission"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/httpapi"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/producer"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/pubsub"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/settle"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/sportsbook"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ws"
	"github.com/radieske/game-round-engine-poc/internal/shared/cache"
	"github.com/radieske/game-round-engine-poc/internal/shared/config"
	"github.com/radieske/game-round-engine-poc/internal/shared/db"
	"github.com/radieske/game-round-engine-poc/internal/shared/kafka"
	"github.com/radieske/game-round-engine-poc/internal/shared/logger"
	"github.com/radieske/game-round-engine-poc/internal/shared/metrics"
)

func main() {
	_ = os.Setenv("SERVICE_NAME", getServiceName())
	cfg := config.Load()

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// writers Kafka dos eventos de liquidação
	roundW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	gameW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameSettled)
	betW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer func() {
		_ = roundW.Close()
		_ = gameW.Close()
		_ = betW.Close()
	}()

	// stores e serviços do domínio
	ledgerStore := ledger.NewPostgres(pg)
	roundStore := round.NewPostgres(pg)
	diceStore := dice.NewPostgres(pg)
	admissionStore := admission.NewPostgres(pg)
	sportsStore := sportsbook.NewPostgres(pg)

	publ := producer.NewKafkaPublisher(roundW, gameW, betW)
	settleEngine := settle.NewEngine(log, settle.NewPostgres(pg), publ)

	broadcaster := pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel, cfg.RedisSnapshotKey, cfg.RedisSnapshotTTL)
	sched := round.NewScheduler(log, roundStore, settleEngine, broadcaster, round.SchedulerConfig{
		TickInterval: cfg.TickInterval,
		GrowthRate:   cfg.GrowthRate,
		HouseEdge:    cfg.HouseEdge,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// encerra rodada órfã de uma execução anterior antes de aceitar tráfego
	if err := sched.Recover(ctx); err != nil {
		log.Fatal("round recovery failed", zap.Error(err))
	}

	// hub WebSocket alimentado pelo pubsub Redis (fanout entre instâncias)
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub)

	api := &httpapi.API{
		Log:       log,
		Sched:     sched,
		Rounds:    roundStore,
		Dice:      diceStore,
		Admission: admissionStore,
		Settle:    settleEngine,
		Ledger:    ledgerStore,
		Sports:    sportsStore,
		Hub:       hub,
		Live:      broadcaster,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health server started", zap.String("port", cfg.MetricsPort))

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

func getServiceName() string {
	if v, ok := os.LookupEnv("SERVICE_NAME"); ok && v != "" {
		return v
	}
	return "round-engine"
}
