package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/shared/config"
	"github.com/radieske/game-round-engine-poc/internal/shared/kafka"
	"github.com/radieske/game-round-engine-poc/internal/shared/logger"
	"github.com/radieske/game-round-engine-poc/internal/shared/metrics"
	ev "github.com/radieske/game-round-engine-poc/pkg/contracts/events"
)

// notification-worker consome bet_settled e entrega cada notificação por
// webhook; falha persistente vai pra DLQ em vez de travar o consumo
func main() {
	if _, ok := os.LookupEnv("SERVICE_NAME"); !ok {
		_ = os.Setenv("SERVICE_NAME", "notification-worker")
	}
	cfg := config.Load()

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetSettled, "notification")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicSettlementDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSettlementDLQ)
		defer dlqWriter.Close()
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return nil // worker sem dependência síncrona; vivo = saudável
	})

	log.Info("notification-worker started",
		zap.String("consume", cfg.TopicBetSettled),
		zap.String("webhook", cfg.NotifyWebhookURL),
	)

	ctx := context.Background()

	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.BetSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal bet_settled", zap.Error(jerr), zap.ByteString("key", key))
			continue
		}

		if err := deliver(ctx, cfg, &settled); err != nil {
			metrics.NotificationsDelivered.WithLabelValues("failed").Inc()
			log.Error("webhook delivery failed",
				zap.String("betId", settled.BetID),
				zap.String("userId", settled.UserID),
				zap.Error(err),
			)
			if dlqWriter != nil {
				if derr := kafka.WriteJSON(ctx, dlqWriter, settled.BetID, value); derr != nil {
					log.Error("dlq write failed", zap.Error(derr))
				} else {
					metrics.NotificationsDelivered.WithLabelValues("dlq").Inc()
				}
			}
			continue
		}
		metrics.NotificationsDelivered.WithLabelValues("ok").Inc()
	}
}

// deliver entrega a notificação com retry simples: 3 tentativas com backoff
// linear antes de desistir
func deliver(ctx context.Context, cfg config.Config, settled *ev.BetSettled) error {
	var err error
	const retries = 3
	for i := 0; i < retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*i) * time.Millisecond)
		}
		if err = postWebhook(ctx, cfg.NotifyWebhookURL, settled); err == nil {
			return nil
		}
	}
	return err
}

func postWebhook(ctx context.Context, url string, settled *ev.BetSettled) error {
	body, _ := json.Marshal(settled)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("webhook http " + resp.Status)
	}
	return nil
}
