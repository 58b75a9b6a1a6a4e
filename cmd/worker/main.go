package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/skyvia/flightcore/config"
	"github.com/skyvia/flightcore/internal/email"
	"github.com/skyvia/flightcore/internal/kafka"
	"github.com/skyvia/flightcore/internal/loyalty"
	"github.com/skyvia/flightcore/internal/reservation"
)

// effectEnvelope mirrors the wire shape of a dispatched effect, with the
// payload left raw until the kind is known.
type effectEnvelope struct {
	Kind    reservation.EffectKind `json:"kind"`
	Key     string                 `json:"key"`
	Payload json.RawMessage        `json:"payload"`
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := email.NewSender(logger)
	loyaltyClient := loyalty.NewHTTPClient(cfg.Loyalty, logger)

	notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer notifications.Close()

	loyaltyRequests := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.LoyaltyTopic)
	defer loyaltyRequests.Close()

	go func() {
		err := notifications.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
			var envelope effectEnvelope
			if err := json.Unmarshal(msg.Value, &envelope); err != nil {
				logger.Warn("undecodable notification, skipping", zap.Error(err))
				return nil
			}
			var notice reservation.ConfirmationNotice
			if err := json.Unmarshal(envelope.Payload, &notice); err != nil {
				logger.Warn("undecodable confirmation payload, skipping", zap.String("key", envelope.Key), zap.Error(err))
				return nil
			}
			if err := sender.Send(ctx, notice); err != nil {
				logger.Error("confirmation send failed", zap.String("reference", notice.Reference), zap.Error(err))
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("notifications consumer stopped", zap.Error(err))
		}
	}()

	go func() {
		err := loyaltyRequests.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
			var envelope effectEnvelope
			if err := json.Unmarshal(msg.Value, &envelope); err != nil {
				logger.Warn("undecodable loyalty request, skipping", zap.Error(err))
				return nil
			}
			if err := handleLoyalty(ctx, loyaltyClient, envelope); err != nil {
				logger.Error("loyalty request failed",
					zap.String("kind", string(envelope.Kind)), zap.String("key", envelope.Key), zap.Error(err))
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("loyalty consumer stopped", zap.Error(err))
		}
	}()

	logger.Info("worker started",
		zap.String("notifications_topic", cfg.Kafka.NotificationsTopic),
		zap.String("loyalty_topic", cfg.Kafka.LoyaltyTopic))

	<-ctx.Done()
	logger.Info("worker shutting down")
}

func handleLoyalty(ctx context.Context, client loyalty.Client, envelope effectEnvelope) error {
	switch envelope.Kind {
	case reservation.EffectCreditMiles:
		var req loyalty.CreditRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			return err
		}
		return client.Credit(ctx, req)
	case reservation.EffectRedeemMiles:
		var req loyalty.RedeemRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			return err
		}
		return client.Redeem(ctx, req)
	default:
		return nil
	}
}
