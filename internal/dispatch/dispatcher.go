// Package dispatch publishes reservation effects to their downstream
// topics. A booking is already committed by the time effects exist, so
// dispatch is best effort: failures are logged and never unwind the
// reservation.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/skyvia/flightcore/internal/reservation"
)

const publishRetries = 3

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

type Dispatcher struct {
	producer           Publisher
	notificationsTopic string
	loyaltyTopic       string
	logger             *zap.Logger
}

func NewDispatcher(producer Publisher, notificationsTopic, loyaltyTopic string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		producer:           producer,
		notificationsTopic: notificationsTopic,
		loyaltyTopic:       loyaltyTopic,
		logger:             logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, effects []reservation.Effect) {
	for _, effect := range effects {
		topic := d.topicFor(effect.Kind)
		if topic == "" {
			d.logger.Warn("no topic for effect", zap.String("kind", string(effect.Kind)), zap.String("key", effect.Key))
			continue
		}
		if err := d.producer.PublishWithRetry(ctx, topic, effect.Key, effect, publishRetries); err != nil {
			d.logger.Error("effect dispatch failed",
				zap.String("kind", string(effect.Kind)),
				zap.String("topic", topic),
				zap.String("key", effect.Key),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) topicFor(kind reservation.EffectKind) string {
	switch kind {
	case reservation.EffectNotifyConfirmation:
		return d.notificationsTopic
	case reservation.EffectCreditMiles, reservation.EffectRedeemMiles:
		return d.loyaltyTopic
	default:
		return ""
	}
}
