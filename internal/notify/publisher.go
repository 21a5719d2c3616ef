package notify

import (
	"context"
	"encoding/json"
	"time"

	"tabletap-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is the fire-and-forget event side channel. Publish never
// returns an error: a broken broker must not roll back or fail the state
// transition that triggered the event.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

type amqpPublisher struct {
	ch       *amqp.Channel
	conn     *amqp.Connection
	exchange string
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
// Events publish with the event name as routing key.
func NewAMQPPublisher(url, exchange string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &amqpPublisher{ch: ch, conn: conn, exchange: exchange}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, event string, payload any) {
	log := logger.FromCtx(ctx).With(zap.String("event", event))

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal event payload", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, p.exchange, event, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		log.Error("failed to publish event", zap.Error(err))
		return
	}

	log.Debug("event published")
}

func (p *amqpPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Nop discards events; used in tests and when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event string, payload any) {}
