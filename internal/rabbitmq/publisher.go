package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/metrics"
	"github.com/Checker-Finance/refdata/pkg/model"
)

const backend = "rabbitmq"

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes refdata events to a RabbitMQ queue via the default exchange.
type Publisher struct {
	conn       *amqp.Connection
	channel    channel
	routingKey string
	service    string
	logger     *zap.Logger
}

// NewPublisher dials url, opens a channel and declares the durable queue
// named routingKey.
func NewPublisher(url, routingKey, service string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", routingKey, err)
	}

	p := newPublisher(ch, routingKey, service, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, routingKey, service string, logger *zap.Logger) *Publisher {
	return &Publisher{channel: ch, routingKey: routingKey, service: service, logger: logger}
}

// PublishSnapshotLoaded emits a refdata.snapshot_loaded event.
func (p *Publisher) PublishSnapshotLoaded(ctx context.Context, ev model.SnapshotLoaded) error {
	env, err := model.NewSnapshotLoadedEnvelope(p.routingKey, p.service, ev)
	if err != nil {
		metrics.IncError("rabbitmq", "marshal_failed")
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		metrics.IncError("rabbitmq", "marshal_failed")
		return fmt.Errorf("marshal envelope: %w", err)
	}

	start := time.Now()
	err = p.channel.PublishWithContext(
		ctx,
		"",           // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.ID.String(),
			CorrelationId: env.CorrelationID.String(),
			Type:          env.EventType,
			AppId:         p.service,
			Timestamp:     env.Timestamp,
			Body:          body,
		},
	)
	metrics.ObserveDuration(metrics.PublishLatency, start, backend)
	if err != nil {
		p.logger.Error("rabbitmq.publish_failed",
			zap.String("routing_key", p.routingKey),
			zap.Error(err))
		metrics.IncEventPublished(backend, "error")
		return fmt.Errorf("publish %s: %w", p.routingKey, err)
	}

	p.logger.Info("rabbitmq.publish_success",
		zap.String("routing_key", p.routingKey),
		zap.String("snapshot_id", ev.SnapshotID.String()))
	metrics.IncEventPublished(backend, "ok")
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
