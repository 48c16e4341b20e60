package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/metrics"
	"github.com/Checker-Finance/refdata/pkg/model"
)

const backend = "nats"

// jetStream is the slice of nats.JetStreamContext the publisher uses.
type jetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher emits canonical refdata events on NATS JetStream.
type Publisher struct {
	nc      *nats.Conn
	js      jetStream
	subject string
	service string
	logger  *zap.Logger
}

// Connect dials url and returns a JetStream-backed publisher.
func Connect(url, subject, service string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(service),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return New(nc, js, subject, service, logger), nil
}

// New wraps an existing connection. nc may be nil when js is a stand-in.
func New(nc *nats.Conn, js jetStream, subject, service string, logger *zap.Logger) *Publisher {
	return &Publisher{nc: nc, js: js, subject: subject, service: service, logger: logger}
}

// PublishEnvelope serializes env and publishes it on subject, or on the
// default subject when subject is empty.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if subject == "" {
		subject = p.subject
	}

	data, err := json.Marshal(env)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
		},
	}
	// JetStream dedupes on this header within its duplicate window.
	msg.Header.Set(nats.MsgIdHdr, env.ID.String())

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.PublishLatency, start, backend)

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncEventPublished(backend, "error")
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
		zap.String("correlation_id", env.CorrelationID.String()))
	metrics.IncEventPublished(backend, "ok")
	return nil
}

// PublishSnapshotLoaded emits a refdata.snapshot_loaded event on the default subject.
func (p *Publisher) PublishSnapshotLoaded(ctx context.Context, ev model.SnapshotLoaded) error {
	env, err := model.NewSnapshotLoadedEnvelope(p.subject, p.service, ev)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	return p.PublishEnvelope(ctx, p.subject, env)
}

func (p *Publisher) Close() error {
	if p.nc != nil && !p.nc.IsClosed() {
		return p.nc.Drain()
	}
	return nil
}
