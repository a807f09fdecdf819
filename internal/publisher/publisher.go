// Package publisher delivers translated bundles to the NATS message broker so
// downstream consumers can pick them up asynchronously.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/telhawk-systems/stixbridge/internal/config"
	"github.com/telhawk-systems/stixbridge/internal/logging"
	"github.com/telhawk-systems/stixbridge/internal/metrics"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// Publisher publishes bundles to a NATS subject, one message per source
// event.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *logging.Logger
}

// New connects to the broker using the configured reconnect policy.
func New(cfg config.NATSConfig, logger *logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []nats.Option{
		nats.Name("stixbridge"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWaitDuration()),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:    conn,
		subject: cfg.Subject,
		logger:  logger.With(logging.Component("publisher")),
	}, nil
}

// BundleMessage is the wire envelope for one translated event.
type BundleMessage struct {
	EventUUID string       `json:"event_uuid"`
	Bundle    *stix.Bundle `json:"bundle"`
}

// PublishBundle sends one event's bundle. The subject is suffixed with the
// event uuid so consumers can subscribe per event or with a wildcard.
func (p *Publisher) PublishBundle(ctx context.Context, eventUUID string, bundle *stix.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(BundleMessage{EventUUID: eventUUID, Bundle: bundle})
	if err != nil {
		return fmt.Errorf("marshal bundle message: %w", err)
	}
	subject := p.subject + "." + eventUUID
	if err := p.conn.Publish(subject, data); err != nil {
		metrics.PublishErrors.Inc()
		return fmt.Errorf("publish bundle: %w", err)
	}
	p.logger.DebugContext(ctx, "bundle published",
		logging.EventUUID(eventUUID),
		logging.Subject(subject),
	)
	return nil
}

// Healthy reports whether the broker connection is up.
func (p *Publisher) Healthy() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
