// Package service orchestrates the translation pipeline: decode a MISP
// export, translate each event, wrap the results in bundles and hand them to
// the configured sinks.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/telhawk-systems/stixbridge/internal/logging"
	"github.com/telhawk-systems/stixbridge/internal/metrics"
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/internal/translator"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// BundlePublisher delivers one translated event to a message broker.
type BundlePublisher interface {
	PublishBundle(ctx context.Context, eventUUID string, bundle *stix.Bundle) error
}

// ObjectIndexer persists every object of one translated event.
type ObjectIndexer interface {
	IndexObjects(ctx context.Context, eventUUID string, objects []stix.Object) error
}

// Converter runs MISP exports through the translation engine. Publisher and
// indexer are optional sinks; translation succeeds without them.
type Converter struct {
	translator *translator.Translator
	publisher  BundlePublisher
	indexer    ObjectIndexer
	logger     *logging.Logger
}

// Option configures optional converter sinks.
type Option func(*Converter)

// WithPublisher attaches a broker sink.
func WithPublisher(p BundlePublisher) Option {
	return func(c *Converter) { c.publisher = p }
}

// WithIndexer attaches a storage sink.
func WithIndexer(ix ObjectIndexer) Option {
	return func(c *Converter) { c.indexer = ix }
}

// NewConverter builds a converter around a fresh translation engine.
func NewConverter(logger *logging.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Converter{
		translator: translator.New(logger),
		logger:     logger.With(logging.Component("converter")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome for one translated event.
type Result struct {
	EventUUID string       `json:"event_uuid"`
	Bundle    *stix.Bundle `json:"bundle"`
}

// Convert decodes a raw MISP export document and translates every event it
// contains, in input order. The first event that fails, in translation or in
// a sink, aborts the whole run.
func (c *Converter) Convert(ctx context.Context, raw []byte) ([]Result, error) {
	var export models.Export
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	events := export.Events()
	if len(events) == 0 {
		return nil, fmt.Errorf("export contains no events")
	}
	return c.ConvertEvents(ctx, events)
}

// ConvertEvents translates already-decoded events. Per-record problems are
// absorbed inside the translator; an error surfacing here is a whole-event
// failure and aborts the remaining events, discarding earlier results.
func (c *Converter) ConvertEvents(ctx context.Context, events []*models.Event) ([]Result, error) {
	results := make([]Result, 0, len(events))
	for _, event := range events {
		result, err := c.convertEvent(ctx, event)
		if err != nil {
			metrics.EventsTotal.WithLabelValues("error").Inc()
			c.logger.ErrorContext(ctx, "event translation failed",
				logging.EventUUID(event.UUID),
				logging.Error(err),
			)
			return nil, err
		}
		metrics.EventsTotal.WithLabelValues("ok").Inc()
		results = append(results, result)
	}
	return results, nil
}

func (c *Converter) convertEvent(ctx context.Context, event *models.Event) (Result, error) {
	start := time.Now()
	objects, err := c.translator.TranslateEvent(ctx, event)
	metrics.TranslationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{}, err
	}
	for _, obj := range objects {
		metrics.ObjectsTotal.WithLabelValues(obj.GetType()).Inc()
	}

	bundle := stix.NewBundle(event.UUID, objects)
	if c.publisher != nil {
		if err := c.publisher.PublishBundle(ctx, event.UUID, bundle); err != nil {
			return Result{}, fmt.Errorf("publish event %s: %w", event.UUID, err)
		}
	}
	if c.indexer != nil {
		if err := c.indexer.IndexObjects(ctx, event.UUID, objects); err != nil {
			return Result{}, fmt.Errorf("index event %s: %w", event.UUID, err)
		}
	}

	c.logger.InfoContext(ctx, "event converted",
		logging.EventUUID(event.UUID),
		logging.Objects(len(objects)),
		logging.Duration(time.Since(start).Milliseconds()),
	)
	return Result{EventUUID: event.UUID, Bundle: bundle}, nil
}

// Health reports the converter's readiness state.
func (c *Converter) Health() map[string]string {
	status := map[string]string{"status": "ok"}
	if c.publisher != nil {
		status["publisher"] = "attached"
	}
	if c.indexer != nil {
		status["indexer"] = "attached"
	}
	return status
}
