package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Translation metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stixbridge_events_total",
			Help: "Total number of events translated",
		},
		[]string{"status"},
	)

	ObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stixbridge_objects_total",
			Help: "Total number of STIX objects produced",
		},
		[]string{"type"},
	)

	TranslationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stixbridge_translation_duration_seconds",
			Help:    "Duration of event translation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DroppedRelationships = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stixbridge_dropped_relationships_total",
			Help: "Total number of object references dropped because an endpoint was never translated",
		},
	)

	FallbackObjects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stixbridge_fallback_objects_total",
			Help: "Total number of records emitted through the custom wrapper fallback",
		},
	)

	// Sink metrics
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stixbridge_publish_errors_total",
			Help: "Total number of bundle publish errors",
		},
	)

	IndexErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stixbridge_index_errors_total",
			Help: "Total number of object indexing errors",
		},
	)

	IndexedObjects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stixbridge_indexed_objects_total",
			Help: "Total number of objects written to storage",
		},
	)
)
