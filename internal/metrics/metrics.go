// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BoulderOps counts collection mutations by operation ("save", "update", "delete").
	BoulderOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boulder_collection_operations_total",
		Help: "Total collection mutations by operation",
	}, []string{"operation"})

	CollectionSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boulder_collection_size",
		Help: "Number of boulders currently in the collection",
	})

	// ImportRecords counts import records by result ("imported", "skipped").
	ImportRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boulder_import_records_total",
		Help: "Total import records by result",
	}, []string{"result"})

	// StorageFailures counts persistence errors by operation ("load", "save").
	StorageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boulder_storage_failures_total",
		Help: "Total persistence failures by operation",
	}, []string{"operation"})

	// CatalogueLoads counts catalogue loads by result ("ok", "failed").
	CatalogueLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boulder_catalogue_loads_total",
		Help: "Total holds data loads by result",
	}, []string{"result"})

	SaveValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boulder_save_validation_failures_total",
		Help: "Save attempts rejected by validation, by reason code",
	}, []string{"code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boulder_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"method", "route", "status"})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boulder_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)
