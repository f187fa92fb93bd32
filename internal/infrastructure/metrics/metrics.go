package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Operation metrics
	OperationsRecorded *prometheus.CounterVec
	OperationErrors    *prometheus.CounterVec
	OperationDuration  prometheus.Histogram

	// Group reversal metrics
	GroupsDeleted     prometheus.Counter
	GroupsRestored    prometheus.Counter
	ReversalsRejected *prometheus.CounterVec

	// Capital metrics
	CapitalClosings  prometheus.Counter
	ClosingsRejected *prometheus.CounterVec
	CapitalTotal     *prometheus.GaugeVec

	// Asset metrics
	AssetsCreated prometheus.Counter
	AssetsRemoved prometheus.Counter

	// Backup metrics
	Backups       *prometheus.CounterVec
	StateImported prometheus.Counter

	// Authentication metrics
	AuthFailures *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_operations_recorded_total",
				Help: "Total number of recorded operations by kind",
			},
			[]string{"kind"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_operation_errors_total",
				Help: "Total number of rejected operations by error type",
			},
			[]string{"error_type"},
		),
		OperationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxledger_operation_duration_seconds",
			Help:    "Duration of operation units of work",
			Buckets: prometheus.DefBuckets,
		}),

		GroupsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_groups_deleted_total",
			Help: "Total number of transaction groups reversed",
		}),
		GroupsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_groups_restored_total",
			Help: "Total number of transaction groups restored",
		}),
		ReversalsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_reversals_rejected_total",
				Help: "Total number of rejected group deletes and restores by reason",
			},
			[]string{"reason"},
		),

		CapitalClosings: factory.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_capital_closings_total",
			Help: "Total number of capital closings stored",
		}),
		ClosingsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_capital_closings_rejected_total",
				Help: "Total number of rejected capital closings by reason",
			},
			[]string{"reason"},
		),
		CapitalTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxledger_capital_total",
				Help: "Total of the latest capital closing in the reference currency",
			},
			[]string{"currency"},
		),

		AssetsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_assets_created_total",
			Help: "Total number of assets created",
		}),
		AssetsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_assets_removed_total",
			Help: "Total number of assets removed",
		}),

		Backups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_backups_total",
				Help: "Total number of backup attempts by status",
			},
			[]string{"status"},
		),
		StateImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_state_imports_total",
			Help: "Total number of state bundle imports",
		}),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_auth_failures_total",
				Help: "Total authentication and authorization failures by reason",
			},
			[]string{"reason"},
		),
	}
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
