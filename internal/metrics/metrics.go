// Package metrics records task store and persistence activity with Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultError    = "error"
	ResultMissing  = "missing"
)

// Recorder owns a private registry so several stores can coexist in one
// process (and in tests). A nil *Recorder records nothing.
type Recorder struct {
	registry         *prometheus.Registry
	mutationsTotal   *prometheus.CounterVec
	validationIssues *prometheus.CounterVec
	persistenceOps   *prometheus.CounterVec
	tasks            *prometheus.GaugeVec
}

// New creates a recorder with its own registry. Go runtime and process
// collectors are registered alongside the kanban metrics.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		mutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_mutations_total",
				Help: "Task store mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		validationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_validation_issues_total",
				Help: "Validation failures by field",
			},
			[]string{"field"},
		),
		persistenceOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_persistence_ops_total",
				Help: "Persistence adapter operations by operation and result",
			},
			[]string{"op", "result"},
		),
		tasks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kanban_tasks",
				Help: "Tasks currently on the board by status",
			},
			[]string{"status"},
		),
	}
	r.registry.MustRegister(
		r.mutationsTotal,
		r.validationIssues,
		r.persistenceOps,
		r.tasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveMutation counts one store operation.
func (r *Recorder) ObserveMutation(op, result string) {
	if r == nil {
		return
	}
	r.mutationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveValidationIssue counts a rejected field.
func (r *Recorder) ObserveValidationIssue(field string) {
	if r == nil {
		return
	}
	if field == "" {
		field = "_root"
	}
	r.validationIssues.WithLabelValues(field).Inc()
}

// ObservePersistence counts one save or load.
func (r *Recorder) ObservePersistence(op, result string) {
	if r == nil {
		return
	}
	r.persistenceOps.WithLabelValues(op, result).Inc()
}

// SetTaskCounts replaces the per-status gauge values.
func (r *Recorder) SetTaskCounts(counts map[string]int) {
	if r == nil {
		return
	}
	for status, n := range counts {
		r.tasks.WithLabelValues(status).Set(float64(n))
	}
}
