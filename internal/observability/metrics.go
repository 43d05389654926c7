package observability

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder defines metric hooks for builds and deploys. The orchestrator
// injects one; NoopRecorder is the default when metrics are not configured.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObserveDeployDuration(provider string, d time.Duration)
	IncBuildOutcome(outcome string) // success|error|cancelled|validation-blocked
	IncDeployOutcome(provider, outcome string)
	ObserveFilesProcessed(n int)
	IncPluginFailure(plugin string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) ObserveDeployDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string)                      {}
func (NoopRecorder) IncDeployOutcome(string, string)             {}
func (NoopRecorder) ObserveFilesProcessed(int)                   {}
func (NoopRecorder) IncPluginFailure(string)                     {}

// PrometheusRecorder implements Recorder on a Prometheus registry.
type PrometheusRecorder struct {
	buildDuration  prom.Histogram
	deployDuration *prom.HistogramVec
	buildOutcomes  *prom.CounterVec
	deployOutcomes *prom.CounterVec
	filesProcessed prom.Histogram
	pluginFailures *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "notepress",
			Name:      "build_duration_seconds",
			Help:      "Total build duration including validation and the build tool",
			Buckets:   prom.DefBuckets,
		}),
		deployDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "notepress",
			Name:      "deploy_duration_seconds",
			Help:      "Publish duration per deployment provider",
			Buckets:   prom.DefBuckets,
		}, []string{"provider"}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notepress",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		deployOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notepress",
			Name:      "deploy_outcomes_total",
			Help:      "Deploy outcomes by provider and result",
		}, []string{"provider", "outcome"}),
		filesProcessed: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "notepress",
			Name:      "build_files_processed",
			Help:      "Publishable files per build",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000},
		}),
		pluginFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notepress",
			Name:      "plugin_failures_total",
			Help:      "Page-generator plugin failures by plugin name",
		}, []string{"plugin"}),
	}
	reg.MustRegister(pr.buildDuration, pr.deployDuration, pr.buildOutcomes,
		pr.deployOutcomes, pr.filesProcessed, pr.pluginFailures)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveDeployDuration(provider string, d time.Duration) {
	p.deployDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncDeployOutcome(provider, outcome string) {
	p.deployOutcomes.WithLabelValues(provider, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveFilesProcessed(n int) {
	p.filesProcessed.Observe(float64(n))
}

func (p *PrometheusRecorder) IncPluginFailure(plugin string) {
	p.pluginFailures.WithLabelValues(plugin).Inc()
}
