// Package metrics exposes pipeline activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/media/pipeline"
)

const namespace = "imageproc"

// Options configures a Collector.
type Options struct {
	// Labels are attached to every metric as constant labels.
	Labels prometheus.Labels
}

func copyLabels(p prometheus.Labels) prometheus.Labels {
	x := prometheus.Labels{}
	for k, v := range p {
		x[k] = v
	}
	return x
}

// Collector is a pipeline.Observer recording request counts, durations and output sizes.
type Collector struct {
	tasks         *prometheus.CounterVec
	errors        *prometheus.CounterVec
	currentTasks  prometheus.Gauge
	taskDuration  *prometheus.HistogramVec
	outputBytes   *prometheus.CounterVec
	uploadedBytes prometheus.Counter
}

// NewCollector creates an unregistered collector.
func NewCollector(o Options) *Collector {
	return &Collector{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_total",
			Help:        "The total number of requests by lifecycle outcome",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"state"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "errors_total",
			Help:        "The total number of failed requests by error type",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"type", "state"}),
		currentTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "current_tasks",
			Help:        "The current number of requests in flight",
			ConstLabels: copyLabels(o.Labels),
		}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_duration_seconds",
			Help:        "The seconds spent running requests",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"state"}),
		outputBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "output_bytes_total",
			Help:        "The total number of encoded bytes by format",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"format"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "uploaded_bytes_total",
			Help:        "The total number of bytes written to storage",
			ConstLabels: copyLabels(o.Labels),
		}),
	}
}

// Register adds every metric to r.
func (c *Collector) Register(r prometheus.Registerer) {
	r.MustRegister(
		c.tasks,
		c.errors,
		c.currentTasks,
		c.taskDuration,
		c.outputBytes,
		c.uploadedBytes,
	)
}

func (c *Collector) OnStart(pipeline.StartEvent) {
	c.tasks.WithLabelValues("started").Inc()
	c.currentTasks.Inc()
}

func (c *Collector) OnProcessed(e pipeline.ProcessedEvent) {
	c.tasks.WithLabelValues(string(pipeline.StateCompleted)).Inc()
	c.currentTasks.Dec()
	c.taskDuration.WithLabelValues(string(pipeline.StateCompleted)).Observe(e.Duration.Seconds())
	if e.Result != nil {
		c.outputBytes.WithLabelValues(e.Result.Asset.Format).Add(float64(e.Result.Asset.Size()))
	}
}

func (c *Collector) OnError(e pipeline.ErrorEvent) {
	c.tasks.WithLabelValues(string(pipeline.StateErrored)).Inc()
	c.currentTasks.Dec()
	c.taskDuration.WithLabelValues(string(pipeline.StateErrored)).Observe(e.Duration.Seconds())
	c.errors.WithLabelValues(string(errors.TypeOf(e.Err)), string(e.State)).Inc()
}

// Uploaded records n bytes written to an asset sink.
func (c *Collector) Uploaded(n int) {
	c.uploadedBytes.Add(float64(n))
}

var _ pipeline.Observer = (*Collector)(nil)
