package config

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leeforge/imageproc/logging"
	"github.com/leeforge/imageproc/media/options"
	"github.com/leeforge/imageproc/media/pipeline"
	"github.com/leeforge/imageproc/media/queue"
	"github.com/leeforge/imageproc/media/storage"
	"github.com/leeforge/imageproc/metrics"
)

// Settings is the root of config.yaml.
type Settings struct {
	// Pipeline overrides the built-in defaults. Keys use the markup attribute names.
	Pipeline          options.Overlay `mapstructure:"pipeline" json:"pipeline"`
	WatermarkFallback bool            `mapstructure:"watermark-fallback" json:"watermarkFallback"`
	Logging           logging.Config  `mapstructure:"logging" json:"logging"`
	Queue             queue.Config    `mapstructure:"queue" json:"queue"`
	Storage           storage.Config  `mapstructure:"storage" json:"storage"`
	Metrics           MetricsConfig   `mapstructure:"metrics" json:"metrics"`
}

type MetricsConfig struct {
	Enabled bool              `mapstructure:"enabled" json:"enabled"`
	Labels  map[string]string `mapstructure:"labels" json:"labels"`
}

// Load reads the configuration files named by opts (DefaultConfigOptions when omitted).
func Load(opts ...ConfigOptions) (*Settings, error) {
	c, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	s := &Settings{}
	if err := c.BindWithDefaults(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the merged pipeline configuration.
func (s *Settings) Validate() error {
	_, err := s.PipelineConfig()
	return err
}

// PipelineConfig merges the pipeline section over options.Defaults. Each call returns a
// new Config.
func (s *Settings) PipelineConfig() (options.Config, error) {
	cfg := options.Merge(options.Defaults(), s.Pipeline)
	if err := cfg.Validate(); err != nil {
		return options.Config{}, err
	}
	return cfg, nil
}

// NewPipeline builds a pipeline from the settings. When metrics are enabled the
// collector is registered on reg and observes every request.
func (s *Settings) NewPipeline(reg prometheus.Registerer, extra ...pipeline.Option) (*pipeline.Pipeline, *metrics.Collector, error) {
	cfg, err := s.PipelineConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logging.NewLogger(s.Logging).Named("pipeline"))}
	if s.WatermarkFallback {
		opts = append(opts, pipeline.WithWatermarkFallback())
	}

	var collector *metrics.Collector
	if s.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Options{Labels: s.Metrics.Labels})
		if reg != nil {
			collector.Register(reg)
		}
		opts = append(opts, pipeline.WithObserver(collector))
	}

	return pipeline.New(cfg, append(opts, extra...)...), collector, nil
}

// NewQueue builds a stopped worker pool that renders with p and uploads to the configured
// storage. collector may be nil.
func (s *Settings) NewQueue(p queue.Processor, collector *metrics.Collector) (*queue.AsyncProcessor, error) {
	provider, err := storage.New(s.Storage)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(s.Logging)

	opts := []queue.Option{
		queue.WithSink(storage.NewSink(provider, s.Storage.Folder, logger.Named("storage"))),
		queue.WithLogger(logger.Named("queue")),
	}
	if collector != nil {
		opts = append(opts, queue.WithUploadHook(collector.Uploaded))
	}
	return queue.NewAsyncProcessor(s.Queue, p, opts...), nil
}
