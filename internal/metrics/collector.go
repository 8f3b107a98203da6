package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/multiply-org/multiply-core/internal/storage/s3"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/health"
	"github.com/multiply-org/multiply-core/pkg/reproject"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/validation"
)

// Collector records classification, validation, reprojection and aux data
// fetch activity as Prometheus metrics.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry
	logger   *slog.Logger
	health   *health.Tracker

	classifications *prometheus.CounterVec
	validations     *prometheus.CounterVec
	resamplings     *prometheus.CounterVec
	reprojections   *prometheus.HistogramVec
	auxFetches      *prometheus.CounterVec
	auxFetchBytes   *prometheus.CounterVec
	auxFetchLatency *prometheus.HistogramVec
	errorCounter    *prometheus.CounterVec

	// Internal tracking
	operations map[string]*OperationMetrics
	lastReset  time.Time

	server *http.Server
}

var (
	_ validation.Recorder = (*Collector)(nil)
	_ reproject.Recorder  = (*Collector)(nil)
	_ s3.Recorder         = (*Collector)(nil)
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Port      int               `yaml:"port"`
	Path      string            `yaml:"path"`
	Labels    map[string]string `yaml:"labels"`
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Port:      9090,
		Path:      "/metrics",
		Namespace: "multiply",
		Labels:    make(map[string]string),
	}
}

// OperationMetrics summarizes one operation kind
type OperationMetrics struct {
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastOperation time.Time     `json:"last_operation"`
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = utils.OrDefault(logger) }
}

// WithHealth feeds reprojection and aux fetch outcomes to tracker and
// serves its report on /health.
func WithHealth(tracker *health.Tracker) Option {
	return func(c *Collector) { c.health = tracker }
}

// NewCollector creates a new metrics collector. A disabled collector accepts
// all recordings and drops them.
func NewCollector(config *Config, opts ...Option) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Collector{
		config:     config,
		logger:     slog.Default(),
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "metrics")

	if !config.Enabled {
		return c, nil
	}

	c.registry = prometheus.NewRegistry()
	c.initMetrics()
	if err := c.registerMetrics(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to register metrics").
			WithComponent("metrics")
	}
	return c, nil
}

// Registry returns the Prometheus registry, nil when disabled.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns the HTTP handler exposing the metrics.
func (c *Collector) Handler() http.Handler {
	if c.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start serves the metrics endpoint in the background.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, c.Handler())
	mux.Handle("/health", c.HealthHandler())

	c.mu.Lock()
	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second, // Prevent Slowloris attacks
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	server := c.server
	c.mu.Unlock()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("metrics server failed", "addr", server.Addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	c.logger.Info("serving metrics", "addr", server.Addr, "path", c.config.Path)
	return nil
}

// Stop stops the metrics server
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	c.server = nil
	c.mu.Unlock()

	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

// RecordClassification counts a path classified as dataType. An empty type
// counts as "unknown".
func (c *Collector) RecordClassification(dataType string) {
	if !c.config.Enabled {
		return
	}
	if dataType == "" {
		dataType = "unknown"
	}
	c.classifications.With(prometheus.Labels{"data_type": dataType}).Inc()
}

// RecordValidation counts a validity check and its outcome.
func (c *Collector) RecordValidation(dataType, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.validations.With(prometheus.Labels{"data_type": dataType, "outcome": outcome}).Inc()
}

// RecordResampling counts a chosen resampling method.
func (c *Collector) RecordResampling(mode string) {
	if !c.config.Enabled {
		return
	}
	c.resamplings.With(prometheus.Labels{"method": mode}).Inc()
}

// ObserveReprojection records a warp run.
func (c *Collector) ObserveReprojection(duration time.Duration, err error) {
	if c.health != nil {
		c.health.Record(health.ComponentReprojection, err)
	}
	if !c.config.Enabled {
		return
	}
	c.reprojections.With(prometheus.Labels{"status": status(err)}).Observe(duration.Seconds())
	c.recordOperation("reproject", duration, err)
}

// ObserveAuxFetch records an aux data download.
func (c *Collector) ObserveAuxFetch(provider string, bytes int64, duration time.Duration, err error) {
	if c.health != nil {
		c.health.Record(health.ComponentAuxData, err)
	}
	if !c.config.Enabled {
		return
	}
	labels := prometheus.Labels{"provider": provider, "status": status(err)}
	c.auxFetches.With(labels).Inc()
	if bytes > 0 {
		c.auxFetchBytes.With(prometheus.Labels{"provider": provider}).Add(float64(bytes))
	}
	c.auxFetchLatency.With(prometheus.Labels{"provider": provider}).Observe(duration.Seconds())
	c.recordOperation("aux_fetch", duration, err)
}

// Summary returns a copy of the per-operation summaries.
func (c *Collector) Summary() map[string]OperationMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]OperationMetrics, len(c.operations))
	for k, v := range c.operations {
		out[k] = *v
	}
	return out
}

// ResetMetrics resets the operation summaries
func (c *Collector) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.operations = make(map[string]*OperationMetrics)
	c.lastReset = time.Now()
}

func (c *Collector) recordOperation(operation string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.operations[operation]
	if !ok {
		m = &OperationMetrics{}
		c.operations[operation] = m
	}
	m.Count++
	m.TotalDuration += duration
	m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.Count)
	m.LastOperation = time.Now()
	if err != nil {
		m.Errors++
		c.errorCounter.With(prometheus.Labels{
			"operation": operation,
			"code":      string(errors.CodeOf(err)),
		}).Inc()
	}
}

func (c *Collector) initMetrics() {
	ns, sub, labels := c.config.Namespace, c.config.Subsystem, prometheus.Labels(c.config.Labels)

	c.classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name: "classifications_total",
		Help: "Total number of paths classified, by data type",
	}, []string{"data_type"})

	c.validations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name: "validations_total",
		Help: "Total number of validity checks, by data type and outcome",
	}, []string{"data_type", "outcome"})

	c.resamplings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name: "resampling_decisions_total",
		Help: "Total number of reprojections, by resampling method",
	}, []string{"method"})

	c.reprojections = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name:    "reprojection_duration_seconds",
		Help:    "Duration of raster reprojections in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
	}, []string{"status"})

	c.auxFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name: "aux_fetches_total",
		Help: "Total number of aux data downloads",
	}, []string{"provider", "status"})

	c.auxFetchBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name: "aux_fetch_bytes_total",
		Help: "Total bytes of aux data downloaded",
	}, []string{"provider"})

	c.auxFetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name:    "aux_fetch_duration_seconds",
		Help:    "Duration of aux data downloads in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
	}, []string{"provider"})

	c.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub, ConstLabels: labels,
		Name: "errors_total",
		Help: "Total number of failed operations, by error code",
	}, []string{"operation", "code"})
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.classifications,
		c.validations,
		c.resamplings,
		c.reprojections,
		c.auxFetches,
		c.auxFetchBytes,
		c.auxFetchLatency,
		c.errorCounter,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

// HealthHandler serves the health tracker report, or a static healthy
// status when no tracker is set.
func (c *Collector) HealthHandler() http.Handler {
	if c.health != nil {
		return c.health.Handler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"multiply-metrics"}`))
	})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
