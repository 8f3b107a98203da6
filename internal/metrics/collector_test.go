package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/multiply-org/multiply-core/internal/storage/s3"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/health"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/validation"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	collector, err := NewCollector(nil, WithLogger(utils.DiscardLogger()))
	if err != nil {
		t.Fatalf("NewCollector() error = %v, want nil", err)
	}
	return collector
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	t.Run("with nil config uses defaults", func(t *testing.T) {
		collector := newTestCollector(t)
		if collector.config.Port != 9090 {
			t.Errorf("default port = %d, want 9090", collector.config.Port)
		}
		if collector.config.Path != "/metrics" {
			t.Errorf("default path = %q, want %q", collector.config.Path, "/metrics")
		}
		if collector.config.Namespace != "multiply" {
			t.Errorf("default namespace = %q, want %q", collector.config.Namespace, "multiply")
		}
		if collector.Registry() == nil {
			t.Error("collector.registry is nil")
		}
	})

	t.Run("with disabled config", func(t *testing.T) {
		collector, err := NewCollector(&Config{Enabled: false})
		if err != nil {
			t.Fatalf("NewCollector() error = %v, want nil", err)
		}
		if collector.Registry() != nil {
			t.Error("disabled collector should not have registry")
		}

		// Recordings are dropped without panicking.
		collector.RecordClassification("S2_L1C")
		collector.RecordValidation("S2_L1C", validation.OutcomeValid)
		collector.RecordResampling("average")
		collector.ObserveReprojection(time.Second, nil)
		collector.ObserveAuxFetch(s3.ProviderName, 10, time.Second, nil)
		if err := collector.Start(context.Background()); err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
		if len(collector.Summary()) != 0 {
			t.Error("disabled collector should not track operations")
		}
	})
}

func TestRecordClassificationAndValidation(t *testing.T) {
	t.Parallel()
	collector := newTestCollector(t)

	collector.RecordClassification("S2_L1C")
	collector.RecordClassification("S2_L1C")
	collector.RecordClassification("MODIS_MCD_43")
	collector.RecordClassification("")
	collector.RecordValidation("S2_L1C", validation.OutcomeValid)
	collector.RecordValidation("S2_L1C", validation.OutcomeInvalid)
	collector.RecordValidation("CAMS", validation.OutcomeUnsupported)

	if got := testutil.ToFloat64(collector.classifications.WithLabelValues("S2_L1C")); got != 2 {
		t.Errorf("S2_L1C classifications = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.classifications.WithLabelValues("MODIS_MCD_43")); got != 1 {
		t.Errorf("MODIS classifications = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.classifications.WithLabelValues("unknown")); got != 1 {
		t.Errorf("unknown classifications = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(collector.validations); got != 3 {
		t.Errorf("validation series = %d, want 3", got)
	}
	if got := testutil.ToFloat64(collector.validations.WithLabelValues("CAMS", validation.OutcomeUnsupported)); got != 1 {
		t.Errorf("unsupported validations = %v, want 1", got)
	}
}

func TestObserveReprojection(t *testing.T) {
	t.Parallel()
	collector := newTestCollector(t)

	collector.RecordResampling("average")
	collector.ObserveReprojection(100*time.Millisecond, nil)
	collector.ObserveReprojection(300*time.Millisecond, errors.NewError(errors.ErrCodeWarpFailed, "warp failed"))

	if got := testutil.ToFloat64(collector.resamplings.WithLabelValues("average")); got != 1 {
		t.Errorf("average resamplings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.errorCounter.WithLabelValues("reproject", "WARP_FAILED")); got != 1 {
		t.Errorf("reproject errors = %v, want 1", got)
	}

	summary := collector.Summary()["reproject"]
	if summary.Count != 2 {
		t.Errorf("Count = %d, want 2", summary.Count)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.AvgDuration != 200*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 200ms", summary.AvgDuration)
	}
}

func TestObserveAuxFetch(t *testing.T) {
	t.Parallel()
	collector := newTestCollector(t)

	collector.ObserveAuxFetch(s3.ProviderName, 1024, 50*time.Millisecond, nil)
	collector.ObserveAuxFetch(s3.ProviderName, 2048, 50*time.Millisecond, nil)
	collector.ObserveAuxFetch(s3.ProviderName, 0, 10*time.Millisecond,
		errors.NewError(errors.ErrCodeObjectNotFound, "object not found"))

	if got := testutil.ToFloat64(collector.auxFetchBytes.WithLabelValues(s3.ProviderName)); got != 3072 {
		t.Errorf("fetched bytes = %v, want 3072", got)
	}
	if got := testutil.ToFloat64(collector.auxFetches.WithLabelValues(s3.ProviderName, "success")); got != 2 {
		t.Errorf("successful fetches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.auxFetches.WithLabelValues(s3.ProviderName, "error")); got != 1 {
		t.Errorf("failed fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.errorCounter.WithLabelValues("aux_fetch", "OBJECT_NOT_FOUND")); got != 1 {
		t.Errorf("aux fetch errors = %v, want 1", got)
	}
}

func TestResetMetrics(t *testing.T) {
	t.Parallel()
	collector := newTestCollector(t)

	collector.ObserveReprojection(time.Millisecond, nil)
	if len(collector.Summary()) != 1 {
		t.Fatalf("Summary() has %d entries, want 1", len(collector.Summary()))
	}
	collector.ResetMetrics()
	if len(collector.Summary()) != 0 {
		t.Errorf("Summary() after reset has %d entries, want 0", len(collector.Summary()))
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()
	collector := newTestCollector(t)
	collector.RecordClassification("S2_L2")

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `multiply_classifications_total{data_type="S2_L2"} 1`) {
		t.Errorf("metrics output missing classification counter:\n%s", body)
	}
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()
	collector := newTestCollector(t)

	rec := httptest.NewRecorder()
	collector.HealthHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health body = %q", rec.Body.String())
	}
}

func TestHealthTracking(t *testing.T) {
	t.Parallel()
	tracker := health.NewTracker(health.Config{ErrorThreshold: 1, UnavailableThreshold: 2})
	tracker.RegisterComponent(health.ComponentAuxData)
	tracker.RegisterComponent(health.ComponentReprojection)

	// Health is tracked even when metrics are disabled.
	collector, err := NewCollector(&Config{Enabled: false},
		WithLogger(utils.DiscardLogger()), WithHealth(tracker))
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	fail := errors.NewError(errors.ErrCodeAuxFetchFailed, "connection reset")
	collector.ObserveAuxFetch(s3.ProviderName, 0, time.Millisecond, fail)
	collector.ObserveAuxFetch(s3.ProviderName, 0, time.Millisecond, fail)
	collector.ObserveReprojection(time.Millisecond, nil)

	if got := tracker.State(health.ComponentAuxData); got != health.StateUnavailable {
		t.Errorf("aux data state = %s, want unavailable", got)
	}
	if got := tracker.State(health.ComponentReprojection); got != health.StateHealthy {
		t.Errorf("reprojection state = %s, want healthy", got)
	}

	rec := httptest.NewRecorder()
	collector.HealthHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 503 {
		t.Errorf("health status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"aux_data"`) {
		t.Errorf("health body = %q", rec.Body.String())
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	collector, err := NewCollector(&Config{Enabled: true, Port: 0, Path: "/metrics", Namespace: "multiply"},
		WithLogger(utils.DiscardLogger()))
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := collector.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := collector.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := collector.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
