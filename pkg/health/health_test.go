package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

func TestTracker_RegisterComponent(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	tracker.RegisterComponent(ComponentAuxData)

	if state := tracker.State(ComponentAuxData); state != StateHealthy {
		t.Errorf("Expected initial state to be healthy, got %s", state)
	}
	if state := tracker.State("unregistered"); state != StateUnavailable {
		t.Errorf("Expected unregistered component to be unavailable, got %s", state)
	}
}

func TestNewTracker_NormalizesConfig(t *testing.T) {
	tracker := NewTracker(Config{ErrorThreshold: 0, UnavailableThreshold: 1})
	if tracker.config.ErrorThreshold != 3 {
		t.Errorf("ErrorThreshold = %d, want 3", tracker.config.ErrorThreshold)
	}
	if tracker.config.UnavailableThreshold != 3 {
		t.Errorf("UnavailableThreshold = %d, want 3", tracker.config.UnavailableThreshold)
	}
}

func TestTracker_Degradation(t *testing.T) {
	tracker := NewTracker(Config{ErrorThreshold: 2, UnavailableThreshold: 4})
	tracker.RegisterComponent(ComponentAuxData)

	fail := errors.NewError(errors.ErrCodeAuxFetchFailed, "connection reset")
	tests := []State{StateHealthy, StateDegraded, StateDegraded, StateUnavailable, StateUnavailable}
	for i, want := range tests {
		tracker.RecordError(ComponentAuxData, fail)
		if got := tracker.State(ComponentAuxData); got != want {
			t.Errorf("after %d errors: state = %s, want %s", i+1, got, want)
		}
	}

	health, err := tracker.Component(ComponentAuxData)
	if err != nil {
		t.Fatalf("Component: %v", err)
	}
	if health.ConsecutiveErrors != 5 {
		t.Errorf("ConsecutiveErrors = %d, want 5", health.ConsecutiveErrors)
	}
	if health.LastErrorCode != string(errors.ErrCodeAuxFetchFailed) {
		t.Errorf("LastErrorCode = %q", health.LastErrorCode)
	}

	tracker.RecordSuccess(ComponentAuxData)
	health, _ = tracker.Component(ComponentAuxData)
	if health.State != StateHealthy || health.ConsecutiveErrors != 0 || health.LastError != "" {
		t.Errorf("after success: %+v, want healthy and cleared", health)
	}
}

func TestTracker_Record(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		healthy bool
	}{
		{"nil", nil, true},
		{"object not found", errors.NewError(errors.ErrCodeObjectNotFound, "no such key"), true},
		{"path outside cache", errors.NewError(errors.ErrCodePathInvalid, "outside"), true},
		{"wrapped not found", errors.Wrap(errors.NewError(errors.ErrCodeObjectNotFound, "no such key"),
			errors.ErrCodeRetryExhausted, "gave up"), true},
		{"transient", errors.NewError(errors.ErrCodeAuxFetchFailed, "reset"), false},
		{"circuit open", errors.NewError(errors.ErrCodeCircuitOpen, "open"), false},
		{"warp failed", errors.NewError(errors.ErrCodeWarpFailed, "warp"), false},
		{"plain", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(Config{ErrorThreshold: 1, UnavailableThreshold: 2})
			tracker.RegisterComponent(ComponentAuxData)
			tracker.Record(ComponentAuxData, tt.err)

			healthy := tracker.State(ComponentAuxData) == StateHealthy
			if healthy != tt.healthy {
				t.Errorf("Record(%v): healthy = %v, want %v", tt.err, healthy, tt.healthy)
			}
		})
	}
}

func TestTracker_UnregisteredIgnored(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	tracker.RecordError("unknown", fmt.Errorf("boom"))
	tracker.RecordSuccess("unknown")

	if _, err := tracker.Component("unknown"); err == nil {
		t.Error("Expected error for unregistered component")
	}
	if len(tracker.Components()) != 0 {
		t.Error("Expected no components")
	}
}

func TestTracker_Overall(t *testing.T) {
	tracker := NewTracker(Config{ErrorThreshold: 1, UnavailableThreshold: 2})
	if tracker.Overall() != StateHealthy {
		t.Errorf("empty tracker: %s, want healthy", tracker.Overall())
	}

	tracker.RegisterComponent(ComponentAuxData)
	tracker.RegisterComponent(ComponentReprojection)
	tracker.RecordError(ComponentReprojection, fmt.Errorf("warp failed"))
	if tracker.Overall() != StateDegraded {
		t.Errorf("overall = %s, want degraded", tracker.Overall())
	}

	components := tracker.Components()
	if len(components) != 2 || components[0].Name != ComponentAuxData || components[1].Name != ComponentReprojection {
		t.Errorf("components = %+v, want sorted by name", components)
	}
}

func TestTracker_OnStateChange(t *testing.T) {
	tracker := NewTracker(Config{ErrorThreshold: 1, UnavailableThreshold: 2})
	tracker.RegisterComponent(ComponentAuxData)

	var transitions []string
	tracker.OnStateChange(func(component string, from, to State, err error) {
		transitions = append(transitions, fmt.Sprintf("%s:%s>%s", component, from, to))
	})

	tracker.RecordError(ComponentAuxData, fmt.Errorf("a"))
	tracker.RecordError(ComponentAuxData, fmt.Errorf("b"))
	tracker.RecordError(ComponentAuxData, fmt.Errorf("c"))
	tracker.RecordSuccess(ComponentAuxData)

	want := []string{"aux_data:healthy>degraded", "aux_data:degraded>unavailable", "aux_data:unavailable>healthy"}
	if fmt.Sprint(transitions) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestTracker_Handler(t *testing.T) {
	tracker := NewTracker(Config{ErrorThreshold: 1, UnavailableThreshold: 2})
	tracker.RegisterComponent(ComponentAuxData)

	get := func() (*httptest.ResponseRecorder, map[string]interface{}) {
		rec := httptest.NewRecorder()
		tracker.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
		}
		return rec, body
	}

	rec, body := get()
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("healthy: code %d, body %v", rec.Code, body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	tracker.RecordError(ComponentAuxData, fmt.Errorf("a"))
	tracker.RecordError(ComponentAuxData, fmt.Errorf("b"))
	rec, body = get()
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "unavailable" {
		t.Errorf("unavailable: code %d, body %v", rec.Code, body)
	}
	components, ok := body["components"].([]interface{})
	if !ok || len(components) != 1 {
		t.Fatalf("components = %v", body["components"])
	}
	if c := components[0].(map[string]interface{}); c["name"] != ComponentAuxData || c["state"] != "unavailable" {
		t.Errorf("component = %v", c)
	}
}
