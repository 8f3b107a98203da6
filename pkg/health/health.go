// Package health tracks the health of the components behind data access:
// the aux data provider and the reprojection backend.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

// Component names used by the multiply command.
const (
	ComponentAuxData      = "aux_data"
	ComponentReprojection = "reprojection"
)

// State represents the health state of a component
type State int

const (
	// StateHealthy indicates the component is fully operational
	StateHealthy State = iota

	// StateDegraded indicates recent operations keep failing
	StateDegraded

	// StateUnavailable indicates the component is not operational
	StateUnavailable
)

// String returns the string representation of a health state
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ComponentHealth tracks the health of a specific component
type ComponentHealth struct {
	Name              string    `json:"name"`
	State             State     `json:"state"`
	LastStateChange   time.Time `json:"last_state_change"`
	LastCheck         time.Time `json:"last_check"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastError         string    `json:"last_error,omitempty"`
	LastErrorCode     string    `json:"last_error_code,omitempty"`
}

// Config configures health tracking behavior
type Config struct {
	// ErrorThreshold is the number of consecutive errors before marking a component degraded
	ErrorThreshold int `yaml:"error_threshold" json:"error_threshold"`

	// UnavailableThreshold is the number of consecutive errors before marking unavailable
	UnavailableThreshold int `yaml:"unavailable_threshold" json:"unavailable_threshold"`
}

// DefaultConfig returns a default tracker configuration
func DefaultConfig() Config {
	return Config{
		ErrorThreshold:       3,
		UnavailableThreshold: 10,
	}
}

// StateChangeCallback is called when a component's health state changes.
// It runs with the tracker locked and must not call back into it.
type StateChangeCallback func(component string, from, to State, err error)

// Tracker tracks the health of multiple components and determines overall health
type Tracker struct {
	mu         sync.RWMutex
	components map[string]*ComponentHealth
	config     Config
	callbacks  []StateChangeCallback
	now        func() time.Time
}

// NewTracker creates a new health tracker
func NewTracker(config Config) *Tracker {
	if config.ErrorThreshold <= 0 {
		config.ErrorThreshold = DefaultConfig().ErrorThreshold
	}
	if config.UnavailableThreshold < config.ErrorThreshold {
		config.UnavailableThreshold = config.ErrorThreshold
	}
	return &Tracker{
		components: make(map[string]*ComponentHealth),
		config:     config,
		now:        time.Now,
	}
}

// RegisterComponent registers a new component for health tracking
func (t *Tracker) RegisterComponent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.components[name]; !exists {
		now := t.now()
		t.components[name] = &ComponentHealth{
			Name:            name,
			State:           StateHealthy,
			LastStateChange: now,
			LastCheck:       now,
		}
	}
}

// OnStateChange registers a callback for state changes.
func (t *Tracker) OnStateChange(callback StateChangeCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

// Record records the outcome of an operation of component. A missing object
// or a path outside the component's reach counts as a success.
// Unregistered components are ignored.
func (t *Tracker) Record(component string, err error) {
	if countsAgainst(err) {
		t.RecordError(component, err)
	} else {
		t.RecordSuccess(component)
	}
}

// RecordSuccess records a successful operation for a component
func (t *Tracker) RecordSuccess(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	health, exists := t.components[component]
	if !exists {
		return
	}
	health.LastCheck = t.now()
	health.ConsecutiveErrors = 0
	if health.State != StateHealthy {
		t.transition(health, StateHealthy, nil)
	}
}

// RecordError records an error for a component
func (t *Tracker) RecordError(component string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	health, exists := t.components[component]
	if !exists {
		return
	}
	health.LastCheck = t.now()
	health.ConsecutiveErrors++
	if err != nil {
		health.LastError = err.Error()
		health.LastErrorCode = string(errors.CodeOf(err))
	}

	newState := health.State
	switch {
	case health.ConsecutiveErrors >= t.config.UnavailableThreshold:
		newState = StateUnavailable
	case health.ConsecutiveErrors >= t.config.ErrorThreshold:
		newState = StateDegraded
	}
	if newState != health.State {
		t.transition(health, newState, err)
	}
}

// State returns the current health state of a component. Unknown
// components are unavailable.
func (t *Tracker) State(component string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if health, exists := t.components[component]; exists {
		return health.State
	}
	return StateUnavailable
}

// Component returns a copy of the health of a component
func (t *Tracker) Component(component string) (ComponentHealth, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	health, exists := t.components[component]
	if !exists {
		return ComponentHealth{}, fmt.Errorf("component %s not registered", component)
	}
	return *health, nil
}

// Components returns copies of all components sorted by name.
func (t *Tracker) Components() []ComponentHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]ComponentHealth, 0, len(t.components))
	for _, health := range t.components {
		result = append(result, *health)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Overall returns the worst state of all components.
func (t *Tracker) Overall() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	overall := StateHealthy
	for _, health := range t.components {
		if health.State > overall {
			overall = health.State
		}
	}
	return overall
}

// Report is the body served by Handler.
type Report struct {
	Status     State             `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// Handler serves the health report as JSON. The status code is 503 while
// any component is unavailable.
func (t *Tracker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := Report{Status: t.Overall(), Components: t.Components()}
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StateUnavailable {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}

// transition must be called with the lock held.
func (t *Tracker) transition(health *ComponentHealth, to State, err error) {
	from := health.State
	health.State = to
	health.LastStateChange = t.now()
	if to == StateHealthy {
		health.LastError = ""
		health.LastErrorCode = ""
	}
	for _, cb := range t.callbacks {
		cb(health.Name, from, to, err)
	}
}

func countsAgainst(err error) bool {
	if err == nil {
		return false
	}
	return !errors.HasCode(err, errors.ErrCodeObjectNotFound) &&
		!errors.HasCode(err, errors.ErrCodePathInvalid)
}
