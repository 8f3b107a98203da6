// Package circuit stops calling a remote that keeps failing.
package circuit

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// State is the state of a Breaker.
type State int

const (
	// StateClosed lets requests through.
	StateClosed State = iota
	// StateOpen rejects requests until the timeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe requests through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32 `yaml:"failure_threshold"`

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval clears the counts periodically while closed. Zero never clears.
	Interval time.Duration `yaml:"interval"`

	// Timeout is how long the breaker stays open.
	Timeout time.Duration `yaml:"timeout"`

	// ReadyToTrip overrides FailureThreshold.
	ReadyToTrip func(counts Counts) bool `yaml:"-"`

	// IsSuccessful decides whether a result counts against the remote.
	IsSuccessful func(err error) bool `yaml:"-"`

	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// Counts holds request outcomes since the last state change or clear.
type Counts struct {
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
}

func (c *Counts) onRequest() { c.Requests++ }

func (c *Counts) onSuccess() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) onFailure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

func (c *Counts) clear() { *c = Counts{} }

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger logs state changes to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) { b.logger = utils.OrDefault(logger) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// Breaker stops calling a remote that keeps failing. Rejected calls fail
// with a non-retryable CIRCUIT_OPEN error.
type Breaker struct {
	name   string
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// New creates a closed breaker.
func New(name string, config Config, opts ...Option) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ReadyToTrip == nil {
		threshold := config.FailureThreshold
		config.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures >= threshold }
	}
	if config.IsSuccessful == nil {
		config.IsSuccessful = RemoteAnswered
	}

	b := &Breaker{
		name:   name,
		config: config,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "circuit", "breaker", name)
	b.expiry = b.closedExpiry(b.now())
	return b
}

// RemoteAnswered treats nil and every error that is not retryable as a
// success: a missing object or a denied request means the remote is up.
func RemoteAnswered(err error) bool {
	if err == nil {
		return true
	}
	var me *errors.MultiplyError
	if !stderrors.As(err, &me) {
		return false
	}
	return !me.Retryable
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	b.afterRequest(err)
	return err
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state := b.currentState(now)
	if state == StateOpen {
		return b.rejection("circuit open", now)
	}
	if state == StateHalfOpen && b.counts.Requests >= b.config.MaxRequests {
		return b.rejection("circuit half-open, probe in progress", now)
	}
	b.counts.onRequest()
	return nil
}

func (b *Breaker) rejection(msg string, now time.Time) error {
	err := errors.NewError(errors.ErrCodeCircuitOpen, msg).
		WithComponent("circuit").
		WithContext("breaker", b.name)
	if !b.expiry.IsZero() {
		err = err.WithContext("retry_in", b.expiry.Sub(now).Round(time.Millisecond).String())
	}
	return err
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state := b.currentState(now)
	if b.config.IsSuccessful(err) {
		b.counts.onSuccess()
		if state == StateHalfOpen {
			b.setState(StateClosed, now)
		}
		return
	}

	b.counts.onFailure()
	switch state {
	case StateClosed:
		if b.config.ReadyToTrip(b.counts) {
			b.logger.Warn("opening circuit", "consecutive_failures", b.counts.ConsecutiveFailures, "error", err)
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) State {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts.clear()
			b.expiry = b.closedExpiry(now)
		}
	case StateOpen:
		if !b.expiry.After(now) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state
}

func (b *Breaker) closedExpiry(now time.Time) time.Time {
	if b.config.Interval <= 0 {
		return time.Time{}
	}
	return now.Add(b.config.Interval)
}

func (b *Breaker) setState(state State, now time.Time) {
	prev := b.state
	if prev == state {
		return
	}
	b.state = state
	b.counts.clear()

	switch state {
	case StateClosed:
		b.expiry = b.closedExpiry(now)
	case StateOpen:
		b.expiry = now.Add(b.config.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	b.logger.Info("circuit state changed", "from", prev.String(), "to", state.String())
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, state)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(b.now())
}

// Counts returns a copy of the current counts.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Reset closes the breaker and clears its counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed, b.now())
	b.counts.clear()
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }
