package validation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

// Recorder receives classification and validation outcomes.
type Recorder interface {
	RecordClassification(dataType string)
	RecordValidation(dataType, outcome string)
}

// Validation outcomes passed to Recorder.
const (
	OutcomeValid       = "valid"
	OutcomeInvalid     = "invalid"
	OutcomeUnsupported = "unsupported"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = utils.OrDefault(logger).With("component", "validation") }
}

// WithRecorder reports outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// Registry holds one validator per data type in registration order.
// Validators are only ever added, never replaced or removed.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	validators map[string]*Validator

	provider auxdata.Provider
	logger   *slog.Logger
	recorder Recorder
}

// NewRegistry creates an empty registry. Validators created through it look
// up companion files with provider.
func NewRegistry(provider auxdata.Provider, opts ...Option) *Registry {
	r := &Registry{
		validators: make(map[string]*Validator),
		provider:   provider,
		logger:     slog.Default().With("component", "validation"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.provider == nil {
		r.provider = auxdata.NewLocalProvider(r.logger)
	}
	return r
}

// NewDefaultRegistry creates a registry with the built-in data types followed
// by one type per variable.
func NewDefaultRegistry(provider auxdata.Provider, vars []variables.Variable, opts ...Option) (*Registry, error) {
	r := NewRegistry(provider, opts...)
	for _, def := range BuiltinDefinitions() {
		if _, err := r.RegisterDefinition(def); err != nil {
			return nil, err
		}
	}
	if _, err := r.RegisterVariables(vars); err != nil {
		return nil, err
	}
	return r, nil
}

// Provider returns the provider companion files are looked up with.
func (r *Registry) Provider() auxdata.Provider { return r.provider }

// Register adds v under its name. It reports false and leaves the registry
// unchanged when the name is already taken.
func (r *Registry) Register(v *Validator) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.validators[v.Name()]; ok {
		return false
	}
	r.validators[v.Name()] = v
	r.order = append(r.order, v.Name())
	return true
}

// RegisterDefinition compiles def against the registry's provider and
// registers it.
func (r *Registry) RegisterDefinition(def Definition) (bool, error) {
	v, err := New(def, r.provider)
	if err != nil {
		return false, err
	}
	added := r.Register(v)
	if added {
		r.logger.Debug("registered data type", "type", def.Name, "family", def.Family.String())
	}
	return added, nil
}

// RegisterVariables adds one variable type per variable not yet registered
// and returns how many were added. Calling it again with the same variables
// adds nothing.
func (r *Registry) RegisterVariables(vars []variables.Variable) (int, error) {
	added := 0
	for _, v := range vars {
		def, err := VariableDefinition(v)
		if err != nil {
			return added, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid variable").
				WithComponent("validation").
				WithContext("variable", v.ShortName)
		}
		ok, err := r.RegisterDefinition(def)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Validator returns the validator registered for dataType.
func (r *Registry) Validator(dataType string) (*Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[dataType]
	return v, ok
}

func (r *Registry) snapshot() []*Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Validator, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.validators[name])
	}
	return out
}

// GetValidType returns the first data type, in registration order, whose
// validator accepts path, or "" when none does.
func (r *Registry) GetValidType(path string) string {
	for _, v := range r.snapshot() {
		if v.IsValid(path) {
			r.recordClassification(v.Name())
			return v.Name()
		}
	}
	r.recordClassification("")
	return ""
}

// MatchingTypes returns every data type whose validator accepts path, in
// registration order. More than one entry means GetValidType resolved an
// ambiguity by order.
func (r *Registry) MatchingTypes(path string) []string {
	var matches []string
	for _, v := range r.snapshot() {
		if v.IsValid(path) {
			matches = append(matches, v.Name())
		}
	}
	if len(matches) > 1 {
		r.logger.Warn("path matches several data types", "path", path, "types", matches)
	}
	return matches
}

// IsValid reports whether path is valid for dataType. Unknown types are not
// valid.
func (r *Registry) IsValid(path, dataType string) bool {
	v, ok := r.Validator(dataType)
	if !ok {
		return false
	}
	valid := v.IsValid(path)
	r.recordValidation(dataType, valid)
	return valid
}

// IsValidFor reports whether path is valid for dataType within roi and the
// inclusive window [start, end]. An unknown type gives false. A type without
// spatio-temporal filtering gives an error with ErrCodeFilterUnsupported, see
// SupportsSpatioTemporalFilter.
func (r *Registry) IsValidFor(path, dataType string, roi geom.T, start, end time.Time) (bool, error) {
	v, ok := r.Validator(dataType)
	if !ok {
		return false, nil
	}
	valid, err := v.IsValidFor(path, roi, start, end)
	if err != nil {
		if r.recorder != nil {
			r.recorder.RecordValidation(dataType, OutcomeUnsupported)
		}
		return false, err
	}
	r.recordValidation(dataType, valid)
	return valid, nil
}

// SupportsSpatioTemporalFilter reports whether IsValidFor can answer for
// dataType.
func (r *Registry) SupportsSpatioTemporalFilter(dataType string) bool {
	v, ok := r.Validator(dataType)
	return ok && v.SupportsSpatioTemporalFilter()
}

// GetRelativePath returns the sub-path identifying the product instance at
// path, or "" if dataType defines none.
func (r *Registry) GetRelativePath(path, dataType string) string {
	v, ok := r.Validator(dataType)
	if !ok {
		return ""
	}
	return v.RelativePath(path)
}

// GetFilePattern returns the file pattern of dataType, or "" if unknown.
func (r *Registry) GetFilePattern(dataType string) string {
	v, ok := r.Validator(dataType)
	if !ok {
		return ""
	}
	return v.FilePattern()
}

// DiffersByName reports whether two differently named items of dataType are
// guaranteed to be distinct products.
func (r *Registry) DiffersByName(dataType string) bool {
	v, ok := r.Validator(dataType)
	return ok && v.DiffersByName()
}

// GetValidTypes returns the registered data types in registration order.
func (r *Registry) GetValidTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) recordClassification(dataType string) {
	if r.recorder != nil {
		r.recorder.RecordClassification(dataType)
	}
}

func (r *Registry) recordValidation(dataType string, valid bool) {
	if r.recorder == nil {
		return
	}
	outcome := OutcomeInvalid
	if valid {
		outcome = OutcomeValid
	}
	r.recorder.RecordValidation(dataType, outcome)
}
