// Package variables holds the library of named scientific quantities (leaf
// area index, chlorophyll content, ...) that retrieval products are written
// for. Each declared variable gets its own data type in the validation
// registry and its own file reference creator.
package variables

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

//go:embed default_variables_library.yaml
var defaultLibrary []byte

// DateFormat selects how the date token of a variable file name is written.
type DateFormat string

const (
	// DayOfYear names files {short_name}_A{YYYYDDD}.tif.
	DayOfYear DateFormat = "day_of_year"
	// SingleDate names files {short_name}_{YYYYMMDD}.tif.
	SingleDate DateFormat = "date"
	// DateRange names files {short_name}_{YYYYMMDD}_{YYYYMMDD}.tif.
	DateRange DateFormat = "date_range"
)

// Valid reports whether f is a known date format.
func (f DateFormat) Valid() bool {
	switch f {
	case DayOfYear, SingleDate, DateRange:
		return true
	}
	return false
}

// Variable describes one retrievable quantity.
type Variable struct {
	ShortName    string     `yaml:"short_name"`
	DisplayName  string     `yaml:"display_name"`
	Unit         string     `yaml:"unit"`
	Description  string     `yaml:"description"`
	Range        string     `yaml:"range"`
	Applications []string   `yaml:"applications"`
	DateFormat   DateFormat `yaml:"date_format,omitempty"`
}

type libraryEntry struct {
	Variable Variable `yaml:"Variable"`
}

// Parse decodes a YAML variables library. Entries without a date format
// default to DayOfYear.
func Parse(data []byte) ([]Variable, error) {
	var entries []libraryEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to parse variables library").
			WithComponent("variables")
	}

	vars := make([]Variable, 0, len(entries))
	for i, e := range entries {
		v := e.Variable
		if v.ShortName == "" {
			return nil, errors.Newf(errors.ErrCodeConfigValidation, "variable %d has no short_name", i).
				WithComponent("variables")
		}
		if v.DateFormat == "" {
			v.DateFormat = DayOfYear
		}
		if !v.DateFormat.Valid() {
			return nil, errors.Newf(errors.ErrCodeConfigValidation,
				"variable %s has unknown date_format %q", v.ShortName, v.DateFormat).
				WithComponent("variables")
		}
		vars = append(vars, v)
	}
	return vars, nil
}

// LoadFile reads a variables library from disk.
func LoadFile(path string) ([]Variable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to read variables library").
			WithComponent("variables").
			WithContext("path", path)
	}
	return Parse(data)
}

// Default returns the variables of the built-in library.
func Default() []Variable {
	vars, err := Parse(defaultLibrary)
	if err != nil {
		panic(fmt.Sprintf("variables: invalid built-in library: %v", err))
	}
	return vars
}

// Library is an ordered, add-if-absent set of variables.
type Library struct {
	mu    sync.RWMutex
	order []string
	vars  map[string]Variable
}

// NewLibrary creates a library holding vars.
func NewLibrary(vars ...Variable) *Library {
	l := &Library{vars: make(map[string]Variable)}
	for _, v := range vars {
		l.Add(v)
	}
	return l
}

// Add registers v unless a variable with the same short name exists. It
// reports whether v was added.
func (l *Library) Add(v Variable) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.vars[v.ShortName]; ok || v.ShortName == "" {
		return false
	}
	if v.DateFormat == "" {
		v.DateFormat = DayOfYear
	}
	l.vars[v.ShortName] = v
	l.order = append(l.order, v.ShortName)
	return true
}

// Get returns the variable registered under shortName.
func (l *Library) Get(shortName string) (Variable, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vars[shortName]
	return v, ok
}

// All returns the variables in registration order.
func (l *Library) All() []Variable {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Variable, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.vars[name])
	}
	return out
}

// ShortNames returns the registered short names in registration order.
func (l *Library) ShortNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}
