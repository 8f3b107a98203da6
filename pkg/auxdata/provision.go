package auxdata

import (
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// Creator builds a provider from free-form parameters.
type Creator interface {
	Name() string
	Create(parameters map[string]string) (Provider, error)
}

// CreatorFunc adapts a function to the Creator interface.
type CreatorFunc struct {
	ProviderName string
	Fn           func(parameters map[string]string) (Provider, error)
}

// Name returns ProviderName.
func (c CreatorFunc) Name() string { return c.ProviderName }

// Create calls Fn.
func (c CreatorFunc) Create(parameters map[string]string) (Provider, error) {
	return c.Fn(parameters)
}

// Selection names the provider to use and its parameters, as stored in a
// provider selection file.
type Selection struct {
	Provider   string            `yaml:"aux_data_provider"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// Provision keeps the known provider creators. It is filled at start-up and
// read afterwards.
type Provision struct {
	mu       sync.RWMutex
	creators map[string]Creator
	order    []string
	logger   *slog.Logger
}

// NewProvision creates a provision that knows the DEFAULT provider.
func NewProvision(logger *slog.Logger) *Provision {
	p := &Provision{
		creators: make(map[string]Creator),
		logger:   utils.OrDefault(logger).With("component", "auxdata"),
	}
	p.Register(CreatorFunc{
		ProviderName: DefaultProviderName,
		Fn: func(map[string]string) (Provider, error) {
			return NewLocalProvider(p.logger), nil
		},
	})
	return p
}

// Register adds c unless a creator with the same name exists.
func (p *Provision) Register(c Creator) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.creators[c.Name()]; ok {
		return false
	}
	p.creators[c.Name()] = c
	p.order = append(p.order, c.Name())
	return true
}

// Names lists the registered provider names in registration order.
func (p *Provision) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

// Get creates the provider registered under name. An empty or unknown name
// falls back to the DEFAULT provider.
func (p *Provision) Get(name string, parameters map[string]string) (Provider, error) {
	if name == "" {
		name = DefaultProviderName
	}

	p.mu.RLock()
	creator, ok := p.creators[name]
	if !ok {
		creator = p.creators[DefaultProviderName]
	}
	p.mu.RUnlock()

	if !ok {
		p.logger.Warn("unknown aux data provider, using default", "requested", name)
	}

	provider, err := creator.Create(parameters)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to create aux data provider").
			WithComponent("auxdata").
			WithContext("provider", creator.Name())
	}
	return provider, nil
}

// FromFile reads a provider selection file and creates the selected provider.
// A missing file selects the DEFAULT provider.
func (p *Provision) FromFile(path string) (Provider, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p.Get(DefaultProviderName, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to read aux data provider file").
			WithComponent("auxdata").
			WithContext("path", path)
	}

	var sel Selection
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to parse aux data provider file").
			WithComponent("auxdata").
			WithContext("path", path)
	}
	return p.Get(sel.Provider, sel.Parameters)
}
