package fileref

import (
	"log/slog"
	"sync"

	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/types"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/validation"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

// Creator builds file references for the items of one data type.
type Creator interface {
	// Name returns the data type the creator handles.
	Name() string
	CreateFileRef(path string) (*types.FileRef, error)
}

// timedTypes get a creator backed by their validator's time extraction.
var timedTypes = []string{
	types.ModisMCD43,
	types.CAMS,
	types.S1SLC,
	types.S1Speckled,
	types.CAMSTiff,
}

// Option configures a Creation.
type Option func(*Creation)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Creation) { c.logger = utils.OrDefault(logger).With("component", "fileref") }
}

// WithProvider sets the provider manifests are fetched through. It defaults
// to the registry's provider.
func WithProvider(provider auxdata.Provider) Option {
	return func(c *Creation) { c.provider = provider }
}

// Creation dispatches file reference requests to the creator registered for
// a data type. Creators are only ever added.
type Creation struct {
	mu       sync.RWMutex
	order    []string
	creators map[string]Creator
	provider auxdata.Provider
	logger   *slog.Logger
}

// NewCreation creates an empty Creation.
func NewCreation(opts ...Option) *Creation {
	c := &Creation{
		creators: make(map[string]Creator),
		logger:   slog.Default().With("component", "fileref"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefaultCreation registers the Sentinel-2 sensing time creators, one
// creator per variable and, when registry is given, creators for the data
// types that carry their time in the name.
func NewDefaultCreation(registry *validation.Registry, vars []variables.Variable, opts ...Option) *Creation {
	c := NewCreation(opts...)
	provider := c.provider
	if provider == nil && registry != nil {
		provider = registry.Provider()
	}
	c.Register(NewSensingTimeCreator(types.AWSS2L2, provider, "metadata.xml"))
	c.Register(NewSensingTimeCreator(types.S2L2, provider, "MTD_TL.xml", "metadata.xml"))
	for _, v := range vars {
		c.Register(NewVariableCreator(v))
	}
	if registry != nil {
		for _, dataType := range timedTypes {
			if v, ok := registry.Validator(dataType); ok {
				c.Register(NewValidatorCreator(v))
			}
		}
	}
	return c
}

// Register adds cr. It reports false when a creator for the same data type
// exists already.
func (c *Creation) Register(cr Creator) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.creators[cr.Name()]; ok {
		return false
	}
	c.creators[cr.Name()] = cr
	c.order = append(c.order, cr.Name())
	return true
}

// DataTypes returns the data types with a creator, in registration order.
func (c *Creation) DataTypes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// GetFileRef creates the file reference for path. It returns nil and no
// error when no creator handles dataType.
func (c *Creation) GetFileRef(dataType, path string) (*types.FileRef, error) {
	c.mu.RLock()
	cr, ok := c.creators[dataType]
	c.mu.RUnlock()

	if !ok {
		c.logger.Debug("no file ref creator", "type", dataType)
		return nil, nil
	}
	ref, err := cr.CreateFileRef(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("created file ref", "type", dataType, "ref", ref.String())
	return ref, nil
}
