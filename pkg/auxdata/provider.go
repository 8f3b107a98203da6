// Package auxdata defines how auxiliary files (companion band files, metadata
// documents, reanalysis bundles, elevation tiles) are located and made
// available locally before validation.
package auxdata

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// DefaultProviderName is the name of the local file system provider.
const DefaultProviderName = "DEFAULT"

// Provider lists and provides auxiliary data elements.
type Provider interface {
	// Name identifies the provider in configuration.
	Name() string

	// ListElements returns the paths below folder matching the glob pattern.
	// An empty pattern matches everything.
	ListElements(folder, pattern string) ([]string, error)

	// AssureElementProvided makes name available locally and reports whether
	// it exists.
	AssureElementProvided(name string) bool
}

// LocalProvider serves elements straight from the local file system.
type LocalProvider struct {
	logger *slog.Logger
}

// NewLocalProvider creates the DEFAULT provider.
func NewLocalProvider(logger *slog.Logger) *LocalProvider {
	return &LocalProvider{logger: utils.OrDefault(logger).With("component", "auxdata", "provider", DefaultProviderName)}
}

// Name returns DefaultProviderName.
func (p *LocalProvider) Name() string { return DefaultProviderName }

// ListElements matches pattern against the names of the entries directly
// inside folder. folder is taken literally, so glob metacharacters in it have
// no special meaning. A missing folder has no elements.
func (p *LocalProvider) ListElements(folder, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAuxListFailed, "invalid element pattern").
			WithComponent("auxdata").
			WithOperation("ListElements").
			WithContext("folder", folder).
			WithContext("pattern", pattern)
	}
	entries, err := os.ReadDir(folder)
	if err != nil && !os.IsNotExist(err) && !isNotDir(err) {
		return nil, errors.Wrap(err, errors.ErrCodeAuxListFailed, "failed to read folder").
			WithComponent("auxdata").
			WithOperation("ListElements").
			WithContext("folder", folder)
	}

	var matches []string
	for _, entry := range entries {
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			matches = append(matches, filepath.Join(folder, entry.Name()))
		}
	}
	sort.Strings(matches)
	p.logger.Debug("listed elements", "folder", folder, "pattern", pattern, "count", len(matches))
	return matches, nil
}

func isNotDir(err error) bool {
	return stderrors.Is(err, syscall.ENOTDIR)
}

// AssureElementProvided reports whether name exists on disk.
func (p *LocalProvider) AssureElementProvided(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// ProvideAny makes the first element below folder matching pattern that p
// can provide available locally and returns its path. Listing errors count
// as no match.
func ProvideAny(p Provider, folder, pattern string) (string, bool) {
	elements, err := p.ListElements(folder, pattern)
	if err != nil {
		return "", false
	}
	for _, element := range elements {
		if p.AssureElementProvided(element) {
			return element, true
		}
	}
	return "", false
}
