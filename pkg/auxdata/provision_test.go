package auxdata

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

type dummyProvider struct {
	params map[string]string
}

func (d *dummyProvider) Name() string                                  { return "DUMMY" }
func (d *dummyProvider) ListElements(string, string) ([]string, error) { return nil, nil }
func (d *dummyProvider) AssureElementProvided(string) bool             { return false }

func dummyCreator() Creator {
	return CreatorFunc{
		ProviderName: "DUMMY",
		Fn: func(params map[string]string) (Provider, error) {
			return &dummyProvider{params: params}, nil
		},
	}
}

func TestProvision_Default(t *testing.T) {
	p := NewProvision(utils.DiscardLogger())

	provider, err := p.Get("", nil)
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT", provider.Name())

	provider, err = p.Get("NOT_THERE", nil)
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT", provider.Name())
}

func TestProvision_Register(t *testing.T) {
	p := NewProvision(utils.DiscardLogger())

	assert.True(t, p.Register(dummyCreator()))
	assert.False(t, p.Register(dummyCreator()))
	assert.Equal(t, []string{"DEFAULT", "DUMMY"}, p.Names())

	provider, err := p.Get("DUMMY", map[string]string{"bucket": "aux"})
	require.NoError(t, err)
	assert.Equal(t, "DUMMY", provider.Name())
	assert.Equal(t, "aux", provider.(*dummyProvider).params["bucket"])
}

func TestProvision_CreatorFailure(t *testing.T) {
	p := NewProvision(utils.DiscardLogger())
	p.Register(CreatorFunc{
		ProviderName: "BROKEN",
		Fn: func(map[string]string) (Provider, error) {
			return nil, fmt.Errorf("no credentials")
		},
	})

	_, err := p.Get("BROKEN", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestProvision_FromFile(t *testing.T) {
	p := NewProvision(utils.DiscardLogger())
	p.Register(dummyCreator())

	dir := t.TempDir()
	path := filepath.Join(dir, "aux_data_provider.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"aux_data_provider": "DUMMY", "parameters": {"region": "eu-central-1"}}`), 0600))

	provider, err := p.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DUMMY", provider.Name())
	assert.Equal(t, "eu-central-1", provider.(*dummyProvider).params["region"])

	provider, err = p.FromFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT", provider.Name())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"aux_data_provider": [`), 0600))
	_, err = p.FromFile(bad)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}
