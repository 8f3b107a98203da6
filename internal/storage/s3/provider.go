package s3

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/multiply-org/multiply-core/internal/cache"
	"github.com/multiply-org/multiply-core/internal/circuit"
	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/retry"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// ProviderName is the name the S3 provider is selected by.
const ProviderName = "S3"

// Recorder receives the outcome of object downloads.
type Recorder interface {
	ObserveAuxFetch(provider string, bytes int64, duration time.Duration, err error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = utils.OrDefault(logger) }
}

// WithRetry sets the retry policy for list and download requests.
func WithRetry(cfg retry.Config) Option {
	return func(p *Provider) { p.retryer = retry.New(cfg) }
}

// WithContext sets the context list and download requests run under.
// Canceling it stops requests in flight and pending retries.
func WithContext(ctx context.Context) Option {
	return func(p *Provider) { p.ctx = ctx }
}

// WithRecorder reports downloads to rec.
func WithRecorder(rec Recorder) Option {
	return func(p *Provider) { p.recorder = rec }
}

// Provider serves auxiliary data from an S3 bucket. The bucket prefix is
// mirrored into a local cache directory: element paths are local paths below
// CacheDir, and objects are downloaded on first use.
type Provider struct {
	ctx      context.Context
	api      API
	cfg      *Config
	retryer  *retry.Retryer
	breaker  *circuit.Breaker
	listings *cache.LRU[[]string]
	logger   *slog.Logger
	recorder Recorder
	stats    statsCollector
}

var _ auxdata.Provider = (*Provider)(nil)

// NewProvider creates a provider reading through api.
func NewProvider(api API, cfg *Config, opts ...Option) (*Provider, error) {
	if api == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "S3 client is required").
			WithComponent("s3")
	}
	if cfg == nil {
		return nil, errors.NewError(errors.ErrCodeMissingConfig, "S3 provider configuration is required").
			WithComponent("s3")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxRetries + 1
	p := &Provider{
		ctx:     context.Background(),
		api:     api,
		cfg:     cfg,
		retryer: retry.New(rc),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "s3", "bucket", cfg.Bucket)
	if cfg.FailureThreshold > 0 {
		p.breaker = circuit.New(ProviderName+":"+cfg.Bucket, circuit.Config{
			FailureThreshold: uint32(cfg.FailureThreshold),
			Timeout:          cfg.BreakerTimeout,
		}, circuit.WithLogger(p.logger))
	}
	if cfg.ListCacheTTL > 0 {
		p.listings = cache.NewLRU[[]string](&cache.Config{
			MaxEntries: cfg.ListCacheEntries,
			TTL:        cfg.ListCacheTTL,
		})
	}
	return p, nil
}

// NewCreator returns the auxdata creator for the S3 provider. Parameters are
// those accepted by ConfigFromParameters. Providers it creates run their
// requests under ctx.
func NewCreator(ctx context.Context, logger *slog.Logger, opts ...Option) auxdata.Creator {
	return auxdata.CreatorFunc{
		ProviderName: ProviderName,
		Fn: func(params map[string]string) (auxdata.Provider, error) {
			cfg, err := ConfigFromParameters(params)
			if err != nil {
				return nil, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			client, err := NewClient(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return NewProvider(client, cfg, append([]Option{WithLogger(logger), WithContext(ctx)}, opts...)...)
		},
	}
}

// Name returns ProviderName.
func (p *Provider) Name() string { return ProviderName }

// Stats returns request and listing cache statistics.
func (p *Provider) Stats() FetchStats {
	stats := p.stats.snapshot()
	if p.listings != nil {
		cs := p.listings.Stats()
		stats.ListCacheHits = cs.Hits
		stats.ListCacheMisses = cs.Misses
	}
	return stats
}

// ListElements returns the local paths of the objects and sub-prefixes
// directly below folder whose names match pattern, whether or not they have
// been downloaded yet.
func (p *Provider) ListElements(folder, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAuxListFailed, "invalid element pattern").
			WithComponent("s3").
			WithContext("pattern", pattern)
	}
	prefix, err := p.keyFor(folder)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		prefix += "/"
	}

	names, err := p.listNames(prefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAuxListFailed, "failed to list elements").
			WithComponent("s3").
			WithOperation("ListElements").
			WithContext("folder", folder)
	}

	var matches []string
	for _, name := range names {
		if ok, _ := path.Match(pattern, name); !ok {
			continue
		}
		local, err := utils.SecureJoin(folder, name)
		if err != nil {
			p.logger.Warn("skipping object with unsafe name", "folder", folder, "name", name)
			continue
		}
		matches = append(matches, local)
	}
	sort.Strings(matches)
	p.logger.Debug("listed elements", "folder", folder, "pattern", pattern, "count", len(matches))
	return matches, nil
}

// listNames returns the names directly below prefix, from the listing
// cache when possible.
func (p *Provider) listNames(prefix string) ([]string, error) {
	if p.listings != nil {
		if names, ok := p.listings.Get(prefix); ok {
			return names, nil
		}
	}
	names, err := p.listRemote(prefix)
	if err != nil {
		return nil, err
	}
	if p.listings != nil {
		p.listings.Put(prefix, names)
	}
	return names, nil
}

// InvalidateListings drops cached listings at or below folder.
func (p *Provider) InvalidateListings(folder string) error {
	if p.listings == nil {
		return nil
	}
	prefix, err := p.keyFor(folder)
	if err != nil {
		return err
	}
	if prefix != "" {
		prefix += "/"
	}
	n := p.listings.DeletePrefix(prefix)
	p.logger.Debug("invalidated listings", "folder", folder, "count", n)
	return nil
}

func (p *Provider) listRemote(prefix string) ([]string, error) {
	seen := make(map[string]bool)
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	for {
		var out *s3.ListObjectsV2Output
		err := p.do(func(ctx context.Context) error {
			var err error
			out, err = p.api.ListObjectsV2(ctx, input)
			return err
		}, prefix)
		if err != nil {
			return nil, err
		}

		for _, obj := range out.Contents {
			if name := strings.TrimPrefix(aws.ToString(obj.Key), prefix); name != "" {
				seen[name] = true
			}
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				seen[name] = true
			}
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names, nil
}

// AssureElementProvided downloads name into the cache unless it is present
// already. Paths outside the cache directory are never fetched.
func (p *Provider) AssureElementProvided(name string) bool {
	if _, err := os.Stat(name); err == nil {
		return true
	}
	key, err := p.keyFor(name)
	if err != nil || key == "" {
		p.logger.Debug("element outside of cache", "name", name)
		return false
	}
	if err := p.fetch(key, name); err != nil {
		p.logger.Warn("failed to provide element", "name", name, "key", key, "error", err)
		return false
	}
	return true
}

func (p *Provider) fetch(key, dest string) (err error) {
	started := time.Now()
	var written int64
	defer func() {
		if p.recorder != nil {
			p.recorder.ObserveAuxFetch(ProviderName, written, time.Since(started), err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return errors.Wrap(err, errors.ErrCodeAuxFetchFailed, "failed to create cache directory").
			WithComponent("s3")
	}

	err = p.do(func(ctx context.Context) error {
		out, err := p.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		n, err := writeAtomically(dest, out.Body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeAuxFetchFailed, "failed to store object").
				WithComponent("s3").
				WithContext("key", key)
		}
		written = n
		return nil
	}, key)
	if err != nil {
		return err
	}

	p.stats.recordFetch(written)
	p.logger.Info("fetched element", "key", key, "bytes", written)
	return nil
}

// do runs one request per attempt with the configured timeout, translating
// S3 errors so the retryer and the breaker can tell transient failures
// apart. An open breaker ends the retries.
func (p *Provider) do(fn func(ctx context.Context) error, key string) error {
	attempt := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()

		started := time.Now()
		err := fn(ctx)
		p.stats.recordRequest(time.Since(started), err)
		if err != nil {
			return p.translateError(err, key)
		}
		return nil
	}
	return p.retryer.DoWithContext(p.ctx, func(ctx context.Context) error {
		if p.breaker == nil {
			return attempt(ctx)
		}
		return p.breaker.Execute(ctx, attempt)
	})
}

// CircuitState returns the state of the request breaker, StateClosed when
// the breaker is disabled.
func (p *Provider) CircuitState() circuit.State {
	if p.breaker == nil {
		return circuit.StateClosed
	}
	return p.breaker.State()
}

// keyFor maps a local path below CacheDir to its object key.
func (p *Provider) keyFor(local string) (string, error) {
	cacheDir, err := filepath.Abs(p.cfg.CacheDir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodePathInvalid, "invalid cache directory").WithComponent("s3")
	}
	abs, err := filepath.Abs(local)
	if err != nil || !utils.IsWithin(cacheDir, abs) {
		return "", errors.Newf(errors.ErrCodePathInvalid, "%s is outside of cache directory %s", local, cacheDir).
			WithComponent("s3")
	}
	rel, err := filepath.Rel(cacheDir, abs)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodePathInvalid, "invalid element path").WithComponent("s3")
	}
	if rel == "." {
		rel = ""
	}
	return strings.Trim(path.Join(p.cfg.Prefix, filepath.ToSlash(rel)), "/"), nil
}

func (p *Provider) translateError(err error, key string) error {
	var me *errors.MultiplyError
	switch {
	case stderrors.As(err, &me):
		return err
	case isErrorType[*s3types.NoSuchKey](err):
		return errors.Wrap(err, errors.ErrCodeObjectNotFound, "object not found").
			WithComponent("s3").WithContext("key", key)
	case isErrorType[*s3types.NoSuchBucket](err):
		return errors.Wrap(err, errors.ErrCodeBucketNotFound, "bucket not found").
			WithComponent("s3").WithContext("bucket", p.cfg.Bucket)
	case stderrors.Is(err, context.Canceled):
		return errors.Wrap(err, errors.ErrCodeOperationCanceled, "request canceled").
			WithComponent("s3").WithContext("key", key)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrCodeOperationTimeout, "request timed out").
			WithComponent("s3").WithContext("key", key)
	default:
		return errors.Wrap(err, errors.ErrCodeAuxFetchFailed, "request failed").
			WithComponent("s3").WithContext("key", key)
	}
}

// writeAtomically writes r to a temporary file next to dest and renames it
// into place.
func writeAtomically(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

// isErrorType checks if an error is of a specific type
func isErrorType[T error](err error) bool {
	var target T
	return stderrors.As(err, &target)
}
