/*
Package s3 provides an auxiliary data provider backed by an AWS S3 bucket.

The provider mirrors a bucket prefix into a local cache directory. Element
paths handed to and returned by the provider are always local paths below
the cache directory, so consumers treat it exactly like the local provider:

	s3://multiply-aux/aux/2018_10_23/aod550_band.tif
	    <-> <cache_dir>/2018_10_23/aod550_band.tif

# Listing and Fetching

ListElements lists the objects and sub-prefixes directly below a folder and
matches their names against a glob pattern. Nothing is downloaded while
listing. AssureElementProvided downloads a single object on first use; the
object is written to a temporary file next to its destination and renamed
into place, so a partially fetched element is never visible.

Paths outside the cache directory are rejected with PATH_INVALID and never
mapped to object keys.

# Configuration

The provider is selected by name "S3" from an aux data selection file:

	aux_data_provider: S3
	parameters:
	  bucket: multiply-aux
	  prefix: aux
	  region: eu-central-1
	  cache_dir: /data/aux
	  max_retries: "3"
	  request_timeout: 60s
	  failure_threshold: "5"
	  breaker_timeout: 30s

Static credentials are used when access_key_id is set; otherwise the default
AWS credential chain applies. endpoint and force_path_style allow S3
compatible stores such as MinIO.

# Error Handling

S3 errors are translated into MultiplyError codes:

	NoSuchKey         OBJECT_NOT_FOUND
	NoSuchBucket      BUCKET_NOT_FOUND
	request timeout   OPERATION_TIMEOUT
	other failures    AUX_FETCH_FAILED

Timeouts and generic request failures are retried with exponential backoff
using pkg/retry; missing objects and buckets are not.

Each attempt passes through a circuit breaker (internal/circuit). After
failure_threshold consecutive transient failures further requests fail with
CIRCUIT_OPEN, without reaching S3, until breaker_timeout has elapsed. A
failure_threshold of 0 disables the breaker.

# Monitoring

Stats returns request counts, downloaded bytes and a rolling average
latency. A Recorder passed with WithRecorder observes every download, which
is how the Prometheus collector in internal/metrics is fed.
*/
package s3
