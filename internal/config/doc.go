/*
Package config provides configuration management for the multiply tools.

Configuration is assembled from three sources, later ones taking precedence:

	compiled-in defaults  (NewDefault)
	YAML file             (LoadFromFile)
	environment           (LoadFromEnv, MULTIPLY_*)

Load runs all three and validates the result.

# File Format

	global:
	  log_level: INFO        # DEBUG, INFO, WARN, ERROR
	  log_format: text       # text or json
	  log_file: ""           # stderr when empty

	aux_data:
	  provider: DEFAULT      # DEFAULT (local files) or S3
	  parameters:            # passed to the provider
	    bucket: multiply-aux
	    cache_dir: /data/aux
	  selection_file: ""     # provider selection file, overrides provider

	variables:
	  library_file: ""       # replaces the built-in variables library

	reprojection:
	  resampling: ""         # empty selects the method per dataset

	metrics:
	  enabled: false
	  port: 9090
	  path: /metrics
	  namespace: multiply

# Environment Variables

	MULTIPLY_LOG_LEVEL          global.log_level
	MULTIPLY_LOG_FORMAT         global.log_format
	MULTIPLY_LOG_FILE           global.log_file
	MULTIPLY_AUX_PROVIDER       aux_data.provider
	MULTIPLY_AUX_SELECTION_FILE aux_data.selection_file
	MULTIPLY_VARIABLES_FILE     variables.library_file
	MULTIPLY_RESAMPLING         reprojection.resampling
	MULTIPLY_METRICS_ENABLED    metrics.enabled
	MULTIPLY_METRICS_PORT       metrics.port

Malformed numeric or boolean overrides fail with INVALID_CONFIG. Validation
failures carry CONFIG_VALIDATION.
*/
package config
