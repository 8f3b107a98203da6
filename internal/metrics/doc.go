/*
Package metrics exports Prometheus metrics for classification, validation,
reprojection and aux data provisioning.

# Overview

Collector implements the recorder interfaces of pkg/validation,
pkg/reproject and the S3 aux data provider, so a single collector can be
handed to each component:

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Port:      9090,
		Path:      "/metrics",
		Namespace: "multiply",
	})
	if err != nil {
		return err
	}
	registry := validation.NewRegistry(provider, validation.WithRecorder(collector))
	reprojection, err := reproject.NewReprojectionToMatch(backend, target,
		reproject.WithRecorder(collector))

# Exported Metrics

	multiply_classifications_total{data_type}
	multiply_validations_total{data_type,outcome}
	multiply_resampling_decisions_total{method}
	multiply_reprojection_duration_seconds{status}
	multiply_aux_fetches_total{provider,status}
	multiply_aux_fetch_bytes_total{provider}
	multiply_aux_fetch_duration_seconds{provider}
	multiply_errors_total{operation,code}

Error counters are labelled with the MultiplyError code of the failure.

# HTTP Endpoints

Start serves the registry on Config.Path and a liveness probe on /health.
The server stops when the context passed to Start is done or Stop is called.

A disabled collector accepts every recording and drops it, so callers never
need to check whether metrics are enabled.
*/
package metrics
