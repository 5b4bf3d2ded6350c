// Package config provides centralized configuration for wellcast.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//  1. Default values (Default)
//  2. A YAML file (--config flag, ./wellcast.yaml or ./configs/wellcast.yaml)
//  3. Environment variables prefixed with WELLCAST_
//
// # Environment Variables
//
//	WELLCAST_PIPELINE_MIN_MONTHS=24
//	WELLCAST_PIPELINE_CUTOFF=2010-01-01
//	WELLCAST_PIPELINE_IQR_MULTIPLIER=1.5
//	WELLCAST_FORECAST_HORIZON=6
//	WELLCAST_FORECAST_MODELS=arima,ridge
//	WELLCAST_LOGGING_LEVEL=debug
//	WELLCAST_PATHS_OUTPUT_DIR=/tmp/out
//
// Model specifications are only configurable from the file:
//
//	models:
//	  - name: arima_212
//	    kind: arima
//	    arima: {p: 2, d: 1, q: 2}
//	  - kind: ridge
//	    ridge: {lambda: 0.5}
//
// Unset hyperparameters keep their defaults.
//
// # Validation
//
// Load validates the result with go-playground/validator; failures are
// returned as a single CONFIG_INVALID error listing every offending field.
package config
