/*
Package config loads broker configuration from the environment.

All settings have defaults and are overridable via BURROW_* environment
variables; CLI flags override both. There is no configuration file.

	BURROW_LISTEN        TCP endpoint for the broker (127.0.0.1:9876)
	BURROW_METRICS_ADDR  metrics/health HTTP address (:9100)
	BURROW_MAX_QUEUE     per-connection write queue depth (256)
	BURROW_LOG_LEVEL     debug, info, warn, error (info)
	BURROW_LOG_JSON      JSON log output (false)
*/
package config
