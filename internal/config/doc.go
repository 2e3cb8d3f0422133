// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//	1. Default()
//	2. a YAML file: $PLANTAR_CONFIG, or config.yaml / configs/config.yaml
//	3. environment variables
//
// # Environment Variables
//
// Every variable is prefixed with PLANTAR and follows the struct nesting:
//
//	PLANTAR_SERVER_PORT=8080
//	PLANTAR_LOGGING_LEVEL=debug
//	PLANTAR_ANALYSIS_THRESHOLD_PRESET=legacy
//	PLANTAR_ANALYSIS_INITIAL_CONTACT=18
//	PLANTAR_ANALYSIS_REGION_OVERRIDES=regions.yaml
//	PLANTAR_LAYOUT_RIGHT_STRIDE=98
//	PLANTAR_PLAYBACK_FRAME_INTERVAL=40ms
//
// # Validation
//
// Load rejects out-of-range ports, unknown threshold presets, negative
// threshold overrides, overlapping foot layouts and non-positive playback
// settings. Logging is always JSON.
package config
