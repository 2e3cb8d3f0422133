package config

// Application constants
const (
	AppName    = "Plantar Pressure Analysis"
	AppVersion = "0.3.0"

	// API routes
	APIBasePath       = "/api/v1"
	HealthEndpoint    = "/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
