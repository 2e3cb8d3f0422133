// Package app wires the plantar analysis server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, the optional YAML file and PLANTAR_* env
//	2. Initialize the process logger and OpenTelemetry
//	3. Create the dataset store, the playback cursor and the analysis cache
//	4. Create the websocket hub and the services that publish to it
//	5. Build the chi router and the HTTP server
//
// # Usage
//
//	a, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// # Graceful Shutdown
//
// Run serves until SIGINT or SIGTERM. Serve runs the hub, the playback loop
// and the HTTP server in one errgroup; the first failure or the cancelled
// context stops all three, drains in-flight requests within the configured
// shutdown timeout and flushes telemetry.
//
// The package never calls os.Exit; errors are returned to main.
package app
