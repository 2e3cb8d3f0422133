// Package services implements the business logic layer of the plantar
// analysis application. It sits between the HTTP handlers or CLI commands and
// the processing packages (dataprocessing, regions, gait, playback, exporter).
//
// # Services
//
//	- AnalysisService: ingestion, filters, gait analysis and export
//	- PlaybackService: the cursor state machine and its tick loop
//	- HealthService: liveness and component status
//
// # Conventions
//
// Services receive their collaborators and a *slog.Logger by injection and
// take a context.Context on every operation so spans and trace ids follow
// the request. Dataset changes and cursor moves are published through a
// Broadcaster; a nil Broadcaster disables publishing.
//
// Errors wrap the package sentinels of the processing layer (for example
// playback.ErrNoActiveDataset) or typed errors from internal/errors, so the
// HTTP error handler can map them to problem details.
//
// # Testing
//
// Tests drive the services with fixture recordings from
// internal/shared/testutil and a testify mock Broadcaster:
//
//	hub := &mockBroadcaster{}
//	hub.On("Broadcast", mock.Anything).Return()
//	svc := newTestAnalysisService(t, hub)
package services
