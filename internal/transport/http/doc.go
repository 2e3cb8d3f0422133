// Package http implements the HTTP handlers of the plantar analysis server.
// Handlers are a thin layer between the transport and the services in
// internal/services: they parse and validate requests, call one service
// method and render the result.
//
// # Routes
//
//	GET    /api/recordings              list the dataset
//	POST   /api/recordings              upload one or more recordings (multipart "file")
//	PUT    /api/recordings/active       make a recording active
//	POST   /api/recordings/{index}/select
//	DELETE /api/recordings/{index}
//	POST   /api/recordings/force        attach a force export to the active recording
//	POST   /api/recordings/{index}/force
//	GET    /api/recordings/sample?t=    sample at or before t
//	GET    /api/analysis/events         gait events (preset, initial_contact, toe_off)
//	GET    /api/analysis/parameters     temporal gait parameters
//	POST   /api/analysis/filters/trim|noise-floor|reset
//	GET    /api/analysis/export?format=xlsx|csv&sheet=
//	GET    /api/playback                cursor snapshot
//	POST   /api/playback/play|pause|stop|seek|speed|range
//	GET    /api/health, /api/health/live, /api/version, /api/stats
//	GET    /ws                          push channel
//
// # Error Handling
//
// Every failure is rendered by the shared ErrorHandler as RFC 7807 Problem
// Details. Service sentinels map to their status codes there, so handlers
// pass errors through untouched. Upload routes answer 415 to anything but
// multipart/form-data. A problem body looks like:
//
//	{
//	    "type": "/errors/dataset/no-data",
//	    "title": "No Data Loaded",
//	    "status": 409,
//	    "detail": "no active dataset",
//	    "instance": "/api/analysis/events"
//	}
//
// # Testing
//
// Handlers depend on the interfaces in service_interfaces.go and are tested
// with testify mocks and httptest.
package http
