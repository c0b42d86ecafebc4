// Package api provides the HTTP REST API for the map quiz.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"dataset": "europe-states"})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=n)
//   - GET /api/sessions/unified - Summaries of several sessions (?sessionIds=a,b or ?dataset=id)
//   - GET /api/sessions/{id} - Get a session with its quiz state
//   - DELETE /api/sessions/{id} - Delete a session
//
// Quiz:
//   - GET /api/sessions/{id}/state - Current quiz state
//   - POST /api/sessions/{id}/click - Click a region ({"region": "Lazio"})
//   - POST /api/sessions/{id}/reset - Start a new game on the same dataset
//   - GET /api/sessions/{id}/history - Click history (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/regions - Found, remaining and missed regions
//
// Datasets:
//   - GET /api/datasets - List datasets
//   - POST /api/datasets - Register a dataset descriptor
//   - GET /api/datasets/{id} - Descriptor and region names
//   - GET /api/datasets/{id}/geojson - Normalized FeatureCollection for rendering
//
// State changes are pushed to WebSocket clients connected to /ws?session={id}.
//
// Errors are returned as JSON with an HTTP status code:
//
//	{
//	  "error": "session not found: ab12"
//	}
//
// Unknown sessions and datasets map to 404, invalid input and unknown regions
// to 400, datasets whose features cannot be named to 422.
package api
