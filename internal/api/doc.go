// Package api serves the pipeline over HTTP and defines the wire types it
// returns.
//
// Routes:
//
//	GET  /health              liveness and version
//	POST /api/process         multipart upload (field "video"), runs the pipeline
//	GET  /api/files/{name}    downloads a .docx or .drawio from the output directory
//	GET  /api/runs            recent runs from the history store
//	GET  /api/runs/{id}       one recorded run
//
// Every route except /health requires "Authorization: Bearer <token>" when a
// token is configured. Failures answer with ErrorResponse; pipeline failures
// before rendering map to 422 and document failures to 500, both carrying the
// failed stage.
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
package api
