// Package gemini provides a minimal HTTP client for the Google Generative
// Language REST API.
//
// It covers the calls procscribe needs: resumable file uploads, file status
// polling until the service reports ACTIVE, generateContent requests with
// inline text or uploaded file references, model lookups for health checks,
// and file deletion. Transient failures (HTTP 408/429/5xx, network timeouts,
// empty candidates) are retried with capped exponential backoff, honouring
// Retry-After when present.
//
// The client is transport only; prompts and response parsing belong to the
// extraction and diagram packages.
package gemini
