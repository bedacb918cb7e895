// Package api hosts the HTTP server, middleware, and REST handlers for the
// analysis service. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /analyze-seo for the synchronous basic analysis.
//   - POST /analyze-comprehensive plus GET /analyze-comprehensive/{analysis_id}
//     for the asynchronous comprehensive flow (poll until terminal).
package api
