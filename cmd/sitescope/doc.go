// Package main wires together the sitescope analysis service.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health and metrics endpoints, the synchronous
//     POST /analyze-seo endpoint, and the asynchronous POST /analyze-comprehensive plus
//     GET /analyze-comprehensive/{analysis_id} pair. Requests are validated, URLs normalized,
//     and responses returned as JSON.
//   - Analysis pipeline: internal/pipeline runs the fixed stage sequence for one URL: a
//     bounded site crawl feeding business-intelligence extraction, then the performance,
//     competitor, keyword, and SERP-presence providers, then score aggregation. Fresh
//     results come from the cache (memory or Redis); concurrent misses on the same domain
//     share a single execution. Providers degrade to deterministic demo output when their
//     credentials are absent, so a bare deployment still produces complete results.
//   - Comprehensive jobs: internal/plan.Coordinator persists a job, runs the pipeline and
//     the four analysis agents, generates the action plan (text synthesis validated against
//     a JSON schema, with a deterministic fallback), builds the competitive-intelligence,
//     content-strategy, and progress-tracking artifacts, and advances the job through fixed
//     progress checkpoints until it completes. Clients poll the GET endpoint for status.
//   - Fetch pipeline: the Colly-based fetcher probes each page (with optional robots.txt
//     enforcement); responses that look like empty script shells are refetched with the
//     headless Chromedp fetcher when it is enabled.
//   - Persistence & fanout: results and finished jobs are archived as JSON snapshots to the
//     configured blob store (memory/local/GCS), a completion notification is published to
//     Pub/Sub when a project is configured, and stage-level progress events are batched to
//     log and Prometheus sinks. Job state lives in memory or Postgres; a sweeper retires
//     terminal jobs after their TTL.
//   - Configuration & plumbing: Viper populates config from env/files (SITESCOPE_ prefix,
//     with optional .env loading); zap provides structured logging; Prometheus metrics are
//     exported via the metrics middleware and the /metrics handler.
//
// Operational notes:
//   - Concurrency model: the synchronous endpoint runs the pipeline on the request
//     goroutine under the run timeout; comprehensive jobs run on their own goroutine under
//     a job timeout. Headless fetches share a semaphore inside the Chromedp fetcher.
//     Shutdown is coordinated via context cancellation from main.
//   - External calls: each provider call carries its own timeout and failures degrade to
//     demo output rather than failing the run; the synthesis client makes a single attempt
//     and the generator falls back to the deterministic plan.
//   - Observability: zap logs carry domains and job IDs at key transitions; Prometheus
//     counters and histograms track HTTP activity, provider outcomes, runs, and jobs;
//     the progress hub batches stage events for downstream sinks. Tracing is not wired in.
//
// Quick checklist:
//   - Configure env vars: SITESCOPE_SERVER_PORT, SITESCOPE_CACHE_BACKEND (memory/redis),
//     SITESCOPE_JOBS_BACKEND (memory/postgres) plus SITESCOPE_JOBS_DSN, provider keys
//     (SITESCOPE_PROVIDERS_PAGESPEED_API_KEY, SITESCOPE_PROVIDERS_SERP_API_KEY, ...),
//     SITESCOPE_SYNTHESIS_BASE_URL and key, archive backend, and Pub/Sub project/topic
//     when fanout beyond the in-memory publisher is required.
//   - Run locally: go run ./cmd/sitescope -config config.yaml (or rely solely on env
//     overrides; providers without credentials serve deterministic demo data).
//   - Containers: the server listens on the configured port, stays stateless across
//     requests when Redis/Postgres back the cache and job store, and reacts to SIGTERM
//     with a bounded graceful drain.
package main
