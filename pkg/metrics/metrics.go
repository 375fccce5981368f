// Package metrics exposes the Prometheus registry used by pokedash.
// All metrics are defined in their respective packages (client, ratelimit,
// dataset, view) and registered via promauto.
//
// This package provides documentation and the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by pokedash.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the default Prometheus gatherer backing Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler. Scrapes are counted in
// promhttp_metric_handler_requests_total on Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, unexpected_status)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - pokeapi_rate_limit_waits_total{limiter} (Counter): Requests that had to wait (local, shared)
//   - pokeapi_rate_limit_window_requests (Gauge): Requests admitted in the current shared window
//   - pokeapi_rate_limit_redis_errors_total (Counter): Shared budget operations that failed
//
// Dataset Metrics (pkg/dataset):
//   - pokedash_records_loaded (Gauge): Records in the current snapshot
//   - pokedash_load_duration_seconds (Histogram): Initial load duration
//   - pokedash_load_failures_total (Counter): Failed loads
//
// HTTP Metrics (internal/view):
//   - pokedash_http_requests_total{endpoint, method, status} (Counter): Dashboard requests
//   - pokedash_http_request_duration_seconds{endpoint, method} (Histogram): Dashboard latency
//
// Example Prometheus Queries:
//
//   # PokeAPI error rate
//   rate(pokeapi_errors_total[5m])
//
//   # P95 PokeAPI latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
//
//   # Load never completed
//   pokedash_records_loaded == 0
