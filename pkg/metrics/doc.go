// Package metrics defines the Prometheus metrics exported by the bot.
//
// Metrics are registered with the default registry through promauto and
// exposed by the server at GET /metrics.
package metrics
