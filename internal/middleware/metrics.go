package middleware

import "github.com/technohub6911/smartcropx/internal/metrics"

func RecordRateLimit(scope string, result string) {
	metrics.RateLimitRequestsTotal.WithLabelValues(scope, result).Inc()
}

func RecordRedisError() {
	metrics.RateLimitRedisErrorsTotal.Inc()
}
