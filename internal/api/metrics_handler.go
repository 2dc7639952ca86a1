package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsTokenHeader carries the scrape token for /metrics.
const MetricsTokenHeader = "X-Metrics-Token"

// MetricsHandler serves the Prometheus metrics gathered from reg. When token
// is non-empty, scrapes must present it in the X-Metrics-Token header.
func MetricsHandler(reg prometheus.Gatherer, token string) http.Handler {
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	if token == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Constant-time comparison
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(MetricsTokenHeader)), []byte(token)) != 1 {
			writeErrorCode(w, r, ErrCodeForbidden, "Invalid metrics token")
			return
		}
		h.ServeHTTP(w, r)
	})
}
