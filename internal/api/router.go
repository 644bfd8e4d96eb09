package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the handlers. gatherer may be nil, in which case /metrics is
// not served.
func Router(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("POST /v1/entries", h.CreateEntry)
	mux.HandleFunc("GET /v1/entries", h.ListEntries)
	mux.HandleFunc("GET /v1/entries/{id}", h.GetEntry)
	mux.HandleFunc("DELETE /v1/entries/{id}", h.DeleteEntry)
	mux.HandleFunc("GET /v1/entries/{id}/sensor", h.GetSensor)
	mux.HandleFunc("POST /v1/entries/{id}/button/press", h.PressButton)

	mux.HandleFunc("POST /v1/notify/{service}", h.Notify)
	mux.HandleFunc("POST /v1/send_sms", h.SendSMS)

	mux.HandleFunc("GET /v1/sync/status", h.SyncStatus)
	mux.HandleFunc("POST /v1/sync/start", h.SyncStart)
	mux.HandleFunc("POST /v1/sync/stop", h.SyncStop)

	mux.HandleFunc("GET /v1/events", h.Events)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("freesms-notify"))
	})

	return loggingMiddleware(h.logger, h.metrics, mux)
}
