package pinggw

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/repository/postgres"
)

// Ping bodies beyond this are read and dropped so clients can always
// stream their payload; only the first MaxBodyLen bytes are kept anyway.
const maxBodyRead = 100 << 10

type Handler struct {
	Recorder *Recorder
	Log      *zap.Logger

	pingsTotal  *prometheus.CounterVec
	pingLatency prometheus.Histogram
}

func NewHandler(rec *Recorder, log *zap.Logger) *Handler {
	return &Handler{
		Recorder: rec,
		Log:      log,
		pingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beatkeeper_pings_total",
			Help: "Heartbeat pings received, by outcome.",
		}, []string{"result"}),
		pingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "beatkeeper_ping_duration_seconds",
			Help:    "Ping handling latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ping/{code}", h.ping(false))
	r.Head("/ping/{code}", h.ping(false))
	r.Post("/ping/{code}", h.ping(false))
	r.Get("/ping/{code}/fail", h.ping(true))
	r.Post("/ping/{code}/fail", h.ping(true))

	return r
}

func (h *Handler) ping(fail bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		code, err := uuid.Parse(chi.URLParam(r, "code"))
		if err != nil {
			h.pingsTotal.WithLabelValues("bad_code").Inc()
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var body string
		if r.Body != nil {
			b, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyRead))
			body = string(b)
			io.Copy(io.Discard, r.Body) //nolint:errcheck
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}

		_, err = h.Recorder.Record(r.Context(), code, PingEvent{
			RemoteAddr: r.RemoteAddr,
			Scheme:     scheme,
			Method:     r.Method,
			UserAgent:  r.UserAgent(),
			Body:       body,
			Fail:       fail,
		})
		switch {
		case errors.Is(err, postgres.ErrNotFound):
			h.pingsTotal.WithLabelValues("unknown").Inc()
			http.Error(w, "not found", http.StatusNotFound)
			return
		case err != nil:
			h.pingsTotal.WithLabelValues("error").Inc()
			h.Log.Error("record ping", zap.Stringer("code", code), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		h.pingsTotal.WithLabelValues("ok").Inc()
		h.pingLatency.Observe(time.Since(started).Seconds())

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK\n")) //nolint:errcheck
	}
}
