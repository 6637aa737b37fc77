package handlers

import (
	"net/http"

	"bidmarket/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter собирает маршруты API. limit оборачивает изменяющие запросы, может быть nil.
func NewRouter(h *Handler, log logrus.FieldLogger, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// адрес соединения для лимитера, до подмены заголовками X-Forwarded-For / X-Real-IP
	r.Use(ratelimit.PeerAddr)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log, NoColor: true}))
	r.Use(middleware.Recoverer)

	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// работы
		r.With(limit).Post("/jobs", h.CreateJobHandler)
		r.Get("/jobs/{jobId}", h.GetJobHandler)
		// предложения (bids)
		r.With(limit).Post("/bids", h.CreateBidHandler)
		r.Get("/bids", h.GetBidsHandler)
		r.With(limit).Patch("/bids/{bidId}/status", h.ChangeBidStatusHandler)
	})

	return r
}
