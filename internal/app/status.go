package app

import (
	"net/http"
	"time"

	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/middleware"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type bannerResponse struct {
	Visible     bool            `json:"visible"`
	PaymentID   model.ID        `json:"payment_id,omitempty"`
	URL         string          `json:"url,omitempty"`
	ServiceName string          `json:"service_name,omitempty"`
	Duration    int             `json:"duration,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Countdown   string          `json:"countdown,omitempty"`
}

type monitorResponse struct {
	Running  bool       `json:"running"`
	Interval string     `json:"interval"`
	Watched  []model.ID `json:"watched"`
}

// StatusHandler serves the client state and metrics for local inspection.
// Everything but /healthz requires token when it is set.
func (a *App) StatusHandler(token string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, map[string]any{
			"status":  "ok",
			"user_id": a.UserID(),
		}, http.StatusOK)
	})

	mux.HandleFunc("GET /banner", func(w http.ResponseWriter, r *http.Request) {
		v := a.Banner.View()
		utils.WriteJSON(w, bannerResponse{
			Visible:     v.Visible,
			PaymentID:   v.PaymentID,
			URL:         v.URL,
			ServiceName: v.ServiceName,
			Duration:    v.Duration,
			Amount:      v.Amount,
			Countdown:   v.Countdown,
		}, http.StatusOK)
	})

	mux.HandleFunc("GET /badges", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, a.Router.Badges(), http.StatusOK)
	})

	mux.HandleFunc("GET /payments/watched", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, monitorResponse{
			Running:  a.Monitor.Running(),
			Interval: a.Monitor.Interval().String(),
			Watched:  a.Monitor.Watched(),
		}, http.StatusOK)
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	limiter := middleware.NewLimiter()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		limiter.Run(a.ctx, time.Minute)
	}()

	var h http.Handler = mux
	h = middleware.TokenAuth(token, "/healthz")(h)
	h = limiter.Middleware(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}
