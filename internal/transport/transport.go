// Package transport holds the http.RoundTripper middlewares wrapped around
// every backend call.
package transport

import (
	"net/http"
	"time"

	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	HeaderInitData  = "X-Telegram-Init-Data"
	HeaderRequestID = "X-Request-ID"
)

// Client-side limits, kept below the backend's general tier.
const (
	DefaultLimit = rate.Limit(10)
	DefaultBurst = 20
)

type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type Middleware func(http.RoundTripper) http.RoundTripper

// Chain wraps base so that the first middleware sees the request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// InitDataSource returns the raw Telegram init data, or "" when the host
// has none yet.
type InitDataSource func() string

func InitData(source InitDataSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if source == nil {
				return next.RoundTrip(r)
			}
			if data := source(); data != "" {
				r = r.Clone(r.Context())
				r.Header.Set(HeaderInitData, data)
			}
			return next.RoundTrip(r)
		})
	}
}

// RequestID forwards the request id from the context, generating one when
// the caller has none.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}
			rid := logger.RequestIDFrom(r.Context())
			if rid == "" {
				rid = uuid.NewString()
			}
			r = r.Clone(logger.WithRequestID(r.Context(), rid))
			r.Header.Set(HeaderRequestID, rid)
			return next.RoundTrip(r)
		})
	}
}

// RateLimit blocks until the limiter admits the request or its context
// ends.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(DefaultLimit, DefaultBurst)
	}
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Logging logs every backend call in structured JSON.
func Logging() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			log := logger.FromCtx(r.Context()).With(
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
			if err != nil {
				log.Warn("backend call failed", zap.Error(err))
				return resp, err
			}
			log.Debug("backend call", zap.Int("status", resp.StatusCode))
			return resp, nil
		})
	}
}

func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			timer := metrics.StartTimer()
			resp, err := next.RoundTrip(r)

			code := 0
			if err == nil {
				code = resp.StatusCode
			}
			m.ObserveRequest(r.Method, code, timer.Duration())
			return resp, err
		})
	}
}
