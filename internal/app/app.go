// Package app builds one instance of every client service and wires them
// together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/config"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/host"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/metrics"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/navigation"
	"dragonvpn-app/internal/payment"
	"dragonvpn-app/internal/screen"
	"dragonvpn-app/internal/storage"
	"dragonvpn-app/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	HostReadyTimeout = 10 * time.Second
	ReloadDelay      = 3 * time.Second

	userRetries    = 2
	userRetryDelay = 500 * time.Millisecond

	sessionExpiredToast = "Сессия истекла. Приложение будет перезапущено"
)

var ErrNoTelegramUser = errors.New("init data carries no telegram user")

type App struct {
	Host     host.Host
	API      *api.Client
	Cache    *cache.Cache
	Pending  *cache.PendingPayments
	Bus      *event.Bus
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Monitor  *payment.Monitor
	Banner   *payment.Banner
	Router   *navigation.Router

	Subscription *screen.Subscription
	Keys         *screen.Keys
	Referrals    *screen.Referrals
	Payments     *screen.Payments

	reloadDelay  time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	invalidating atomic.Bool
	closeOnce    sync.Once

	mu   sync.RWMutex
	user *model.User
}

type Option func(*options)

type options struct {
	base        http.RoundTripper
	registry    *prometheus.Registry
	reloadDelay time.Duration
}

// WithBaseTransport sets the round tripper under the middleware chain.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

func WithReloadDelay(d time.Duration) Option {
	return func(o *options) { o.reloadDelay = d }
}

func New(cfg *config.Config, h host.Host, store storage.Store, opts ...Option) *App {
	o := options{reloadDelay: ReloadDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	a := &App{
		Host:        h,
		Bus:         event.NewBus(),
		Registry:    o.registry,
		Metrics:     metrics.New(o.registry),
		reloadDelay: o.reloadDelay,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	rt := transport.Chain(o.base,
		transport.InitData(func() string { return h.Session().InitData }),
		transport.RequestID(),
		transport.RateLimit(transport.NewLimiter(cfg.RateLimitRPS)),
		transport.Logging(),
		transport.Metrics(a.Metrics),
	)
	a.API = api.NewClient(cfg.APIBaseURL,
		api.WithTransport(rt),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithUnauthorizedHandler(a.onUnauthorized),
	)

	a.Cache = cache.New(store, cache.WithMetrics(a.Metrics))
	a.Pending = cache.NewPendingPayments(a.Cache)

	a.Router = navigation.NewRouter(
		navigation.WithBadgeSources(a.Pending, a.API, a.UserID),
	)
	a.Monitor = payment.NewMonitor(a.API, a.Pending,
		payment.WithBus(a.Bus),
		payment.WithNotifier(h),
		payment.WithMetrics(a.Metrics),
		payment.WithInterval(cfg.PollInterval),
	)
	a.Banner = payment.NewBanner(a.Monitor, a.Pending,
		payment.WithServices(a.API),
		payment.WithBadges(a.Router),
		payment.WithBannerMetrics(a.Metrics),
	)
	a.Monitor.SetBanner(a.Banner)

	deps := &screen.Deps{
		API:     a.API,
		Cache:   a.Cache,
		Pending: a.Pending,
		Monitor: a.Monitor,
		Banner:  a.Banner,
		Bus:     a.Bus,
		UserID:  a.UserID,
	}
	a.Subscription = screen.NewSubscription(deps)
	a.Keys = screen.NewKeys(deps)
	a.Referrals = screen.NewReferrals(deps, cfg.BotUsername)
	a.Payments = screen.NewPayments(deps)

	a.Router.Register(navigation.ScreenSubscription, a.Subscription)
	a.Router.Register(navigation.ScreenKeys, a.Keys)
	a.Router.Register(navigation.ScreenReferrals, a.Referrals)
	a.Router.Register(navigation.ScreenPayments, a.Payments)

	// Resolved payments change what the subscription screen shows.
	a.Bus.Subscribe(func(e event.Event) {
		a.Subscription.Invalidate(a.ctx)
	}, event.RefreshRequested)

	return a
}

func (a *App) User() *model.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *App) UserID() model.ID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return ""
	}
	return a.user.ID
}

// Bootstrap brings the client up: it waits for the host, sweeps the cache,
// registers the user, rebuilds the pending list from the backend, starts
// the monitor and shows the newest payable payment.
func (a *App) Bootstrap(ctx context.Context) error {
	log := logger.FromCtx(ctx)

	wctx, cancel := context.WithTimeout(ctx, HostReadyTimeout)
	err := host.WaitReady(wctx, a.Host)
	cancel()
	if err != nil {
		return fmt.Errorf("wait for host: %w", err)
	}

	if err := a.Cache.Init(ctx); err != nil {
		log.Warn("cache sweep failed", zap.Error(err))
	}

	session := a.Host.Session()
	if session.User == nil {
		return ErrNoTelegramUser
	}
	req := api.NewUserRequest(*session.User, session.ReferralCode())
	user, err := api.Retry(ctx, func(ctx context.Context) (*model.User, error) {
		return a.API.GetOrCreateUser(ctx, req)
	}, userRetries, userRetryDelay)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
	if err := a.Cache.Set(ctx, cache.KeyUser, user, false); err != nil {
		log.Warn("failed to cache user", zap.Error(err))
	}
	ctx = logger.WithFields(ctx, zap.String("user_id", user.ID.String()))
	log = logger.FromCtx(ctx)

	pending, err := a.restorePending(ctx, user.ID)
	if err != nil {
		log.Warn("using cached pending payments", zap.Error(err))
	}

	a.Monitor.Start(ctx)
	a.showNewest(ctx, pending)

	if err := a.Router.RefreshBadges(ctx); err != nil {
		log.Warn("failed to refresh badges", zap.Error(err))
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Router.Watch(a.ctx, a.Bus)
	}()

	log.Info("client ready",
		zap.Int("pending_payments", len(pending)),
		zap.Duration("poll_interval", a.Monitor.Interval()),
	)
	return nil
}

// restorePending replaces the cached pending list with the backend's. On
// failure the cached list is kept and returned.
func (a *App) restorePending(ctx context.Context, userID model.ID) ([]model.Payment, error) {
	remote, err := a.API.ListPendingPayments(ctx, userID)
	if err != nil {
		cached, cerr := a.Pending.List(ctx)
		return cached, errors.Join(err, cerr)
	}

	list := make([]model.Payment, 0, len(remote))
	for _, p := range remote {
		if p.Status == model.PaymentPending && p.ID != "" {
			list = append(list, p)
		}
	}
	if err := a.Pending.Replace(ctx, list); err != nil {
		return list, err
	}
	return list, nil
}

// showNewest shows the newest payable payment.
func (a *App) showNewest(ctx context.Context, list []model.Payment) {
	sorted := make([]model.Payment, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt.Time)
	})

	// Payments without a URL still go through Show, which purges them.
	shown := false
	for _, p := range sorted {
		p.NormalizeURLs()
		if shown && p.ActionURL() != "" {
			continue
		}
		if a.Banner.Show(ctx, p) {
			shown = true
		}
	}
}

// onUnauthorized runs on every 401. The first one wipes the session, tells
// the user and reloads after the delay; later ones are ignored until the
// reload has happened.
func (a *App) onUnauthorized(e *api.Error) {
	a.Bus.Publish(event.Event{Kind: event.SessionUnauthorized})
	if !a.invalidating.CompareAndSwap(false, true) {
		return
	}

	logger.L().Warn("session rejected by backend",
		zap.String("endpoint", e.Endpoint),
	)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.invalidating.Store(false)
		a.invalidateSession(a.ctx)
	}()
}

func (a *App) invalidateSession(ctx context.Context) {
	a.Monitor.Stop()
	a.Banner.Hide()
	a.Cache.Reset()
	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()

	if err := a.Host.Toast(ctx, host.ToastWarning, sessionExpiredToast); err != nil {
		logger.L().Warn("failed to show session toast", zap.Error(err))
	}

	timer := time.NewTimer(a.reloadDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if err := a.Host.Reload(ctx); err != nil {
		logger.L().Error("reload failed", zap.Error(err))
	}
}

// Close stops background work and waits for it to finish.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		a.Monitor.Close()
		a.Banner.Hide()
		a.wg.Wait()
	})
}
