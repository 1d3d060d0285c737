// Package screen holds the four tab screens of the app. Each screen loads
// its data from the backend, keeps the last rendered view and hands new
// payments to the monitor and the banner.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/model"

	"go.uber.org/zap"
)

var (
	ErrNoUser         = errors.New("user is not loaded")
	ErrUnknownService = errors.New("unknown service")
	ErrNotPending     = errors.New("payment is not pending")
	ErrNotPayable     = errors.New("payment cannot be paid")
)

// Backend is the part of the REST API the screens call. *api.Client
// satisfies it.
type Backend interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	GetService(ctx context.Context, id model.ID) (*model.Service, error)
	CreateSubscription(ctx context.Context, userID, serviceID model.ID) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, userID model.ID) ([]model.Subscription, error)
	CreateGift(ctx context.Context, userID, serviceID model.ID) (*api.GiftOrder, error)
	ActivateGift(ctx context.Context, giftID, userID model.ID) (*model.Subscription, error)
	CreatePaymentWithKey(ctx context.Context, req api.PaymentRequest, key string) (*model.Payment, error)
	GetPayment(ctx context.Context, id model.ID) (*model.Payment, error)
	ListUserPayments(ctx context.Context, userID model.ID) ([]model.Payment, error)
	RefundPayment(ctx context.Context, id model.ID) (*model.Payment, error)
	ListUserKeys(ctx context.Context, userID, subscriptionID model.ID) ([]model.VPNKey, error)
	GetReferralInfo(ctx context.Context) (*model.ReferralInfo, error)
}

// Watcher is the payment monitor.
type Watcher interface {
	Start(ctx context.Context)
	AddPayment(id model.ID)
	SetInterval(d time.Duration)
	Interval() time.Duration
}

// Presenter is the payment banner.
type Presenter interface {
	Show(ctx context.Context, p model.Payment) bool
}

// Deps are shared by every screen.
type Deps struct {
	API     Backend
	Cache   *cache.Cache
	Pending *cache.PendingPayments
	Monitor Watcher
	Banner  Presenter
	Bus     *event.Bus
	UserID  func() model.ID
	Now     func() time.Time
}

func (d *Deps) userID() (model.ID, error) {
	if d.UserID == nil {
		return "", ErrNoUser
	}
	id := d.UserID()
	if id == "" {
		return "", ErrNoUser
	}
	return id, nil
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) refresh() {
	if d.Bus != nil {
		d.Bus.Publish(event.Event{Kind: event.RefreshRequested})
	}
}

// track records a freshly created payment locally, starts polling it and
// shows it in the banner. It reports whether the banner accepted it.
func (d *Deps) track(ctx context.Context, p model.Payment) (bool, error) {
	if p.ID == "" {
		return false, errors.New("payment has no id")
	}
	if d.Pending != nil {
		if err := d.Pending.Add(ctx, p); err != nil {
			return false, fmt.Errorf("failed to cache payment: %w", err)
		}
	}
	if d.Monitor != nil {
		d.Monitor.AddPayment(p.ID)
	}
	if d.Banner == nil {
		return false, nil
	}
	return d.Banner.Show(ctx, p), nil
}

// cached returns the session copy of key, fetching and storing it on a miss.
func cached[T any](ctx context.Context, c *cache.Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		found, err := c.Get(ctx, key, &v)
		if err != nil {
			logger.FromCtx(ctx).Warn("ignoring unreadable cache entry", zap.String("key", key), zap.Error(err))
		}
		if found && err == nil {
			return v, nil
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		if err := c.Set(ctx, key, v, false); err != nil {
			logger.FromCtx(ctx).Warn("failed to cache response", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func invalidate(ctx context.Context, c *cache.Cache, keys ...string) {
	if c == nil {
		return
	}
	for _, k := range keys {
		if err := c.Delete(ctx, k); err != nil {
			logger.FromCtx(ctx).Warn("failed to invalidate cache", zap.String("key", k), zap.Error(err))
		}
	}
}

// view guards the last rendered state of a screen.
type view[T any] struct {
	mu   sync.RWMutex
	last T
	set  bool
}

func (v *view[T]) store(val T) {
	v.mu.Lock()
	v.last, v.set = val, true
	v.mu.Unlock()
}

func (v *view[T]) load() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.last, v.set
}

// subscriptions is shared by the subscription and keys screens.
func subscriptions(ctx context.Context, d *Deps, userID model.ID) ([]model.Subscription, error) {
	return cached(ctx, d.Cache, cache.KeySubscriptions, func(ctx context.Context) ([]model.Subscription, error) {
		return d.API.ListSubscriptions(ctx, userID)
	})
}
