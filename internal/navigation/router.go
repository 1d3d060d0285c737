// Package navigation tracks the active screen, back history and the
// badges shown on the tab bar.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/model"

	"go.uber.org/zap"
)

type Screen string

const (
	ScreenSubscription Screen = "subscription"
	ScreenKeys         Screen = "keys"
	ScreenReferrals    Screen = "referrals"
	ScreenPayments     Screen = "payments"
)

// RenewalWindow is how close to expiry a subscription gets flagged.
const RenewalWindow = 3 * 24 * time.Hour

var ErrUnknownScreen = errors.New("unknown screen")

// Page is a screen the router can activate.
type Page interface {
	Enter(ctx context.Context) error
	Leave(ctx context.Context)
}

type PendingLister interface {
	List(ctx context.Context) ([]model.Payment, error)
}

type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context, userID model.ID) ([]model.Subscription, error)
}

type Router struct {
	mu      sync.RWMutex
	pages   map[Screen]Page
	current Screen
	history []Screen
	badges  map[Screen]string

	pending PendingLister
	subs    SubscriptionLister
	userID  func() model.ID
	now     func() time.Time
}

type Option func(*Router)

// WithBadgeSources enables RefreshBadges.
func WithBadgeSources(pending PendingLister, subs SubscriptionLister, userID func() model.ID) Option {
	return func(r *Router) {
		r.pending = pending
		r.subs = subs
		r.userID = userID
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

func NewRouter(opts ...Option) *Router {
	r := &Router{
		pages:  make(map[Screen]Page),
		badges: make(map[Screen]string),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(s Screen, p Page) {
	r.mu.Lock()
	r.pages[s] = p
	r.mu.Unlock()
}

func (r *Router) Current() Screen {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Navigate leaves the current page and enters s. Navigating to the
// current screen is a no-op.
func (r *Router) Navigate(ctx context.Context, s Screen) error {
	return r.navigate(ctx, s, true)
}

// Back returns to the previous screen. It reports false when there is
// nothing to go back to.
func (r *Router) Back(ctx context.Context) (bool, error) {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return false, nil
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.mu.Unlock()

	return true, r.navigate(ctx, prev, false)
}

func (r *Router) navigate(ctx context.Context, s Screen, push bool) error {
	r.mu.Lock()
	next, ok := r.pages[s]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownScreen, s)
	}
	if s == r.current {
		r.mu.Unlock()
		return nil
	}
	prevScreen := r.current
	prev := r.pages[prevScreen]
	if push && prevScreen != "" {
		r.history = append(r.history, prevScreen)
	}
	r.current = s
	r.mu.Unlock()

	if prev != nil {
		prev.Leave(ctx)
	}
	logger.FromCtx(ctx).Debug("navigate",
		zap.String("from", string(prevScreen)),
		zap.String("to", string(s)),
	)
	if err := next.Enter(ctx); err != nil {
		return fmt.Errorf("enter %s: %w", s, err)
	}
	return nil
}

// SetBadge sets the badge on s; an empty value clears it.
func (r *Router) SetBadge(s Screen, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == "" {
		delete(r.badges, s)
		return
	}
	r.badges[s] = value
}

func (r *Router) ClearBadge(s Screen) {
	r.SetBadge(s, "")
}

func (r *Router) Badge(s Screen) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.badges[s]
}

func (r *Router) Badges() map[Screen]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Screen]string, len(r.badges))
	for k, v := range r.badges {
		out[k] = v
	}
	return out
}

// Screens lists registered screens in name order.
func (r *Router) Screens() []Screen {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Screen, 0, len(r.pages))
	for s := range r.pages {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RefreshBadges recomputes the payments badge (pending count) and the
// subscription badge ("!" when nothing is active or the active
// subscription ends within RenewalWindow).
func (r *Router) RefreshBadges(ctx context.Context) error {
	var errs []error

	if r.pending != nil {
		list, err := r.pending.List(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("pending payments: %w", err))
		} else if len(list) > 0 {
			r.SetBadge(ScreenPayments, strconv.Itoa(len(list)))
		} else {
			r.ClearBadge(ScreenPayments)
		}
	}

	if r.subs != nil && r.userID != nil {
		if uid := r.userID(); uid != "" {
			subs, err := r.subs.ListSubscriptions(ctx, uid)
			if err != nil {
				errs = append(errs, fmt.Errorf("subscriptions: %w", err))
			} else if needsRenewal(subs, r.now()) {
				r.SetBadge(ScreenSubscription, "!")
			} else {
				r.ClearBadge(ScreenSubscription)
			}
		}
	}
	return errors.Join(errs...)
}

func needsRenewal(subs []model.Subscription, now time.Time) bool {
	var latest time.Time
	for i := range subs {
		if !subs[i].Active(now) {
			continue
		}
		if subs[i].EndDate.IsZero() {
			return false
		}
		if subs[i].EndDate.After(latest) {
			latest = subs[i].EndDate.Time
		}
	}
	if latest.IsZero() {
		return true
	}
	return latest.Sub(now) <= RenewalWindow
}

// Watch refreshes badges whenever payments resolve or a refresh is
// requested, until ctx ends. Refreshes run off the publisher's goroutine.
func (r *Router) Watch(ctx context.Context, bus *event.Bus) {
	events, cancel := bus.Listen(8, event.PaymentSucceeded, event.PaymentCanceled, event.RefreshRequested)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := r.RefreshBadges(ctx); err != nil {
				logger.FromCtx(ctx).Warn("failed to refresh badges",
					zap.String("trigger", string(e.Kind)),
					zap.Error(err),
				)
			}
		}
	}
}
