package payment

import (
	"context"
	"sync"
	"time"

	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/metrics"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/navigation"
	"dragonvpn-app/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BannerView is the rendered state of the banner.
type BannerView struct {
	Visible     bool
	PaymentID   model.ID
	URL         string
	ServiceName string
	Duration    int
	Amount      decimal.Decimal
	Remaining   time.Duration
	Countdown   string
}

// bannerBadge marks the payments tab while a payment is in the banner.
const bannerBadge = "!"

// Banner shows at most one actionable pending payment with a countdown to
// its expiry. Showing a payment replaces whatever was shown before.
type Banner struct {
	dropper  Dropper
	pending  PendingStore
	services ServiceLookup
	badges   BadgeSetter
	metrics  *metrics.Metrics
	tick     time.Duration
	now      func() time.Time

	mu        sync.Mutex
	current   *model.Payment
	gen       uint64
	stop      chan struct{}
	badgeSet  bool
	// prevBadge is the payments badge the banner replaced with its own.
	prevBadge string
	listeners []func(BannerView)
}

type BannerOption func(*Banner)

func WithServices(s ServiceLookup) BannerOption {
	return func(b *Banner) { b.services = s }
}

func WithBadges(s BadgeSetter) BannerOption {
	return func(b *Banner) { b.badges = s }
}

func WithBannerMetrics(mt *metrics.Metrics) BannerOption {
	return func(b *Banner) { b.metrics = mt }
}

// WithTick sets the countdown refresh period.
func WithTick(d time.Duration) BannerOption {
	return func(b *Banner) {
		if d > 0 {
			b.tick = d
		}
	}
}

func WithBannerClock(now func() time.Time) BannerOption {
	return func(b *Banner) { b.now = now }
}

func NewBanner(dropper Dropper, pending PendingStore, opts ...BannerOption) *Banner {
	b := &Banner{
		dropper: dropper,
		pending: pending,
		tick:    time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnChange registers fn to receive every rendered state. fn runs without
// the banner lock held.
func (b *Banner) OnChange(fn func(BannerView)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Show displays p. It reports false, leaving the banner as it was, when
// p is not pending. A pending payment with no usable URL, here or in the
// cached copy, is dropped from the monitor and the pending list.
func (b *Banner) Show(ctx context.Context, p model.Payment) bool {
	log := logger.FromCtx(ctx).With(zap.String("payment_id", p.ID.String()))

	if p.Status != model.PaymentPending {
		log.Debug("payment not displayable", zap.String("status", string(p.Status)))
		return false
	}

	p.NormalizeURLs()
	if p.ActionURL() == "" {
		b.recoverURL(ctx, &p)
	}
	if p.ActionURL() == "" {
		log.Warn("pending payment has no payment url, purging")
		b.discard(ctx, p.ID)
		return false
	}

	if p.Expired(b.now()) {
		log.Info("pending payment already expired")
		b.resolveExpired(ctx, p.ID)
		if b.CurrentID() == p.ID {
			b.Hide()
		}
		return false
	}

	enrich(ctx, b.services, &p)

	b.mu.Lock()
	b.stopTimerLocked()
	b.gen++
	b.current = &p
	gen := b.gen
	if _, ok := p.Deadline(); ok {
		stop := make(chan struct{})
		b.stop = stop
		go b.countdown(gen, stop)
	}
	setBadge := b.badges != nil
	if setBadge && !b.badgeSet {
		b.prevBadge = b.badges.Badge(navigation.ScreenPayments)
		if b.prevBadge == bannerBadge {
			b.prevBadge = ""
		}
	}
	b.badgeSet = setBadge
	view := b.viewLocked()
	listeners := b.listenersLocked()
	b.mu.Unlock()

	if setBadge {
		b.badges.SetBadge(navigation.ScreenPayments, bannerBadge)
	}
	b.metrics.BannerShown()
	log.Info("payment shown in banner")
	notify(listeners, view)
	return true
}

// Hide clears the banner. It is idempotent.
func (b *Banner) Hide() {
	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()
	b.hideGen(gen)
}

// hideGen hides the banner only if it still shows generation gen.
func (b *Banner) hideGen(gen uint64) {
	b.mu.Lock()
	if b.current == nil || b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.stopTimerLocked()
	b.gen++
	b.current = nil
	restore := b.badgeSet
	prev := b.prevBadge
	b.badgeSet = false
	b.prevBadge = ""
	listeners := b.listenersLocked()
	b.mu.Unlock()

	// The router may have replaced the banner's badge with a fresher count
	// meanwhile; that one stays.
	if restore && b.badges.Badge(navigation.ScreenPayments) == bannerBadge {
		b.badges.SetBadge(navigation.ScreenPayments, prev)
	}
	notify(listeners, BannerView{})
}

// CurrentID returns the id of the shown payment, or "" when hidden.
func (b *Banner) CurrentID() model.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return ""
	}
	return b.current.ID
}

func (b *Banner) Current() (model.Payment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return model.Payment{}, false
	}
	return *b.current, true
}

func (b *Banner) View() BannerView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *Banner) recoverURL(ctx context.Context, p *model.Payment) {
	if b.pending == nil {
		return
	}
	cached, ok, err := b.pending.Find(ctx, p.ID)
	if err != nil || !ok {
		return
	}
	cached.NormalizeURLs()
	p.PaymentURL = cached.PaymentURL
	p.URL = cached.URL
	p.ReceiptLink = cached.ReceiptLink
	p.NormalizeURLs()
}

// discard drops id everywhere and hides the banner if it was showing it.
func (b *Banner) discard(ctx context.Context, id model.ID) {
	if b.dropper != nil {
		b.dropper.RemovePayment(id)
	}
	if b.pending != nil {
		if _, err := b.pending.Remove(ctx, id); err != nil {
			logger.FromCtx(ctx).Warn("failed to remove payment from pending list",
				zap.String("payment_id", id.String()),
				zap.Error(err),
			)
		}
	}
	if b.CurrentID() == id {
		b.Hide()
	}
}

func (b *Banner) countdown(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !b.onTick(gen) {
				return
			}
		}
	}
}

// onTick refreshes the countdown and expires the payment at zero. It
// reports whether the timer should keep running.
func (b *Banner) onTick(gen uint64) bool {
	b.mu.Lock()
	if gen != b.gen || b.current == nil {
		b.mu.Unlock()
		return false
	}
	remaining, _ := b.current.Remaining(b.now())
	if remaining > 0 {
		view := b.viewLocked()
		listeners := b.listenersLocked()
		b.mu.Unlock()
		notify(listeners, view)
		return true
	}
	id := b.current.ID
	b.mu.Unlock()

	b.expire(gen, id)
	return false
}

func (b *Banner) expire(gen uint64, id model.ID) {
	logger.L().Info("payment expired in banner", zap.String("payment_id", id.String()))
	b.resolveExpired(context.Background(), id)
	b.hideGen(gen)
}

// resolveExpired hands an expired payment to the monitor, or just drops it
// from the pending list when the monitor is not watching it.
func (b *Banner) resolveExpired(ctx context.Context, id model.ID) {
	if b.dropper != nil && b.dropper.ExpirePayment(ctx, id) {
		return
	}
	if b.pending == nil {
		return
	}
	if _, err := b.pending.Remove(ctx, id); err != nil {
		logger.FromCtx(ctx).Warn("failed to remove expired payment",
			zap.String("payment_id", id.String()),
			zap.Error(err),
		)
	}
}

func (b *Banner) stopTimerLocked() {
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
}

func (b *Banner) viewLocked() BannerView {
	if b.current == nil {
		return BannerView{}
	}
	p := b.current
	v := BannerView{
		Visible:     true,
		PaymentID:   p.ID,
		URL:         p.ActionURL(),
		ServiceName: p.ServiceName,
		Duration:    p.ServiceDuration,
		Amount:      p.DisplayAmount(),
	}
	if remaining, ok := p.Remaining(b.now()); ok {
		v.Remaining = remaining
		v.Countdown = utils.FormatCountdown(remaining)
	}
	return v
}

func (b *Banner) listenersLocked() []func(BannerView) {
	out := make([]func(BannerView), len(b.listeners))
	copy(out, b.listeners)
	return out
}

func notify(listeners []func(BannerView), v BannerView) {
	for _, fn := range listeners {
		fn(v)
	}
}
