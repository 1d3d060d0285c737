package payment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/host"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/metrics"
	"dragonvpn-app/internal/model"

	"go.uber.org/zap"
)

const (
	DefaultInterval = 5 * time.Second
	// ScreenInterval is used while the payments screen is open.
	ScreenInterval = 7 * time.Second
	// MaxRetries consecutive failures are tolerated; the next one drops
	// the payment.
	MaxRetries = 3
)

// Monitor polls the gateway for every watched payment and reconciles the
// result with local state. It is idle whenever nothing is watched.
//
// Ticks run one at a time on the loop goroutine; a tick that outlives the
// interval delays the next one instead of overlapping it.
type Monitor struct {
	gateway  Gateway
	pending  PendingStore
	bus      *event.Bus
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	watched  map[model.ID]int
	interval time.Duration
	banner   bannerSlot
	cancel   context.CancelFunc
	done     chan struct{}
}

type MonitorOption func(*Monitor)

func WithBus(bus *event.Bus) MonitorOption {
	return func(m *Monitor) { m.bus = bus }
}

func WithNotifier(n Notifier) MonitorOption {
	return func(m *Monitor) { m.notifier = n }
}

func WithMetrics(mt *metrics.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = mt }
}

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(gateway Gateway, pending PendingStore, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		gateway:  gateway,
		pending:  pending,
		now:      time.Now,
		watched:  make(map[model.ID]int),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetBanner lets the monitor hide the banner when the payment it shows
// resolves.
func (m *Monitor) SetBanner(b *Banner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b == nil {
		m.banner = nil
		return
	}
	m.banner = b
}

// Start loads the cached pending payments into the watch set and begins
// polling. It is a no-op while running and leaves the monitor idle when
// there is nothing to watch.
func (m *Monitor) Start(ctx context.Context) {
	if m.Running() {
		return
	}

	var ids []model.ID
	if m.pending != nil {
		var err error
		ids, err = m.pending.IDs(ctx)
		if err != nil {
			logger.FromCtx(ctx).Warn("failed to load pending payments", zap.Error(err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}
	for _, id := range ids {
		if _, ok := m.watched[id]; !ok {
			m.watched[id] = 0
		}
	}
	m.metrics.SetWatched(len(m.watched))

	if len(m.watched) == 0 {
		logger.FromCtx(ctx).Debug("payment monitor idle, nothing to watch")
		return
	}
	m.startLocked()
}

// Stop cancels polling and forgets every watched payment. Safe to call at
// any time, including from event handlers.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopLocked()
	m.watched = make(map[model.ID]int)
	m.mu.Unlock()
	m.metrics.SetWatched(0)
}

// Close stops the monitor and waits for the loop to exit. It must not be
// called from an event handler.
func (m *Monitor) Close() {
	m.mu.Lock()
	done := m.stopLocked()
	m.watched = make(map[model.ID]int)
	m.mu.Unlock()
	m.metrics.SetWatched(0)

	if done != nil {
		<-done
	}
}

// AddPayment watches id with a fresh retry budget, starting the monitor if
// it was idle.
func (m *Monitor) AddPayment(id model.ID) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.watched[id] = 0
	m.metrics.SetWatched(len(m.watched))
	if m.cancel == nil {
		m.startLocked()
	}
	logger.L().Debug("watching payment", zap.String("payment_id", id.String()))
}

// RemovePayment stops watching id; the monitor goes idle when it was the
// last one. It reports whether id was watched.
func (m *Monitor) RemovePayment(id model.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id)
}

// SetInterval changes the poll interval, restarting the timer when
// running.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if d == m.interval {
		return
	}
	m.interval = d
	if m.cancel != nil {
		m.stopLocked()
		m.startLocked()
	}
}

func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) IsWatched(id model.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watched[id]
	return ok
}

// Watched returns the watched ids in sorted order.
func (m *Monitor) Watched() []model.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) Retries(id model.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watched[id]
}

func (m *Monitor) snapshotLocked() []model.ID {
	ids := make([]model.ID, 0, len(m.watched))
	for id := range m.watched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Monitor) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	go m.loop(ctx, m.interval, done)
}

func (m *Monitor) stopLocked() chan struct{} {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	done := m.done
	m.cancel, m.done = nil, nil
	return done
}

func (m *Monitor) removeLocked(id model.ID) bool {
	if _, ok := m.watched[id]; !ok {
		return false
	}
	delete(m.watched, id)
	m.metrics.SetWatched(len(m.watched))
	if len(m.watched) == 0 {
		m.stopLocked()
	}
	return true
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick fetches every payment watched at tick start concurrently and waits
// for all of them to settle.
func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	ids := m.snapshotLocked()
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.poll(ctx, id)
		}()
	}
	wg.Wait()
}

func (m *Monitor) poll(ctx context.Context, id model.ID) {
	ctx = logger.WithFields(ctx, zap.String("payment_id", id.String()))
	log := logger.FromCtx(ctx)

	p, err := m.gateway.GetPayment(ctx, id)
	if ctx.Err() != nil {
		// Stopped or restarted mid-flight.
		return
	}

	switch {
	case errors.Is(err, api.ErrNotFound):
		log.Warn("payment not found, dropping")
		m.metrics.ObservePoll(metrics.PollNotFound)
		m.drop(id, event.DropNotFound)
	case err != nil:
		m.metrics.ObservePoll(metrics.PollFailed)
		m.fail(log, id, err)
	case p == nil:
		m.metrics.ObservePoll(metrics.PollFailed)
		m.fail(log, id, errors.New("empty payment"))
	default:
		m.reconcile(ctx, log, id, p)
	}
}

func (m *Monitor) fail(log *zap.Logger, id model.ID, err error) {
	m.mu.Lock()
	n, ok := m.watched[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	n++
	if n <= MaxRetries {
		m.watched[id] = n
		m.mu.Unlock()
		log.Warn("payment status fetch failed", zap.Int("attempt", n), zap.Error(err))
		return
	}
	m.removeLocked(id)
	m.mu.Unlock()

	log.Error("payment status fetch failed too many times, dropping", zap.Error(err))
	m.metrics.ObservePoll(metrics.PollDropped)
	m.publish(event.Event{Kind: event.PaymentDropped, PaymentID: id, Reason: event.DropRetriesExhausted})
}

func (m *Monitor) drop(id model.ID, reason event.DropReason) {
	if !m.RemovePayment(id) {
		return
	}
	m.publish(event.Event{Kind: event.PaymentDropped, PaymentID: id, Reason: reason})
}

func (m *Monitor) reconcile(ctx context.Context, log *zap.Logger, id model.ID, p *model.Payment) {
	m.mu.Lock()
	if _, ok := m.watched[id]; !ok {
		m.mu.Unlock()
		return
	}
	m.watched[id] = 0
	m.mu.Unlock()

	switch p.Status {
	case model.PaymentSucceeded:
		m.metrics.ObservePoll(metrics.PollSucceeded)
		m.succeed(ctx, log, id, p)
	case model.PaymentCanceled:
		m.metrics.ObservePoll(metrics.PollCanceled)
		m.cancelPayment(ctx, log, id, p, false)
	case model.PaymentWaitingForCapture:
		m.metrics.ObservePoll(metrics.PollPending)
	default:
		if m.expired(ctx, id, p) {
			m.metrics.ObservePoll(metrics.PollExpired)
			m.cancelPayment(ctx, log, id, p, true)
			return
		}
		m.metrics.ObservePoll(metrics.PollPending)
	}
}

// expired checks the fetched payment's deadline, falling back to the
// cached copy when the gateway omits the timestamps.
func (m *Monitor) expired(ctx context.Context, id model.ID, p *model.Payment) bool {
	now := m.now()
	if _, ok := p.Deadline(); ok {
		return p.Expired(now)
	}
	if m.pending == nil {
		return false
	}
	cached, ok, err := m.pending.Find(ctx, id)
	if err != nil || !ok {
		return false
	}
	return cached.Expired(now)
}

// take removes id from the watch set and reports whether this caller owns
// the terminal transition.
func (m *Monitor) take(id model.ID) (bool, bannerSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id), m.banner
}

func (m *Monitor) succeed(ctx context.Context, log *zap.Logger, id model.ID, p *model.Payment) {
	owned, banner := m.take(id)
	if !owned {
		return
	}
	// Taking the last payment cancels the loop context.
	ctx = context.WithoutCancel(ctx)
	m.purge(ctx, log, id, banner)

	if m.notifier != nil {
		m.notifier.Haptic(host.HapticSuccess)
		if err := m.notifier.Toast(ctx, host.ToastSuccess, successToast); err != nil {
			log.Warn("failed to show success toast", zap.Error(err))
		}
	}

	log.Info("payment succeeded")
	m.publish(event.Event{Kind: event.RefreshRequested, PaymentID: id})
	m.publish(event.Event{Kind: event.PaymentSucceeded, PaymentID: id, Payment: p})
}

func (m *Monitor) cancelPayment(ctx context.Context, log *zap.Logger, id model.ID, p *model.Payment, expired bool) bool {
	owned, banner := m.take(id)
	if !owned {
		return false
	}
	// Taking the last payment cancels the loop context.
	ctx = context.WithoutCancel(ctx)
	m.purge(ctx, log, id, banner)

	log.Info("payment canceled", zap.Bool("expired", expired))
	m.publish(event.Event{Kind: event.PaymentCanceled, PaymentID: id, Payment: p, Expired: expired})
	return true
}

func (m *Monitor) purge(ctx context.Context, log *zap.Logger, id model.ID, banner bannerSlot) {
	if m.pending != nil {
		if _, err := m.pending.Remove(ctx, id); err != nil {
			log.Warn("failed to remove payment from pending list", zap.Error(err))
		}
	}
	if banner != nil && banner.CurrentID() == id {
		banner.Hide()
	}
}

// ExpirePayment resolves a watched payment as canceled by local expiry.
// It reports false when id was not watched or already resolved.
func (m *Monitor) ExpirePayment(ctx context.Context, id model.ID) bool {
	log := logger.FromCtx(ctx).With(zap.String("payment_id", id.String()))
	if !m.cancelPayment(ctx, log, id, nil, true) {
		return false
	}
	m.metrics.ObservePoll(metrics.PollExpired)
	return true
}

func (m *Monitor) publish(e event.Event) {
	if m.bus == nil {
		return
	}
	e.At = m.now()
	m.bus.Publish(e)
}
