package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/host"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/navigation"
	"dragonvpn-app/internal/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetPayment(ctx context.Context, id model.ID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

type gatewayFunc func(ctx context.Context, id model.ID) (*model.Payment, error)

func (f gatewayFunc) GetPayment(ctx context.Context, id model.ID) (*model.Payment, error) {
	return f(ctx, id)
}

type MockServices struct {
	mock.Mock
}

func (m *MockServices) GetService(ctx context.Context, id model.ID) (*model.Service, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*model.Service)
	return s, args.Error(1)
}

type fakeNotifier struct {
	mu      sync.Mutex
	haptics []host.HapticKind
	toasts  []string
}

func (n *fakeNotifier) Haptic(kind host.HapticKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.haptics = append(n.haptics, kind)
}

func (n *fakeNotifier) Toast(ctx context.Context, level host.ToastLevel, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, string(level)+":"+text)
	return nil
}

type fakeBadges struct {
	mu     sync.Mutex
	badges map[string]string
}

func (b *fakeBadges) SetBadge(s navigation.Screen, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.badges == nil {
		b.badges = map[string]string{}
	}
	b.badges[string(s)] = value
}

func (b *fakeBadges) ClearBadge(s navigation.Screen) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.badges, string(s))
}

func (b *fakeBadges) Badge(s navigation.Screen) string {
	return b.Get(string(s))
}

func (b *fakeBadges) Get(s string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.badges[s]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recorder collects events synchronously.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func record(bus *event.Bus) *recorder {
	r := &recorder{}
	bus.Subscribe(func(e event.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) All() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) Kinds() []event.Kind {
	var kinds []event.Kind
	for _, e := range r.All() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recorder) Lifecycle() []event.Event {
	var out []event.Event
	for _, e := range r.All() {
		if e.IsLifecycle() {
			out = append(out, e)
		}
	}
	return out
}

func newPendingStore(t *testing.T, payments ...model.Payment) *cache.PendingPayments {
	t.Helper()
	p := cache.NewPendingPayments(cache.New(storage.NewMemory()))
	for _, pay := range payments {
		require.NoError(t, p.Add(context.Background(), pay))
	}
	return p
}

func pendingPayment(id model.ID, createdAt time.Time, url string) model.Payment {
	return model.Payment{
		ID:         id,
		Status:     model.PaymentPending,
		CreatedAt:  model.NewTimestamp(createdAt),
		PaymentURL: url,
	}
}
