package screen

import (
	"context"
	"testing"
	"time"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/payment"
	"dragonvpn-app/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListServices(ctx context.Context) ([]model.Service, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]model.Service)
	return v, args.Error(1)
}

func (m *MockBackend) GetService(ctx context.Context, id model.ID) (*model.Service, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.Service)
	return v, args.Error(1)
}

func (m *MockBackend) CreateSubscription(ctx context.Context, userID, serviceID model.ID) (*model.Subscription, error) {
	args := m.Called(ctx, userID, serviceID)
	v, _ := args.Get(0).(*model.Subscription)
	return v, args.Error(1)
}

func (m *MockBackend) ListSubscriptions(ctx context.Context, userID model.ID) ([]model.Subscription, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]model.Subscription)
	return v, args.Error(1)
}

func (m *MockBackend) CreateGift(ctx context.Context, userID, serviceID model.ID) (*api.GiftOrder, error) {
	args := m.Called(ctx, userID, serviceID)
	v, _ := args.Get(0).(*api.GiftOrder)
	return v, args.Error(1)
}

func (m *MockBackend) ActivateGift(ctx context.Context, giftID, userID model.ID) (*model.Subscription, error) {
	args := m.Called(ctx, giftID, userID)
	v, _ := args.Get(0).(*model.Subscription)
	return v, args.Error(1)
}

func (m *MockBackend) CreatePaymentWithKey(ctx context.Context, req api.PaymentRequest, key string) (*model.Payment, error) {
	args := m.Called(ctx, req, key)
	v, _ := args.Get(0).(*model.Payment)
	return v, args.Error(1)
}

func (m *MockBackend) GetPayment(ctx context.Context, id model.ID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.Payment)
	return v, args.Error(1)
}

func (m *MockBackend) ListUserPayments(ctx context.Context, userID model.ID) ([]model.Payment, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]model.Payment)
	return v, args.Error(1)
}

func (m *MockBackend) RefundPayment(ctx context.Context, id model.ID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.Payment)
	return v, args.Error(1)
}

func (m *MockBackend) ListUserKeys(ctx context.Context, userID, subscriptionID model.ID) ([]model.VPNKey, error) {
	args := m.Called(ctx, userID, subscriptionID)
	v, _ := args.Get(0).([]model.VPNKey)
	return v, args.Error(1)
}

func (m *MockBackend) GetReferralInfo(ctx context.Context) (*model.ReferralInfo, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(*model.ReferralInfo)
	return v, args.Error(1)
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	api     *MockBackend
	deps    *Deps
	monitor *payment.Monitor
	banner  *payment.Banner
	bus     *event.Bus
	refresh *int
}

// newFixture wires a real cache, monitor and banner around a mocked
// backend. The monitor never ticks on its own.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := new(MockBackend)
	c := cache.New(storage.NewMemory())
	pending := cache.NewPendingPayments(c)
	bus := event.NewBus()

	monitor := payment.NewMonitor(backend, pending,
		payment.WithBus(bus),
		payment.WithInterval(time.Hour),
		payment.WithClock(func() time.Time { return testNow }),
	)
	banner := payment.NewBanner(monitor, pending,
		payment.WithTick(time.Hour),
		payment.WithBannerClock(func() time.Time { return testNow }),
	)
	monitor.SetBanner(banner)
	t.Cleanup(func() {
		banner.Hide()
		monitor.Close()
	})

	refreshes := 0
	bus.Subscribe(func(event.Event) { refreshes++ }, event.RefreshRequested)

	return &fixture{
		api: backend,
		deps: &Deps{
			API:     backend,
			Cache:   c,
			Pending: pending,
			Monitor: monitor,
			Banner:  banner,
			Bus:     bus,
			UserID:  func() model.ID { return "u1" },
			Now:     func() time.Time { return testNow },
		},
		monitor: monitor,
		banner:  banner,
		bus:     bus,
		refresh: &refreshes,
	}
}

func pendingPayment(id model.ID, url string) *model.Payment {
	return &model.Payment{
		ID:         id,
		Status:     model.PaymentPending,
		CreatedAt:  model.NewTimestamp(testNow.Add(-10 * time.Minute)),
		PaymentURL: url,
	}
}

func ts(t time.Time) model.Timestamp {
	return model.NewTimestamp(t)
}
