package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/navigation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBanner_Show(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)

	t.Run("RejectsNonPending", func(t *testing.T) {
		b := NewBanner(nil, nil, WithBannerClock(clock.Now))
		for _, status := range []model.PaymentStatus{model.PaymentSucceeded, model.PaymentCanceled, model.PaymentWaitingForCapture} {
			p := pendingPayment("p1", now, "https://pay/p1")
			p.Status = status
			assert.False(t, b.Show(ctx, p), string(status))
		}
		assert.False(t, b.View().Visible)
	})

	t.Run("PromotesReceiptLink", func(t *testing.T) {
		b := NewBanner(nil, nil, WithTick(manual), WithBannerClock(clock.Now))
		defer b.Hide()

		p := pendingPayment("p1", now, "")
		p.ReceiptLink = "https://pay/receipt"
		require.True(t, b.Show(ctx, p))

		v := b.View()
		assert.True(t, v.Visible)
		assert.Equal(t, "https://pay/receipt", v.URL)
		shown, ok := b.Current()
		require.True(t, ok)
		assert.Equal(t, "https://pay/receipt", shown.PaymentURL)
		assert.Equal(t, "https://pay/receipt", shown.URL)
	})

	t.Run("RecoversURLFromPendingList", func(t *testing.T) {
		pending := newPendingStore(t, pendingPayment("p1", now, "https://pay/cached"))
		b := NewBanner(nil, pending, WithTick(manual), WithBannerClock(clock.Now))
		defer b.Hide()

		require.True(t, b.Show(ctx, pendingPayment("p1", now, "")))
		assert.Equal(t, "https://pay/cached", b.View().URL)
	})

	t.Run("RendersCountdown", func(t *testing.T) {
		b := NewBanner(nil, nil, WithTick(manual), WithBannerClock(clock.Now))
		defer b.Hide()

		p := pendingPayment("p1", now.Add(-15*time.Minute), "https://pay/p1")
		p.Amount = decimal.NewFromInt(199)
		require.True(t, b.Show(ctx, p))

		v := b.View()
		assert.Equal(t, 45*time.Minute, v.Remaining)
		assert.Equal(t, "45:00", v.Countdown)
		assert.True(t, v.Amount.Equal(decimal.NewFromInt(199)))
	})
}

// A pending payment with no URL anywhere is dropped from the monitor and the list.
func TestBanner_PurgesPaymentWithoutURL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	broken := pendingPayment("p1", now, "")

	pending := newPendingStore(t, broken)
	m := NewMonitor(new(MockGateway), pending, WithInterval(manual))
	defer m.Close()
	m.AddPayment("p1")

	b := NewBanner(m, pending)
	m.SetBanner(b)

	assert.False(t, b.Show(ctx, broken))

	assert.False(t, m.IsWatched("p1"))
	_, found, err := pending.Find(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, b.View().Visible)
	assert.Equal(t, model.ID(""), b.CurrentID())
}

func TestBanner_PurgeHidesOnlySamePayment(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	b := NewBanner(nil, newPendingStore(t), WithTick(manual))
	defer b.Hide()

	require.True(t, b.Show(ctx, pendingPayment("a", now, "https://pay/a")))
	assert.False(t, b.Show(ctx, pendingPayment("b", now, "")))
	assert.Equal(t, model.ID("a"), b.CurrentID())
}

// Showing B after A leaves only B, and A's countdown never fires.
func TestBanner_Exclusivity(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)

	a := pendingPayment("a", now.Add(-model.PaymentExpiryWindow+time.Second), "https://pay/a")
	bp := pendingPayment("b", now, "https://pay/b")
	pending := newPendingStore(t, a, bp)

	bus := event.NewBus()
	events := record(bus)
	m := NewMonitor(new(MockGateway), pending, WithBus(bus), WithInterval(manual), WithClock(clock.Now))
	defer m.Close()
	m.AddPayment("a")
	m.AddPayment("b")

	var mu sync.Mutex
	var views []BannerView
	b := NewBanner(m, pending, WithTick(5*time.Millisecond), WithBannerClock(clock.Now))
	m.SetBanner(b)
	b.OnChange(func(v BannerView) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	})
	defer b.Hide()

	require.True(t, b.Show(ctx, a))
	require.True(t, b.Show(ctx, bp))

	// A's deadline passes; only B is left to tick.
	clock.Advance(5 * time.Second)
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, model.ID("b"), b.CurrentID())
	assert.Equal(t, "https://pay/b", b.View().URL)
	assert.True(t, m.IsWatched("a"), "stale timer must not expire A")
	assert.Empty(t, events.All())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, views)
	seenB := false
	for _, v := range views {
		if v.PaymentID == "b" {
			seenB = true
			continue
		}
		assert.False(t, seenB, "A rendered after B was shown")
	}
	assert.True(t, seenB)
}

func TestBanner_CountdownExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)

	p := pendingPayment("p1", now.Add(-model.PaymentExpiryWindow+time.Minute), "https://pay/p1")
	pending := newPendingStore(t, p)
	bus := event.NewBus()
	events := record(bus)
	badges := &fakeBadges{}

	m := NewMonitor(new(MockGateway), pending, WithBus(bus), WithInterval(manual), WithClock(clock.Now))
	defer m.Close()
	m.AddPayment("p1")

	b := NewBanner(m, pending, WithTick(5*time.Millisecond), WithBannerClock(clock.Now), WithBadges(badges))
	m.SetBanner(b)

	require.True(t, b.Show(ctx, p))
	assert.Equal(t, "!", badges.Get("payments"))

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return !b.View().Visible
	}, time.Second, 5*time.Millisecond)

	assert.False(t, m.IsWatched("p1"))
	assert.Empty(t, badges.Get("payments"), "badge cleared on hide")

	lifecycle := events.Lifecycle()
	require.Len(t, lifecycle, 1)
	assert.Equal(t, event.PaymentCanceled, lifecycle[0].Kind)
	assert.True(t, lifecycle[0].Expired)

	_, found, err := pending.Find(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBanner_AlreadyExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	p := pendingPayment("p1", now.Add(-2*time.Hour), "https://pay/p1")
	pending := newPendingStore(t, p)

	t.Run("WatchedPaymentIsCanceled", func(t *testing.T) {
		bus := event.NewBus()
		events := record(bus)
		m := NewMonitor(new(MockGateway), pending, WithBus(bus), WithInterval(manual))
		defer m.Close()
		m.AddPayment("p1")

		b := NewBanner(m, pending)
		assert.False(t, b.Show(ctx, p))
		assert.False(t, m.IsWatched("p1"))
		require.Len(t, events.Lifecycle(), 1)
		assert.True(t, events.Lifecycle()[0].Expired)
	})

	t.Run("UnwatchedPaymentIsRemovedFromList", func(t *testing.T) {
		pending := newPendingStore(t, p)
		m := NewMonitor(new(MockGateway), pending, WithInterval(manual))
		b := NewBanner(m, pending)

		assert.False(t, b.Show(ctx, p))
		_, found, err := pending.Find(ctx, "p1")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestBanner_Hide(t *testing.T) {
	ctx := context.Background()
	badges := &fakeBadges{}
	b := NewBanner(nil, nil, WithTick(manual), WithBadges(badges))

	var hidden int
	b.OnChange(func(v BannerView) {
		if !v.Visible {
			hidden++
		}
	})

	assert.NotPanics(t, b.Hide)
	require.True(t, b.Show(ctx, pendingPayment("p1", time.Now(), "https://pay/p1")))
	b.Hide()
	b.Hide()

	assert.Equal(t, 1, hidden)
	assert.False(t, b.View().Visible)
	_, ok := b.Current()
	assert.False(t, ok)
	assert.Empty(t, badges.Get("payments"))
}

func TestBanner_RestoresPendingCountBadge(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	p1 := pendingPayment("p1", now, "https://pay/p1")
	p2 := pendingPayment("p2", now, "https://pay/p2")
	pending := newPendingStore(t, p1, p2)

	router := navigation.NewRouter(navigation.WithBadgeSources(pending, nil, nil))
	require.NoError(t, router.RefreshBadges(ctx))
	require.Equal(t, "2", router.Badge(navigation.ScreenPayments))

	b := NewBanner(nil, pending, WithTick(manual), WithBadges(router))

	t.Run("ShowThenHide", func(t *testing.T) {
		require.True(t, b.Show(ctx, p1))
		assert.Equal(t, "!", router.Badge(navigation.ScreenPayments))

		require.True(t, b.Show(ctx, p2))
		b.Hide()
		assert.Equal(t, "2", router.Badge(navigation.ScreenPayments))
	})

	t.Run("FresherCountSurvivesHide", func(t *testing.T) {
		require.True(t, b.Show(ctx, p1))
		_, err := pending.Remove(ctx, "p2")
		require.NoError(t, err)
		require.NoError(t, router.RefreshBadges(ctx))

		b.Hide()
		assert.Equal(t, "1", router.Badge(navigation.ScreenPayments))
	})
}

func TestBanner_Enrichment(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("FromServiceLookup", func(t *testing.T) {
		services := new(MockServices)
		services.On("GetService", mock.Anything, model.ID("3")).
			Return(&model.Service{ID: "3", Name: "Квартал", Duration: 90, Price: decimal.NewFromInt(499)}, nil)

		b := NewBanner(nil, nil, WithServices(services), WithTick(manual))
		defer b.Hide()

		p := pendingPayment("p1", now, "https://pay/p1")
		p.ServiceID = "3"
		require.True(t, b.Show(ctx, p))

		v := b.View()
		assert.Equal(t, "Квартал", v.ServiceName)
		assert.Equal(t, 90, v.Duration)
		assert.Equal(t, "499", v.Amount.String())
	})

	t.Run("FallsBackToDescription", func(t *testing.T) {
		services := new(MockServices)
		services.On("GetService", mock.Anything, model.ID("3")).Return(nil, errors.New("offline"))

		b := NewBanner(nil, nil, WithServices(services), WithTick(manual))
		defer b.Hide()

		p := pendingPayment("p1", now, "https://pay/p1")
		p.ServiceID = "3"
		p.Description = "Dragon VPN - 30 дней"
		require.True(t, b.Show(ctx, p))

		v := b.View()
		assert.Equal(t, "Dragon VPN", v.ServiceName)
		assert.Equal(t, 30, v.Duration)
		assert.True(t, v.Amount.IsZero())
	})
}
