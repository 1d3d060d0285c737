package screen

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	createRetries    = 2
	createRetryDelay = 500 * time.Millisecond
)

type ServiceItem struct {
	ID           model.ID
	Name         string
	Description  string
	Duration     int
	DurationText string
	Price        decimal.Decimal
	PriceText    string
	Free         bool
}

type SubscriptionItem struct {
	ID          model.ID
	ServiceName string
	EndsAt      time.Time
	DaysLeft    int
	DaysText    string
	Active      bool
}

type SubscriptionView struct {
	Services      []ServiceItem
	Subscriptions []SubscriptionItem
	// Active is the subscription that ends last, if any is active.
	Active *SubscriptionItem
}

// PurchaseResult is either an activated free subscription or a payment the
// user still has to complete.
type PurchaseResult struct {
	Subscription *model.Subscription
	Payment      *model.Payment
	URL          string
	Shown        bool
}

type Subscription struct {
	deps *Deps
	view view[SubscriptionView]
}

func NewSubscription(deps *Deps) *Subscription {
	return &Subscription{deps: deps}
}

func (s *Subscription) Enter(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

func (s *Subscription) Leave(ctx context.Context) {}

func (s *Subscription) View() (SubscriptionView, bool) {
	return s.view.load()
}

// Invalidate forgets the cached subscriptions so the next Load refetches.
func (s *Subscription) Invalidate(ctx context.Context) {
	invalidate(ctx, s.deps.Cache, cache.KeySubscriptions)
}

func (s *Subscription) Load(ctx context.Context) (SubscriptionView, error) {
	userID, err := s.deps.userID()
	if err != nil {
		return SubscriptionView{}, err
	}

	services, err := s.services(ctx)
	if err != nil {
		return SubscriptionView{}, fmt.Errorf("load services: %w", err)
	}
	subs, err := subscriptions(ctx, s.deps, userID)
	if err != nil {
		return SubscriptionView{}, fmt.Errorf("load subscriptions: %w", err)
	}

	now := s.deps.now()
	var v SubscriptionView
	for _, svc := range services {
		v.Services = append(v.Services, serviceItem(svc))
	}
	sort.SliceStable(v.Services, func(i, j int) bool {
		return v.Services[i].Duration < v.Services[j].Duration
	})

	for _, sub := range subs {
		item := subscriptionItem(sub, now)
		v.Subscriptions = append(v.Subscriptions, item)
		if !item.Active {
			continue
		}
		if v.Active == nil || laterEnd(item, *v.Active) {
			active := item
			v.Active = &active
		}
	}

	s.view.store(v)
	return v, nil
}

// Purchase buys serviceID. Free tiers are activated directly, paid ones
// create a payment that is cached, polled and shown in the banner.
func (s *Subscription) Purchase(ctx context.Context, serviceID model.ID) (*PurchaseResult, error) {
	userID, err := s.deps.userID()
	if err != nil {
		return nil, err
	}
	svc, err := s.service(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("user_id", userID.String()),
		zap.String("service_id", serviceID.String()),
	)

	if svc.Price.IsZero() {
		sub, err := s.deps.API.CreateSubscription(ctx, userID, serviceID)
		if err != nil {
			return nil, fmt.Errorf("activate %s: %w", svc.Name, err)
		}
		log.Info("free subscription activated")
		s.Invalidate(ctx)
		s.deps.refresh()
		return &PurchaseResult{Subscription: sub}, nil
	}

	req := api.PaymentRequest{
		UserID:      userID,
		ServiceID:   serviceID,
		Description: fmt.Sprintf("%s - %s", svc.Name, utils.FormatDays(svc.Duration)),
	}
	key := uuid.NewString()
	p, err := api.Retry(ctx, func(ctx context.Context) (*model.Payment, error) {
		return s.deps.API.CreatePaymentWithKey(ctx, req, key)
	}, createRetries, createRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	p.ServiceID = serviceID
	if p.ServiceName == "" {
		p.ServiceName = svc.Name
	}
	if p.ServiceDuration == 0 {
		p.ServiceDuration = svc.Duration
	}

	shown, err := s.deps.track(ctx, *p)
	if err != nil {
		return nil, err
	}
	log.Info("payment created", zap.String("payment_id", p.ID.String()), zap.Bool("shown", shown))
	return &PurchaseResult{Payment: p, URL: p.ActionURL(), Shown: shown}, nil
}

// PurchaseGift buys serviceID as a gift. The gift's payment is tracked like
// any other.
func (s *Subscription) PurchaseGift(ctx context.Context, serviceID model.ID) (*api.GiftOrder, error) {
	userID, err := s.deps.userID()
	if err != nil {
		return nil, err
	}

	order, err := s.deps.API.CreateGift(ctx, userID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("create gift: %w", err)
	}

	if order.Payment != nil && order.Payment.Status == model.PaymentPending {
		if _, err := s.deps.track(ctx, *order.Payment); err != nil {
			return nil, err
		}
	}
	logger.FromCtx(ctx).Info("gift created",
		zap.String("gift_id", order.Gift.ID.String()),
		zap.String("service_id", serviceID.String()),
	)
	return order, nil
}

func (s *Subscription) ActivateGift(ctx context.Context, giftID model.ID) (*model.Subscription, error) {
	userID, err := s.deps.userID()
	if err != nil {
		return nil, err
	}

	sub, err := s.deps.API.ActivateGift(ctx, giftID, userID)
	if err != nil {
		return nil, fmt.Errorf("activate gift: %w", err)
	}
	s.Invalidate(ctx)
	s.deps.refresh()
	return sub, nil
}

func (s *Subscription) services(ctx context.Context) ([]model.Service, error) {
	return cached(ctx, s.deps.Cache, cache.KeyServices, s.deps.API.ListServices)
}

// service finds id in the cached catalogue before asking the backend.
func (s *Subscription) service(ctx context.Context, id model.ID) (*model.Service, error) {
	if list, err := s.services(ctx); err == nil {
		for i := range list {
			if list[i].ID == id {
				return &list[i], nil
			}
		}
	}

	svc, err := s.deps.API.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnknownService, id, err)
	}
	return svc, nil
}

func serviceItem(svc model.Service) ServiceItem {
	item := ServiceItem{
		ID:           svc.ID,
		Name:         svc.Name,
		Description:  svc.Description,
		Duration:     svc.Duration,
		DurationText: utils.FormatDays(svc.Duration),
		Price:        svc.Price,
		Free:         svc.Price.IsZero(),
	}
	if item.Free {
		item.PriceText = "Бесплатно"
	} else {
		item.PriceText = utils.FormatPrice(svc.Price)
	}
	return item
}

func subscriptionItem(sub model.Subscription, now time.Time) SubscriptionItem {
	item := SubscriptionItem{
		ID:          sub.ID,
		ServiceName: sub.ServiceName,
		EndsAt:      sub.EndDate.Time,
		Active:      sub.Active(now),
	}
	if !item.Active {
		item.DaysText = "Истекла"
		return item
	}
	if sub.EndDate.IsZero() {
		item.DaysText = "Бессрочно"
		return item
	}
	item.DaysLeft = sub.DaysLeft(now)
	item.DaysText = "Осталось " + utils.FormatDays(item.DaysLeft)
	return item
}

// laterEnd reports whether a outlives b. An open-ended subscription
// outlives everything.
func laterEnd(a, b SubscriptionItem) bool {
	if a.EndsAt.IsZero() {
		return !b.EndsAt.IsZero()
	}
	if b.EndsAt.IsZero() {
		return false
	}
	return a.EndsAt.After(b.EndsAt)
}
