package screen

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/payment"
	"dragonvpn-app/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var statusText = map[model.PaymentStatus]string{
	model.PaymentPending:           "Ожидает оплаты",
	model.PaymentWaitingForCapture: "Обрабатывается",
	model.PaymentSucceeded:         "Оплачен",
	model.PaymentCanceled:          "Отменён",
}

type PaymentItem struct {
	ID          model.ID
	Status      model.PaymentStatus
	StatusText  string
	Amount      decimal.Decimal
	AmountText  string
	Description string
	CreatedAt   time.Time
	URL         string
	// Actionable payments can still be paid through URL.
	Actionable bool
	Refundable bool
}

type Payments struct {
	deps *Deps
	view view[[]PaymentItem]

	mu sync.Mutex
	// restore is the monitor interval to put back on Leave; zero while the
	// screen is not entered.
	restore time.Duration
}

func NewPayments(deps *Deps) *Payments {
	return &Payments{deps: deps}
}

// Enter polls at ScreenInterval while the history is on screen. Leave puts
// back the interval that was in effect before.
func (p *Payments) Enter(ctx context.Context) error {
	if m := p.deps.Monitor; m != nil {
		p.mu.Lock()
		if p.restore == 0 {
			p.restore = m.Interval()
		}
		p.mu.Unlock()
		m.SetInterval(payment.ScreenInterval)
		m.Start(ctx)
	}
	_, err := p.Load(ctx)
	return err
}

func (p *Payments) Leave(ctx context.Context) {
	m := p.deps.Monitor
	if m == nil {
		return
	}
	p.mu.Lock()
	prev := p.restore
	p.restore = 0
	p.mu.Unlock()
	if prev == 0 {
		prev = payment.DefaultInterval
	}
	m.SetInterval(prev)
}

func (p *Payments) View() ([]PaymentItem, bool) {
	return p.view.load()
}

// Load returns the payment history, newest first.
func (p *Payments) Load(ctx context.Context) ([]PaymentItem, error) {
	userID, err := p.deps.userID()
	if err != nil {
		return nil, err
	}

	list, err := p.deps.API.ListUserPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt.Time)
	})

	now := p.deps.now()
	items := make([]PaymentItem, 0, len(list))
	for _, pay := range list {
		items = append(items, paymentItem(pay, now))
	}

	p.view.store(items)
	return items, nil
}

func (p *Payments) Refund(ctx context.Context, id model.ID) (*model.Payment, error) {
	refunded, err := p.deps.API.RefundPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", id, err)
	}
	logger.FromCtx(ctx).Info("payment refunded", zap.String("payment_id", id.String()))
	invalidate(ctx, p.deps.Cache, cache.KeySubscriptions)
	p.deps.refresh()
	return refunded, nil
}

// Resume puts a pending payment from the history back in the banner and
// the watch set.
func (p *Payments) Resume(ctx context.Context, id model.ID) (*model.Payment, error) {
	pay, err := p.deps.API.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	if pay.Status != model.PaymentPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, id, pay.Status)
	}

	shown, err := p.deps.track(ctx, *pay)
	if err != nil {
		return nil, err
	}
	if !shown {
		return nil, fmt.Errorf("%w: %s", ErrNotPayable, id)
	}
	return pay, nil
}

func paymentItem(pay model.Payment, now time.Time) PaymentItem {
	amount := pay.DisplayAmount()
	item := PaymentItem{
		ID:          pay.ID,
		Status:      pay.Status,
		StatusText:  statusText[pay.Status],
		Amount:      amount,
		AmountText:  utils.FormatPrice(amount),
		Description: pay.Description,
		CreatedAt:   pay.CreatedAt.Time,
		URL:         pay.ActionURL(),
		Refundable:  pay.Status == model.PaymentSucceeded,
	}
	if item.StatusText == "" {
		item.StatusText = string(pay.Status)
	}
	item.Actionable = pay.Status == model.PaymentPending && item.URL != "" && !pay.Expired(now)
	return item
}
