// Package payment keeps local payment state in step with the gateway: the
// Monitor polls watched payments until they resolve and the Banner shows
// the one payment the user should act on.
package payment

import (
	"context"

	"dragonvpn-app/internal/host"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/navigation"
)

// Gateway fetches the authoritative state of a payment. *api.Client
// satisfies it.
type Gateway interface {
	GetPayment(ctx context.Context, id model.ID) (*model.Payment, error)
}

// PendingStore is the locally cached list of unresolved payments.
// *cache.PendingPayments satisfies it.
type PendingStore interface {
	IDs(ctx context.Context) ([]model.ID, error)
	Find(ctx context.Context, id model.ID) (*model.Payment, bool, error)
	Remove(ctx context.Context, id model.ID) (bool, error)
}

// Notifier is the host feedback the monitor gives on success.
type Notifier interface {
	Haptic(kind host.HapticKind)
	Toast(ctx context.Context, level host.ToastLevel, text string) error
}

// ServiceLookup resolves the tier a payment is for.
type ServiceLookup interface {
	GetService(ctx context.Context, id model.ID) (*model.Service, error)
}

// Dropper is the monitor as seen by the banner. RemovePayment stops
// polling silently; ExpirePayment resolves the payment as canceled.
type Dropper interface {
	RemovePayment(id model.ID) bool
	ExpirePayment(ctx context.Context, id model.ID) bool
}

type BadgeSetter interface {
	Badge(s navigation.Screen) string
	SetBadge(s navigation.Screen, value string)
	ClearBadge(s navigation.Screen)
}

// bannerSlot is what the monitor needs from the banner.
type bannerSlot interface {
	CurrentID() model.ID
	Hide()
}

const successToast = "Оплата прошла успешно! Подписка активирована"
