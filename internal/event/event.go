// Package event is the in-process bus carrying payment lifecycle and
// refresh notifications from the monitor to screens and navigation.
package event

import (
	"time"

	"dragonvpn-app/internal/model"
)

type Kind string

const (
	PaymentSucceeded Kind = "payment.succeeded"
	PaymentCanceled  Kind = "payment.canceled"
	// PaymentDropped is diagnostic only: the payment left the watch set
	// without reaching a terminal status.
	PaymentDropped      Kind = "payment.dropped"
	RefreshRequested    Kind = "data.refresh"
	SessionUnauthorized Kind = "session.unauthorized"
)

type DropReason string

const (
	DropNotFound         DropReason = "not_found"
	DropRetriesExhausted DropReason = "retries_exhausted"
	DropInvalid          DropReason = "invalid"
)

type Event struct {
	Kind      Kind
	PaymentID model.ID
	Payment   *model.Payment
	// Expired is set on PaymentCanceled when the cancellation was derived
	// locally from the expiry window.
	Expired bool
	Reason  DropReason
	At      time.Time
}

// IsLifecycle reports whether e is a terminal payment notification.
func (e Event) IsLifecycle() bool {
	return e.Kind == PaymentSucceeded || e.Kind == PaymentCanceled
}
