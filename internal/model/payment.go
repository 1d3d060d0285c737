package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentExpiryWindow is how long a created payment stays payable when the
// backend does not send an explicit expires_at.
const PaymentExpiryWindow = time.Hour

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentWaitingForCapture PaymentStatus = "waiting_for_capture"
	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentCanceled          PaymentStatus = "canceled"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentCanceled
}

type Confirmation struct {
	Type            string `json:"type,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type Payment struct {
	ID              ID              `json:"id"`
	UserID          ID              `json:"user_id,omitempty"`
	ServiceID       ID              `json:"service_id,omitempty"`
	Status          PaymentStatus   `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency,omitempty"`
	Description     string          `json:"description,omitempty"`
	PaymentURL      string          `json:"payment_url,omitempty"`
	URL             string          `json:"url,omitempty"`
	ConfirmationURL string          `json:"confirmation_url,omitempty"`
	Confirmation    *Confirmation   `json:"confirmation,omitempty"`
	ReceiptLink     string          `json:"receipt_link,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
	ExpiresAt       *Timestamp      `json:"expires_at,omitempty"`
	ServiceName     string          `json:"service_name,omitempty"`
	ServiceDuration int             `json:"service_duration,omitempty"`
}

// NormalizeURLs fills the canonical payment_url and url fields from the
// aliases the backend may use instead.
func (p *Payment) NormalizeURLs() {
	if p.PaymentURL == "" {
		switch {
		case p.ConfirmationURL != "":
			p.PaymentURL = p.ConfirmationURL
		case p.Confirmation != nil && p.Confirmation.ConfirmationURL != "":
			p.PaymentURL = p.Confirmation.ConfirmationURL
		case p.URL != "":
			p.PaymentURL = p.URL
		case p.ReceiptLink != "":
			p.PaymentURL = p.ReceiptLink
		}
	}
	if p.URL == "" {
		p.URL = p.PaymentURL
	}
}

// ActionURL returns the first usable link in priority order, or "".
func (p *Payment) ActionURL() string {
	for _, u := range []string{p.PaymentURL, p.URL, p.ReceiptLink} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Deadline is expires_at when present, otherwise created_at plus the
// expiry window. ok is false when neither timestamp is known.
func (p *Payment) Deadline() (deadline time.Time, ok bool) {
	if p.ExpiresAt != nil && !p.ExpiresAt.IsZero() {
		return p.ExpiresAt.Time, true
	}
	if p.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return p.CreatedAt.Add(PaymentExpiryWindow), true
}

// Remaining is the time left until Deadline, clamped at zero.
func (p *Payment) Remaining(now time.Time) (time.Duration, bool) {
	deadline, ok := p.Deadline()
	if !ok {
		return 0, false
	}
	left := deadline.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

func (p *Payment) Expired(now time.Time) bool {
	deadline, ok := p.Deadline()
	return ok && !now.Before(deadline)
}

func (p *Payment) DisplayAmount() decimal.Decimal {
	if !p.Amount.IsZero() {
		return p.Amount
	}
	return p.Price
}
