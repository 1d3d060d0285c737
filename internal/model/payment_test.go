package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayment_Decode(t *testing.T) {
	body := `{
		"id": 17,
		"status": "pending",
		"amount": "199.00",
		"created_at": "2024-05-01T10:00:00",
		"confirmation": {"type": "redirect", "confirmation_url": "https://pay/17"}
	}`

	var p Payment
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, ID("17"), p.ID)
	assert.Equal(t, PaymentPending, p.Status)
	assert.True(t, decimal.NewFromInt(199).Equal(p.Amount))
	assert.Nil(t, p.ExpiresAt)

	p.NormalizeURLs()
	assert.Equal(t, "https://pay/17", p.PaymentURL)
	assert.Equal(t, "https://pay/17", p.URL)
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.True(t, PaymentSucceeded.IsTerminal())
	assert.True(t, PaymentCanceled.IsTerminal())
	assert.False(t, PaymentPending.IsTerminal())
	assert.False(t, PaymentWaitingForCapture.IsTerminal())
}

func TestPayment_NormalizeURLs(t *testing.T) {
	t.Run("ReceiptLinkPromoted", func(t *testing.T) {
		p := Payment{ReceiptLink: "https://receipt/1"}
		p.NormalizeURLs()
		assert.Equal(t, "https://receipt/1", p.PaymentURL)
		assert.Equal(t, "https://receipt/1", p.URL)
	})

	t.Run("ExistingPaymentURLKept", func(t *testing.T) {
		p := Payment{PaymentURL: "https://pay/1", ReceiptLink: "https://receipt/1"}
		p.NormalizeURLs()
		assert.Equal(t, "https://pay/1", p.PaymentURL)
		assert.Equal(t, "https://pay/1", p.URL)
	})

	t.Run("NothingToPromote", func(t *testing.T) {
		p := Payment{}
		p.NormalizeURLs()
		assert.Equal(t, "", p.ActionURL())
	})
}

func TestPayment_ActionURLPriority(t *testing.T) {
	p := Payment{URL: "https://url", ReceiptLink: "https://receipt"}
	assert.Equal(t, "https://url", p.ActionURL())

	p.PaymentURL = "https://payment"
	assert.Equal(t, "https://payment", p.ActionURL())

	p = Payment{ReceiptLink: "https://receipt"}
	assert.Equal(t, "https://receipt", p.ActionURL())
}

func TestPayment_Deadline(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("DerivedWindow", func(t *testing.T) {
		p := Payment{CreatedAt: NewTimestamp(created)}
		deadline, ok := p.Deadline()
		require.True(t, ok)
		assert.Equal(t, created.Add(time.Hour), deadline)
	})

	t.Run("ExplicitExpiryWins", func(t *testing.T) {
		explicit := NewTimestamp(created.Add(10 * time.Minute))
		p := Payment{CreatedAt: NewTimestamp(created), ExpiresAt: &explicit}
		deadline, ok := p.Deadline()
		require.True(t, ok)
		assert.Equal(t, explicit.Time, deadline)
	})

	t.Run("Unknown", func(t *testing.T) {
		p := Payment{}
		_, ok := p.Deadline()
		assert.False(t, ok)
		assert.False(t, p.Expired(time.Now()))
	})
}

func TestPayment_RemainingIsMonotonic(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := Payment{CreatedAt: NewTimestamp(created)}

	prev := time.Duration(1<<62 - 1)
	for s := 0; s < 3600; s += 300 {
		left, ok := p.Remaining(created.Add(time.Duration(s) * time.Second))
		require.True(t, ok)
		assert.Less(t, left, prev)
		prev = left
	}

	left, _ := p.Remaining(created.Add(3600 * time.Second))
	assert.Equal(t, time.Duration(0), left)
	assert.True(t, p.Expired(created.Add(3600*time.Second)))
	assert.False(t, p.Expired(created.Add(3599*time.Second)))

	left, _ = p.Remaining(created.Add(2 * time.Hour))
	assert.Equal(t, time.Duration(0), left)
}

func TestPayment_DisplayAmount(t *testing.T) {
	p := Payment{Price: decimal.NewFromInt(299)}
	assert.True(t, decimal.NewFromInt(299).Equal(p.DisplayAmount()))

	p.Amount = decimal.NewFromInt(199)
	assert.True(t, decimal.NewFromInt(199).Equal(p.DisplayAmount()))

	assert.True(t, (&Payment{}).DisplayAmount().IsZero())
}

func TestSubscription_DaysLeft(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := Subscription{IsActive: true, EndDate: NewTimestamp(now.Add(50 * time.Hour))}

	assert.Equal(t, 3, s.DaysLeft(now))
	assert.True(t, s.Active(now))
	assert.False(t, s.Active(now.Add(51*time.Hour)))
	assert.Equal(t, 0, s.DaysLeft(now.Add(51*time.Hour)))
}
