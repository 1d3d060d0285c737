package model

import "github.com/shopspring/decimal"

type User struct {
	ID           ID              `json:"id"`
	TelegramID   int64           `json:"telegram_id"`
	Username     string          `json:"username,omitempty"`
	FirstName    string          `json:"first_name,omitempty"`
	ReferralCode string          `json:"referral_code,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
}

// TelegramUser is the user object carried in WebApp init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Referral struct {
	UserID   ID        `json:"user_id"`
	Username string    `json:"username,omitempty"`
	JoinedAt Timestamp `json:"joined_at"`
	Paid     bool      `json:"paid"`
}

type ReferralInfo struct {
	Code         string     `json:"code"`
	Link         string     `json:"link,omitempty"`
	InvitedCount int        `json:"invited_count"`
	PaidCount    int        `json:"paid_count"`
	BonusDays    int        `json:"bonus_days"`
	Referrals    []Referral `json:"referrals,omitempty"`
}
