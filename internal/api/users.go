package api

import (
	"context"

	"dragonvpn-app/internal/model"
)

type UserRequest struct {
	TelegramID   int64  `json:"telegram_id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
}

func NewUserRequest(tg model.TelegramUser, referralCode string) UserRequest {
	return UserRequest{
		TelegramID:   tg.ID,
		Username:     tg.Username,
		FirstName:    tg.FirstName,
		LastName:     tg.LastName,
		LanguageCode: tg.LanguageCode,
		ReferralCode: referralCode,
	}
}

// GetOrCreateUser registers the Telegram user on first launch and returns
// the existing record afterwards.
func (c *Client) GetOrCreateUser(ctx context.Context, req UserRequest) (*model.User, error) {
	var out entity[model.User]
	if err := c.post(ctx, "/user/user", req, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

func (c *Client) GetReferralInfo(ctx context.Context) (*model.ReferralInfo, error) {
	var out entity[model.ReferralInfo]
	if err := c.get(ctx, "/user/referral/me", &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}
