// Package host abstracts the Telegram surface the client runs inside:
// launch parameters, haptics, toasts and reloads.
package host

import (
	"context"
	"errors"
	"strings"
	"time"

	"dragonvpn-app/internal/model"
)

var ErrNotReady = errors.New("host is not ready")

type HapticKind string

const (
	HapticSuccess HapticKind = "success"
	HapticWarning HapticKind = "warning"
	HapticError   HapticKind = "error"
	HapticImpact  HapticKind = "impact"
)

type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

const referralPrefix = "ref_"

// Session is what the host knows about the launch.
type Session struct {
	InitData   string
	User       *model.TelegramUser
	StartParam string
	QueryID    string
	AuthDate   time.Time
}

// ReferralCode returns the inviter's code when the app was opened through
// a referral link.
func (s Session) ReferralCode() string {
	if !strings.HasPrefix(s.StartParam, referralPrefix) {
		return ""
	}
	return strings.TrimPrefix(s.StartParam, referralPrefix)
}

type Host interface {
	// Ready is closed once the host can serve the other calls.
	Ready() <-chan struct{}
	Session() Session
	Haptic(kind HapticKind)
	Toast(ctx context.Context, level ToastLevel, text string) error
	Reload(ctx context.Context) error
}
