package screen

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"dragonvpn-app/internal/cache"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/utils"
)

type ReferralView struct {
	Code      string
	Link      string
	Invited   int
	Paid      int
	BonusDays int
	BonusText string
	Referrals []model.Referral
}

type Referrals struct {
	deps *Deps
	bot  string
	view view[ReferralView]
}

// NewReferrals builds invite links against the bot username bot.
func NewReferrals(deps *Deps, bot string) *Referrals {
	return &Referrals{deps: deps, bot: bot}
}

func (r *Referrals) Enter(ctx context.Context) error {
	_, err := r.Load(ctx)
	return err
}

func (r *Referrals) Leave(ctx context.Context) {}

func (r *Referrals) View() (ReferralView, bool) {
	return r.view.load()
}

func (r *Referrals) Load(ctx context.Context) (ReferralView, error) {
	info, err := cached(ctx, r.deps.Cache, cache.KeyReferral, func(ctx context.Context) (*model.ReferralInfo, error) {
		return r.deps.API.GetReferralInfo(ctx)
	})
	if err != nil {
		return ReferralView{}, fmt.Errorf("load referrals: %w", err)
	}
	if info == nil {
		info = &model.ReferralInfo{}
	}

	v := ReferralView{
		Code:      info.Code,
		Link:      InviteLink(r.bot, info.Code),
		Invited:   info.InvitedCount,
		Paid:      info.PaidCount,
		BonusDays: info.BonusDays,
		BonusText: utils.FormatDays(info.BonusDays),
		Referrals: info.Referrals,
	}
	if v.Link == "" {
		v.Link = info.Link
	}

	r.view.store(v)
	return v, nil
}

// InviteLink opens the mini app with the inviter's code as start param.
// It returns "" when either part is missing.
func InviteLink(bot, code string) string {
	bot = strings.TrimPrefix(strings.TrimSpace(bot), "@")
	if bot == "" || code == "" {
		return ""
	}
	return "https://t.me/" + bot + "?startapp=" + url.QueryEscape("ref_"+code)
}
