package screen

import (
	"context"
	"testing"

	"dragonvpn-app/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInviteLink(t *testing.T) {
	tests := []struct {
		name string
		bot  string
		code string
		want string
	}{
		{"Plain", "dragon_vpn_bot", "ABC123", "https://t.me/dragon_vpn_bot?startapp=ref_ABC123"},
		{"AtPrefix", "@dragon_vpn_bot", "ABC123", "https://t.me/dragon_vpn_bot?startapp=ref_ABC123"},
		{"NoCode", "dragon_vpn_bot", "", ""},
		{"NoBot", "", "ABC123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InviteLink(tt.bot, tt.code))
		})
	}
}

func TestReferrals_Load(t *testing.T) {
	ctx := context.Background()
	info := &model.ReferralInfo{
		Code:         "ABC123",
		Link:         "https://t.me/other_bot?start=ABC123",
		InvitedCount: 5,
		PaidCount:    2,
		BonusDays:    21,
		Referrals:    []model.Referral{{UserID: "7", Username: "friend", Paid: true}},
	}

	t.Run("BuildsInviteLink", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("GetReferralInfo", mock.Anything).Return(info, nil).Once()

		r := NewReferrals(f.deps, "dragon_vpn_bot")
		require.NoError(t, r.Enter(ctx))

		v, ok := r.View()
		require.True(t, ok)
		assert.Equal(t, "https://t.me/dragon_vpn_bot?startapp=ref_ABC123", v.Link)
		assert.Equal(t, 5, v.Invited)
		assert.Equal(t, 2, v.Paid)
		assert.Equal(t, "21 день", v.BonusText)
		require.Len(t, v.Referrals, 1)

		_, err := r.Load(ctx)
		require.NoError(t, err)
		f.api.AssertNumberOfCalls(t, "GetReferralInfo", 1)
	})

	t.Run("FallsBackToBackendLink", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("GetReferralInfo", mock.Anything).Return(info, nil)

		v, err := NewReferrals(f.deps, "").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, info.Link, v.Link)
	})
}
