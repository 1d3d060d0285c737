package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	t.Run("Missing", func(t *testing.T) {
		_, ok, err := m.Get(ctx, "dragon_vpn_settings")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "dragon_vpn_settings", `{"lang":"ru"}`))

		v, ok, err := m.Get(ctx, "dragon_vpn_settings")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"lang":"ru"}`, v)

		require.NoError(t, m.Delete(ctx, "dragon_vpn_settings"))
		_, ok, _ = m.Get(ctx, "dragon_vpn_settings")
		assert.False(t, ok)
	})

	t.Run("KeysByPrefix", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "dragon_vpn_b", "1"))
		require.NoError(t, m.Set(ctx, "dragon_vpn_a", "1"))
		require.NoError(t, m.Set(ctx, "other_app", "1"))

		keys, err := m.Keys(ctx, "dragon_vpn_")
		require.NoError(t, err)
		assert.Equal(t, []string{"dragon_vpn_a", "dragon_vpn_b"}, keys)
	})
}
