package cache

import (
	"context"
	"testing"

	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingPayments(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	pending := NewPendingPayments(New(store))

	t.Run("EmptyByDefault", func(t *testing.T) {
		ids, err := pending.IDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("AddKeepsOrderAndReplacesInPlace", func(t *testing.T) {
		require.NoError(t, pending.Add(ctx, model.Payment{ID: "p1", Status: model.PaymentPending}))
		require.NoError(t, pending.Add(ctx, model.Payment{ID: "p2", Status: model.PaymentPending}))
		require.NoError(t, pending.Add(ctx, model.Payment{ID: "p1", Status: model.PaymentWaitingForCapture}))

		list, err := pending.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, model.ID("p1"), list[0].ID)
		assert.Equal(t, model.PaymentWaitingForCapture, list[0].Status)
		assert.Equal(t, model.ID("p2"), list[1].ID)
	})

	t.Run("Find", func(t *testing.T) {
		p, ok, err := pending.Find(ctx, "p2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, model.ID("p2"), p.ID)

		_, ok, err = pending.Find(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Remove", func(t *testing.T) {
		removed, err := pending.Remove(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = pending.Remove(ctx, "p1")
		require.NoError(t, err)
		assert.False(t, removed)

		ids, _ := pending.IDs(ctx)
		assert.Equal(t, []model.ID{"p2"}, ids)
	})

	t.Run("ReplaceAndNeverPersisted", func(t *testing.T) {
		require.NoError(t, pending.Replace(ctx, []model.Payment{{ID: "p9"}}))
		ids, _ := pending.IDs(ctx)
		assert.Equal(t, []model.ID{"p9"}, ids)

		keys, err := store.Keys(ctx, Namespace)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
