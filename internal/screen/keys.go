package screen

import (
	"context"
	"fmt"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/model"

	"go.uber.org/zap"
)

// keyFetchConcurrency bounds the per-subscription key requests.
const keyFetchConcurrency = 2

type KeyItem struct {
	ID             model.ID
	SubscriptionID model.ID
	ServiceName    string
	ServerName     string
	Protocol       string
	Connection     string
}

type KeysView struct {
	Keys []KeyItem
	// Failed counts subscriptions whose keys could not be loaded.
	Failed int
}

type Keys struct {
	deps *Deps
	view view[KeysView]
}

func NewKeys(deps *Deps) *Keys {
	return &Keys{deps: deps}
}

func (k *Keys) Enter(ctx context.Context) error {
	_, err := k.Load(ctx)
	return err
}

func (k *Keys) Leave(ctx context.Context) {}

func (k *Keys) View() (KeysView, bool) {
	return k.view.load()
}

// Load fetches the keys of every active subscription. A subscription whose
// keys fail to load is counted in Failed; Load only errors when all of
// them fail.
func (k *Keys) Load(ctx context.Context) (KeysView, error) {
	userID, err := k.deps.userID()
	if err != nil {
		return KeysView{}, err
	}

	subs, err := subscriptions(ctx, k.deps, userID)
	if err != nil {
		return KeysView{}, fmt.Errorf("load subscriptions: %w", err)
	}

	now := k.deps.now()
	var active []model.Subscription
	var requests []api.BatchRequest[[]model.VPNKey]
	for _, sub := range subs {
		if !sub.Active(now) {
			continue
		}
		active = append(active, sub)
		subID := sub.ID
		requests = append(requests, func(ctx context.Context) ([]model.VPNKey, error) {
			return k.deps.API.ListUserKeys(ctx, userID, subID)
		})
	}

	var v KeysView
	if len(requests) == 0 {
		k.view.store(v)
		return v, nil
	}

	results, err := api.Batch(ctx, requests, api.BatchOptions{Concurrent: keyFetchConcurrency})
	if err != nil {
		return KeysView{}, fmt.Errorf("load keys: %w", err)
	}

	var firstErr error
	for _, res := range results {
		sub := active[res.Index]
		if !res.Success {
			v.Failed++
			if firstErr == nil {
				firstErr = res.Err
			}
			logger.FromCtx(ctx).Warn("failed to load keys",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(res.Err),
			)
			continue
		}
		for _, key := range res.Value {
			v.Keys = append(v.Keys, KeyItem{
				ID:             key.ID,
				SubscriptionID: sub.ID,
				ServiceName:    sub.ServiceName,
				ServerName:     key.ServerName,
				Protocol:       key.Protocol,
				Connection:     key.ConnectionString(),
			})
		}
	}

	if v.Failed == len(results) {
		return KeysView{}, fmt.Errorf("load keys: %w", firstErr)
	}
	k.view.store(v)
	return v, nil
}
