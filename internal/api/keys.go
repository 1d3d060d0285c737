package api

import (
	"context"
	"net/url"

	"dragonvpn-app/internal/model"
)

func (c *Client) ListUserKeys(ctx context.Context, userID, subscriptionID model.ID) ([]model.VPNKey, error) {
	q := url.Values{"user_id": {userID.String()}}
	if subscriptionID != "" {
		q.Set("subscription_id", subscriptionID.String())
	}

	var out List[model.VPNKey]
	if err := c.get(ctx, "/keys/user-keys?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
