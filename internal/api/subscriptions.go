package api

import (
	"context"
	"net/url"

	"dragonvpn-app/internal/model"
)

type subscriptionRequest struct {
	UserID    model.ID `json:"user_id"`
	ServiceID model.ID `json:"service_id"`
}

// CreateSubscription activates a tier without payment. Only free tiers are
// accepted by the backend; paid tiers go through CreatePayment.
func (c *Client) CreateSubscription(ctx context.Context, userID, serviceID model.ID) (*model.Subscription, error) {
	var out entity[model.Subscription]
	if err := c.post(ctx, "/subscription", subscriptionRequest{UserID: userID, ServiceID: serviceID}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

func (c *Client) ListSubscriptions(ctx context.Context, userID model.ID) ([]model.Subscription, error) {
	endpoint := "/subscriptions"
	if userID != "" {
		endpoint += "?" + url.Values{"user_id": {userID.String()}}.Encode()
	}

	var out List[model.Subscription]
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GiftOrder is a purchased gift together with the payment that pays for it.
type GiftOrder struct {
	Gift    model.Gift     `json:"gift"`
	Payment *model.Payment `json:"payment,omitempty"`
}

func (c *Client) CreateGift(ctx context.Context, userID, serviceID model.ID) (*GiftOrder, error) {
	var out entity[GiftOrder]
	if err := c.post(ctx, "/subscription/gifts", subscriptionRequest{UserID: userID, ServiceID: serviceID}, &out); err != nil {
		return nil, err
	}
	if out.Value.Payment != nil {
		out.Value.Payment.NormalizeURLs()
	}
	return &out.Value, nil
}

func (c *Client) ActivateGift(ctx context.Context, giftID, userID model.ID) (*model.Subscription, error) {
	body := struct {
		UserID model.ID `json:"user_id"`
	}{UserID: userID}

	var out entity[model.Subscription]
	if err := c.post(ctx, "/subscription/gifts/"+url.PathEscape(giftID.String())+"/activate", body, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}
