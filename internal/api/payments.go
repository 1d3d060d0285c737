package api

import (
	"context"
	"net/url"

	"dragonvpn-app/internal/model"

	"github.com/google/uuid"
)

const idempotenceHeader = "Idempotence-Key"

type PaymentRequest struct {
	UserID      model.ID `json:"user_id"`
	ServiceID   model.ID `json:"service_id"`
	Description string   `json:"description,omitempty"`
	ReturnURL   string   `json:"return_url,omitempty"`
}

// CreatePayment starts a checkout. Each call carries a fresh idempotence
// key, so a retried call may create a second payment; callers retry with
// CreatePaymentWithKey instead.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*model.Payment, error) {
	return c.CreatePaymentWithKey(ctx, req, uuid.NewString())
}

func (c *Client) CreatePaymentWithKey(ctx context.Context, req PaymentRequest, key string) (*model.Payment, error) {
	var out entity[model.Payment]
	if err := c.post(ctx, "/payments", req, &out, WithHeader(idempotenceHeader, key)); err != nil {
		return nil, err
	}
	out.Value.NormalizeURLs()
	return &out.Value, nil
}

func (c *Client) GetPayment(ctx context.Context, id model.ID) (*model.Payment, error) {
	var out entity[model.Payment]
	if err := c.get(ctx, "/payments/"+url.PathEscape(id.String()), &out); err != nil {
		return nil, err
	}
	out.Value.NormalizeURLs()
	return &out.Value, nil
}

func (c *Client) ListUserPayments(ctx context.Context, userID model.ID) ([]model.Payment, error) {
	return c.listPayments(ctx, "/payments/user/"+url.PathEscape(userID.String()))
}

func (c *Client) ListPendingPayments(ctx context.Context, userID model.ID) ([]model.Payment, error) {
	return c.listPayments(ctx, "/payments/user/"+url.PathEscape(userID.String())+"/pending")
}

func (c *Client) RefundPayment(ctx context.Context, id model.ID) (*model.Payment, error) {
	var out entity[model.Payment]
	if err := c.post(ctx, "/payments/"+url.PathEscape(id.String())+"/refund", nil, &out); err != nil {
		return nil, err
	}
	out.Value.NormalizeURLs()
	return &out.Value, nil
}

func (c *Client) listPayments(ctx context.Context, endpoint string) ([]model.Payment, error) {
	var out List[model.Payment]
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	for i := range out.Items {
		out.Items[i].NormalizeURLs()
	}
	return out.Items, nil
}
