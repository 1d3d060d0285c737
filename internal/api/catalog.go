package api

import (
	"context"
	"net/url"

	"dragonvpn-app/internal/model"
)

func (c *Client) ListServers(ctx context.Context) ([]model.Server, error) {
	var out List[model.Server]
	if err := c.get(ctx, "/servers", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) ListServices(ctx context.Context) ([]model.Service, error) {
	var out List[model.Service]
	if err := c.get(ctx, "/services", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetService(ctx context.Context, id model.ID) (*model.Service, error) {
	var out entity[model.Service]
	if err := c.get(ctx, "/services/"+url.PathEscape(id.String()), &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}
