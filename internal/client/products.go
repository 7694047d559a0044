package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Hello fetches the backend greeting.
func (c *Client) Hello(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if _, err := c.getJSON(ctx, c.apiURL("api", "hello"), false, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// SearchProducts runs the backend's fuzzy search over SKU and title.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	u := c.apiURL("api", "products", "search") + "?query=" + url.QueryEscape(query)
	var out []Product
	if _, err := c.getJSON(ctx, u, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches one product by SKU.
func (c *Client) GetProduct(ctx context.Context, sku string) (*Product, error) {
	u := c.apiURL("api", "products", sku)
	var out Product
	ok, err := c.getJSON(ctx, u, false, &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &APIError{StatusCode: http.StatusNotFound, URL: u, Message: "product not found"}
	}
	return &out, nil
}

// GetChildren lists the child products of a master SKU.
func (c *Client) GetChildren(ctx context.Context, sku string) ([]Product, error) {
	var out []Product
	if _, err := c.getJSON(ctx, c.apiURL("api", "products", sku, "children"), false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveProduct creates or replaces a product and returns the stored record.
func (c *Client) SaveProduct(ctx context.Context, p Product) (*Product, error) {
	var out Product
	if err := c.sendJSON(ctx, http.MethodPost, c.apiURL("api", "products"), p, &out); err != nil {
		return nil, fmt.Errorf("saving product %s: %w", p.SKU, err)
	}
	if out.SKU == "" {
		out = p
	}
	return &out, nil
}

// DashboardStats fetches the aggregate readiness statistics.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if _, err := c.getJSON(ctx, c.apiURL("api", "dashboard", "stats"), false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
