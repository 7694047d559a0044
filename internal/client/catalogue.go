package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CatalogueByTitle looks a product up in the catalogue by title.
// A nil product with a nil error means the catalogue had no match.
func (c *Client) CatalogueByTitle(ctx context.Context, title string) (*CatalogueProduct, error) {
	return c.catalogueProduct(ctx, c.catalogueServiceURL("CatalogueService", "product", "title", title))
}

// CatalogueByBarcode looks a product up by barcode.
func (c *Client) CatalogueByBarcode(ctx context.Context, barcode string) (*CatalogueProduct, error) {
	return c.catalogueProduct(ctx, c.catalogueServiceURL("CatalogueService", "product", "barcode", barcode))
}

// CatalogueByID looks a product up by catalogue id.
func (c *Client) CatalogueByID(ctx context.Context, id string) (*CatalogueProduct, error) {
	return c.catalogueProduct(ctx, c.catalogueServiceURL("CatalogueService", "product", id))
}

// CatalogueByNumber looks up a catalogue entry by its catalogue barcode.
func (c *Client) CatalogueByNumber(ctx context.Context, barcode string) (*CatalogueProduct, error) {
	return c.catalogueProduct(ctx, c.catalogueServiceURL("CatalogueService", "catalogue", barcode))
}

// ImageMetadata fetches the image metadata for a catalogue product id.
func (c *Client) ImageMetadata(ctx context.Context, productID string) (ImageMetadata, error) {
	u := joinURL(c.catalogueURL, "MilkyWay", "imagesbyproduct", "productid", productID)
	var out ImageMetadata
	if _, err := c.getJSON(ctx, u, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductImage resolves the display image URL for a product id. A missing
// image is not an error and yields "".
func (c *Client) ProductImage(ctx context.Context, productID string) (string, error) {
	meta, err := c.ImageMetadata(ctx, productID)
	if err != nil {
		return "", err
	}
	return ResolveImageURL(meta, productID, c.imageHost), nil
}

func (c *Client) catalogueProduct(ctx context.Context, rawURL string) (*CatalogueProduct, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, url: rawURL, catalogue: true})
	if err != nil {
		return nil, err
	}
	return decodeCatalogue(body, rawURL)
}

// decodeCatalogue accepts a single object or an array; an array yields its
// first element. Empty, null and [] bodies mean no match.
func decodeCatalogue(body []byte, rawURL string) (*CatalogueProduct, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if body[0] == '[' {
		var list []CatalogueProduct
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", rawURL, err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}
	var out CatalogueProduct
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return &out, nil
}
