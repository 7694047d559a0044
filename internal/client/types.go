package client

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Territories lists the market territories a product can be sold in.
var Territories = []string{"EU", "Australia", "India", "USA", "China", "Japan"}

// Product is the local backend's product record.
type Product struct {
	SKU               string   `json:"sku"`
	Title             string   `json:"title"`
	Barcode           string   `json:"barcode"`
	CatalogueNumber   string   `json:"catalogueNumber"`
	Category          string   `json:"category"`
	Type              string   `json:"type"`
	MarketTerritories []string `json:"marketTerritories"`
	MasterProduct     bool     `json:"masterProduct"`
	MasterSKU         string   `json:"masterSku,omitempty"`
	Labels            []Label  `json:"labels,omitempty"`
}

// HasActiveLabel reports whether at least one of the product's labels is active.
func (p Product) HasActiveLabel() bool {
	for _, l := range p.Labels {
		if l.Active {
			return true
		}
	}
	return false
}

// Label is one uploaded label file version for a SKU.
type Label struct {
	ID         int64  `json:"id"`
	SKU        string `json:"sku"`
	Version    int    `json:"version"`
	FileName   string `json:"fileName"`
	Active     bool   `json:"active"`
	Deleted    bool   `json:"deleted"`
	SKUMatched *bool  `json:"skuMatched,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	CreatedBy  string `json:"createdBy,omitempty"`
}

// CatalogueProduct is a read-only projection returned by the catalogue service.
// The service is inconsistent about field names, so both id/productId and
// title/name are accepted, and ids may arrive as numbers or strings.
type CatalogueProduct struct {
	ID        string `json:"id,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Title     string `json:"title,omitempty"`
	Name      string `json:"name,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	Catalogue string `json:"catalogue,omitempty"`
}

// Key returns the identifier used for image lookup and promotion: id, then productId.
func (cp CatalogueProduct) Key() string {
	if cp.ID != "" {
		return cp.ID
	}
	return cp.ProductID
}

// DisplayTitle returns title, falling back to name.
func (cp CatalogueProduct) DisplayTitle() string {
	if cp.Title != "" {
		return cp.Title
	}
	return cp.Name
}

func (cp *CatalogueProduct) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        flexString `json:"id"`
		ProductID flexString `json:"productId"`
		Title     flexString `json:"title"`
		Name      flexString `json:"name"`
		Barcode   flexString `json:"barcode"`
		Catalogue flexString `json:"catalogue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*cp = CatalogueProduct{
		ID:        string(raw.ID),
		ProductID: string(raw.ProductID),
		Title:     string(raw.Title),
		Name:      string(raw.Name),
		Barcode:   string(raw.Barcode),
		Catalogue: string(raw.Catalogue),
	}
	return nil
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ImageMetadata is the raw object returned by the image metadata service.
type ImageMetadata map[string]any

// DashboardStats holds the aggregate statistics. Raw keeps every key the
// backend returned so unknown ones can be shown as-is.
type DashboardStats struct {
	TotalProducts        int64            `json:"totalProducts"`
	ReadyProducts        int64            `json:"readyProducts"`
	ReadinessPercentage  float64          `json:"readinessPercentage"`
	CategoryDistribution map[string]int64 `json:"categoryDistribution"`
	Raw                  map[string]any   `json:"-"`
}

func (s *DashboardStats) UnmarshalJSON(data []byte) error {
	type plain DashboardStats
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DashboardStats(p)
	s.Raw = raw
	return nil
}

// ExtraKeys returns the raw keys not covered by the typed fields, sorted.
func (s DashboardStats) ExtraKeys() []string {
	known := map[string]bool{
		"totalProducts":        true,
		"readyProducts":        true,
		"readinessPercentage":  true,
		"categoryDistribution": true,
	}
	var keys []string
	for k := range s.Raw {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// FormatValue renders a raw JSON value compactly for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "?"
		}
		return strings.TrimSpace(string(b))
	}
}
