package tui

import (
	"net/url"
	"strings"
)

// Route is a position in the app: the search page or one product.
type Route struct {
	Tab Tab
	SKU string
}

const productPrefix = "/product/"

// ParseRoute maps "/" to search and "/product/:sku" to that product's
// detail page. Anything else falls back to search.
func ParseRoute(path string) Route {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, productPrefix) {
		return Route{Tab: TabSearch}
	}
	sku := strings.TrimSuffix(strings.TrimPrefix(path, productPrefix), "/")
	if sku == "" || strings.Contains(sku, "/") {
		return Route{Tab: TabSearch}
	}
	if unescaped, err := url.PathUnescape(sku); err == nil {
		sku = unescaped
	}
	return Route{Tab: TabDetail, SKU: sku}
}

// String renders the route back into a path.
func (r Route) String() string {
	if r.Tab == TabDetail && r.SKU != "" {
		return productPrefix + url.PathEscape(r.SKU)
	}
	return "/"
}
