package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
)

// ErrEmptyQuery is returned for a blank catalogue query; nothing is sent.
var ErrEmptyQuery = errors.New("empty query")

// SearchAPI is the part of the backend client searching needs.
type SearchAPI interface {
	SearchProducts(ctx context.Context, query string) ([]client.Product, error)
	SaveProduct(ctx context.Context, p client.Product) (*client.Product, error)
	CatalogueByTitle(ctx context.Context, title string) (*client.CatalogueProduct, error)
	CatalogueByBarcode(ctx context.Context, barcode string) (*client.CatalogueProduct, error)
	CatalogueByID(ctx context.Context, id string) (*client.CatalogueProduct, error)
	ProductImage(ctx context.Context, productID string) (string, error)
}

// History records successful queries.
type History interface {
	Add(query string) ([]string, error)
}

// Searcher runs the four search modes and catalogue promotion.
type Searcher struct {
	api     SearchAPI
	history History
	log     *zap.Logger
}

// NewSearcher returns a searcher. history and log may be nil.
func NewSearcher(api SearchAPI, history History, log *zap.Logger) *Searcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{api: api, history: history, log: log}
}

// LocalResult is the outcome of a local search.
type LocalResult struct {
	Query    string
	Products []client.Product
	Notice   Notice
	// Recent is the updated history, nil when it was not touched.
	Recent []string
	Err    error
}

// Local searches the label backend. With activeOnly, products without an
// active label are dropped.
func (s *Searcher) Local(ctx context.Context, query string, activeOnly bool) LocalResult {
	res := LocalResult{Query: query}

	products, err := s.api.SearchProducts(ctx, query)
	if err != nil {
		s.log.Warn("local search failed", zap.String("query", query), zap.Error(err))
		res.Err = err
		res.Notice = LocalFailedNotice(err)
		return res
	}
	if activeOnly {
		products = FilterActive(products)
	}
	res.Products = products
	res.Notice = LocalFoundNotice(len(products))
	res.Recent = s.remember(query)
	return res
}

// CatalogueResult is the outcome of a catalogue lookup.
type CatalogueResult struct {
	Mode    Mode
	Query   string
	Product *client.CatalogueProduct
	// ImageURL is empty when the product has no resolvable image.
	ImageURL string
	Notice   Notice
	Recent   []string
	Err      error
}

// Catalogue looks query up in the external catalogue using mode m. A hit
// also resolves the product image; image failures only cost the image.
func (s *Searcher) Catalogue(ctx context.Context, m Mode, query string) CatalogueResult {
	query = strings.TrimSpace(query)
	res := CatalogueResult{Mode: m, Query: query}
	if query == "" {
		res.Err = ErrEmptyQuery
		return res
	}

	var found *client.CatalogueProduct
	var err error
	switch m {
	case ModeTitle:
		found, err = s.api.CatalogueByTitle(ctx, query)
	case ModeBarcode:
		found, err = s.api.CatalogueByBarcode(ctx, query)
	case ModeID:
		found, err = s.api.CatalogueByID(ctx, query)
	default:
		res.Err = fmt.Errorf("mode %s is not a catalogue mode", m)
		return res
	}

	res.Notice = CatalogueNotice(m, found, err)
	if err != nil {
		s.log.Warn("catalogue search failed", zap.Stringer("mode", m), zap.String("query", query), zap.Error(err))
		res.Err = err
		return res
	}
	if found == nil {
		return res
	}

	res.Product = found
	if id := found.Key(); id != "" {
		img, err := s.api.ProductImage(ctx, id)
		if err != nil {
			s.log.Warn("image lookup failed", zap.String("product_id", id), zap.Error(err))
		}
		res.ImageURL = img
	}
	res.Recent = s.remember(query)
	return res
}

// ImportResult is the outcome of promoting a catalogue product.
type ImportResult struct {
	Product *client.Product
	Notice  Notice
	Err     error
}

// Import promotes a catalogue product into a new local product.
func (s *Searcher) Import(ctx context.Context, cp client.CatalogueProduct) ImportResult {
	saved, err := s.api.SaveProduct(ctx, FromCatalogue(cp))
	if err != nil {
		s.log.Warn("import failed", zap.String("catalogue_id", cp.Key()), zap.Error(err))
		return ImportResult{Notice: AddFailedNotice(err), Err: err}
	}
	s.log.Info("imported product", zap.String("sku", saved.SKU))
	return ImportResult{Product: saved, Notice: AddedNotice()}
}

func (s *Searcher) remember(query string) []string {
	if s.history == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	list, err := s.history.Add(query)
	if err != nil {
		s.log.Warn("saving recent search", zap.Error(err))
	}
	return list
}
