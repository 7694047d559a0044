package product

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JohnDeved/labelctl/internal/client"
)

// DetailAPI is the part of the backend client the detail page needs.
type DetailAPI interface {
	GetProduct(ctx context.Context, sku string) (*client.Product, error)
	GetChildren(ctx context.Context, sku string) ([]client.Product, error)
	ListLabels(ctx context.Context, sku string) ([]client.Label, error)
	CatalogueByID(ctx context.Context, id string) (*client.CatalogueProduct, error)
	ProductImage(ctx context.Context, productID string) (string, error)
}

// Relations links a product to its master or its children.
type Relations struct {
	Master   *client.Product
	Children []client.Product
}

// LoadRelations fetches the master of a child product, or the children of a
// master. Products that are neither have no relations.
func LoadRelations(ctx context.Context, api DetailAPI, p client.Product) (Relations, error) {
	switch {
	case !p.MasterProduct && p.MasterSKU != "":
		m, err := api.GetProduct(ctx, p.MasterSKU)
		if err != nil {
			return Relations{}, fmt.Errorf("loading master %s: %w", p.MasterSKU, err)
		}
		return Relations{Master: m}, nil
	case p.MasterProduct:
		kids, err := api.GetChildren(ctx, p.SKU)
		if err != nil {
			return Relations{}, fmt.Errorf("loading children of %s: %w", p.SKU, err)
		}
		return Relations{Children: kids}, nil
	}
	return Relations{}, nil
}

// RefreshFromCatalogue looks the SKU up as a catalogue id. Failures are
// logged and reported as no match.
func RefreshFromCatalogue(ctx context.Context, api DetailAPI, sku string, log *zap.Logger) *client.CatalogueProduct {
	if log == nil {
		log = zap.NewNop()
	}
	cp, err := api.CatalogueByID(ctx, sku)
	if err != nil {
		log.Warn("catalogue fetch failed, using local values", zap.String("sku", sku), zap.Error(err))
		return nil
	}
	return cp
}

// Detail is everything shown for one product. Only the product itself is
// required; RelationsErr and LabelsErr record sections that failed to load.
type Detail struct {
	Product   client.Product
	Catalogue *client.CatalogueProduct
	ImageURL  string
	Relations
	Labels []client.Label

	RelationsErr error
	LabelsErr    error
}

// LoadLocalDetail loads a product and then, concurrently, its image,
// relations and labels. A failing section is logged and recorded on the
// Detail; the image degrades silently. The catalogue is not consulted.
func LoadLocalDetail(ctx context.Context, api DetailAPI, sku string, log *zap.Logger) (*Detail, error) {
	if log == nil {
		log = zap.NewNop()
	}

	p, err := api.GetProduct(ctx, sku)
	if err != nil {
		return nil, err
	}
	d := &Detail{Product: *p}

	var g errgroup.Group
	g.Go(func() error {
		img, err := api.ProductImage(ctx, p.SKU)
		if err != nil {
			log.Debug("image lookup failed", zap.String("sku", p.SKU), zap.Error(err))
		}
		d.ImageURL = img
		return nil
	})
	g.Go(func() error {
		rel, err := LoadRelations(ctx, api, *p)
		if err != nil {
			log.Warn("related products unavailable", zap.String("sku", p.SKU), zap.Error(err))
			d.RelationsErr = err
			return nil
		}
		d.Relations = rel
		return nil
	})
	g.Go(func() error {
		labels, err := api.ListLabels(ctx, sku)
		if err != nil {
			err = fmt.Errorf("loading labels: %w", err)
			log.Warn("labels unavailable", zap.String("sku", sku), zap.Error(err))
			d.LabelsErr = err
			return nil
		}
		d.Labels = labels
		return nil
	})
	_ = g.Wait()
	return d, nil
}

// LoadDetail is LoadLocalDetail joined with the catalogue refresh, for
// callers that want one complete answer. Interactive callers should load
// locally and apply RefreshFromCatalogue when it arrives.
func LoadDetail(ctx context.Context, api DetailAPI, sku string, log *zap.Logger) (*Detail, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cat := make(chan *client.CatalogueProduct, 1)
	go func() { cat <- RefreshFromCatalogue(ctx, api, sku, log) }()

	d, err := LoadLocalDetail(ctx, api, sku, log)
	if err != nil {
		return nil, err
	}
	d.ApplyCatalogue(<-cat)
	return d, nil
}

// ApplyCatalogue records cp and lets its title and barcode win over the
// local values. A nil cp changes nothing.
func (d *Detail) ApplyCatalogue(cp *client.CatalogueProduct) {
	if cp == nil {
		return
	}
	d.Catalogue = cp
	ApplyCatalogue(&d.Product, cp)
}
