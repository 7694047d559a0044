// Package product holds the search and detail workflows shared by the TUI and
// the plain CLI commands: query modes, catalogue promotion, territory edits and
// the user-facing notices each outcome produces.
package product

import (
	"fmt"
	"slices"

	"github.com/JohnDeved/labelctl/internal/client"
)

// Mode selects where a search query is sent.
type Mode int

const (
	ModeLocal Mode = iota
	ModeTitle
	ModeBarcode
	ModeID
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeLocal, ModeTitle, ModeBarcode, ModeID}

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "Local"
	case ModeTitle:
		return "Title"
	case ModeBarcode:
		return "Barcode"
	case ModeID:
		return "ID"
	default:
		return "Unknown"
	}
}

// Catalogue reports whether the mode queries the external catalogue.
func (m Mode) Catalogue() bool {
	return m == ModeTitle || m == ModeBarcode || m == ModeID
}

// ParseMode accepts the CLI spelling of a catalogue mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "local":
		return ModeLocal, nil
	case "title":
		return ModeTitle, nil
	case "barcode":
		return ModeBarcode, nil
	case "id":
		return ModeID, nil
	default:
		return ModeLocal, fmt.Errorf("unknown search mode %q (want local, title, barcode or id)", s)
	}
}

// Notice is a short user-facing message about an operation's outcome.
type Notice struct {
	Text  string
	Error bool
}

func info(text string) Notice  { return Notice{Text: text} }
func failed(text string) Notice { return Notice{Text: text, Error: true} }

// LocalFoundNotice reports a completed local search.
func LocalFoundNotice(n int) Notice {
	return info(fmt.Sprintf("Found %d local total products", n))
}

// LocalFailedNotice reports a failed local search.
func LocalFailedNotice(err error) Notice {
	return failed("Local search failed: " + client.StatusText(err))
}

// CatalogueNotice describes the outcome of a catalogue lookup in mode m.
func CatalogueNotice(m Mode, found *client.CatalogueProduct, err error) Notice {
	if err != nil {
		if client.IsUnauthorized(err) {
			return failed("Catalogue access unauthorized (VPN required?)")
		}
		return failed(fmt.Sprintf("Catalogue search failed (%s)", m))
	}
	if found == nil {
		switch m {
		case ModeTitle:
			return failed("No product found with this title")
		case ModeBarcode:
			return failed("No product found for this barcode")
		default:
			return failed("No product found for this ID")
		}
	}
	if m == ModeTitle {
		return info("Product(s) found in Catalogue!")
	}
	return info("Product found in Catalogue!")
}

// AddedNotice reports a catalogue product promoted to the label manager.
func AddedNotice() Notice { return info("Product added to Label Manager!") }

// AddFailedNotice reports a failed promotion.
func AddFailedNotice(err error) Notice {
	return failed("Failed to add product: " + client.StatusText(err))
}

// SavedNotice reports saved attributes.
func SavedNotice() Notice { return info("Attributes saved successfully!") }

// SaveFailedNotice reports a failed attribute save.
func SaveFailedNotice() Notice { return failed("Failed to save attributes") }

// UploadedNotice reports a single label upload.
func UploadedNotice() Notice { return info("Label uploaded successfully!") }

// UploadFailedNotice prefers the server's own explanation.
func UploadFailedNotice(err error) Notice {
	if msg := client.ServerMessage(err); msg != "" {
		return failed(msg)
	}
	return failed("Error uploading label")
}

// DeletedNotice reports a deleted label.
func DeletedNotice() Notice { return info("Label deleted") }

// DeleteFailedNotice reports a failed label delete.
func DeleteFailedNotice(err error) Notice {
	return failed("Failed to delete label: " + client.StatusText(err))
}

// FilterActive keeps products with at least one active label.
func FilterActive(products []client.Product) []client.Product {
	out := make([]client.Product, 0, len(products))
	for _, p := range products {
		if p.HasActiveLabel() {
			out = append(out, p)
		}
	}
	return out
}

// Default attributes for products promoted from the catalogue.
const (
	DefaultCategory  = "Supplement"
	DefaultType      = "Solid"
	DefaultTerritory = "EU"
	placeholderSKU   = "temp-sku"
)

// FromCatalogue builds the local product a catalogue hit is promoted into.
func FromCatalogue(cp client.CatalogueProduct) client.Product {
	sku := cp.Key()
	if sku == "" {
		sku = placeholderSKU
	}
	return client.Product{
		SKU:               sku,
		Title:             cp.DisplayTitle(),
		Barcode:           cp.Barcode,
		CatalogueNumber:   cp.Catalogue,
		Category:          DefaultCategory,
		Type:              DefaultType,
		MarketTerritories: []string{DefaultTerritory},
		MasterProduct:     false,
	}
}

// ToggleTerritory adds t to p's territories, or removes it when present.
// The change is local until the product is saved.
func ToggleTerritory(p *client.Product, t string) {
	if p.MarketTerritories == nil {
		p.MarketTerritories = []string{}
	}
	if i := slices.Index(p.MarketTerritories, t); i >= 0 {
		p.MarketTerritories = slices.Delete(p.MarketTerritories, i, i+1)
		return
	}
	p.MarketTerritories = append(p.MarketTerritories, t)
}

// HasTerritory reports whether p is sold in t.
func HasTerritory(p client.Product, t string) bool {
	return slices.Contains(p.MarketTerritories, t)
}

// ApplyCatalogue overwrites title and barcode with the catalogue's values
// where the catalogue has them.
func ApplyCatalogue(p *client.Product, cp *client.CatalogueProduct) {
	if cp == nil {
		return
	}
	if t := cp.DisplayTitle(); t != "" {
		p.Title = t
	}
	if cp.Barcode != "" {
		p.Barcode = cp.Barcode
	}
}
