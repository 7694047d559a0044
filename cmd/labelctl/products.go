package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/output"
	"github.com/JohnDeved/labelctl/internal/product"
)

// notice prints an outcome line to stderr for humans. Structured output
// stays clean.
func (a *app) notice(cmd *cobra.Command, n product.Notice) {
	if n.Text == "" || a.out.Format() != output.FormatTable {
		return
	}
	c := color.New(color.FgGreen)
	if n.Error {
		c = color.New(color.FgRed)
	}
	_, _ = c.Fprintln(cmd.ErrOrStderr(), n.Text)
}

func (a *app) searcher() *product.Searcher {
	return product.NewSearcher(a.client, a.openRecent(), a.log)
}

func (a *app) helloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Check that the Label Manager backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := a.client.Hello(cmd.Context())
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.printer(cmd).Message(msg, false)
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search local products by SKU or title",
		Example: `
labelctl search ABC
labelctl search --active-only
labelctl search whey -o yaml
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			res := a.searcher().Local(cmd.Context(), query, activeOnly)
			a.notice(cmd, res.Notice)
			if res.Err != nil {
				return a.fail(cmd, res.Err)
			}
			return a.printer(cmd).Print(res.Products, func(tbl *uitable.Table) {
				productTable(tbl, res.Products)
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active-only", false, "Only products with an active label.")
	return cmd
}

func productTable(tbl *uitable.Table, products []client.Product) {
	tbl.AddRow(output.Header("SKU"), output.Header("TITLE"), output.Header("BARCODE"), output.Header("MASTER"), output.Header("ACTIVE LABEL"))
	for _, p := range products {
		tbl.AddRow(p.SKU, p.Title, p.Barcode, output.YesNo(p.MasterProduct), output.YesNo(p.HasActiveLabel()))
	}
}

type catalogueView struct {
	Product  *client.CatalogueProduct `json:"product"`
	ImageURL string                   `json:"imageUrl,omitempty"`
}

func (a *app) catalogueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Look products up in the external catalogue",
	}

	for _, mode := range []product.Mode{product.ModeTitle, product.ModeBarcode, product.ModeID} {
		cmd.AddCommand(&cobra.Command{
			Use:   strings.ToLower(mode.String()) + " <query>",
			Short: fmt.Sprintf("Find a catalogue product by %s", strings.ToLower(mode.String())),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res := a.searcher().Catalogue(cmd.Context(), mode, args[0])
				a.notice(cmd, res.Notice)
				if res.Err != nil {
					return a.fail(cmd, res.Err)
				}
				if res.Product == nil {
					return a.fail(cmd, errors.New(res.Notice.Text))
				}
				return a.printCatalogue(cmd, catalogueView{Product: res.Product, ImageURL: res.ImageURL})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "number <catalogue-number>",
		Short: "Find a catalogue product by catalogue number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := a.client.CatalogueByNumber(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return a.fail(cmd, err)
			}
			if cp == nil {
				return a.fail(cmd, errors.New("no product found for this catalogue number"))
			}
			img, err := a.client.ProductImage(cmd.Context(), cp.Key())
			if err != nil {
				a.log.Debug("image lookup failed", zap.String("product_id", cp.Key()), zap.Error(err))
			}
			return a.printCatalogue(cmd, catalogueView{Product: cp, ImageURL: img})
		},
	})
	return cmd
}

func (a *app) printCatalogue(cmd *cobra.Command, v catalogueView) error {
	return a.printer(cmd).Print(v, func(tbl *uitable.Table) {
		cp := v.Product
		tbl.AddRow(output.Header("Title:"), cp.DisplayTitle())
		tbl.AddRow(output.Header("ID:"), cp.Key())
		tbl.AddRow(output.Header("Barcode:"), cp.Barcode)
		tbl.AddRow(output.Header("Catalogue number:"), cp.Catalogue)
		tbl.AddRow(output.Header("Image:"), v.ImageURL)
	})
}

func (a *app) importCmd() *cobra.Command {
	modeName := "id"
	cmd := &cobra.Command{
		Use:   "import <query>",
		Short: "Add a catalogue product to the Label Manager",
		Example: `
labelctl import 12345
labelctl import 5055 --by barcode
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := product.ParseMode(modeName)
			if err != nil || !mode.Catalogue() {
				return a.fail(cmd, fmt.Errorf("--by must be title, barcode or id"))
			}
			s := a.searcher()
			found := s.Catalogue(cmd.Context(), mode, args[0])
			if found.Err != nil || found.Product == nil {
				a.notice(cmd, found.Notice)
				if found.Err == nil {
					found.Err = errors.New(found.Notice.Text)
				}
				return a.fail(cmd, found.Err)
			}

			res := s.Import(cmd.Context(), *found.Product)
			a.notice(cmd, res.Notice)
			if res.Err != nil {
				return a.fail(cmd, res.Err)
			}
			return a.printer(cmd).Print(res.Product, func(tbl *uitable.Table) {
				productTable(tbl, []client.Product{*res.Product})
			})
		},
	}
	cmd.Flags().StringVar(&modeName, "by", modeName, "Catalogue lookup: title, barcode or id.")
	return cmd
}

type productView struct {
	Product   client.Product           `json:"product"`
	Catalogue *client.CatalogueProduct `json:"catalogue,omitempty"`
	ImageURL  string                   `json:"imageUrl,omitempty"`
	Master    *client.Product          `json:"master,omitempty"`
	Children  []client.Product         `json:"children,omitempty"`
	Labels    []client.Label           `json:"labels"`
	// Sections that failed to load; the product is still printed.
	RelationsError string `json:"relationsError,omitempty"`
	LabelsError    string `json:"labelsError,omitempty"`
}

func (a *app) productCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Show and edit product attributes",
	}

	show := &cobra.Command{
		Use:   "show <sku>",
		Short: "Show a product with its catalogue values, labels and relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := product.LoadDetail(cmd.Context(), a.client, args[0], a.log)
			if err != nil {
				return a.fail(cmd, err)
			}
			v := productView{
				Product:   d.Product,
				Catalogue: d.Catalogue,
				ImageURL:  d.ImageURL,
				Master:    d.Master,
				Children:  d.Children,
				Labels:    d.Labels,
			}
			if d.RelationsErr != nil {
				v.RelationsError = d.RelationsErr.Error()
			}
			if d.LabelsErr != nil {
				v.LabelsError = d.LabelsErr.Error()
			}
			return a.printer(cmd).Print(v, func(tbl *uitable.Table) {
				detailTable(tbl, v)
			})
		},
	}

	save := &cobra.Command{
		Use:   "save <file.json|->",
		Short: "Create or replace a product from JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return a.fail(cmd, err)
				}
				defer f.Close()
				r = f
			}
			var p client.Product
			if err := json.NewDecoder(r).Decode(&p); err != nil {
				return a.fail(cmd, fmt.Errorf("decoding product: %w", err))
			}
			if p.SKU == "" {
				return a.fail(cmd, errors.New("product has no sku"))
			}
			return a.saveProduct(cmd, p)
		},
	}

	var (
		title, barcode, catalogueNumber, category, typ string
		toggles                                       []string
	)
	edit := &cobra.Command{
		Use:   "edit <sku>",
		Short: "Change product attributes",
		Example: `
labelctl product edit ABC123 --title "Impact Whey 1kg"
labelctl product edit ABC123 --toggle-territory USA --toggle-territory EU
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			flags := cmd.Flags()
			set := func(name string, dst *string, v string) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			set("title", &p.Title, title)
			set("barcode", &p.Barcode, barcode)
			set("catalogue-number", &p.CatalogueNumber, catalogueNumber)
			set("category", &p.Category, category)
			set("type", &p.Type, typ)
			for _, t := range toggles {
				if !slices.Contains(client.Territories, t) {
					return a.fail(cmd, fmt.Errorf("unknown territory %q (want one of %s)", t, strings.Join(client.Territories, ", ")))
				}
				product.ToggleTerritory(p, t)
			}
			return a.saveProduct(cmd, *p)
		},
	}
	edit.Flags().StringVar(&title, "title", "", "New title.")
	edit.Flags().StringVar(&barcode, "barcode", "", "New barcode.")
	edit.Flags().StringVar(&catalogueNumber, "catalogue-number", "", "New catalogue number.")
	edit.Flags().StringVar(&category, "category", "", "New category.")
	edit.Flags().StringVar(&typ, "type", "", "New type.")
	edit.Flags().StringArrayVar(&toggles, "toggle-territory", nil, "Toggle a market territory (repeatable).")

	cmd.AddCommand(show, save, edit)
	return cmd
}

func (a *app) saveProduct(cmd *cobra.Command, p client.Product) error {
	saved, err := a.client.SaveProduct(cmd.Context(), p)
	if err != nil {
		a.notice(cmd, product.SaveFailedNotice())
		return a.fail(cmd, err)
	}
	a.notice(cmd, product.SavedNotice())
	return a.printer(cmd).Print(saved, func(tbl *uitable.Table) {
		productTable(tbl, []client.Product{*saved})
	})
}

func detailTable(tbl *uitable.Table, v productView) {
	p := v.Product
	tbl.AddRow(output.Header("SKU:"), p.SKU)
	tbl.AddRow(output.Header("Title:"), p.Title)
	tbl.AddRow(output.Header("Barcode:"), p.Barcode)
	tbl.AddRow(output.Header("Catalogue number:"), p.CatalogueNumber)
	tbl.AddRow(output.Header("Category:"), p.Category)
	tbl.AddRow(output.Header("Type:"), p.Type)
	tbl.AddRow(output.Header("Territories:"), strings.Join(p.MarketTerritories, ", "))
	tbl.AddRow(output.Header("Master product:"), output.YesNo(p.MasterProduct))
	if v.ImageURL != "" {
		tbl.AddRow(output.Header("Image:"), v.ImageURL)
	}
	if v.Master != nil {
		tbl.AddRow(output.Header("Master:"), fmt.Sprintf("%s %s", v.Master.SKU, v.Master.Title))
	}
	for _, c := range v.Children {
		tbl.AddRow(output.Header("Child:"), fmt.Sprintf("%s %s", c.SKU, c.Title))
	}
	if v.RelationsError != "" {
		tbl.AddRow(output.Header("Related:"), output.Bad(v.RelationsError))
	}
	for _, l := range v.Labels {
		tbl.AddRow(output.Header("Label:"), labelSummary(l))
	}
	if v.LabelsError != "" {
		tbl.AddRow(output.Header("Labels:"), output.Bad(v.LabelsError))
	}
}

func labelSummary(l client.Label) string {
	s := fmt.Sprintf("#%d v%d %s", l.ID, l.Version, l.FileName)
	if l.Active {
		s += " " + output.Good("active")
	}
	if l.SKUMatched != nil && !*l.SKUMatched {
		s += " " + output.Bad("sku mismatch")
	}
	return s
}
