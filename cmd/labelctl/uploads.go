package main

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	goversion "go.hein.dev/go-version"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/config"
	"github.com/JohnDeved/labelctl/internal/journal"
	"github.com/JohnDeved/labelctl/internal/output"
	"github.com/JohnDeved/labelctl/internal/uploader"
	"github.com/JohnDeved/labelctl/internal/util"
)

type uploadItemView struct {
	File    string `json:"file" yaml:"file"`
	SKU     string `json:"sku" yaml:"sku"`
	Status  string `json:"status" yaml:"status"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	LabelID int64  `json:"labelId,omitempty" yaml:"labelId,omitempty"`
	Version int    `json:"version,omitempty" yaml:"version,omitempty"`
}

type uploadResult struct {
	BatchID string           `json:"batchId" yaml:"batchId"`
	Summary uploader.Summary `json:"summary" yaml:"summary"`
	Items   []uploadItemView `json:"items" yaml:"items"`
}

type statsView struct {
	Products *client.DashboardStats `json:"products" yaml:"products"`
	Uploads  *journal.Stats         `json:"uploads,omitempty" yaml:"uploads,omitempty"`
}

func (a *app) uploadCmd() *cobra.Command {
	var (
		concurrency int
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file|glob>...",
		Short: "Upload label files in bulk, each to the SKU in its file name",
		Long: `Upload label files in bulk. The SKU of each file is the part of its name
before the first "_" or "-", so ABC123_front.pdf goes to ABC123.`,
		Example: `  labelctl upload --dry-run ~/labels/*.pdf
  labelctl upload ~/labels/*.pdf
  labelctl upload -c 2 ABC123_front.pdf DEF456-back.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := uploader.Options{
				MaxConcurrent: a.cfg.MaxConcurrentUploads,
				Logger:        a.log,
			}
			if cmd.Flags().Changed("concurrency") {
				opts.MaxConcurrent = concurrency
			}
			paths := uploader.ExpandPaths(args)
			if dryRun {
				return a.printPlan(cmd, uploader.NewBatch(a.client, paths, opts))
			}
			if db := a.openJournal(); db != nil {
				defer db.Close()
				opts.Recorder = db
			}

			b := uploader.NewBatch(a.client, paths, opts)
			if a.printer(cmd).Format() == output.FormatTable {
				var mu sync.Mutex
				reported := make(map[int]bool)
				w := cmd.ErrOrStderr()
				b.SetOnChange(func() {
					mu.Lock()
					defer mu.Unlock()
					for _, it := range b.Items() {
						st, err := it.State()
						if !st.Terminal() || reported[it.ID] {
							continue
						}
						reported[it.ID] = true
						if err != nil {
							fmt.Fprintf(w, "%s %s: %v\n", output.Bad("✗"), it.Name, err)
						} else {
							fmt.Fprintf(w, "%s %s -> %s\n", output.Good("✓"), it.Name, it.SKU)
						}
					}
				})
			}

			s, err := b.UploadAll(cmd.Context())
			if err != nil {
				return a.fail(cmd, err)
			}

			res := uploadResult{BatchID: b.ID(), Summary: s, Items: itemViews(b)}
			if err := a.printer(cmd).Print(res, func(tbl *uitable.Table) {
				tbl.AddRow(output.Header("Batch:"), res.BatchID)
				tbl.AddRow(output.Header("Uploaded:"), fmt.Sprintf("%d of %d", s.Succeeded, s.Total))
				if s.Failed > 0 {
					tbl.AddRow(output.Header("Failed:"), output.Bad(fmt.Sprint(s.Failed)))
				}
			}); err != nil {
				return err
			}
			if s.Failed > 0 {
				// The result is already printed, so skip the error envelope.
				return fmt.Errorf("%d of %d uploads failed", s.Failed, s.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Parallel uploads (default: max_concurrent_uploads from config, 0 = unlimited).")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List each file with the SKU it would go to and upload nothing.")
	return cmd
}

// printPlan shows a batch that has not been uploaded.
func (a *app) printPlan(cmd *cobra.Command, b *uploader.Batch) error {
	items := itemViews(b)
	return a.printer(cmd).Print(items, func(tbl *uitable.Table) {
		tbl.AddRow(output.Header("FILE"), output.Header("SKU"), output.Header("STATUS"))
		for _, v := range items {
			tbl.AddRow(v.File, v.SKU, v.Status)
		}
	})
}

func itemViews(b *uploader.Batch) []uploadItemView {
	views := make([]uploadItemView, 0, len(b.Items()))
	for _, it := range b.Items() {
		it.Mu.Lock()
		v := uploadItemView{File: it.Path, SKU: it.SKU, Status: it.Status.String()}
		if it.Err != nil {
			v.Error = it.Err.Error()
		}
		if it.Label != nil {
			v.LabelID = it.Label.ID
			v.Version = it.Label.Version
		}
		it.Mu.Unlock()
		views = append(views, v)
	}
	return views
}

func (a *app) uploadsCmd() *cobra.Command {
	var (
		limit   int
		search  string
		batchID string
	)
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Show the local upload journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := journal.OpenDB(config.JournalPath())
			if err != nil {
				return a.fail(cmd, err)
			}
			defer db.Close()

			var records []journal.Record
			switch {
			case batchID != "":
				records, err = db.Batch(batchID)
			case search != "":
				records, err = db.Search(search, limit)
			default:
				records, err = db.Recent(limit)
			}
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.printer(cmd).Print(records, func(tbl *uitable.Table) {
				tbl.AddRow(output.Header("WHEN"), output.Header("SKU"), output.Header("FILE"), output.Header("STATUS"), output.Header("DETAIL"))
				for _, r := range records {
					status := output.Good(r.Status)
					detail := fmt.Sprintf("v%d", r.Version)
					if !r.Succeeded() {
						status = output.Bad(r.Status)
						detail = r.Error
					}
					tbl.AddRow(r.CompletedAt.Local().Format("2006-01-02 15:04"), r.SKU, r.FileName, status, detail)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of uploads to show.")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Full-text search over file names, SKUs and errors.")
	cmd.Flags().StringVar(&batchID, "batch", "", "Show every upload of one batch.")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show product readiness and upload history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.DashboardStats(cmd.Context())
			if err != nil {
				return a.fail(cmd, err)
			}
			v := statsView{Products: stats}
			if db := a.openJournal(); db != nil {
				defer db.Close()
				if js, err := db.GetStats(); err == nil {
					v.Uploads = &js
				}
			}
			return a.printer(cmd).Print(v, func(tbl *uitable.Table) {
				tbl.AddRow(output.Header("Products:"), stats.TotalProducts)
				tbl.AddRow(output.Header("Ready:"), util.Readiness(stats.ReadyProducts, stats.TotalProducts, stats.ReadinessPercentage))
				cats := make([]string, 0, len(stats.CategoryDistribution))
				for c := range stats.CategoryDistribution {
					cats = append(cats, c)
				}
				sort.Strings(cats)
				for _, c := range cats {
					tbl.AddRow("  "+c, stats.CategoryDistribution[c])
				}
				if v.Uploads != nil {
					tbl.AddRow(output.Header("Batches:"), v.Uploads.Batches)
					tbl.AddRow(output.Header("Uploads:"), fmt.Sprintf("%d ok, %d failed", v.Uploads.Succeeded, v.Uploads.Failed))
				}
			})
		},
	}
}

func (a *app) recentCmd() *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List or clear recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.openRecent()
			if clearAll {
				if err := store.Clear(); err != nil {
					return a.fail(cmd, err)
				}
				return a.printer(cmd).Message("Recent searches cleared", false)
			}
			queries := store.List()
			if queries == nil {
				queries = []string{}
			}
			return a.printer(cmd).Print(queries, func(tbl *uitable.Table) {
				for i, q := range queries {
					tbl.AddRow(i+1, q)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Forget every recent search.")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the labelctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := "json"
			if a.printer(cmd).Format() == output.FormatYAML {
				format = "yaml"
			}
			fmt.Fprint(cmd.OutOrStdout(), goversion.FuncWithOutput(short, version, commit, date, format))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print just the version number.")
	return cmd
}
