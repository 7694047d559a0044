package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/output"
	"github.com/JohnDeved/labelctl/internal/product"
	"github.com/JohnDeved/labelctl/internal/util"
)

type savedFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type urlView struct {
	URL string `json:"url"`
}

func (a *app) labelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "labels",
		Aliases: []string{"label"},
		Short:   "List, upload, delete and download a product's labels",
	}

	list := &cobra.Command{
		Use:   "list <sku>",
		Short: "List every label version of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := a.client.ListLabels(cmd.Context(), args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.printer(cmd).Print(labels, func(tbl *uitable.Table) {
				tbl.AddRow(output.Header("ID"), output.Header("VERSION"), output.Header("FILE"), output.Header("ACTIVE"), output.Header("SKU MATCH"), output.Header("CREATED"), output.Header("BY"))
				for _, l := range labels {
					match := "-"
					if l.SKUMatched != nil {
						match = output.YesNo(*l.SKUMatched)
						if !*l.SKUMatched {
							match = output.Bad("no")
						}
					}
					tbl.AddRow(l.ID, l.Version, l.FileName, output.YesNo(l.Active), match, l.CreatedAt, l.CreatedBy)
				}
			})
		},
	}

	upload := &cobra.Command{
		Use:   "upload <sku> <file>",
		Short: "Upload a label file as the product's new active version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.client.UploadLabelFile(cmd.Context(), args[0], args[1])
			if err != nil {
				a.notice(cmd, product.UploadFailedNotice(err))
				return a.fail(cmd, err)
			}
			a.notice(cmd, product.UploadedNotice())
			return a.printer(cmd).Print(l, func(tbl *uitable.Table) {
				tbl.AddRow(output.Header("Label:"), labelSummary(*l))
			})
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <label-id>",
		Short: "Delete a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return a.fail(cmd, fmt.Errorf("invalid label id %q", args[0]))
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete label %d?", id)) {
				return a.fail(cmd, errors.New("aborted"))
			}
			if err := a.client.DeleteLabel(cmd.Context(), id); err != nil {
				n := product.DeleteFailedNotice(err)
				a.notice(cmd, n)
				return a.fail(cmd, err)
			}
			return a.printer(cmd).Message(product.DeletedNotice().Text, false)
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation.")

	var dir string
	var urlOnly bool
	download := &cobra.Command{
		Use:   "download <sku>",
		Short: "Download every label of a product as a zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if urlOnly {
				return a.printURL(cmd, a.client.BulkDownloadURL(args[0]))
			}
			path, err := a.client.DownloadLabels(cmd.Context(), args[0], a.dir(dir))
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.printSaved(cmd, path)
		},
	}

	preview := &cobra.Command{
		Use:   "preview <sku> <label-id>",
		Short: "Download one label's preview",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return a.fail(cmd, fmt.Errorf("invalid label id %q", args[1]))
			}
			if urlOnly {
				return a.printURL(cmd, a.client.PreviewURL(id))
			}
			labels, err := a.client.ListLabels(cmd.Context(), args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			var label *client.Label
			for i := range labels {
				if labels[i].ID == id {
					label = &labels[i]
					break
				}
			}
			if label == nil {
				return a.fail(cmd, fmt.Errorf("label %d does not belong to %s", id, args[0]))
			}
			path, err := a.client.DownloadPreview(cmd.Context(), *label, a.dir(dir))
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.printSaved(cmd, path)
		},
	}

	for _, c := range []*cobra.Command{download, preview} {
		c.Flags().StringVarP(&dir, "dir", "d", "", "Directory to save into (default: download_dir from config).")
		c.Flags().BoolVar(&urlOnly, "url", false, "Print the download URL instead of downloading.")
	}

	cmd.AddCommand(list, upload, del, download, preview)
	return cmd
}

func (a *app) dir(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.DownloadDir
}

func (a *app) printURL(cmd *cobra.Command, u string) error {
	return a.printer(cmd).Print(urlView{URL: u}, func(tbl *uitable.Table) {
		tbl.AddRow(u)
	})
}

func (a *app) printSaved(cmd *cobra.Command, path string) error {
	v := savedFile{Path: path}
	if fi, err := os.Stat(path); err == nil {
		v.Size = fi.Size()
	}
	return a.printer(cmd).Print(v, func(tbl *uitable.Table) {
		tbl.AddRow(output.Header("Saved:"), path)
		tbl.AddRow(output.Header("Size:"), util.FormatBytes(v.Size))
	})
}
