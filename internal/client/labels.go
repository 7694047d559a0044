package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ListLabels returns every label version stored for a SKU.
func (c *Client) ListLabels(ctx context.Context, sku string) ([]Label, error) {
	var out []Label
	if _, err := c.getJSON(ctx, c.apiURL("api", "products", sku, "labels"), false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadLabel sends one label file as the multipart field "file".
func (c *Client) UploadLabel(ctx context.Context, sku, fileName string, r io.Reader) (*Label, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	u := c.apiURL("api", "products", sku, "labels")
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		url:    u,
		body:   &buf,
		header: http.Header{"Content-Type": []string{mw.FormDataContentType()}},
	})
	if err != nil {
		return nil, err
	}

	var out Label
	if _, err := decodeBody(body, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadLabelFile uploads the file at path for a SKU.
func (c *Client) UploadLabelFile(ctx context.Context, sku, path string) (*Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.UploadLabel(ctx, sku, filepath.Base(path), f)
}

// DeleteLabel soft-deletes a label version.
func (c *Client) DeleteLabel(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		url:    c.apiURL("api", "labels", strconv.FormatInt(id, 10)),
	})
	return err
}

// BulkDownloadURL is the address of the zip archive of every label for a SKU.
func (c *Client) BulkDownloadURL(sku string) string {
	return c.apiURL("api", "products", sku, "labels", "bulk-download")
}

// PreviewURL is the address of the inline PDF preview of a label.
func (c *Client) PreviewURL(id int64) string {
	return c.apiURL("api", "labels", strconv.FormatInt(id, 10), "preview")
}

// DownloadLabels saves the label archive for a SKU as labels_<SKU>.zip in destDir.
func (c *Client) DownloadLabels(ctx context.Context, sku, destDir string) (string, error) {
	dest := filepath.Join(destDir, ArchiveName(sku))
	if err := c.downloadTo(ctx, c.BulkDownloadURL(sku), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ArchiveName is the file name of a SKU's label archive. Path separators in
// the SKU become "_" so the name never leaves the download directory.
func ArchiveName(sku string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, sku)
	return "labels_" + safe + ".zip"
}

// DownloadPreview saves the PDF preview of a label into destDir.
func (c *Client) DownloadPreview(ctx context.Context, label Label, destDir string) (string, error) {
	name := label.FileName
	if name == "" {
		name = "label_" + strconv.FormatInt(label.ID, 10) + ".pdf"
	}
	dest := filepath.Join(destDir, fmt.Sprintf("v%d_%s", label.Version, filepath.Base(name)))
	if err := c.downloadTo(ctx, c.PreviewURL(label.ID), dest); err != nil {
		return "", err
	}
	return dest, nil
}
