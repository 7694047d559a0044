package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Download opens a streaming GET on fileURL. The caller must close the body.
func (c *Client) Download(ctx context.Context, fileURL string) (io.ReadCloser, int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := c.newRequest(ctx, request{method: http.MethodGet, url: fileURL})
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.dlHTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", fileURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, 0, newAPIError(resp, fileURL)
	}
	return resp.Body, resp.ContentLength, nil
}

// downloadTo streams fileURL into dest through a .part file that is renamed
// only once the body has been fully written.
func (c *Client) downloadTo(ctx context.Context, fileURL, dest string) error {
	body, size, err := c.Download(ctx, fileURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	partPath := dest + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return err
	}

	written, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if size > 0 && written != size {
		os.Remove(partPath)
		return fmt.Errorf("short download for %s: got %d of %d bytes", dest, written, size)
	}

	if err := os.Rename(partPath, dest); err != nil {
		return err
	}
	c.log.Info("downloaded", zap.String("url", fileURL), zap.String("path", dest), zap.Int64("bytes", written))
	return nil
}
