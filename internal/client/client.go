package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// UserAgent is sent on every request.
const UserAgent = "labelctl/1.0"

// Options configures a Client.
type Options struct {
	// BaseURL is the label management backend root (serves /api/...).
	BaseURL string
	// CatalogueURL is the catalogue proxy root (serves /CatalogueService and /MilkyWay).
	CatalogueURL string
	// Token is the bearer token for catalogue calls.
	Token        string
	Organisation string
	ImageCDNHost string

	RequestsPerSecond float64
	// Timeout bounds JSON requests. Streaming downloads are bounded by context only.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client handles HTTP requests to the label backend and the catalogue proxy.
type Client struct {
	apiHTTP *http.Client // Per-request timeout for JSON calls
	dlHTTP  *http.Client // No timeout for downloads (managed by context)
	limiter *rate.Limiter
	log     *zap.Logger

	baseURL      string
	catalogueURL string
	token        string
	organisation string
	imageHost    string

	tokenCheck sync.Once
}

// New creates a new client.
func New(opts Options) *Client {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10.0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Organisation == "" {
		opts.Organisation = "default"
	}
	if opts.ImageCDNHost == "" {
		opts.ImageCDNHost = DefaultImageCDNHost
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	catalogueURL := opts.CatalogueURL
	if catalogueURL == "" {
		catalogueURL = opts.BaseURL
	}

	return &Client{
		apiHTTP: &http.Client{
			Timeout: opts.Timeout,
		},
		dlHTTP:       &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 5),
		log:          opts.Logger,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		catalogueURL: strings.TrimRight(catalogueURL, "/"),
		token:        opts.Token,
		organisation: opts.Organisation,
		imageHost:    opts.ImageCDNHost,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ImageHost returns the configured image CDN host.
func (c *Client) ImageHost() string {
	return c.imageHost
}

// request describes one JSON call.
type request struct {
	method    string
	url       string
	body      io.Reader
	header    http.Header
	catalogue bool
}

// newRequest builds an http.Request with the common headers applied.
func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.catalogue {
		c.checkToken()
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("X-Organisation", c.organisation)
	}
	return req, nil
}

// do sends a request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.apiHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", r.method),
		zap.String("url", r.url),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, r.url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.url, err)
	}
	return body, nil
}

// getJSON issues a GET and decodes the response into out. It reports false
// when the body was empty or JSON null, leaving out untouched.
func (c *Client) getJSON(ctx context.Context, rawURL string, catalogue bool, out any) (bool, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, url: rawURL, catalogue: catalogue})
	if err != nil {
		return false, err
	}
	return decodeBody(body, rawURL, out)
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	body, err := c.do(ctx, request{
		method: method,
		url:    rawURL,
		body:   bytes.NewReader(payload),
		header: http.Header{"Content-Type": []string{"application/json"}},
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	_, err = decodeBody(body, rawURL, out)
	return err
}

func decodeBody(body []byte, rawURL string, out any) (bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return true, nil
}

// apiURL joins the backend base URL with path segments, escaping each one.
func (c *Client) apiURL(segments ...string) string {
	return joinURL(c.baseURL, segments...)
}

func (c *Client) catalogueServiceURL(segments ...string) string {
	u := joinURL(c.catalogueURL, segments...)
	return u + "?organisation=" + url.QueryEscape(c.organisation)
}

func joinURL(base string, segments ...string) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, s := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(s))
	}
	return sb.String()
}
