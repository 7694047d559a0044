// Package fakeapi is an in-memory stand-in for the label backend and the
// catalogue proxy, served with gin. Tests mount it on an httptest.Server.
package fakeapi

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JohnDeved/labelctl/internal/client"
)

// Request is one call the fake observed.
type Request struct {
	Method        string
	Path          string
	Query         string
	UserAgent     string
	RequestID     string
	Authorization string
	Organisation  string
}

// Failure forces a route to fail.
type Failure struct {
	Status  int
	Message string
	// HTML serves the message as the <title> of an HTML error page.
	HTML bool
}

// Server holds the fake state. Exported maps may be seeded before the first
// request; afterwards use the methods, which lock.
type Server struct {
	mu sync.Mutex

	Products  map[string]client.Product
	Labels    map[string][]client.Label
	Files     map[int64][]byte
	Catalogue map[string]client.CatalogueProduct
	// RawCatalogue overrides the catalogue body for a key, e.g. "title:foo" -> `[{"id":1}]`.
	RawCatalogue map[string]string
	Images       map[string]client.ImageMetadata
	// Stats, when non-nil, replaces the computed dashboard statistics.
	Stats map[string]any
	// Token, when set, is required as a bearer token on catalogue routes.
	Token string

	failures map[string]Failure
	requests []Request
	nextID   int64
	engine   *gin.Engine
}

// New returns an empty fake with its routes registered.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		Products:     map[string]client.Product{},
		Labels:       map[string][]client.Label{},
		Files:        map[int64][]byte{},
		Catalogue:    map[string]client.CatalogueProduct{},
		RawCatalogue: map[string]string{},
		Images:       map[string]client.ImageMetadata{},
		failures:     map[string]Failure{},
		nextID:       1,
	}

	r := gin.New()
	r.Use(s.record, s.inject)

	api := r.Group("/api")
	{
		api.GET("/hello", s.hello)
		api.GET("/products/search", s.searchProducts)
		api.GET("/products/:sku", s.getProduct)
		api.GET("/products/:sku/children", s.getChildren)
		api.POST("/products", s.saveProduct)
		api.GET("/products/:sku/labels", s.listLabels)
		api.POST("/products/:sku/labels", s.uploadLabel)
		api.GET("/products/:sku/labels/bulk-download", s.bulkDownload)
		api.DELETE("/labels/:id", s.deleteLabel)
		api.GET("/labels/:id/preview", s.previewLabel)
		api.GET("/dashboard/stats", s.stats)
	}

	cat := r.Group("/CatalogueService", s.requireToken)
	{
		cat.GET("/product/title/:q", s.catalogue("title"))
		cat.GET("/product/barcode/:q", s.catalogue("barcode"))
		cat.GET("/product/:q", s.catalogue("id"))
		cat.GET("/catalogue/:q", s.catalogue("catalogue"))
	}
	r.GET("/MilkyWay/imagesbyproduct/productid/:id", s.requireToken, s.images)

	s.engine = r
	return s
}

// Handler returns the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AddProduct stores a product.
func (s *Server) AddProduct(p client.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Products[p.SKU] = p
}

// AddLabel stores a label with the given content and returns its id.
func (s *Server) AddLabel(l client.Label, content []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextID
	s.nextID++
	s.Labels[l.SKU] = append(s.Labels[l.SKU], l)
	s.Files[l.ID] = content
	return l.ID
}

// Fail makes every request matching method and path (as sent, without the
// query string) fail until Clear is called.
func (s *Server) Fail(method, path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = f
}

// Clear removes a forced failure.
func (s *Server) Clear(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

// Requests returns a copy of every observed request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Product returns the stored product for sku.
func (s *Server) Product(sku string) (client.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Products[sku]
	return p, ok
}

// LabelsFor returns the stored labels for sku, deleted ones included.
func (s *Server) LabelsFor(sku string) []client.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]client.Label(nil), s.Labels[sku]...)
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		UserAgent:     c.GetHeader("User-Agent"),
		RequestID:     c.GetHeader("X-Request-ID"),
		Authorization: c.GetHeader("Authorization"),
		Organisation:  c.GetHeader("X-Organisation"),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.failures[c.Request.Method+" "+c.Request.URL.Path]
	s.mu.Unlock()
	if !ok {
		c.Next()
		return
	}
	if f.HTML {
		page := fmt.Sprintf("<html><head><title>%s</title></head><body><h1>%d</h1></body></html>", f.Message, f.Status)
		c.Data(f.Status, "text/html; charset=utf-8", []byte(page))
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(f.Status, springError(f.Status, f.Message, c.Request.URL.Path))
}

func springError(status int, message, path string) gin.H {
	return gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    status,
		"error":     http.StatusText(status),
		"message":   message,
		"path":      path,
	}
}

func (s *Server) hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello World"})
}

// withLabels attaches the non-deleted labels to a product copy. Caller holds mu.
func (s *Server) withLabels(p client.Product) client.Product {
	p.Labels = nil
	for _, l := range s.Labels[p.SKU] {
		if !l.Deleted {
			p.Labels = append(p.Labels, l)
		}
	}
	return p
}

func (s *Server) searchProducts(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("query")))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []client.Product{}
	for _, p := range s.Products {
		if strings.Contains(strings.ToLower(p.SKU), q) || strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, s.withLabels(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.Products[c.Param("sku")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, s.withLabels(p))
}

func (s *Server) getChildren(c *gin.Context) {
	sku := c.Param("sku")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []client.Product{}
	for _, p := range s.Products {
		if p.MasterSKU == sku {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	c.JSON(http.StatusOK, out)
}

func (s *Server) saveProduct(c *gin.Context) {
	var p client.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, springError(http.StatusBadRequest, err.Error(), c.Request.URL.Path))
		return
	}
	if p.SKU == "" {
		c.JSON(http.StatusBadRequest, springError(http.StatusBadRequest, "sku is required", c.Request.URL.Path))
		return
	}
	p.Labels = nil

	s.mu.Lock()
	s.Products[p.SKU] = p
	s.mu.Unlock()
	c.JSON(http.StatusOK, p)
}

func (s *Server) listLabels(c *gin.Context) {
	sku := c.Param("sku")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []client.Label{}
	for _, l := range s.Labels[sku] {
		if !l.Deleted {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	c.JSON(http.StatusOK, out)
}

func (s *Server) uploadLabel(c *gin.Context) {
	sku := c.Param("sku")
	path := c.Request.URL.Path

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, springError(http.StatusBadRequest, "Required part 'file' is not present.", path))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, springError(http.StatusInternalServerError, err.Error(), path))
		return
	}
	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, springError(http.StatusInternalServerError, err.Error(), path))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.Products[sku]
	if !ok {
		c.JSON(http.StatusInternalServerError, springError(http.StatusInternalServerError, "Product not found", path))
		return
	}
	if p.MasterProduct {
		c.JSON(http.StatusInternalServerError, springError(http.StatusInternalServerError, "Labels can only be uploaded to child products", path))
		return
	}

	version := 0
	labels := s.Labels[sku]
	for i := range labels {
		if labels[i].Version > version {
			version = labels[i].Version
		}
		labels[i].Active = false
	}
	matched := bytes.Contains(bytes.ToUpper(content), []byte(strings.ToUpper(sku)))
	l := client.Label{
		ID:         s.nextID,
		SKU:        sku,
		Version:    version + 1,
		FileName:   fh.Filename,
		Active:     true,
		SKUMatched: &matched,
		CreatedAt:  time.Now().UTC().Format("2006-01-02T15:04:05"),
		CreatedBy:  "Dummy User",
	}
	s.nextID++
	s.Labels[sku] = append(labels, l)
	s.Files[l.ID] = content
	c.JSON(http.StatusOK, l)
}

func (s *Server) findLabel(id int64) (*client.Label, bool) {
	for sku := range s.Labels {
		for i := range s.Labels[sku] {
			if s.Labels[sku][i].ID == id {
				return &s.Labels[sku][i], true
			}
		}
	}
	return nil, false
}

func (s *Server) deleteLabel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.findLabel(id)
	if !ok {
		c.JSON(http.StatusNotFound, springError(http.StatusNotFound, "Label not found", c.Request.URL.Path))
		return
	}
	l.Deleted = true
	l.Active = false
	c.Status(http.StatusOK)
}

func (s *Server) previewLabel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.findLabel(id)
	if !ok {
		c.JSON(http.StatusInternalServerError, springError(http.StatusInternalServerError, "Label not found", c.Request.URL.Path))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", l.FileName))
	c.Data(http.StatusOK, "application/pdf", s.Files[id])
}

func (s *Server) bulkDownload(c *gin.Context) {
	sku := c.Param("sku")

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, l := range s.Labels[sku] {
		if l.Deleted {
			continue
		}
		w, err := zw.Create(fmt.Sprintf("%d_%s", l.Version, l.FileName))
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		w.Write(s.Files[l.ID])
	}
	if err := zw.Close(); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"labels_%s.zip\"", sku))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) stats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Stats != nil {
		c.JSON(http.StatusOK, s.Stats)
		return
	}

	total, ready := 0, 0
	categories := map[string]int{}
	for _, p := range s.Products {
		total++
		if s.withLabels(p).HasActiveLabel() {
			ready++
		}
		if p.Category != "" {
			categories[p.Category]++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(ready) / float64(total) * 100
	}
	c.JSON(http.StatusOK, gin.H{
		"totalProducts":        total,
		"readyProducts":        ready,
		"readinessPercentage":  pct,
		"categoryDistribution": categories,
	})
}

func (s *Server) requireToken(c *gin.Context) {
	s.mu.Lock()
	token := s.Token
	s.mu.Unlock()
	if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) catalogue(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := kind + ":" + c.Param("q")

		s.mu.Lock()
		raw, hasRaw := s.RawCatalogue[key]
		cp, ok := s.Catalogue[key]
		s.mu.Unlock()

		switch {
		case hasRaw:
			c.Data(http.StatusOK, "application/json", []byte(raw))
		case ok:
			c.JSON(http.StatusOK, cp)
		default:
			c.Data(http.StatusOK, "application/json", []byte("null"))
		}
	}
}

func (s *Server) images(c *gin.Context) {
	s.mu.Lock()
	meta, ok := s.Images[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, meta)
}
