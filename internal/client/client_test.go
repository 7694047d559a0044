package client_test

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/fakeapi"
)

func newClient(t *testing.T, fake *fakeapi.Server, token string) *client.Client {
	t.Helper()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return client.New(client.Options{
		BaseURL:           srv.URL,
		CatalogueURL:      srv.URL,
		Token:             token,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	})
}

func TestHelloAndCommonHeaders(t *testing.T) {
	fake := fakeapi.New()
	c := newClient(t, fake, "")

	msg, err := c.Hello(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello World", msg)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, client.UserAgent, reqs[0].UserAgent)
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.Empty(t, reqs[0].Authorization, "backend calls carry no bearer token")
}

func TestSearchProducts_EscapesQueryAndAttachesLabels(t *testing.T) {
	fake := fakeapi.New()
	fake.AddProduct(client.Product{SKU: "ABC1", Title: "Whey & Co"})
	fake.AddProduct(client.Product{SKU: "XYZ9", Title: "Creatine"})
	fake.AddLabel(client.Label{SKU: "ABC1", Version: 1, FileName: "a.pdf", Active: true}, []byte("%PDF-"))
	c := newClient(t, fake, "")

	got, err := c.SearchProducts(context.Background(), "whey & co")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ABC1", got[0].SKU)
	assert.True(t, got[0].HasActiveLabel())

	reqs := fake.Requests()
	assert.Equal(t, "query=whey+%26+co", reqs[len(reqs)-1].Query)
}

func TestGetProduct_NotFound(t *testing.T) {
	fake := fakeapi.New()
	c := newClient(t, fake, "")

	_, err := c.GetProduct(context.Background(), "MISSING")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
	assert.Equal(t, "404", client.StatusText(err))
}

func TestSaveProductAndChildren(t *testing.T) {
	fake := fakeapi.New()
	c := newClient(t, fake, "")
	ctx := context.Background()

	_, err := c.SaveProduct(ctx, client.Product{SKU: "M1", Title: "Master", MasterProduct: true})
	require.NoError(t, err)
	_, err = c.SaveProduct(ctx, client.Product{SKU: "C1", MasterSKU: "M1", MarketTerritories: []string{"EU"}})
	require.NoError(t, err)

	kids, err := c.GetChildren(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "C1", kids[0].SKU)
	assert.Equal(t, []string{"EU"}, kids[0].MarketTerritories)
}

func TestUploadLabel_ServerMessage(t *testing.T) {
	fake := fakeapi.New()
	fake.AddProduct(client.Product{SKU: "M1", MasterProduct: true})
	fake.AddProduct(client.Product{SKU: "C1", MasterSKU: "M1"})
	c := newClient(t, fake, "")
	ctx := context.Background()

	l, err := c.UploadLabel(ctx, "C1", "c1_front.pdf", strings.NewReader("label for C1"))
	require.NoError(t, err)
	assert.Equal(t, 1, l.Version)
	assert.True(t, l.Active)
	require.NotNil(t, l.SKUMatched)
	assert.True(t, *l.SKUMatched)

	_, err = c.UploadLabel(ctx, "M1", "m1.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, "Labels can only be uploaded to child products", client.ServerMessage(err))
	assert.Equal(t, "500", client.StatusText(err))
}

func TestUploadLabel_HTMLErrorPageTitle(t *testing.T) {
	fake := fakeapi.New()
	fake.Fail(http.MethodPost, "/api/products/C1/labels", fakeapi.Failure{
		Status:  http.StatusRequestEntityTooLarge,
		Message: "413 Request Entity Too Large",
		HTML:    true,
	})
	c := newClient(t, fake, "")

	_, err := c.UploadLabel(context.Background(), "C1", "big.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, "413 Request Entity Too Large", client.ServerMessage(err))
}

func TestDeleteLabelAndList(t *testing.T) {
	fake := fakeapi.New()
	fake.AddProduct(client.Product{SKU: "C1"})
	id := fake.AddLabel(client.Label{SKU: "C1", Version: 1, FileName: "a.pdf", Active: true}, nil)
	fake.AddLabel(client.Label{SKU: "C1", Version: 2, FileName: "b.pdf"}, nil)
	c := newClient(t, fake, "")
	ctx := context.Background()

	require.NoError(t, c.DeleteLabel(ctx, id))

	labels, err := c.ListLabels(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, 2, labels[0].Version)

	err = c.DeleteLabel(ctx, 999)
	assert.True(t, client.IsNotFound(err))
}

func TestDownloadLabels_WritesZip(t *testing.T) {
	fake := fakeapi.New()
	fake.AddProduct(client.Product{SKU: "C1"})
	fake.AddLabel(client.Label{SKU: "C1", Version: 3, FileName: "front.pdf"}, []byte("%PDF-front"))
	c := newClient(t, fake, "")
	dir := t.TempDir()

	path, err := c.DownloadLabels(context.Background(), "C1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "labels_C1.zip"), path)
	assert.NoFileExists(t, path+".part")

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "3_front.pdf", zr.File[0].Name)
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		sku  string
		want string
	}{
		{"C1", "labels_C1.zip"},
		{"../evil", "labels_.._evil.zip"},
		{"a/b\\c", "labels_a_b_c.zip"},
		{"/etc/passwd", "labels__etc_passwd.zip"},
	}
	for _, tt := range tests {
		got := client.ArchiveName(tt.sku)
		assert.Equal(t, tt.want, got, tt.sku)
		assert.Equal(t, got, filepath.Base(got))
	}
}

func TestDownloadLabels_StaysInDestDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK"))
	}))
	t.Cleanup(srv.Close)
	c := client.New(client.Options{BaseURL: srv.URL, CatalogueURL: srv.URL, RequestsPerSecond: 1000, Timeout: 5 * time.Second})

	parent := t.TempDir()
	dir := filepath.Join(parent, "downloads")
	path, err := c.DownloadLabels(context.Background(), "../evil", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
	assert.NoFileExists(t, filepath.Join(parent, "evil.zip"))
	assert.NoFileExists(t, filepath.Join(parent, "labels_..", "evil.zip"))
}

func TestDownloadPreview(t *testing.T) {
	fake := fakeapi.New()
	fake.AddProduct(client.Product{SKU: "C1"})
	id := fake.AddLabel(client.Label{SKU: "C1", Version: 2, FileName: "front.pdf"}, []byte("%PDF-1.4"))
	c := newClient(t, fake, "")

	path, err := c.DownloadPreview(context.Background(), client.Label{ID: id, Version: 2, FileName: "front.pdf"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "v2_front.pdf", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.True(t, strings.HasSuffix(c.PreviewURL(id), "/api/labels/1/preview"))
}

func TestCatalogue_HeadersAndShapes(t *testing.T) {
	fake := fakeapi.New()
	fake.Token = "secret"
	fake.RawCatalogue["title:Whey"] = `[{"productId": 10530943, "name": "Impact Whey"}]`
	fake.RawCatalogue["barcode:5055"] = `{"id": "42", "title": "Creatine", "barcode": "5055", "catalogue": "CAT-1"}`
	c := newClient(t, fake, "secret")
	ctx := context.Background()

	byTitle, err := c.CatalogueByTitle(ctx, "Whey")
	require.NoError(t, err)
	require.NotNil(t, byTitle)
	assert.Equal(t, "10530943", byTitle.Key())
	assert.Equal(t, "Impact Whey", byTitle.DisplayTitle())

	byBarcode, err := c.CatalogueByBarcode(ctx, "5055")
	require.NoError(t, err)
	require.NotNil(t, byBarcode)
	assert.Equal(t, "42", byBarcode.Key())
	assert.Equal(t, "CAT-1", byBarcode.Catalogue)

	none, err := c.CatalogueByID(ctx, "777")
	require.NoError(t, err)
	assert.Nil(t, none, "null body means no match")

	for _, r := range fake.Requests() {
		assert.Equal(t, "Bearer secret", r.Authorization)
		assert.Equal(t, "default", r.Organisation)
		assert.Equal(t, "organisation=default", r.Query)
	}
}

func TestCatalogue_Unauthorized(t *testing.T) {
	fake := fakeapi.New()
	fake.Token = "secret"
	c := newClient(t, fake, "wrong")

	_, err := c.CatalogueByNumber(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
}

func TestProductImage(t *testing.T) {
	fake := fakeapi.New()
	fake.Images["42"] = client.ImageMetadata{
		"42": map[string]any{"1": map[string]any{"LARGEPRODUCT": "/11/22/large.jpg"}},
	}
	c := newClient(t, fake, "")
	ctx := context.Background()

	url, err := c.ProductImage(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "https://s1.thcdn.com/productimg/11/22/large.jpg", url)

	url, err = c.ProductImage(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestDashboardStats_KeepsRawKeys(t *testing.T) {
	fake := fakeapi.New()
	fake.Stats = map[string]any{
		"totalProducts":        4,
		"readyProducts":        1,
		"readinessPercentage":  25.0,
		"categoryDistribution": map[string]int{"Supplement": 3, "Food": 1},
		"lastImport":           "2026-01-01",
	}
	c := newClient(t, fake, "")

	stats, err := c.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.ReadyProducts)
	assert.InDelta(t, 25.0, stats.ReadinessPercentage, 0.001)
	assert.EqualValues(t, 3, stats.CategoryDistribution["Supplement"])
	assert.Equal(t, []string{"lastImport"}, stats.ExtraKeys())
}

func TestTokenExpiry(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)

	exp, ok := client.TokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, exp.Before(time.Now()))

	_, ok = client.TokenExpiry("opaque-token")
	assert.False(t, ok)
	_, ok = client.TokenExpiry("")
	assert.False(t, ok)
}
