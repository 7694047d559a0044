package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/fakeapi"
	"github.com/JohnDeved/labelctl/internal/journal"
)

// setupEnv points the config at a temp dir and both APIs at a fresh fake.
func setupEnv(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake := fakeapi.New()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("LABELCTL_CONFIG_DIR", dir)
	t.Setenv("LABELCTL_BASE_URL", srv.URL)
	t.Setenv("LABELCTL_CATALOGUE_URL", srv.URL)
	t.Setenv("LABELCTL_DOWNLOAD_DIR", filepath.Join(dir, "downloads"))
	t.Setenv("LABELCTL_REQUESTS_PER_SECOND", "1000")
	return fake, dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSearchJSON(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "ABC1", Title: "Alpha"})
	fake.AddProduct(client.Product{SKU: "ABC2", Title: "Beta"})
	fake.AddProduct(client.Product{SKU: "ZZZ"})

	out, _, err := execute(t, "", "search", "ABC", "--json")
	require.NoError(t, err)

	var products []client.Product
	require.NoError(t, json.Unmarshal([]byte(out), &products))
	var skus []string
	for _, p := range products {
		skus = append(skus, p.SKU)
	}
	assert.ElementsMatch(t, []string{"ABC1", "ABC2"}, skus)

	out, _, err = execute(t, "", "recent", "-o", "json")
	require.NoError(t, err)
	var queries []string
	require.NoError(t, json.Unmarshal([]byte(out), &queries))
	assert.Equal(t, []string{"ABC"}, queries)

	_, _, err = execute(t, "", "recent", "--clear")
	require.NoError(t, err)
	out, _, err = execute(t, "", "recent", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestSearchFailureUsesErrorEnvelope(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.Fail(http.MethodGet, "/api/products/search", fakeapi.Failure{Status: http.StatusInternalServerError, Message: "boom"})

	out, _, err := execute(t, "", "search", "x", "--json")
	require.NoError(t, err)

	var env map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Contains(t, env["error"], "boom")
}

func TestInvalidOutputFormat(t *testing.T) {
	setupEnv(t)
	_, _, err := execute(t, "", "search", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestProductEdit(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "C1", Title: "Old", MarketTerritories: []string{"EU"}})

	_, _, err := execute(t, "", "product", "edit", "C1", "--title", "New", "--toggle-territory", "EU", "--toggle-territory", "USA")
	require.NoError(t, err)

	p, ok := fake.Product("C1")
	require.True(t, ok)
	assert.Equal(t, "New", p.Title)
	assert.Equal(t, []string{"USA"}, p.MarketTerritories)

	_, _, err = execute(t, "", "product", "edit", "C1", "--toggle-territory", "Mars")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown territory")
}

func TestProductShowWithDanglingMaster(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "C1", Title: "Orphan", MasterSKU: "GONE"})
	fake.AddLabel(client.Label{SKU: "C1", Version: 1, FileName: "c1.pdf"}, nil)

	out, _, err := execute(t, "", "product", "show", "C1", "--json")
	require.NoError(t, err)

	var v struct {
		Product        client.Product `json:"product"`
		Labels         []client.Label `json:"labels"`
		RelationsError string         `json:"relationsError"`
		LabelsError    string         `json:"labelsError"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "Orphan", v.Product.Title)
	assert.Len(t, v.Labels, 1)
	assert.Contains(t, v.RelationsError, "GONE")
	assert.Empty(t, v.LabelsError)
}

func TestProductSaveFromStdin(t *testing.T) {
	fake, _ := setupEnv(t)

	_, _, err := execute(t, `{"sku":"N1","title":"Fresh","marketTerritories":["Japan"]}`, "product", "save", "-")
	require.NoError(t, err)

	p, ok := fake.Product("N1")
	require.True(t, ok)
	assert.Equal(t, "Fresh", p.Title)

	_, _, err = execute(t, `{"title":"no sku"}`, "product", "save", "-")
	require.Error(t, err)
}

func TestLabelsLifecycle(t *testing.T) {
	fake, dir := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "C1"})

	file := filepath.Join(t.TempDir(), "C1_front.pdf")
	require.NoError(t, os.WriteFile(file, []byte("label for C1"), 0o644))

	_, _, err := execute(t, "", "labels", "upload", "C1", file)
	require.NoError(t, err)

	out, _, err := execute(t, "", "labels", "list", "C1", "--json")
	require.NoError(t, err)
	var labels []client.Label
	require.NoError(t, json.Unmarshal([]byte(out), &labels))
	require.Len(t, labels, 1)
	assert.True(t, labels[0].Active)
	require.NotNil(t, labels[0].SKUMatched)
	assert.True(t, *labels[0].SKUMatched)

	out, _, err = execute(t, "", "labels", "download", "C1", "--json")
	require.NoError(t, err)
	var saved savedFile
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, filepath.Join(dir, "downloads"), filepath.Dir(saved.Path))
	assert.Positive(t, saved.Size)

	id := labels[0].ID
	idArg := strconv.FormatInt(id, 10)

	// Declining the prompt leaves the label alone.
	_, _, err = execute(t, "n\n", "labels", "delete", idArg)
	require.Error(t, err)
	assert.False(t, fake.LabelsFor("C1")[0].Deleted)

	_, _, err = execute(t, "y\n", "labels", "delete", idArg)
	require.NoError(t, err)
	assert.True(t, fake.LabelsFor("C1")[0].Deleted)
}

func TestLabelsUploadToMasterFails(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "M1", MasterProduct: true})

	file := filepath.Join(t.TempDir(), "M1.pdf")
	require.NoError(t, os.WriteFile(file, []byte("M1"), 0o644))

	_, stderr, err := execute(t, "", "labels", "upload", "M1", file)
	require.Error(t, err)
	assert.Contains(t, stderr, "Labels can only be uploaded to child products")
}

func TestBulkUploadJournals(t *testing.T) {
	fake, dir := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "AAA"})
	fake.AddProduct(client.Product{SKU: "BBB"})

	src := t.TempDir()
	for _, name := range []string{"AAA_front.pdf", "BBB-back.pdf", "NOPE_x.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644))
	}

	out, _, err := execute(t, "", "upload", filepath.Join(src, "*.pdf"), "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 uploads failed")

	var res uploadResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 2, res.Summary.Succeeded)
	assert.Len(t, fake.LabelsFor("AAA"), 1)
	assert.Len(t, fake.LabelsFor("BBB"), 1)

	db, err := journal.OpenDB(filepath.Join(dir, "uploads.db"))
	require.NoError(t, err)
	records, err := db.Batch(res.BatchID)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.Len(t, records, 3)

	out, _, err = execute(t, "", "uploads", "--search", "NOPE", "--json")
	require.NoError(t, err)
	var found []journal.Record
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "NOPE", found[0].SKU)
	assert.False(t, found[0].Succeeded())

	out, _, err = execute(t, "", "uploads", "--search", "product not found", "--json")
	require.NoError(t, err)
	found = nil
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1, "search covers error messages")
	assert.Equal(t, "NOPE", found[0].SKU)
}

func TestUploadDryRunUploadsNothing(t *testing.T) {
	fake, dir := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "AAA"})

	src := t.TempDir()
	for _, name := range []string{"AAA_front.pdf", "BBB-back.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644))
	}

	out, _, err := execute(t, "", "upload", "--dry-run", filepath.Join(src, "*.pdf"), "--json")
	require.NoError(t, err)

	var items []uploadItemView
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	got := map[string]string{}
	for _, it := range items {
		assert.Equal(t, "Pending", it.Status)
		got[filepath.Base(it.File)] = it.SKU
	}
	assert.Equal(t, map[string]string{"AAA_front.pdf": "AAA", "BBB-back.pdf": "BBB"}, got)

	assert.Empty(t, fake.LabelsFor("AAA"))
	for _, r := range fake.Requests() {
		assert.NotEqual(t, http.MethodPost, r.Method, "dry run sent %s", r.Path)
	}
	_, err = os.Stat(filepath.Join(dir, "uploads.db"))
	assert.True(t, os.IsNotExist(err), "dry run leaves no journal")
}

func TestStats(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.AddProduct(client.Product{SKU: "A", Category: "Protein"})

	out, _, err := execute(t, "", "stats", "--json")
	require.NoError(t, err)

	var v struct {
		Products struct {
			TotalProducts int64 `json:"totalProducts"`
		} `json:"products"`
		Uploads *journal.Stats `json:"uploads"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.EqualValues(t, 1, v.Products.TotalProducts)
	require.NotNil(t, v.Uploads)
	assert.Zero(t, v.Uploads.Uploads)
}

func TestVersion(t *testing.T) {
	setupEnv(t)
	out, _, err := execute(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
