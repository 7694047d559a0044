package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gosuri/uitable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	SKU   string `json:"sku"`
	Title string `json:"catalogueTitle"`
}

func TestFormat(t *testing.T) {
	assert.Equal(t, FormatTable, (&Options{}).Format())
	assert.Equal(t, FormatYAML, (&Options{Output: "YAML"}).Format())
	assert.Equal(t, FormatJSON, (&Options{JSON: true, Output: "yaml"}).Format())

	assert.NoError(t, (&Options{Output: "json"}).Validate())
	assert.Error(t, (&Options{Output: "xml"}).Validate())
}

func TestPrint(t *testing.T) {
	rows := []row{{SKU: "ABC", Title: "Alpha"}}
	fill := func(tbl *uitable.Table) {
		tbl.AddRow("SKU", "TITLE")
		for _, r := range rows {
			tbl.AddRow(r.SKU, r.Title)
		}
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&Options{JSON: true}).NewPrinter(&buf).Print(rows, fill))
		assert.JSONEq(t, `[{"sku":"ABC","catalogueTitle":"Alpha"}]`, buf.String())
	})

	t.Run("yaml keeps json names", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&Options{Output: "yaml"}).NewPrinter(&buf).Print(rows, fill))
		assert.Equal(t, "- catalogueTitle: Alpha\n  sku: ABC\n", buf.String())
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&Options{}).NewPrinter(&buf).Print(rows, fill))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], "ABC")
		assert.Contains(t, lines[1], "Alpha")
	})
}

func TestHandleError(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")

	assert.Equal(t, boom, (&Options{}).HandleError(&buf, boom))
	assert.Empty(t, buf.String())

	assert.NoError(t, (&Options{JSON: true}).HandleError(&buf, boom))
	assert.JSONEq(t, `{"error":"boom"}`, buf.String())
}

func TestMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Options{Output: "json"}).NewPrinter(&buf).Message("Label deleted", false))
	assert.JSONEq(t, `{"message":"Label deleted","error":false}`, buf.String())

	buf.Reset()
	require.NoError(t, (&Options{}).NewPrinter(&buf).Message("Label deleted", false))
	assert.Contains(t, buf.String(), "Label deleted")
}
