package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/uploader"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func outcome(batch, file, sku string, st uploader.Status, err error) uploader.Outcome {
	now := time.Now()
	return uploader.Outcome{
		BatchID:     batch,
		FileName:    file,
		SKU:         sku,
		Status:      st,
		Err:         err,
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
	}
}

func TestRecordAndQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordUpload(ctx, outcome("b1", "ABC123_front.pdf", "ABC123", uploader.StatusSuccess, nil)))
	require.NoError(t, db.RecordUpload(ctx, outcome("b1", "zzz-back.pdf", "ZZZ", uploader.StatusError, errors.New("HTTP 500: Product not found"))))
	require.NoError(t, db.RecordUpload(ctx, outcome("b2", "def.pdf", "DEF", uploader.StatusSuccess, nil)))

	recent, err := db.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "def.pdf", recent[0].FileName)
	assert.Equal(t, "ZZZ", recent[1].SKU)
	assert.Equal(t, "HTTP 500: Product not found", recent[1].Error)
	assert.False(t, recent[1].Succeeded())
	assert.False(t, recent[0].CompletedAt.IsZero())

	batch, err := db.Batch("b1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "ABC123_front.pdf", batch[0].FileName)
	assert.True(t, batch[0].Succeeded())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Batches: 2, Uploads: 3, Succeeded: 2, Failed: 1}, stats)
}

func TestSearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordUpload(ctx, outcome("b1", "ABC123_front.pdf", "ABC123", uploader.StatusSuccess, nil)))
	require.NoError(t, db.RecordUpload(ctx, outcome("b1", "other.pdf", "OTHER", uploader.StatusSuccess, nil)))

	res, err := db.Search("abc123", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "ABC123", res[0].SKU)

	res, err = db.Search("()", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchMatchesErrors(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordUpload(ctx, outcome("b1", "ok.pdf", "OK1", uploader.StatusSuccess, nil)))
	require.NoError(t, db.RecordUpload(ctx, outcome("b1", "zzz-back.pdf", "ZZZ", uploader.StatusError, errors.New("HTTP 500: Product not found"))))

	res, err := db.Search("product not found", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "ZZZ", res[0].SKU)
}

func TestOpenDB_UpgradesOldSearchIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploads.db")
	old, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = old.Exec(`
		CREATE TABLE uploads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			sku TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT DEFAULT '',
			label_id INTEGER DEFAULT 0,
			version INTEGER DEFAULT 0,
			started_at DATETIME,
			completed_at DATETIME
		);
		CREATE VIRTUAL TABLE uploads_fts USING fts5(file_name, sku, content=uploads, content_rowid=id);
		CREATE TRIGGER uploads_ai AFTER INSERT ON uploads BEGIN
			INSERT INTO uploads_fts(rowid, file_name, sku) VALUES (new.id, new.file_name, new.sku);
		END;
		INSERT INTO uploads (batch_id, file_name, sku, status, error) VALUES ('b0', 'x.pdf', 'X1', 'Error (SKU not found?)', 'HTTP 500: Labels can only be uploaded to child products');
	`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	db, err := OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	res, err := db.Search("child products", 10)
	require.NoError(t, err)
	require.Len(t, res, 1, "rows written before the upgrade are reindexed")
	assert.Equal(t, "X1", res[0].SKU)

	require.NoError(t, db.RecordUpload(context.Background(), outcome("b1", "y.pdf", "Y1", uploader.StatusError, errors.New("timeout"))))
	res, err = db.Search("timeout", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Y1", res[0].SKU)
}

func TestSanitizeFTS5Query(t *testing.T) {
	assert.Equal(t, `"abc" "front"`, sanitizeFTS5Query(" abc  (front) "))
	assert.Equal(t, `"a""b"`, sanitizeFTS5Query(`a"b`))
	assert.Equal(t, "", sanitizeFTS5Query("  ()  "))
}

type okAPI struct{}

func (okAPI) UploadLabelFile(_ context.Context, sku, _ string) (*client.Label, error) {
	return &client.Label{ID: 7, SKU: sku, Version: 1, Active: true}, nil
}

func TestUploaderWritesThroughJournal(t *testing.T) {
	db := openTestDB(t)
	b := uploader.NewBatch(okAPI{}, []string{"abc_1.pdf"}, uploader.Options{Recorder: db})

	_, err := b.UploadAll(context.Background())
	require.NoError(t, err)

	recs, err := db.Batch(b.ID())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ABC", recs[0].SKU)
	assert.Equal(t, int64(7), recs[0].LabelID)
}
