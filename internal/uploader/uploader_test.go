package uploader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JohnDeved/labelctl/internal/client"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExtractSKU(t *testing.T) {
	tests := map[string]string{
		"ABC123_front.jpg":   "ABC123",
		"abc-back.png":       "ABC",
		"xyz.pdf":            "XYZ",
		"/tmp/in/def_1.pdf":  "DEF",
		"noext":              "NOEXT",
		"a-b_c.pdf":          "A",
		"_leading.pdf":       "",
		"multi.dot.name.pdf": "MULTI.DOT.NAME",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractSKU(in), in)
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"A1_front.pdf", "B2_back.pdf", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	missing := filepath.Join(dir, "C3_missing.pdf")

	got := ExpandPaths([]string{
		filepath.Join(dir, "*.pdf"),
		filepath.Join(dir, "A1_front.pdf"),
		missing,
	})
	assert.Equal(t, []string{
		filepath.Join(dir, "A1_front.pdf"),
		filepath.Join(dir, "B2_back.pdf"),
		missing,
	}, got)
	assert.Empty(t, ExpandPaths(nil))
}

// fakeAPI fails uploads for SKUs in bad and can hold every call at a gate.
type fakeAPI struct {
	bad      map[string]bool
	gate     chan struct{}
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

var errSKUNotFound = errors.New("HTTP 500: Product not found")

func (f *fakeAPI) UploadLabelFile(ctx context.Context, sku, path string) (*client.Label, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.bad[sku] {
		return nil, errSKUNotFound
	}
	return &client.Label{ID: int64(f.calls.Load()), SKU: sku, Version: 1, Active: true}, nil
}

type memRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *memRecorder) RecordUpload(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func TestUploadAll_OneBadSKU(t *testing.T) {
	api := &fakeAPI{bad: map[string]bool{"BAD": true}}
	rec := &memRecorder{}
	b := NewBatch(api, []string{"AAA_1.pdf", "bad-2.pdf", "ccc.pdf"}, Options{Recorder: rec})

	for _, it := range b.Items() {
		assert.Equal(t, StatusPending, it.Status)
	}
	assert.Equal(t, 3, b.Pending())
	assert.False(t, b.Uploading())

	summary, err := b.UploadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Succeeded: 2, Failed: 1}, summary)
	assert.False(t, b.Uploading())
	assert.Zero(t, b.Pending())

	for _, it := range b.Items() {
		st, itemErr := it.State()
		if it.SKU == "BAD" {
			assert.Equal(t, StatusError, st)
			assert.ErrorIs(t, itemErr, errSKUNotFound)
			assert.Equal(t, "Error (SKU not found?)", st.String())
		} else {
			assert.Equal(t, StatusSuccess, st, it.Name)
			assert.NotNil(t, it.Label)
		}
		assert.False(t, it.CompletedAt.IsZero())
	}

	select {
	case <-b.Done():
	default:
		t.Fatal("Done() not closed after UploadAll returned")
	}
	assert.Len(t, rec.outcomes, 3)
}

func TestUploadAll_UploadingUntilEveryItemSettles(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	b := NewBatch(api, []string{"a_1.pdf", "b_1.pdf"}, Options{})

	var changes atomic.Int32
	b.SetOnChange(func() { changes.Add(1) })

	result := make(chan Summary, 1)
	go func() {
		s, _ := b.UploadAll(context.Background())
		result <- s
	}()

	require.Eventually(t, func() bool { return api.calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, b.Uploading())

	_, err := b.UploadAll(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)

	api.gate <- struct{}{}
	require.Eventually(t, func() bool {
		settled := 0
		for _, it := range b.Items() {
			if st, _ := it.State(); st.Terminal() {
				settled++
			}
		}
		return settled == 1
	}, time.Second, time.Millisecond)
	assert.True(t, b.Uploading(), "one item still in flight")

	api.gate <- struct{}{}
	s := <-result
	assert.Equal(t, 2, s.Succeeded)
	assert.False(t, b.Uploading())
	assert.Greater(t, changes.Load(), int32(4))
}

func TestUploadAll_EmptyBatchCompletesImmediately(t *testing.T) {
	b := NewBatch(&fakeAPI{}, nil, Options{})

	select {
	case <-b.Done():
	default:
		t.Fatal("empty batch should be done before UploadAll")
	}

	s, err := b.UploadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
	assert.False(t, b.Uploading())
}

func TestUploadAll_RespectsLimit(t *testing.T) {
	api := &fakeAPI{}
	paths := []string{"a_1.pdf", "b_1.pdf", "c_1.pdf", "d_1.pdf", "e_1.pdf", "f_1.pdf"}
	b := NewBatch(api, paths, Options{MaxConcurrent: 2})

	s, err := b.UploadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, s.Succeeded)
	assert.LessOrEqual(t, api.maxSeen.Load(), int32(2))
}

func TestRetryFailed_OnlyRerunsErrors(t *testing.T) {
	api := &fakeAPI{bad: map[string]bool{"BAD": true}}
	b := NewBatch(api, []string{"ok_1.pdf", "bad_1.pdf"}, Options{})

	_, err := b.UploadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), api.calls.Load())

	delete(api.bad, "BAD")
	s, err := b.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Succeeded: 2}, s)
	assert.Equal(t, int32(3), api.calls.Load(), "only the failed item is retried")

	s, err = b.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestUploadAll_CancelledContext(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	b := NewBatch(api, []string{"a_1.pdf"}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := b.UploadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Failed)
	assert.False(t, b.Uploading())
}
