package uploader

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JohnDeved/labelctl/internal/client"
)

// Status represents an upload's state.
type Status int

const (
	StatusPending Status = iota
	StatusUploading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUploading:
		return "Uploading..."
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error (SKU not found?)"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is final for the current run.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Item is one selected file. Fields are guarded by Mu once the batch runs.
type Item struct {
	ID          int
	Path        string
	Name        string
	SKU         string
	Status      Status
	Err         error
	Label       *client.Label
	StartedAt   time.Time
	CompletedAt time.Time
	Mu          sync.Mutex
}

// State returns the item's status and error.
func (it *Item) State() (Status, error) {
	it.Mu.Lock()
	defer it.Mu.Unlock()
	return it.Status, it.Err
}

// API is the subset of the backend client the uploader needs.
type API interface {
	UploadLabelFile(ctx context.Context, sku, path string) (*client.Label, error)
}

// Outcome describes one settled upload.
type Outcome struct {
	BatchID     string
	FileName    string
	SKU         string
	Status      Status
	Err         error
	LabelID     int64
	Version     int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Recorder persists upload outcomes.
type Recorder interface {
	RecordUpload(ctx context.Context, o Outcome) error
}

// Options tune a batch.
type Options struct {
	// MaxConcurrent caps parallel uploads. 0 means one goroutine per item.
	MaxConcurrent int
	Recorder      Recorder
	Logger        *zap.Logger
}

// Summary counts a batch's items by outcome.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ErrInProgress is returned when a run is requested while one is active.
var ErrInProgress = errors.New("upload already in progress")

// Batch uploads a set of label files, each to the SKU derived from its name.
type Batch struct {
	id    string
	api   API
	opts  Options
	log   *zap.Logger
	items []*Item

	mu         sync.Mutex
	running    bool
	done       chan struct{}
	doneClosed bool
	onChange   func()
}

// NewBatch creates a batch with every file pending. A batch with no files is
// complete from the start.
func NewBatch(api API, paths []string, opts Options) *Batch {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := &Batch{
		id:   uuid.NewString(),
		api:  api,
		opts: opts,
		done: make(chan struct{}),
	}
	b.log = opts.Logger.With(zap.String("batch", b.id))
	for i, p := range paths {
		name := filepath.Base(p)
		b.items = append(b.items, &Item{
			ID:     i + 1,
			Path:   p,
			Name:   name,
			SKU:    ExtractSKU(name),
			Status: StatusPending,
		})
	}
	if len(b.items) == 0 {
		b.closeDone()
	}
	return b
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	return b.id
}

// SetOnChange sets a callback invoked whenever an item changes state.
func (b *Batch) SetOnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Batch) notify() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Items returns a snapshot of the batch's items.
func (b *Batch) Items() []*Item {
	result := make([]*Item, len(b.items))
	copy(result, b.items)
	return result
}

// Uploading reports whether a run is in flight.
func (b *Batch) Uploading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Done is closed once every item of the current run has settled.
func (b *Batch) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// closeDone must be called with mu held or before the batch is shared.
func (b *Batch) closeDone() {
	if !b.doneClosed {
		close(b.done)
		b.doneClosed = true
	}
}

// Summary counts items by outcome.
func (b *Batch) Summary() Summary {
	s := Summary{Total: len(b.items)}
	for _, it := range b.items {
		switch st, _ := it.State(); st {
		case StatusSuccess:
			s.Succeeded++
		case StatusError:
			s.Failed++
		}
	}
	return s
}

// Pending counts items that have not been uploaded yet.
func (b *Batch) Pending() int {
	n := 0
	for _, it := range b.items {
		if st, _ := it.State(); st == StatusPending {
			n++
		}
	}
	return n
}

// UploadAll uploads every pending item concurrently and blocks until all of
// them have settled. A failed item never stops the others.
func (b *Batch) UploadAll(ctx context.Context) (Summary, error) {
	return b.start(ctx, func(it *Item) bool { return it.Status == StatusPending })
}

// RetryFailed re-runs only the items that ended in error.
func (b *Batch) RetryFailed(ctx context.Context) (Summary, error) {
	return b.start(ctx, func(it *Item) bool {
		if it.Status != StatusError {
			return false
		}
		it.Status = StatusPending
		it.Err = nil
		it.StartedAt = time.Time{}
		it.CompletedAt = time.Time{}
		return true
	})
}

func (b *Batch) start(ctx context.Context, selectItem func(*Item) bool) (Summary, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return Summary{}, ErrInProgress
	}

	var selected []*Item
	for _, it := range b.items {
		it.Mu.Lock()
		if selectItem(it) {
			selected = append(selected, it)
		}
		it.Mu.Unlock()
	}
	if len(selected) == 0 {
		b.closeDone()
		b.mu.Unlock()
		return b.Summary(), nil
	}

	b.running = true
	if b.doneClosed {
		b.done = make(chan struct{})
		b.doneClosed = false
	}
	b.mu.Unlock()
	b.notify()

	b.log.Info("upload started", zap.Int("files", len(selected)), zap.Int("limit", b.opts.MaxConcurrent))

	g := new(errgroup.Group)
	if b.opts.MaxConcurrent > 0 {
		g.SetLimit(b.opts.MaxConcurrent)
	}
	for _, it := range selected {
		g.Go(func() error {
			b.uploadOne(ctx, it)
			return nil
		})
	}
	_ = g.Wait()

	b.mu.Lock()
	b.running = false
	b.closeDone()
	b.mu.Unlock()
	b.notify()

	summary := b.Summary()
	b.log.Info("upload finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, ctx.Err()
}

func (b *Batch) uploadOne(ctx context.Context, it *Item) {
	it.Mu.Lock()
	it.Status = StatusUploading
	it.StartedAt = time.Now()
	it.Err = nil
	it.Mu.Unlock()
	b.notify()

	label, err := b.api.UploadLabelFile(ctx, it.SKU, it.Path)

	it.Mu.Lock()
	if err != nil {
		it.Status = StatusError
		it.Err = err
	} else {
		it.Status = StatusSuccess
		it.Label = label
	}
	it.CompletedAt = time.Now()
	outcome := Outcome{
		BatchID:     b.id,
		FileName:    it.Name,
		SKU:         it.SKU,
		Status:      it.Status,
		Err:         it.Err,
		StartedAt:   it.StartedAt,
		CompletedAt: it.CompletedAt,
	}
	if label != nil {
		outcome.LabelID = label.ID
		outcome.Version = label.Version
	}
	it.Mu.Unlock()

	if err != nil {
		b.log.Warn("upload failed", zap.String("file", it.Name), zap.String("sku", it.SKU), zap.Error(err))
	} else {
		b.log.Debug("uploaded", zap.String("file", it.Name), zap.String("sku", it.SKU))
	}

	if b.opts.Recorder != nil {
		// Recording outlives a cancelled run so the journal still sees it.
		if rerr := b.opts.Recorder.RecordUpload(context.WithoutCancel(ctx), outcome); rerr != nil {
			b.log.Warn("recording upload", zap.String("file", it.Name), zap.Error(rerr))
		}
	}
	b.notify()
}
