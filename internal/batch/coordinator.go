package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vectra/internal/artifact"
	"vectra/internal/export"
	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// renderLimit bounds how many exports a single download assembles at once.
const renderLimit = 4

// Upload is one file in a batch submission.
type Upload struct {
	Filename string
	Data     []byte
}

// Item is the per-file outcome of a batch submission.
type Item struct {
	Filename string `json:"filename"`
	JobID    string `json:"job_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Summary reports what a batch submission produced.
type Summary struct {
	BatchID string `json:"batch_id"`
	Items   []Item `json:"items"`
}

// Status aggregates the live state of a batch's jobs.
type Status struct {
	BatchID   string         `json:"batch_id"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	Cancelled int            `json:"cancelled"`
	Pending   int            `json:"pending"`
	Progress  int            `json:"progress"`
	Jobs      []job.Snapshot `json:"jobs"`
}

type record struct {
	id        string
	items     []Item
	createdAt time.Time
}

// Coordinator groups submissions into batches, answers aggregate status
// queries, and assembles partial ZIP downloads of the finished results.
type Coordinator struct {
	manager *job.Manager
	cache   *artifact.Cache
	logger  *slog.Logger

	mu      sync.RWMutex
	batches map[string]*record
}

func NewCoordinator(manager *job.Manager, cache *artifact.Cache, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		manager: manager,
		cache:   cache,
		logger:  logging.NewComponentLogger(logger, "batch"),
		batches: make(map[string]*record),
	}
}

// Submit registers one job per upload. A rejected upload fails its own item
// without failing the batch; a batch where every upload is rejected is still
// created so the client can inspect the per-file errors.
func (c *Coordinator) Submit(uploads []Upload, opts job.Options) (*Summary, error) {
	if len(uploads) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "submit", "no files in batch", nil)
	}

	rec := &record{id: uuid.NewString(), createdAt: time.Now()}
	for _, upload := range uploads {
		item := Item{Filename: upload.Filename}
		jobID, err := c.manager.Submit(upload.Data, upload.Filename, opts)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.JobID = jobID
		}
		rec.items = append(rec.items, item)
	}

	c.mu.Lock()
	c.batches[rec.id] = rec
	c.mu.Unlock()

	c.logger.Info("batch submitted",
		logging.String(logging.FieldEventType, "batch_submitted"),
		logging.String(logging.FieldBatchID, rec.id),
		logging.Int("files", len(uploads)),
	)
	return &Summary{BatchID: rec.id, Items: rec.items}, nil
}

// Status reports the aggregate state of the batch. Disposed jobs count as
// cancelled; they no longer contribute a snapshot.
func (c *Coordinator) Status(batchID string) (*Status, error) {
	rec, err := c.get(batchID)
	if err != nil {
		return nil, err
	}

	status := &Status{BatchID: batchID, Total: len(rec.items)}
	progressSum := 0
	for _, item := range rec.items {
		if item.JobID == "" {
			status.Failed++
			continue
		}
		snap, err := c.manager.Get(item.JobID)
		if err != nil {
			status.Cancelled++
			continue
		}
		status.Jobs = append(status.Jobs, snap)
		progressSum += snap.Progress
		switch snap.State {
		case job.StateDone:
			status.Completed++
		case job.StateError:
			status.Failed++
		case job.StateCancelled:
			status.Cancelled++
		default:
			status.Pending++
		}
	}
	if status.Total > 0 {
		status.Progress = progressSum / status.Total
	}
	return status, nil
}

// manifest is the ZIP entry describing what the archive omits.
type manifest struct {
	BatchID   string `json:"batch_id,omitempty"`
	Included  int    `json:"included"`
	Omitted   []Item `json:"omitted,omitempty"`
	Generated string `json:"generated"`
}

// DownloadAll assembles a ZIP of every finished job's SVG. Jobs that are not
// done are omitted and listed in the archive manifest; only a batch with no
// usable result at all is an error.
func (c *Coordinator) DownloadAll(ctx context.Context, batchID string) ([]byte, error) {
	rec, err := c.get(batchID)
	if err != nil {
		return nil, err
	}
	return c.assemble(ctx, batchID, rec.items)
}

// DownloadJobs is the ad-hoc variant: the client names the job IDs directly
// instead of referencing a batch.
func (c *Coordinator) DownloadJobs(ctx context.Context, jobIDs []string) ([]byte, error) {
	if len(jobIDs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "download", "no job ids given", nil)
	}
	items := make([]Item, len(jobIDs))
	for i, id := range jobIDs {
		items[i] = Item{JobID: id, Filename: id}
		if snap, err := c.manager.Get(id); err == nil && snap.Filename != "" {
			items[i].Filename = snap.Filename
		}
	}
	return c.assemble(ctx, "", items)
}

func (c *Coordinator) assemble(ctx context.Context, batchID string, items []Item) ([]byte, error) {
	type rendered struct {
		name    string
		payload []byte
	}
	results := make([]*rendered, len(items))
	var omitted []Item
	var omittedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renderLimit)
	for i, item := range items {
		i, item := i, item
		if item.JobID == "" {
			omittedMu.Lock()
			omitted = append(omitted, item)
			omittedMu.Unlock()
			continue
		}
		g.Go(func() error {
			var payload []byte
			err := c.manager.WithModel(item.JobID, func(model *segment.Model) error {
				var renderErr error
				payload, _, renderErr = c.cache.GetOrRender(gctx, item.JobID, model, export.FormatSVG, export.Options{})
				return renderErr
			})
			if err != nil {
				skipped := item
				skipped.Error = err.Error()
				omittedMu.Lock()
				omitted = append(omitted, skipped)
				omittedMu.Unlock()
				return nil
			}
			results[i] = &rendered{name: svgName(item.Filename), payload: payload}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	included := 0
	for _, r := range results {
		if r != nil {
			included++
		}
	}
	if included == 0 {
		return nil, services.Wrap(services.ErrInvalidState, "batch", "download", "no finished jobs in batch", nil)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int)
	for _, r := range results {
		if r == nil {
			continue
		}
		name := r.name
		if n := used[name]; n > 0 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		used[r.name]++
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("creating archive entry: %w", err)
		}
		if _, err := w.Write(r.payload); err != nil {
			return nil, fmt.Errorf("writing archive entry: %w", err)
		}
	}

	meta := manifest{
		BatchID:   batchID,
		Included:  included,
		Omitted:   omitted,
		Generated: time.Now().UTC().Format(time.RFC3339),
	}
	metaEntry, err := zw.Create("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("creating manifest: %w", err)
	}
	if err := json.NewEncoder(metaEntry).Encode(meta); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}

	c.logger.Info("batch archive assembled",
		logging.String(logging.FieldEventType, "batch_download"),
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("included", included),
		logging.Int("omitted", len(omitted)),
	)
	return buf.Bytes(), nil
}

func (c *Coordinator) get(batchID string) (*record, error) {
	c.mu.RLock()
	rec, ok := c.batches[batchID]
	c.mu.RUnlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "batch", "lookup", batchID, nil)
	}
	return rec, nil
}

func svgName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := path.Ext(base)
	if ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		base = "image"
	}
	return base + ".svg"
}
