package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ademidov/newspulse/app/database"
	"github.com/ademidov/newspulse/app/feed"
	"github.com/ademidov/newspulse/app/sources"
	"github.com/ademidov/newspulse/app/vector"
)

const (
	embedBackfillBatch   = 100
	contentBackfillBatch = 25
)

// Runner executes ingestion runs: purge stale items, then fetch, parse,
// dedup, persist and embed every configured source, then backfill
// missing embeddings and article content. A single run guard keeps
// scheduled and manual triggers from interleaving.
type Runner struct {
	sourceList  []sources.Source
	parser      *feed.Parser
	extractor   *feed.Extractor
	embedder    vector.Embedder
	items       database.ItemRepository
	httpClient  *http.Client
	userAgent   string
	workerCount int
	retention   time.Duration
	sourceDelay time.Duration

	running    atomic.Bool
	mu         sync.Mutex
	lastReport *Report
}

type Options struct {
	Sources     []sources.Source
	Parser      *feed.Parser
	Extractor   *feed.Extractor
	Embedder    vector.Embedder
	Items       database.ItemRepository
	HTTPClient  *http.Client
	UserAgent   string
	WorkerCount int
	Retention   time.Duration
	SourceDelay time.Duration
}

func NewRunner(opts Options) *Runner {
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	return &Runner{
		sourceList:  opts.Sources,
		parser:      opts.Parser,
		extractor:   opts.Extractor,
		embedder:    opts.Embedder,
		items:       opts.Items,
		httpClient:  opts.HTTPClient,
		userAgent:   opts.UserAgent,
		workerCount: opts.WorkerCount,
		retention:   opts.Retention,
		sourceDelay: opts.SourceDelay,
	}
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// LastReport returns the report of the most recent completed run, or nil.
func (r *Runner) LastReport() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReport
}

// Run executes one full ingestion pass. A second call while a run is
// active returns ErrRunInProgress. Cancellation is cooperative: workers
// finish their current source and stop before taking the next one.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	report := &Report{
		StartedAt:    time.Now().UTC(),
		NewBySource:  make(map[string]int),
		SourceErrors: make(map[string]string),
	}

	r.purge(report)
	r.processSources(ctx, report)
	r.backfillEmbeddings(ctx, report)
	r.backfillContent(ctx, report)

	report.FinishedAt = time.Now().UTC()

	slog.Info("Ingestion run completed",
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
		"purged", report.Purged,
		"new", report.Total,
		"embedded", report.Embedded,
		"embed_failures", report.EmbedFailures,
		"failed_sources", len(report.SourceErrors))

	r.mu.Lock()
	r.lastReport = report
	r.mu.Unlock()

	return report, nil
}

// purge failures are logged, not fatal: a run that cannot purge can
// still ingest.
func (r *Runner) purge(report *Report) {
	cutoff := time.Now().UTC().Add(-r.retention)
	purged, err := r.items.PurgeOlderThan(cutoff)
	if err != nil {
		slog.Error("Failed to purge stale items", "error", err)
		return
	}
	report.Purged = purged
	if purged > 0 {
		slog.Info("Purged stale items", "count", purged, "cutoff", cutoff)
	}
}

func (r *Runner) processSources(ctx context.Context, report *Report) {
	enabled := sources.Enabled(r.sourceList)
	if len(enabled) == 0 {
		slog.Warn("No enabled sources configured")
		return
	}

	jobs := make(chan sources.Source)
	results := make(chan sourceResult, len(enabled))

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				results <- r.processSource(ctx, src)
				if r.sourceDelay > 0 {
					time.Sleep(r.sourceDelay)
				}
			}
		}()
	}

feedLoop:
	for _, src := range enabled {
		select {
		case <-ctx.Done():
			slog.Warn("Ingestion run cancelled, stopping before remaining sources")
			break feedLoop
		case jobs <- src:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Merge worker-local results on a single goroutine.
	for res := range results {
		report.Total += res.newCount
		report.NewBySource[res.name] = res.newCount
		report.Embedded += res.embedded
		report.EmbedFailures += res.embedFailures
		if res.err != nil {
			report.SourceErrors[res.name] = res.err.Error()
		}
	}
}

// processSource never lets one source's failure reach another: any error
// is captured in the result with a zero count and the run continues.
func (r *Runner) processSource(ctx context.Context, src sources.Source) sourceResult {
	res := sourceResult{name: src.Name}

	data, err := r.fetchSource(ctx, src.URL)
	if err != nil {
		slog.Warn("Failed to fetch source", "source", src.Name, "error", err)
		res.err = fmt.Errorf("fetch: %w", err)
		return res
	}

	records, err := r.parser.Run(data, src.Name)
	if err != nil {
		slog.Warn("Failed to parse source", "source", src.Name, "error", err)
		res.err = fmt.Errorf("parse: %w", err)
		return res
	}

	for _, record := range records {
		publishedAt := record.PublishedAt
		inserted, err := r.items.InsertIfAbsent(database.Item{
			URL:         record.URL,
			Fingerprint: record.Fingerprint,
			Title:       record.Title,
			Description: record.Description,
			PublishedAt: &publishedAt,
			Source:      record.Source,
			Category:    record.Category,
		})
		if err != nil {
			slog.Warn("Failed to insert item", "source", src.Name, "url", record.URL, "error", err)
			continue
		}
		if !inserted {
			// Duplicate by URL or fingerprint: already present, not new.
			continue
		}
		res.newCount++

		if r.embedItem(ctx, record) {
			res.embedded++
		} else {
			res.embedFailures++
		}
	}

	slog.Info("Source processed", "source", src.Name, "total", len(records), "new", res.newCount)

	return res
}

// embedItem computes and stores the vector for a freshly inserted item.
// Failure is non-fatal: the item stays stored without a vector and is
// excluded from ranked pools until a backfill pass embeds it.
func (r *Runner) embedItem(ctx context.Context, record feed.Record) bool {
	text := vector.ItemText(record.Title, record.Description, record.Category)

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("Failed to embed item, leaving for backfill", "url", record.URL, "error", err)
		return false
	}

	item, err := r.items.GetByURL(record.URL)
	if err != nil {
		slog.Warn("Failed to load item for embedding", "url", record.URL, "error", err)
		return false
	}

	if err := r.items.UpdateEmbedding(item.ID, vector.Encode(vec)); err != nil {
		slog.Warn("Failed to store item embedding", "url", record.URL, "error", err)
		return false
	}

	return true
}

func (r *Runner) fetchSource(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// backfillEmbeddings retries items that were stored without a vector in
// this or an earlier run.
func (r *Runner) backfillEmbeddings(ctx context.Context, report *Report) {
	items, err := r.items.ListUnembedded(embedBackfillBatch)
	if err != nil {
		slog.Error("Failed to list unembedded items", "error", err)
		return
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return
		default:
		}

		text := vector.ItemText(item.Title, item.Description, item.Category)
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			slog.Warn("Embedding backfill failed", "item_id", item.ID, "error", err)
			continue
		}
		if err := r.items.UpdateEmbedding(item.ID, vector.Encode(vec)); err != nil {
			slog.Warn("Failed to store backfilled embedding", "item_id", item.ID, "error", err)
			continue
		}
		report.Embedded++
	}
}

// backfillContent fetches article pages and stores their readable text.
// Purely additive: items without content still rank on title+description.
func (r *Runner) backfillContent(ctx context.Context, report *Report) {
	if r.extractor == nil {
		return
	}

	items, err := r.items.ListWithoutContent(contentBackfillBatch)
	if err != nil {
		slog.Error("Failed to list items without content", "error", err)
		return
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return
		default:
		}

		content, err := r.extractor.Run(ctx, item.URL)
		if err != nil {
			slog.Debug("Content extraction failed", "item_id", item.ID, "url", item.URL, "error", err)
			continue
		}
		if err := r.items.UpdateContent(item.ID, content); err != nil {
			slog.Warn("Failed to store extracted content", "item_id", item.ID, "error", err)
			continue
		}
		report.ContentFilled++
	}
}
