package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
)

// DefaultWorkers is the store-phase pool size.
const DefaultWorkers = 4

// Store is the sink the pipeline writes validated records into.
type Store interface {
	StoreDocument(ctx context.Context, record *model.DocumentRecord) error
}

// DocumentError ties one pipeline failure to the document that caused it.
type DocumentError struct {
	DocumentID string
	Err        error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("document %s: %v", e.DocumentID, e.Err)
}

func (e DocumentError) Unwrap() error {
	return e.Err
}

// Report summarizes one pipeline run. A run only fails as a whole when the
// fetch fails; per-document validation and store failures are collected here
// and the rest of the batch continues.
type Report struct {
	Source  string
	Fetched int
	Stored  int
	Skipped int
	Errors  []DocumentError
}

// Pipeline runs one ingestor through fetch, transform, validate and store.
// The steps belong to the ingestor; the orchestration, retries and the store
// worker pool are the same for every source.
type Pipeline struct {
	store   Store
	workers int
	retry   helper.RetryPolicy
	logger  *slog.Logger
}

// NewPipeline creates a pipeline writing into the given store.
func NewPipeline(store Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:   store,
		workers: DefaultWorkers,
		retry:   helper.DefaultRetryPolicy(),
		logger:  logger,
	}
}

// WithWorkers overrides the store-phase pool size.
func (p *Pipeline) WithWorkers(workers int) *Pipeline {
	if workers > 0 {
		p.workers = workers
	}
	return p
}

// WithRetryPolicy overrides the retry policy applied to the fetch.
func (p *Pipeline) WithRetryPolicy(retry helper.RetryPolicy) *Pipeline {
	p.retry = retry
	return p
}

// Run executes one ingestion batch. Only a failed fetch is returned as an
// error; a document that fails validation or storage is skipped, logged, and
// reported in the returned report's error list.
func (p *Pipeline) Run(ctx context.Context, ingestor Ingestor, window FetchWindow) (*Report, error) {
	report := &Report{Source: ingestor.Source()}

	var raw []RawDocument
	err := p.retry.Do(ctx, func() error {
		var err error
		raw, err = ingestor.Fetch(ctx, window)
		return err
	})
	if err != nil {
		return nil, helper.NewError("fetch documents", err)
	}
	report.Fetched = len(raw)

	records := ingestor.Transform(raw)
	if dropped := len(raw) - len(records); dropped > 0 {
		p.logger.Warn("Dropped untransformable documents",
			slog.String("source", ingestor.Source()),
			slog.Int("dropped", dropped),
		)
		report.Skipped += dropped
	}

	valid := make([]*model.DocumentRecord, 0, len(records))
	for _, record := range records {
		if err := ingestor.Validate(record); err != nil {
			p.logger.Warn("Skipping invalid document",
				slog.String("source", ingestor.Source()),
				slog.String("document_id", record.DocumentID),
				slog.String("error", err.Error()),
			)
			report.Skipped++
			report.Errors = append(report.Errors, DocumentError{DocumentID: record.DocumentID, Err: err})
			continue
		}
		valid = append(valid, record)
	}

	if len(valid) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, helper.NewError("create store pool", err)
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, record := range valid {
		record := record
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := p.store.StoreDocument(ctx, record); err != nil {
				p.logger.Warn("Storing document failed",
					slog.String("source", ingestor.Source()),
					slog.String("document_id", record.DocumentID),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				report.Errors = append(report.Errors, DocumentError{DocumentID: record.DocumentID, Err: err})
				mu.Unlock()
				return
			}
			mu.Lock()
			report.Stored++
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.Errors = append(report.Errors, DocumentError{DocumentID: record.DocumentID, Err: submitErr})
			mu.Unlock()
		}
	}
	wg.Wait()

	return report, nil
}
