package ingestion

import (
	"context"
	"time"

	"github.com/regraph/regraph/model"
)

// RawDocument is one unparsed item as returned by a source API.
type RawDocument map[string]interface{}

// FetchWindow bounds a fetch to a publication window and optional type.
type FetchWindow struct {
	StartDate    time.Time
	EndDate      time.Time
	DocumentType string
}

// DefaultFetchWindow covers the last day, the increment a scheduled ingestion
// run is expected to use.
func DefaultFetchWindow() FetchWindow {
	now := time.Now().UTC()
	return FetchWindow{
		StartDate: now.AddDate(0, 0, -1),
		EndDate:   now,
	}
}

// Ingestor is one document source. Implementations fetch raw payloads,
// transform them into document records, and validate single records. The
// orchestration around these steps lives in Pipeline and is the same for
// every source.
type Ingestor interface {
	// Source returns the stable source tag written into every record.
	Source() string
	// Fetch retrieves the raw documents for the window.
	Fetch(ctx context.Context, window FetchWindow) ([]RawDocument, error)
	// Transform maps raw documents into records. Items that cannot be
	// transformed are dropped, not fatal.
	Transform(raw []RawDocument) []*model.DocumentRecord
	// Validate checks a single transformed record.
	Validate(record *model.DocumentRecord) error
}
