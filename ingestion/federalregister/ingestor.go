package federalregister

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/regraph/regraph/ingestion"
	"github.com/regraph/regraph/model"
)

// SourceName tags every record produced by this ingestor.
const SourceName = "federal_register"

// validTypes are the document types the Federal Register publishes. An
// unknown type is logged, not rejected; the API grows types occasionally.
var validTypes = map[string]bool{
	"rule":                  true,
	"proposed_rule":         true,
	"notice":                true,
	"presidential_document": true,
}

// Ingestor implements the ingestion steps for the Federal Register API.
type Ingestor struct {
	client *Client
	logger *slog.Logger
}

// NewIngestor creates an ingestor over the given client.
func NewIngestor(client *Client, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		client: client,
		logger: logger,
	}
}

// Source returns the source tag written into every record.
func (i *Ingestor) Source() string {
	return SourceName
}

// Fetch retrieves the raw documents for the window.
func (i *Ingestor) Fetch(ctx context.Context, window ingestion.FetchWindow) ([]ingestion.RawDocument, error) {
	return i.client.FetchDocuments(ctx, window)
}

// Transform maps raw API documents into records. Documents without a document
// number or a parseable publication date are dropped with a warning.
func (i *Ingestor) Transform(raw []ingestion.RawDocument) []*model.DocumentRecord {
	records := make([]*model.DocumentRecord, 0, len(raw))
	for _, document := range raw {
		record, err := i.transformOne(document)
		if err != nil {
			i.logger.Warn("Dropping untransformable document",
				slog.String("document_number", stringValue(document["document_number"])),
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, record)
	}
	return records
}

func (i *Ingestor) transformOne(document ingestion.RawDocument) (*model.DocumentRecord, error) {
	documentID := stringValue(document["document_number"])
	if documentID == "" {
		return nil, model.NewValidationError("document_number", "must not be empty")
	}

	publicationDate, err := time.Parse("2006-01-02", stringValue(document["publication_date"]))
	if err != nil {
		return nil, model.NewValidationError("publication_date", "must be formatted as YYYY-MM-DD")
	}

	return &model.DocumentRecord{
		DocumentID:      documentID,
		Source:          SourceName,
		Title:           stringValue(document["title"]),
		DocumentType:    normalizeType(stringValue(document["document_type"])),
		PublicationDate: publicationDate,
		Metadata: model.DocumentMetadata{
			HTMLURL:       stringValue(document["html_url"]),
			PDFURL:        stringValue(document["pdf_url"]),
			Abstract:      stringValue(document["abstract"]),
			Agencies:      agencyRefs(document["agencies"]),
			RegulationIDs: stringSlice(document["regulation_id_numbers"]),
			Dates:         stringMap(document["dates"]),
		},
	}, nil
}

// Validate checks the record fields and warns on document types the API is
// not known to publish.
func (i *Ingestor) Validate(record *model.DocumentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if !validTypes[record.DocumentType] {
		i.logger.Warn("Unknown document type",
			slog.String("document_id", record.DocumentID),
			slog.String("document_type", record.DocumentType),
		)
	}
	return nil
}

// normalizeType maps the API's display types ("Proposed Rule") onto the
// stored snake_case types ("proposed_rule").
func normalizeType(documentType string) string {
	return strings.ReplaceAll(strings.ToLower(documentType), " ", "_")
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func agencyRefs(value interface{}) []model.AgencyRef {
	items, ok := value.([]interface{})
	if !ok {
		return nil
	}
	var refs []model.AgencyRef
	for _, item := range items {
		agency, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name := stringValue(agency["name"])
		if name == "" {
			name = stringValue(agency["raw_name"])
		}
		if name == "" {
			continue
		}
		refs = append(refs, model.AgencyRef{
			Name: name,
			ID:   stringValue(agency["id"]),
		})
	}
	return refs
}

func stringSlice(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return nil
	}
	var values []string
	for _, item := range items {
		if text := stringValue(item); text != "" {
			values = append(values, text)
		}
	}
	return values
}

func stringMap(value interface{}) map[string]string {
	items, ok := value.(map[string]interface{})
	if !ok || len(items) == 0 {
		return nil
	}
	values := make(map[string]string, len(items))
	for key, item := range items {
		if text := stringValue(item); text != "" {
			values[key] = text
		}
	}
	return values
}
