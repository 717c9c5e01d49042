package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// AgencyRef identifies an issuing agency inside document metadata. Name is
// the natural key used for entity deduplication in the graph store; ID is the
// agency's optional external identifier.
type AgencyRef struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// DocumentMetadata is the typed envelope for the open metadata blob carried
// by every document record. The first-class fields are the ones the
// relationship synchronizer projects into the graph; everything else a source
// supplies lands in Extra.
type DocumentMetadata struct {
	HTMLURL       string            `json:"html_url,omitempty"`
	PDFURL        string            `json:"pdf_url,omitempty"`
	Abstract      string            `json:"abstract,omitempty"`
	Agencies      []AgencyRef       `json:"agencies,omitempty"`
	RegulationIDs []string          `json:"regulation_id_numbers,omitempty"`
	Dates         map[string]string `json:"dates,omitempty"`
	Extra         Properties        `json:"extra,omitempty"`
}

// Value implements the driver.Valuer interface for JSONB storage
func (m DocumentMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for JSONB retrieval
func (m *DocumentMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = DocumentMetadata{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}

// Properties represents open JSONB key/value data stored in PostgreSQL
type Properties map[string]interface{}

// Value implements the driver.Valuer interface for database storage.
// A nil map is stored as an empty object so JSONB merges stay valid.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(Properties{})
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for database retrieval
func (p *Properties) Scan(value interface{}) error {
	if value == nil {
		*p = Properties{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, p)
}

// String returns the string value for key, or "" when absent or not a string.
func (p Properties) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}
