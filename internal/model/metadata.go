package model

import "encoding/json"

// Provenance records which sources contributed to a merged metadata record.
type Provenance string

const (
	ProvenanceSourceA Provenance = "source_a"
	ProvenanceSourceB Provenance = "source_b"
	// ProvenanceBoth means two distinct sources both returned data, which
	// implies conflict detection was run on the pair.
	ProvenanceBoth Provenance = "both"
)

// ConflictField names the fact two sources disagreed on.
type ConflictField string

const (
	ConflictCarrier  ConflictField = "carrier"
	ConflictLineType ConflictField = "line_type"
	ConflictValidity ConflictField = "validity"
)

// Conflict is a detected disagreement between two independent sources.
type Conflict struct {
	Field   ConflictField `json:"field"`
	SourceA string        `json:"source_a"`
	SourceB string        `json:"source_b"`
	ValueA  string        `json:"value_a"`
	ValueB  string        `json:"value_b"`
}

// SourcePayload keeps a source's raw response for the audit trail.
type SourcePayload struct {
	Source string          `json:"source"`
	Raw    json.RawMessage `json:"raw"`
}

// MetadataRecord is the normalized, merged output of the metadata stage.
type MetadataRecord struct {
	CountryCode string          `json:"country_code"`
	CountryName string          `json:"country_name"`
	Carrier     string          `json:"carrier"`
	LineType    LineType        `json:"line_type"`
	Valid       bool            `json:"valid"`
	Formatted   string          `json:"formatted"`
	Provenance  Provenance      `json:"provenance"`
	Conflicts   []Conflict      `json:"conflicts,omitempty"`
	Payloads    []SourcePayload `json:"payloads,omitempty"`
}

// HasConflicts reports whether cross-source disagreement was detected.
func (m *MetadataRecord) HasConflicts() bool {
	return m != nil && len(m.Conflicts) > 0
}
