package collect

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/source"
)

// normalized is one source response after vocabulary mapping, ready for
// merging and conflict comparison.
type normalized struct {
	Source      string
	Valid       bool
	CountryCode string
	CountryName string
	Carrier     string
	LineType    model.LineType
	Formatted   string
	Raw         []byte
}

// normalize maps a raw source response onto the canonical vocabulary.
func normalize(resp *source.MetadataResponse, tables *heuristics.Tables) normalized {
	return normalized{
		Source:      resp.Source,
		Valid:       resp.Valid,
		CountryCode: strings.ToUpper(strings.TrimSpace(resp.CountryCode)),
		CountryName: strings.TrimSpace(resp.CountryName),
		Carrier:     strings.TrimSpace(resp.Carrier),
		LineType:    tables.CanonicalLineType(resp.LineType),
		Formatted:   strings.TrimSpace(resp.Formatted),
		Raw:         resp.Raw,
	}
}

// foldCarrier canonicalizes a carrier name for comparison: Unicode case
// folding plus whitespace collapsing. "AT&T " and "at&t" compare equal;
// "AT&T" and "AT&T Mobility" do not.
func foldCarrier(s string) string {
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// detectConflicts compares two normalized responses fact by fact. Line
// types are compared post-vocabulary-mapping, so "fixed_line" and
// "landline" never conflict. Unknown line types and empty carriers are not
// comparable and produce no entry.
func detectConflicts(a, b normalized) []model.Conflict {
	var out []model.Conflict

	if a.Carrier != "" && b.Carrier != "" && foldCarrier(a.Carrier) != foldCarrier(b.Carrier) {
		out = append(out, model.Conflict{
			Field:   model.ConflictCarrier,
			SourceA: a.Source, SourceB: b.Source,
			ValueA: a.Carrier, ValueB: b.Carrier,
		})
	}

	if a.LineType != model.LineTypeUnknown && b.LineType != model.LineTypeUnknown && a.LineType != b.LineType {
		out = append(out, model.Conflict{
			Field:   model.ConflictLineType,
			SourceA: a.Source, SourceB: b.Source,
			ValueA: string(a.LineType), ValueB: string(b.LineType),
		})
	}

	if a.Valid != b.Valid {
		out = append(out, model.Conflict{
			Field:   model.ConflictValidity,
			SourceA: a.Source, SourceB: b.Source,
			ValueA: boolStr(a.Valid), ValueB: boolStr(b.Valid),
		})
	}

	return out
}

func boolStr(b bool) string {
	if b {
		return "valid"
	}
	return "invalid"
}
