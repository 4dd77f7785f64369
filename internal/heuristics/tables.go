// Package heuristics holds the data tables behind planning, normalization
// and scoring decisions: country dialing prefixes, the high-risk country
// set, landline-likelihood rules, messaging adoption priors, toll-free
// prefixes and the line-type vocabulary. The algorithms (table lookup,
// longest-prefix match) are stable; the data evolves independently and can
// be overridden from a YAML file at startup.
package heuristics

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/verify-cli/internal/model"
)

// CountryUnknown is the fallback when no prefix rule matches.
const CountryUnknown = "UNKNOWN"

// Tables bundles every heuristic table used by the pipeline.
type Tables struct {
	// DialingPrefixes maps a dialing prefix (no "+") to an ISO 3166-1
	// alpha-2 country code. Longest prefix wins.
	DialingPrefixes map[string]string `yaml:"dialing_prefixes"`

	// HighRisk is the set of countries requiring dual metadata validation.
	HighRisk []string `yaml:"high_risk"`

	// LandlineProne lists countries where landlines remain prevalent; a
	// number there is treated landline-likely unless it starts with one of
	// the country's MobilePrefixes.
	LandlineProne []string `yaml:"landline_prone"`

	// MobilePrefixes maps a country to the national prefixes of its mobile
	// ranges (after the dialing prefix is stripped).
	MobilePrefixes map[string][]string `yaml:"mobile_prefixes"`

	// AdoptionRates maps a country to its messaging-platform adoption rate
	// in percent.
	AdoptionRates map[string]float64 `yaml:"adoption_rates"`

	// DefaultAdoptionRate applies when a country has no entry.
	DefaultAdoptionRate float64 `yaml:"default_adoption_rate"`

	// TollFreePrefixes maps a country to its toll-free national prefixes.
	TollFreePrefixes map[string][]string `yaml:"toll_free_prefixes"`

	// BusinessKeywords are carrier-name substrings hinting at a business
	// line.
	BusinessKeywords []string `yaml:"business_keywords"`

	// LineTypeVocab maps provider line-type spellings to the canonical
	// vocabulary (mobile/landline/voip/unknown).
	LineTypeVocab map[string]string `yaml:"line_type_vocab"`
}

// Default returns the compiled-in tables.
func Default() *Tables {
	return &Tables{
		DialingPrefixes: map[string]string{
			"1": "US", "7": "RU", "20": "EG", "27": "ZA", "31": "NL",
			"33": "FR", "34": "ES", "39": "IT", "41": "CH", "44": "GB",
			"46": "SE", "49": "DE", "52": "MX", "55": "BR", "61": "AU",
			"62": "ID", "63": "PH", "81": "JP", "82": "KR", "84": "VN",
			"86": "CN", "90": "TR", "91": "IN", "92": "PK", "234": "NG",
			"233": "GH", "254": "KE", "880": "BD", "966": "SA", "971": "AE",
		},
		HighRisk:      []string{"NG", "PK", "BD", "PH", "VN", "EG", "KE", "GH"},
		LandlineProne: []string{"DE", "FR", "IT"},
		MobilePrefixes: map[string][]string{
			"DE": {"15", "16", "17"},
			"FR": {"6", "7"},
			"IT": {"3"},
		},
		AdoptionRates: map[string]float64{
			"IN": 97, "BR": 96, "ID": 88, "DE": 85, "ES": 87, "IT": 90,
			"MX": 92, "NG": 90, "ZA": 89, "GB": 78, "FR": 65, "NL": 85,
			"RU": 70, "TR": 88, "EG": 85, "PK": 80, "BD": 75, "PH": 70,
			"VN": 60, "US": 35, "CA": 30, "JP": 20, "KR": 25, "CN": 5,
			"AU": 55, "AE": 80, "SA": 78, "KE": 93, "GH": 90,
		},
		DefaultAdoptionRate: 50,
		TollFreePrefixes: map[string][]string{
			"US": {"800", "833", "844", "855", "866", "877", "888"},
			"GB": {"800", "808"},
			"DE": {"800"},
		},
		BusinessKeywords: []string{
			"business", "enterprise", "corporate", "llc", "inc", "ltd",
			"gmbh", "solutions", "services", "communications",
		},
		LineTypeVocab: map[string]string{
			"mobile":         string(model.LineTypeMobile),
			"cell":           string(model.LineTypeMobile),
			"cellular":       string(model.LineTypeMobile),
			"landline":       string(model.LineTypeLandline),
			"fixed_line":     string(model.LineTypeLandline),
			"fixed line":     string(model.LineTypeLandline),
			"fixed":          string(model.LineTypeLandline),
			"voip":           string(model.LineTypeVoIP),
			"ip_phone":       string(model.LineTypeVoIP),
			"nonfixedvoip":   string(model.LineTypeVoIP),
			"non_fixed_voip": string(model.LineTypeVoIP),
		},
	}
}

// LoadFile returns the default tables overlaid with entries from a YAML
// file. Missing sections keep their defaults.
func LoadFile(path string) (*Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "heuristics: read %s", path)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, eris.Wrapf(err, "heuristics: parse %s", path)
	}
	return t, nil
}

// CountryForNumber resolves an ISO country from the digit prefix of the
// number via longest-prefix match, or CountryUnknown.
func (t *Tables) CountryForNumber(digits string) string {
	prefixes := make([]string, 0, len(t.DialingPrefixes))
	for p := range t.DialingPrefixes {
		prefixes = append(prefixes, p)
	}
	// Longest prefix wins.
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if strings.HasPrefix(digits, p) {
			return t.DialingPrefixes[p]
		}
	}
	return CountryUnknown
}

// NationalNumber strips the country dialing prefix from the digits.
func (t *Tables) NationalNumber(digits, country string) string {
	for p, c := range t.DialingPrefixes {
		if c == country && strings.HasPrefix(digits, p) {
			return digits[len(p):]
		}
	}
	return digits
}

// IsHighRisk reports whether the country is in the dual-validation set.
func (t *Tables) IsHighRisk(country string) bool {
	for _, c := range t.HighRisk {
		if c == country {
			return true
		}
	}
	return false
}

// LandlineLikely reports whether a number in the given country is likely a
// landline: the country is landline-prone and the national number does not
// start with a known mobile prefix.
func (t *Tables) LandlineLikely(country, national string) bool {
	prone := false
	for _, c := range t.LandlineProne {
		if c == country {
			prone = true
			break
		}
	}
	if !prone {
		return false
	}
	for _, p := range t.MobilePrefixes[country] {
		if strings.HasPrefix(national, p) {
			return false
		}
	}
	return true
}

// AdoptionRate returns the messaging adoption prior for a country, percent.
func (t *Tables) AdoptionRate(country string) float64 {
	if r, ok := t.AdoptionRates[country]; ok {
		return r
	}
	return t.DefaultAdoptionRate
}

// IsTollFree reports whether the national number starts with a toll-free
// prefix for the country.
func (t *Tables) IsTollFree(country, national string) bool {
	for _, p := range t.TollFreePrefixes[country] {
		if strings.HasPrefix(national, p) {
			return true
		}
	}
	return false
}

// CanonicalLineType maps a provider line-type spelling to the canonical
// vocabulary.
func (t *Tables) CanonicalLineType(raw string) model.LineType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if v, ok := t.LineTypeVocab[key]; ok {
		return model.LineType(v)
	}
	return model.LineTypeUnknown
}
