package presence

import (
	"strings"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
)

// Weighted business signals. Each is independently observable; the weights
// sum to 100 so the score doubles as a confidence percentage.
const (
	weightTollFree     = 30
	weightCarrierFlag  = 25
	weightVoIP         = 20
	weightLandline     = 15
	weightCarrierName  = 15
	weightDigitPattern = 10

	businessThreshold = 50
)

// businessScore estimates how likely the number belongs to a business from
// heuristic signals. Returns the 0-100 score and the indicators that fired.
func businessScore(country, national string, meta *model.MetadataRecord, carrierFlag bool, tables *heuristics.Tables) (int, []string) {
	score := 0
	var indicators []string

	if tables.IsTollFree(country, national) {
		score += weightTollFree
		indicators = append(indicators, "toll-free prefix")
	}
	if carrierFlag {
		score += weightCarrierFlag
		indicators = append(indicators, "carrier business flag")
	}
	if meta != nil {
		switch meta.LineType {
		case model.LineTypeVoIP:
			score += weightVoIP
			indicators = append(indicators, "voip line")
		case model.LineTypeLandline:
			score += weightLandline
			indicators = append(indicators, "landline")
		}
		carrier := strings.ToLower(meta.Carrier)
		for _, kw := range tables.BusinessKeywords {
			if strings.Contains(carrier, kw) {
				score += weightCarrierName
				indicators = append(indicators, "business keyword in carrier name")
				break
			}
		}
	}
	if hasDigitRepetition(national) {
		score += weightDigitPattern
		indicators = append(indicators, "repeated digit pattern")
	}

	if score > 100 {
		score = 100
	}
	return score, indicators
}

// hasDigitRepetition reports a run of four or more identical digits,
// typical of vanity and switchboard numbers.
func hasDigitRepetition(digits string) bool {
	run := 1
	for i := 1; i < len(digits); i++ {
		if digits[i] == digits[i-1] {
			run++
			if run >= 4 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
