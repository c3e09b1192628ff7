package domain

import "time"

// Analysis holds the AI-derived triage fields attached to a complaint after
// enrichment.
type Analysis struct {
	ID                  string    `json:"id"`
	ComplaintID         string    `json:"complaintId"`
	Category            string    `json:"category"`
	UrgencyScore        float64   `json:"urgencyScore"`
	Summary             string    `json:"summary"`
	Keywords            []string  `json:"keywords"`
	SuggestedDepartment string    `json:"suggestedDepartment,omitempty"`
	AnalyzedAt          time.Time `json:"analysisTimestamp"`
}

// ClampUrgency forces the score into the documented [0,10] range.
func ClampUrgency(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// DedupKeywords drops repeated keywords while keeping first-seen order.
func DedupKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
