package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

// Analyzer implements the Analysis Service port: category, urgency,
// summary, keywords and a suggested department for one complaint.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) Analyze(ctx context.Context, c domain.Complaint) (domain.Analysis, error) {
	respText, err := a.client.generateJSON(ctx, "analyze", buildAnalysisPrompt(c))
	if err != nil {
		return domain.Analysis{}, err
	}

	var result struct {
		Category            string   `json:"category"`
		UrgencyScore        float64  `json:"urgencyScore"`
		Summary             string   `json:"summary"`
		Keywords            []string `json:"keywords"`
		SuggestedDepartment string   `json:"suggestedDepartment"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse analysis json: %w", err)
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	return domain.Analysis{
		Category:            result.Category,
		UrgencyScore:        domain.ClampUrgency(result.UrgencyScore),
		Summary:             result.Summary,
		Keywords:            domain.DedupKeywords(result.Keywords),
		SuggestedDepartment: result.SuggestedDepartment,
	}, nil
}
