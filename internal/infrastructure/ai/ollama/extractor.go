package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/core/ports"
)

// Extractor implements the Extraction Service port: free-form chat context
// in, structured complaint fields out. An unusable conversation yields
// (nil, nil) rather than an error.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, conversationSummary, botResponse string) (*ports.Draft, error) {
	respText, err := e.client.generateJSON(ctx, "extract", buildExtractionPrompt(conversationSummary, botResponse))
	if err != nil {
		return nil, err
	}

	var result struct {
		ComplaintArea    string `json:"complaintArea"`
		ComplaintType    string `json:"complaintType"`
		ComplaintSubType string `json:"complaintSubType"`
		Description      string `json:"description"`
		PNR              string `json:"pnr"`
		TrainNumber      string `json:"trainNumber"`
		CoachNumber      string `json:"coachNumber"`
		StationCode      string `json:"stationCode"`
		PlatformNumber   string `json:"platformNumber"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return nil, fmt.Errorf("parse extraction json: %w", err)
	}

	area := domain.Area(strings.ToUpper(strings.TrimSpace(result.ComplaintArea)))
	description := strings.TrimSpace(result.Description)
	if area == "" || description == "" {
		return nil, nil
	}

	draft := &ports.Draft{
		Area:        area,
		Type:        result.ComplaintType,
		SubType:     result.ComplaintSubType,
		Description: description,
	}
	switch area {
	case domain.AreaTrain:
		draft.Details.Train = &domain.TrainDetails{
			PNR:         result.PNR,
			TrainNumber: result.TrainNumber,
			CoachNumber: result.CoachNumber,
		}
	case domain.AreaStation:
		draft.Details.Station = &domain.StationDetails{
			StationCode:    result.StationCode,
			PlatformNumber: result.PlatformNumber,
		}
	case domain.AreaEnquiry:
		draft.Details.Enquiry = &domain.EnquiryDetails{
			PNR:         result.PNR,
			TrainNumber: result.TrainNumber,
			StationCode: result.StationCode,
		}
	}
	return draft, nil
}
