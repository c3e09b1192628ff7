package ollama

import (
	"fmt"
	"strings"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

const maxSnippet = 4000

func buildAnalysisPrompt(c domain.Complaint) string {
	var payload strings.Builder
	fmt.Fprintf(&payload, "Reference: %s\nArea: %s\nType: %s\nSubtype: %s\nTitle: %s\nDescription: %s\n",
		c.ID, c.Area, c.Type, c.SubType, c.Title, clip(c.Description))
	if d := c.Details.Train; d != nil {
		fmt.Fprintf(&payload, "Train: %s Coach: %s PNR: %s\n", d.TrainNumber, d.CoachNumber, d.PNR)
	}
	if d := c.Details.Station; d != nil {
		fmt.Fprintf(&payload, "Station: %s Platform: %s\n", d.StationCode, d.PlatformNumber)
	}

	return `You are a railway grievance triage assistant.
Return strict JSON object with keys:
category (string), urgencyScore (number from 0 to 10), summary (string), keywords (array of strings), suggestedDepartment (string, may be empty).
No markdown, no extra keys.

Complaint:
` + payload.String()
}

func buildExtractionPrompt(conversationSummary, botResponse string) string {
	return fmt.Sprintf(`You are a railway grievance intake assistant.
From the conversation below, extract a structured complaint.
Return strict JSON object with keys:
complaintArea (one of TRAIN, STATION, SUGGESTIONS, ENQUIRY, RAIL_ANUBHAV),
complaintType (string), complaintSubType (string), description (string),
pnr, trainNumber, coachNumber, stationCode, platformNumber (strings, empty when unknown).
If the conversation contains no actionable complaint, return an empty description.
No markdown, no extra keys.

Conversation summary:
%s

Assistant context:
%s
`, clip(conversationSummary), clip(botResponse))
}

func clip(text string) string {
	if len(text) > maxSnippet {
		return text[:maxSnippet]
	}
	return text
}
