package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusRegistered Status = "REGISTERED"
	StatusAnalyzing  Status = "ANALYZING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusEscalated  Status = "ESCALATED"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
	StatusWithdrawn  Status = "WITHDRAWN"
	StatusPending    Status = "PENDING"
)

type Area string

const (
	AreaTrain       Area = "TRAIN"
	AreaStation     Area = "STATION"
	AreaSuggestions Area = "SUGGESTIONS"
	AreaEnquiry     Area = "ENQUIRY"
	AreaRailAnubhav Area = "RAIL_ANUBHAV"
)

type Source string

const (
	SourceForm    Source = "FORM"
	SourceChatbot Source = "CHATBOT"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Complaint is one grievance record. The whole collection is persisted as a
// single blob; IDs are unique within it and OwnerEmail never changes after
// creation.
type Complaint struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Area        Area      `json:"complaintArea"`
	Type        string    `json:"complaintType,omitempty"`
	SubType     string    `json:"complaintSubType,omitempty"`
	OwnerEmail  string    `json:"ownerEmail"`
	Source      Source    `json:"source"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Media is append-only after creation; entries are never replaced.
	Media []Media `json:"media,omitempty"`
	// Analysis stays nil until enrichment succeeds and is cleared on resubmit.
	Analysis *Analysis `json:"analysis,omitempty"`

	AssignedTo string `json:"assignedTo,omitempty"`
	Department string `json:"department,omitempty"`
	Zone       string `json:"zone,omitempty"`

	Details AreaDetails `json:"details,omitempty"`
}

// AreaDetails carries the fields that only make sense for one complaint
// area. At most one member is set, keyed by Complaint.Area.
type AreaDetails struct {
	Train      *TrainDetails      `json:"train,omitempty"`
	Station    *StationDetails    `json:"station,omitempty"`
	Suggestion *SuggestionDetails `json:"suggestion,omitempty"`
	Enquiry    *EnquiryDetails    `json:"enquiry,omitempty"`
	Experience *ExperienceDetails `json:"experience,omitempty"`
}

type TrainDetails struct {
	PNR                     string `json:"pnr,omitempty"`
	UTSNumber               string `json:"utsNumber,omitempty"`
	TrainNumber             string `json:"trainNumber,omitempty"`
	CoachNumber             string `json:"coachNumber,omitempty"`
	SeatNumber              string `json:"seatNumber,omitempty"`
	JourneyDate             string `json:"journeyDate,omitempty"`
	MobileNumber            string `json:"mobileNumber,omitempty"`
	UnauthorizedPeopleCount int    `json:"unauthorizedPeopleCount,omitempty"`
}

type StationDetails struct {
	StationCode    string `json:"stationCode,omitempty"`
	PlatformNumber string `json:"platformNumber,omitempty"`
	MobileNumber   string `json:"mobileNumber,omitempty"`
}

type SuggestionDetails struct {
	Declaration bool `json:"declaration,omitempty"`
}

type EnquiryDetails struct {
	PNR         string `json:"pnr,omitempty"`
	TrainNumber string `json:"trainNumber,omitempty"`
	StationCode string `json:"stationCode,omitempty"`
}

type ExperienceDetails struct {
	TrainNumber      string `json:"trainNumber,omitempty"`
	StationCode      string `json:"stationCode,omitempty"`
	ConsentToPublish bool   `json:"consentToPublish,omitempty"`
}

// Title fallbacks when the submitter leaves type/subtype blank.
const (
	fallbackType    = "General"
	fallbackSubType = "Complaint"
)

// BuildTitle assembles the record title from complaint type and subtype.
func BuildTitle(complaintType, subType string) string {
	t := strings.TrimSpace(complaintType)
	if t == "" {
		t = fallbackType
	}
	st := strings.TrimSpace(subType)
	if st == "" {
		st = fallbackSubType
	}
	return t + ": " + st
}

// Clone returns a deep copy so enrichment tasks and views never alias the
// slices of a record another goroutine may mutate.
func (c Complaint) Clone() Complaint {
	out := c
	if c.Media != nil {
		out.Media = make([]Media, len(c.Media))
		copy(out.Media, c.Media)
	}
	if c.Analysis != nil {
		a := *c.Analysis
		if c.Analysis.Keywords != nil {
			a.Keywords = make([]string, len(c.Analysis.Keywords))
			copy(a.Keywords, c.Analysis.Keywords)
		}
		out.Analysis = &a
	}
	out.Details = c.Details.clone()
	return out
}

func (d AreaDetails) clone() AreaDetails {
	out := AreaDetails{}
	if d.Train != nil {
		v := *d.Train
		out.Train = &v
	}
	if d.Station != nil {
		v := *d.Station
		out.Station = &v
	}
	if d.Suggestion != nil {
		v := *d.Suggestion
		out.Suggestion = &v
	}
	if d.Enquiry != nil {
		v := *d.Enquiry
		out.Enquiry = &v
	}
	if d.Experience != nil {
		v := *d.Experience
		out.Experience = &v
	}
	return out
}
