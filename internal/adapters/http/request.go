package httpadapter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/core/ports"
)

// draftRequest is the JSON shape of the structured-input bridge: a flat
// record the way conversational function calls hand fields over.
type draftRequest struct {
	ComplaintArea    string          `json:"complaintArea"`
	ComplaintType    string          `json:"complaintType"`
	ComplaintSubType string          `json:"complaintSubType"`
	Description      string          `json:"description"`
	Priority         domain.Priority `json:"priority"`
	Department       string          `json:"department"`
	Zone             string          `json:"zone"`

	PNR                     string `json:"pnr"`
	UTSNumber               string `json:"utsNumber"`
	TrainNumber             string `json:"trainNumber"`
	CoachNumber             string `json:"coachNumber"`
	SeatNumber              string `json:"seatNumber"`
	JourneyDate             string `json:"journeyDate"`
	MobileNumber            string `json:"mobileNumber"`
	UnauthorizedPeopleCount int    `json:"unauthorizedPeopleCount"`
	StationCode             string `json:"stationCode"`
	PlatformNumber          string `json:"platformNumber"`
	Declaration             bool   `json:"declaration"`
	ConsentToPublish        bool   `json:"consentToPublish"`
}

func (req draftRequest) toDraft() ports.Draft {
	draft := ports.Draft{
		Area:        domain.Area(strings.ToUpper(strings.TrimSpace(req.ComplaintArea))),
		Type:        req.ComplaintType,
		SubType:     req.ComplaintSubType,
		Description: req.Description,
		Priority:    req.Priority,
		Department:  req.Department,
		Zone:        req.Zone,
	}
	draft.Details = detailsForArea(draft.Area, areaFields{
		pnr:                     req.PNR,
		utsNumber:               req.UTSNumber,
		trainNumber:             req.TrainNumber,
		coachNumber:             req.CoachNumber,
		seatNumber:              req.SeatNumber,
		journeyDate:             req.JourneyDate,
		mobileNumber:            req.MobileNumber,
		unauthorizedPeopleCount: req.UnauthorizedPeopleCount,
		stationCode:             req.StationCode,
		platformNumber:          req.PlatformNumber,
		declaration:             req.Declaration,
		consentToPublish:        req.ConsentToPublish,
	})
	return draft
}

// patchRequest mirrors ports.Patch: absent keys leave fields untouched.
type patchRequest struct {
	Title            *string             `json:"title"`
	Description      *string             `json:"description"`
	ComplaintType    *string             `json:"complaintType"`
	ComplaintSubType *string             `json:"complaintSubType"`
	Priority         *domain.Priority    `json:"priority"`
	Status           *domain.Status      `json:"status"`
	AssignedTo       *string             `json:"assignedTo"`
	Department       *string             `json:"department"`
	Zone             *string             `json:"zone"`
	Details          *domain.AreaDetails `json:"details"`
}

func (req patchRequest) toPatch() ports.Patch {
	return ports.Patch{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.ComplaintType,
		SubType:     req.ComplaintSubType,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Department:  req.Department,
		Zone:        req.Zone,
		Details:     req.Details,
	}
}

func draftFromForm(r *http.Request) ports.Draft {
	area := domain.Area(strings.ToUpper(strings.TrimSpace(r.FormValue("complaintArea"))))
	count, _ := strconv.Atoi(r.FormValue("unauthorizedPeopleCount"))
	draft := ports.Draft{
		Area:        area,
		Type:        r.FormValue("complaintType"),
		SubType:     r.FormValue("complaintSubType"),
		Description: r.FormValue("description"),
		Priority:    domain.Priority(r.FormValue("priority")),
		Department:  r.FormValue("department"),
		Zone:        r.FormValue("zone"),
	}
	draft.Details = detailsForArea(area, areaFields{
		pnr:                     r.FormValue("pnr"),
		utsNumber:               r.FormValue("utsNumber"),
		trainNumber:             r.FormValue("trainNumber"),
		coachNumber:             r.FormValue("coachNumber"),
		seatNumber:              r.FormValue("seatNumber"),
		journeyDate:             r.FormValue("journeyDate"),
		mobileNumber:            r.FormValue("mobileNumber"),
		unauthorizedPeopleCount: count,
		stationCode:             r.FormValue("stationCode"),
		platformNumber:          r.FormValue("platformNumber"),
		declaration:             parseBool(r.FormValue("declaration")),
		consentToPublish:        parseBool(r.FormValue("consentToPublish")),
	})
	return draft
}

// patchFromForm builds the resubmission patch; only keys present in the
// form become patched fields.
func patchFromForm(r *http.Request) ports.Patch {
	patch := ports.Patch{}
	if r.MultipartForm == nil {
		return patch
	}
	values := r.MultipartForm.Value
	if v, ok := firstValue(values, "title"); ok {
		patch.Title = &v
	}
	if v, ok := firstValue(values, "description"); ok {
		patch.Description = &v
	}
	if v, ok := firstValue(values, "complaintType"); ok {
		patch.Type = &v
	}
	if v, ok := firstValue(values, "complaintSubType"); ok {
		patch.SubType = &v
	}
	if v, ok := firstValue(values, "priority"); ok {
		priority := domain.Priority(v)
		patch.Priority = &priority
	}
	return patch
}

type areaFields struct {
	pnr                     string
	utsNumber               string
	trainNumber             string
	coachNumber             string
	seatNumber              string
	journeyDate             string
	mobileNumber            string
	unauthorizedPeopleCount int
	stationCode             string
	platformNumber          string
	declaration             bool
	consentToPublish        bool
}

func detailsForArea(area domain.Area, f areaFields) domain.AreaDetails {
	switch area {
	case domain.AreaTrain:
		return domain.AreaDetails{Train: &domain.TrainDetails{
			PNR:                     f.pnr,
			UTSNumber:               f.utsNumber,
			TrainNumber:             f.trainNumber,
			CoachNumber:             f.coachNumber,
			SeatNumber:              f.seatNumber,
			JourneyDate:             f.journeyDate,
			MobileNumber:            f.mobileNumber,
			UnauthorizedPeopleCount: f.unauthorizedPeopleCount,
		}}
	case domain.AreaStation:
		return domain.AreaDetails{Station: &domain.StationDetails{
			StationCode:    f.stationCode,
			PlatformNumber: f.platformNumber,
			MobileNumber:   f.mobileNumber,
		}}
	case domain.AreaSuggestions:
		return domain.AreaDetails{Suggestion: &domain.SuggestionDetails{
			Declaration: f.declaration,
		}}
	case domain.AreaEnquiry:
		return domain.AreaDetails{Enquiry: &domain.EnquiryDetails{
			PNR:         f.pnr,
			TrainNumber: f.trainNumber,
			StationCode: f.stationCode,
		}}
	case domain.AreaRailAnubhav:
		return domain.AreaDetails{Experience: &domain.ExperienceDetails{
			TrainNumber:      f.trainNumber,
			StationCode:      f.stationCode,
			ConsentToPublish: f.consentToPublish,
		}}
	default:
		return domain.AreaDetails{}
	}
}

func firstValue(values map[string][]string, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func parseBool(v string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && parsed
}
