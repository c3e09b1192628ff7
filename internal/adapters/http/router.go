package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/core/ports"
)

const maxUploadBytes = 32 << 20

// Exporter renders the triage spreadsheet for officials.
type Exporter interface {
	Export(complaints []domain.Complaint) ([]byte, error)
}

// LifecycleEvents receives business outcomes from the handlers so the
// metrics layer can count them without the adapter importing a collector.
// Nil callbacks are skipped.
type LifecycleEvents struct {
	ComplaintCreated func(source string)
	StatusOverridden func(status string)
	Exported         func(err error)
}

type Router struct {
	lifecycle ports.ComplaintLifecycle
	exporter  Exporter
	metrics   http.Handler
	events    LifecycleEvents

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
	maxWait        time.Duration
}

type RouterOptions struct {
	Exporter       Exporter
	MetricsHandler http.Handler
	Events         LifecycleEvents
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxWait        time.Duration
}

func NewRouter(lifecycle ports.ComplaintLifecycle, options RouterOptions) *Router {
	maxWait := options.MaxWait
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &Router{
		lifecycle:      lifecycle,
		exporter:       options.Exporter,
		metrics:        options.MetricsHandler,
		events:         options.Events,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
		maxWait:        maxWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}
	mux.HandleFunc("/v1/complaints", rt.complaintsCollection)
	mux.HandleFunc("/v1/complaints/", rt.complaintsItem)
	mux.HandleFunc("/v1/admin/complaints/", rt.adminItem)
	mux.HandleFunc("/v1/admin/complaints/export", rt.exportComplaints)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.maxWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = identityMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) complaintCreated(source domain.Source) {
	if rt.events.ComplaintCreated != nil {
		rt.events.ComplaintCreated(string(source))
	}
}

func (rt *Router) statusOverridden(status domain.Status) {
	if rt.events.StatusOverridden != nil {
		rt.events.StatusOverridden(string(status))
	}
}

func (rt *Router) exported(err error) {
	if rt.events.Exported != nil {
		rt.events.Exported(err)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) complaintsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.listComplaints(w, r)
	case http.MethodPost:
		rt.createComplaint(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// complaintsItem dispatches /v1/complaints/{id} and its action suffixes
// /withdraw and /resubmit, plus the collection-level /chat and /structured.
func (rt *Router) complaintsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/complaints/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "complaint id is required"})
		return
	}

	switch rest {
	case "chat":
		rt.createFromConversation(w, r)
		return
	case "structured":
		rt.createFromStructuredInput(w, r)
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	switch {
	case action == "" && r.Method == http.MethodGet:
		rt.getComplaint(w, r, id)
	case action == "" && r.Method == http.MethodPatch:
		rt.updateComplaint(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		rt.deleteComplaint(w, r, id)
	case action == "withdraw" && r.Method == http.MethodPost:
		rt.withdrawComplaint(w, r, id)
	case action == "resubmit" && r.Method == http.MethodPost:
		rt.resubmitComplaint(w, r, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) listComplaints(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	complaints := rt.lifecycle.List(r.Context(), caller)
	if complaints == nil {
		complaints = []domain.Complaint{}
	}
	writeJSON(w, http.StatusOK, complaints)
}

func (rt *Router) createComplaint(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if caller.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "administrators cannot author complaints"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form expected"})
		return
	}
	draft := draftFromForm(r)
	files, err := mediaFilesFromForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	created := rt.lifecycle.Create(r.Context(), caller, draft, files)
	if created == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "complaint could not be registered"})
		return
	}
	rt.complaintCreated(created.Source)
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) createFromConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	caller := callerFromContext(r.Context())
	if caller.IsAdmin() || !caller.IsAuthenticated() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "an authenticated passenger session is required"})
		return
	}

	var req struct {
		ConversationSummary string `json:"conversationSummary"`
		BotResponse         string `json:"botResponse"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	created := rt.lifecycle.CreateFromConversation(r.Context(), caller, req.ConversationSummary, req.BotResponse)
	if created == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no actionable complaint in conversation"})
		return
	}
	rt.complaintCreated(created.Source)
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) createFromStructuredInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	caller := callerFromContext(r.Context())
	if caller.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "administrators cannot author complaints"})
		return
	}

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	created := rt.lifecycle.CreateFromStructuredInput(r.Context(), caller, req.toDraft())
	if created == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "complaint could not be registered"})
		return
	}
	rt.complaintCreated(created.Source)
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) getComplaint(w http.ResponseWriter, r *http.Request, id string) {
	caller := callerFromContext(r.Context())
	c := rt.lifecycle.GetByID(r.Context(), caller, id)
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "complaint not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (rt *Router) updateComplaint(w http.ResponseWriter, r *http.Request, id string) {
	caller := callerFromContext(r.Context())

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	if !rt.lifecycle.Update(r.Context(), caller, id, req.toPatch()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "complaint not found"})
		return
	}
	writeJSON(w, http.StatusOK, rt.lifecycle.GetByID(r.Context(), caller, id))
}

func (rt *Router) deleteComplaint(w http.ResponseWriter, r *http.Request, id string) {
	caller := callerFromContext(r.Context())
	if !rt.lifecycle.Delete(r.Context(), caller, id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "complaint not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) withdrawComplaint(w http.ResponseWriter, r *http.Request, id string) {
	caller := callerFromContext(r.Context())
	if !rt.lifecycle.Withdraw(r.Context(), caller, id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "complaint not found"})
		return
	}
	writeJSON(w, http.StatusOK, rt.lifecycle.GetByID(r.Context(), caller, id))
}

func (rt *Router) resubmitComplaint(w http.ResponseWriter, r *http.Request, id string) {
	caller := callerFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form expected"})
		return
	}
	patch := patchFromForm(r)
	files, err := mediaFilesFromForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resubmitted := rt.lifecycle.Resubmit(r.Context(), caller, id, patch, files)
	if resubmitted == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "complaint not found"})
		return
	}
	writeJSON(w, http.StatusOK, resubmitted)
}

// adminItem handles POST /v1/admin/complaints/{id}/status, the unguarded
// operator override.
func (rt *Router) adminItem(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if !caller.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "administrative role required"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/complaints/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || action != "status" || r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown admin operation"})
		return
	}

	var req struct {
		Status domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	if !rt.lifecycle.OverrideStatus(r.Context(), caller, id, req.Status) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "complaint not found"})
		return
	}
	rt.statusOverridden(req.Status)
	writeJSON(w, http.StatusOK, rt.lifecycle.GetByID(r.Context(), caller, id))
}

func (rt *Router) exportComplaints(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if !caller.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "administrative role required"})
		return
	}
	if rt.exporter == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "export is not configured"})
		return
	}

	raw, err := rt.exporter.Export(rt.lifecycle.List(r.Context(), caller))
	rt.exported(err)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="complaints.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func mediaFilesFromForm(r *http.Request) ([]ports.MediaFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File["media"]
	files := make([]ports.MediaFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q", header.Filename)
		}
		content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %q", header.Filename)
		}
		files = append(files, ports.MediaFile{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  content,
		})
	}
	return files, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
