package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"meeting_assistant/internal/export"
	"meeting_assistant/internal/pipeline"
	"meeting_assistant/internal/store"
)

func (r *Router) listReports(w http.ResponseWriter, req *http.Request) {
	var meetingID int64
	if s := req.URL.Query().Get("meeting_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			respondError(w, badRequest("invalid meeting_id %q", s))
			return
		}
		meetingID = id
	}
	reports, err := r.store.ListReports(req.Context(), meetingID, queryLimit(req, 50, 500))
	if err != nil {
		respondError(w, err)
		return
	}
	if reports == nil {
		reports = []store.ProgressReport{}
	}
	respondJSON(w, reports)
}

func (r *Router) generateReport(w http.ResponseWriter, req *http.Request) {
	var body struct {
		MeetingID  *int64 `json:"meeting_id"`
		ReportType string `json:"report_type"`
	}
	if err := decodeBody(req, &body); err != nil {
		respondError(w, err)
		return
	}
	job, err := pipeline.RequestReport(req.Context(), r.store, r.runner, body.MeetingID, store.ReportType(body.ReportType))
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusAccepted, job)
}

func (r *Router) getReport(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	rep, err := r.store.GetReport(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, rep)
}

// reportDocx renders the report into the export directory and serves it.
func (r *Router) reportDocx(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	rep, err := r.store.GetReport(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	var title string
	if rep.MeetingID != nil {
		if m, err := r.store.GetMeeting(req.Context(), *rep.MeetingID); err == nil {
			title = m.Title
		}
	}
	doc, err := export.ReportDocument(rep, title)
	if err != nil {
		respondError(w, err)
		return
	}
	dir := r.cfg.ExportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondError(w, err)
		return
	}
	name := fmt.Sprintf("report-%d.docx", rep.ID)
	path := filepath.Join(dir, name)
	if err := export.Save(doc, path); err != nil {
		r.logger.Error("export report", "report_id", rep.ID, "error", err)
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, req, path)
}
