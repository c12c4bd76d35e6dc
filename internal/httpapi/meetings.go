package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/pipeline"
	"meeting_assistant/internal/store"
	"meeting_assistant/internal/transcribe"
)

const maxUploadBytes = 2 << 30

type meetingRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
	AudioPath   *string `json:"audio_file_path"`
}

type meetingDetail struct {
	*store.Meeting
	Participants []store.Participant `json:"participants"`
}

func (r *Router) createMeeting(w http.ResponseWriter, req *http.Request) {
	var body meetingRequest
	if err := decodeBody(req, &body); err != nil {
		respondError(w, err)
		return
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		respondError(w, badRequest("title is required"))
		return
	}
	date, err := parseDate(body.Date)
	if err != nil {
		respondError(w, err)
		return
	}
	m, err := r.store.CreateMeeting(req.Context(), store.NewMeeting{
		Title:       body.Title,
		Description: body.Description,
		Date:        date,
		AudioPath:   body.AudioPath,
	}, config.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, m)
}

func (r *Router) listMeetings(w http.ResponseWriter, req *http.Request) {
	var statuses []store.MeetingStatus
	if s := req.URL.Query().Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			statuses = append(statuses, store.MeetingStatus(strings.TrimSpace(part)))
		}
	}
	meetings, err := r.store.ListMeetings(req.Context(), queryLimit(req, 50, 500), statuses...)
	if err != nil {
		respondError(w, err)
		return
	}
	if meetings == nil {
		meetings = []store.Meeting{}
	}
	respondJSON(w, meetings)
}

func (r *Router) getMeeting(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	m, err := r.store.GetMeeting(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	participants, err := r.store.ListParticipants(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if participants == nil {
		participants = []store.Participant{}
	}
	respondJSON(w, meetingDetail{Meeting: m, Participants: participants})
}

func (r *Router) deleteMeeting(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := r.store.DeleteMeeting(req.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) meetingStatus(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	m, err := r.store.GetMeeting(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, map[string]any{
		"meeting_id": m.ID,
		"status":     m.Status,
		"last_error": m.LastError,
		"updated_at": m.UpdatedAt,
	})
}

func (r *Router) processMeeting(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var body struct {
		AudioPath string `json:"audio_file_path"`
	}
	if err := decodeBody(req, &body); err != nil {
		respondError(w, err)
		return
	}
	job, err := pipeline.StartProcessing(req.Context(), r.store, r.runner, id, strings.TrimSpace(body.AudioPath))
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusAccepted, job)
}

// uploadAudio stores the multipart "file" as the meeting's audio and starts
// processing.
func (r *Router) uploadAudio(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := r.store.GetMeeting(req.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, badRequest("missing audio file: %v", err))
		return
	}
	defer file.Close()
	if !transcribe.SupportedExtension(header.Filename) {
		respondError(w, badRequest("unsupported audio format %q", filepath.Ext(header.Filename)))
		return
	}
	path, err := r.saveUpload(id, strings.ToLower(filepath.Ext(header.Filename)), file)
	if err != nil {
		r.logger.Error("save upload", "meeting_id", id, "error", err)
		respondError(w, err)
		return
	}
	if _, err := pipeline.StartProcessing(req.Context(), r.store, r.runner, id, path); err != nil {
		respondError(w, err)
		return
	}
	m, err := r.store.GetMeeting(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusAccepted, m)
}

func (r *Router) saveUpload(meetingID int64, ext string, src io.Reader) (string, error) {
	dir, err := filepath.Abs(r.cfg.UploadDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("meeting_%d%s", meetingID, ext))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Router) retryMeeting(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	job, err := pipeline.RetryMeeting(req.Context(), r.store, r.runner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusAccepted, job)
}

func (r *Router) listParticipants(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := r.store.GetMeeting(req.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	participants, err := r.store.ListParticipants(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if participants == nil {
		participants = []store.Participant{}
	}
	respondJSON(w, participants)
}

func (r *Router) updateParticipant(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	pid, err := pathID(req, "pid")
	if err != nil {
		respondError(w, err)
		return
	}
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := decodeBody(req, &body); err != nil {
		respondError(w, err)
		return
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		respondError(w, badRequest("name must not be empty"))
		return
	}
	p, err := r.store.UpdateParticipant(req.Context(), id, pid, store.ParticipantUpdate{Name: body.Name, Email: body.Email})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, p)
}

func (r *Router) transcript(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := r.store.GetMeeting(req.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	segments, err := r.store.ListSegments(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if segments == nil {
		segments = []store.TranscriptSegment{}
	}
	respondJSON(w, map[string]any{
		"meeting_id": id,
		"segments":   segments,
		"full_text":  pipeline.TranscriptText(segments),
	})
}

func (r *Router) getSummary(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	summary, err := r.store.GetSummary(req.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, summary)
}

func (r *Router) regenerateSummary(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	job, err := pipeline.RequestSummary(req.Context(), r.store, r.runner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusAccepted, job)
}
