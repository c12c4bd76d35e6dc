package httpapi

import (
	"net/http"
	"strconv"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/store"
)

type taskRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
	AssigneeID    *int64  `json:"assignee_id"`
	ClearAssignee bool    `json:"clear_assignee"`
	DueDate       *string `json:"due_date"`
	ClearDueDate  bool    `json:"clear_due_date"`
}

func (r *Router) meetingTasks(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := r.store.GetMeeting(req.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	r.respondTasks(w, req, store.TaskFilter{MeetingID: id})
}

func (r *Router) listTasks(w http.ResponseWriter, req *http.Request) {
	f := store.TaskFilter{Limit: queryLimit(req, 200, 1000)}
	if s := req.URL.Query().Get("meeting_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			respondError(w, badRequest("invalid meeting_id %q", s))
			return
		}
		f.MeetingID = id
	}
	r.respondTasks(w, req, f)
}

func (r *Router) respondTasks(w http.ResponseWriter, req *http.Request, f store.TaskFilter) {
	if s := req.URL.Query().Get("status"); s != "" {
		f.Status = store.TaskStatus(s)
		if !f.Status.Valid() {
			respondError(w, badRequest("invalid status %q", s))
			return
		}
	}
	tasks, err := r.store.ListTasks(req.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	respondJSON(w, tasks)
}

func (r *Router) createTask(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var body taskRequest
	if err := decodeBody(req, &body); err != nil {
		respondError(w, err)
		return
	}
	in := store.NewTask{Description: body.Description, AssigneeID: body.AssigneeID}
	if body.Title != nil {
		in.Title = *body.Title
	}
	if body.Priority != nil {
		in.Priority = store.Priority(*body.Priority)
		if !in.Priority.Valid() {
			respondError(w, badRequest("invalid priority %q", *body.Priority))
			return
		}
	}
	if body.DueDate != nil {
		if in.DueDate, err = parseDate(*body.DueDate); err != nil {
			respondError(w, err)
			return
		}
	}
	task, err := r.store.CreateTask(req.Context(), id, in, config.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, task)
}

func (r *Router) updateTask(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var body taskRequest
	if err := decodeBody(req, &body); err != nil {
		respondError(w, err)
		return
	}
	upd := store.TaskUpdate{
		Title:         body.Title,
		Description:   body.Description,
		AssigneeID:    body.AssigneeID,
		ClearAssignee: body.ClearAssignee,
		ClearDueDate:  body.ClearDueDate,
	}
	if body.Priority != nil {
		p := store.Priority(*body.Priority)
		upd.Priority = &p
	}
	if body.Status != nil {
		s := store.TaskStatus(*body.Status)
		upd.Status = &s
	}
	if body.DueDate != nil {
		if upd.DueDate, err = parseDate(*body.DueDate); err != nil {
			respondError(w, err)
			return
		}
	}
	task, err := r.store.UpdateTask(req.Context(), id, upd, config.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, task)
}
