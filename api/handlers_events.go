package api

import (
	"net/http"
	"strconv"

	"github.com/argus-assistant/argus/internal/model"
)

func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	status := model.EventStatus(q.Get("status"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	events, err := h.d.Events.List(ctx, status, limit, offset)
	if err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "failed to list events"))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.d.Logger, err)
		return
	}
	ev, err := h.d.Events.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.d.Logger, NotFound("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *handlers) patchEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.d.Logger, err)
		return
	}

	var changes map[string]any
	if err := decodeJSON(w, r, &changes, 1<<20); err != nil {
		writeError(w, h.d.Logger, err)
		return
	}

	if err := h.d.Events.ApplyChanges(r.Context(), id, changes); err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "failed to update event"))
		return
	}

	ev, err := h.d.Events.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.d.Logger, NotFound("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *handlers) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, h.d.Logger, err)
		return
	}
	if err := h.d.Events.Delete(r.Context(), id); err != nil {
		writeError(w, h.d.Logger, NotFound("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handlers) eventsByDay(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.ParseInt(r.PathValue("day"), 10, 64)
	if err != nil {
		writeError(w, h.d.Logger, BadRequest("invalid day timestamp"))
		return
	}
	events, err := h.d.Events.ListByDay(r.Context(), day, day+86400)
	if err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "failed to list events"))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handlers) eventsByStatus(w http.ResponseWriter, r *http.Request) {
	status := model.EventStatus(r.PathValue("status"))
	events, err := h.d.Events.ListByStatus(r.Context(), status)
	if err != nil {
		writeError(w, h.d.Logger, NewError(ErrInternal, http.StatusInternalServerError, "failed to list events"))
		return
	}
	writeJSON(w, http.StatusOK, events)
}
