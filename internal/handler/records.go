package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/service"
	"github.com/go-chi/chi/v5"
)

type RecordsHandler struct {
	records        *service.RecordService
	defaultHorizon int
}

func NewRecordsHandler(records *service.RecordService, defaultHorizon int) *RecordsHandler {
	if defaultHorizon <= 0 {
		defaultHorizon = 7
	}
	return &RecordsHandler{records: records, defaultHorizon: defaultHorizon}
}

type addRecordRequest struct {
	model.Record
	AddToCalendar bool `json:"add_to_calendar"`
}

type replaceRequest struct {
	Records []model.Record `json:"records"`
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return idx, true
}

// writeMutation отвечает на изменение коллекции: при ErrStoreUnavailable - 503 вместе с данными из памяти.
func writeMutation(w http.ResponseWriter, s *model.Session, err error) {
	switch {
	case err == nil:
		writeRecords(w, s, http.StatusOK, nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		writeRecords(w, s, http.StatusServiceUnavailable, err)
	default:
		writeServiceError(w, err)
	}
}

func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	if _, err := h.records.List(s); err != nil {
		writeServiceError(w, err)
		return
	}
	writeRecords(w, s, http.StatusOK, nil)
}

func (h *RecordsHandler) Add(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req addRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.records.Add(r.Context(), s, req.Record, req.AddToCalendar)
	if err != nil && !errors.Is(err, service.ErrStoreUnavailable) {
		writeServiceError(w, err)
		return
	}
	resp := struct {
		recordsResponse
		Index   int    `json:"index"`
		Warning string `json:"warning,omitempty"`
	}{recordsResponse: recordsResponse{Records: s.Records, Unsaved: s.Unsaved}, Index: res.Index}
	if res.ReminderErr != nil {
		resp.Warning = "Added to tracker, but calendar event failed: " + res.ReminderErr.Error()
	}
	status := http.StatusCreated
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *RecordsHandler) ReplaceAll(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req replaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeMutation(w, s, h.records.ReplaceAll(r.Context(), s, req.Records))
}

func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	idx, ok := indexParam(w, r)
	if !ok {
		return
	}
	var rec model.Record
	if !decodeJSON(w, r, &rec) {
		return
	}
	writeMutation(w, s, h.records.Update(r.Context(), s, idx, rec))
}

func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	idx, ok := indexParam(w, r)
	if !ok {
		return
	}
	writeMutation(w, s, h.records.Delete(r.Context(), s, idx))
}

func (h *RecordsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	writeMutation(w, s, h.records.Sync(r.Context(), s))
}

func (h *RecordsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	st, err := h.records.Stats(s)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *RecordsHandler) Due(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	horizon := queryInt(r, "horizon", h.defaultHorizon)
	if horizon < 0 {
		writeError(w, http.StatusBadRequest, "horizon must be >= 0")
		return
	}
	due, err := h.records.Due(s, horizon)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if due == nil {
		due = []service.DueRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"horizon_days": horizon, "due": due})
}

func (h *RecordsHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	idx, ok := indexParam(w, r)
	if !ok {
		return
	}
	err := h.records.CreateReminder(r.Context(), s, idx)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			// сбой самого календаря
			writeError(w, http.StatusBadGateway, "calendar: "+err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
