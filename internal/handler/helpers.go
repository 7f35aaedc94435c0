package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/middleware"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/service"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

// statusFor сопоставляет ошибку сервиса с HTTP-статусом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrNoPendingCode), errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyAuthenticated):
		return http.StatusConflict
	case errors.Is(err, service.ErrDeliveryFailure):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrReminderUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("unhandled service error: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// recordsResponse - коллекция сессии; Error заполнен, когда сохранение не удалось,
// но данные в памяти есть и их нужно показать.
type recordsResponse struct {
	Records []model.Record `json:"records"`
	Unsaved bool           `json:"unsaved"`
	Error   string         `json:"error,omitempty"`
}

func writeRecords(w http.ResponseWriter, s *model.Session, status int, err error) {
	resp := recordsResponse{Records: s.Records, Unsaved: s.Unsaved}
	if resp.Records == nil {
		resp.Records = []model.Record{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

// session возвращает сессию запроса; без SessionManager в цепочке это ошибка сборки роутера.
func session(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		logger.Errorf("handler %s %s: no session in context", r.Method, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return s, true
}
