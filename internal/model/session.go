package model

import "time"

// SessionState - состояние входа по одноразовому коду.
type SessionState string

const (
	StateAnonymous     SessionState = "anonymous"
	StateCodePending   SessionState = "code_pending"
	StateAuthenticated SessionState = "authenticated"
)

// Session - состояние одного посетителя между запросами. Хранится в SessionStore по ID,
// все переходы выполняет service.AuthService.
type Session struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email,omitempty"`
	Identity            string     `json:"identity,omitempty"`
	PendingCode         string     `json:"pending_code,omitempty"`
	PendingCodeIssuedAt *time.Time `json:"pending_code_issued_at,omitempty"`
	Authenticated       bool       `json:"authenticated"`
	// Records - коллекция пользователя в памяти; Unsaved = последнее сохранение в хранилище не удалось.
	// Loaded = сохранённая коллекция identity прочитана; пока false, Records содержит только новые записи.
	Records   []Record  `json:"records,omitempty"`
	Unsaved   bool      `json:"unsaved,omitempty"`
	Loaded    bool      `json:"loaded,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) State() SessionState {
	switch {
	case s.Authenticated:
		return StateAuthenticated
	case s.PendingCode != "":
		return StateCodePending
	default:
		return StateAnonymous
	}
}

// ClearPending сбрасывает ожидающий код.
func (s *Session) ClearPending() {
	s.PendingCode = ""
	s.PendingCodeIssuedAt = nil
}

// Reset возвращает сессию в Anonymous, сохраняя ID и время создания.
func (s *Session) Reset() {
	s.ClearPending()
	s.Email = ""
	s.Identity = ""
	s.Authenticated = false
	s.Records = nil
	s.Unsaved = false
	s.Loaded = false
}
