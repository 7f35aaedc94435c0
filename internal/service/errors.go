package service

import "errors"

// Ошибки сервисов. Сбои внешних зависимостей оборачиваются через fmt.Errorf("%w: %v", ...),
// HTTP-слой сопоставляет их со статусами через errors.Is.
var (
	ErrDeliveryFailure      = errors.New("email delivery failed")
	ErrInvalidCode          = errors.New("invalid code")
	ErrCodeExpired          = errors.New("code expired, request a new one")
	ErrStoreUnavailable     = errors.New("record store unavailable, changes kept in memory only")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrNoPendingCode        = errors.New("no code was requested")
	ErrAlreadyAuthenticated = errors.New("already authenticated, log out first")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrRecordNotFound       = errors.New("record not found")
	ErrInvalidRecord        = errors.New("invalid record")
	ErrReminderUnavailable  = errors.New("calendar reminders are not configured")
)
