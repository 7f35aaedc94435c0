package model

import "time"

// Account связывает identity с адресом почты - нужен фоновому сканеру напоминаний.
type Account struct {
	Identity    string     `json:"identity"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt time.Time  `json:"last_login_at"`
	LastAlertAt *time.Time `json:"last_alert_at,omitempty"`
}

// PushSubscription - подписка Web Push из браузера.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}
