package model

import (
	"time"

	"github.com/google/uuid"
)

type Teacher struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	IsActive bool      `json:"is_active"`

	// OAuth-токены внешнего календаря, пустые если аккаунт не привязан
	CalendarAccessToken  string     `json:"-"`
	CalendarRefreshToken string     `json:"-"`
	CalendarTokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// HasCalendar проверяет, привязан ли внешний календарь
func (t *Teacher) HasCalendar() bool {
	return t.CalendarAccessToken != "" && t.CalendarRefreshToken != ""
}
