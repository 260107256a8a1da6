package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	TelegramID *int64    `json:"telegram_id"` // адрес доставки напоминаний
	IsBlocked  bool      `json:"is_blocked"`
	CreatedAt  time.Time `json:"created_at"`
}

// FullName возвращает имя и фамилию через пробел
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// CanReceiveReminders проверяет, есть ли куда отправлять напоминания
func (s *Student) CanReceiveReminders() bool {
	return s.TelegramID != nil && *s.TelegramID != 0 && !s.IsBlocked
}
