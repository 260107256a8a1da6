package model

import (
	"time"

	"github.com/google/uuid"
)

// ReminderDispatch маркер отправленного напоминания (не больше одного на урок)
type ReminderDispatch struct {
	LessonID uuid.UUID `json:"lesson_id"`
	SentAt   time.Time `json:"sent_at"`
}
