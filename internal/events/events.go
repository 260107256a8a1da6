// Package events публикует события жизненного цикла уроков для внешних потребителей.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ключи маршрутизации
const (
	KeyLessonCreated   = "lesson.created"
	KeyLessonBooked    = "lesson.booked"
	KeyLessonUpdated   = "lesson.updated"
	KeyLessonCanceled  = "lesson.canceled"
	KeyLessonCompleted = "lesson.completed"
	KeyReminderSent    = "lesson.reminder_sent"
)

// Publisher отправляет событие с ключом маршрутизации
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// LessonEvent полезная нагрузка событий урока
type LessonEvent struct {
	LessonID   uuid.UUID  `json:"lesson_id"`
	TeacherID  uuid.UUID  `json:"teacher_id"`
	StudentID  *uuid.UUID `json:"student_id,omitempty"`
	Status     string     `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Rating     int        `json:"rating,omitempty"`
	Reason     string     `json:"reason,omitempty"` // только для lesson.canceled
	OccurredAt time.Time  `json:"occurred_at"`
}

// NopPublisher используется, когда брокер не настроен
type NopPublisher struct{}

func (NopPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	return nil
}
