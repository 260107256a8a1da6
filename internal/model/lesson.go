package model

import (
	"time"

	"github.com/google/uuid"
)

type LessonStatus string

const (
	LessonStatusAvailable LessonStatus = "AVAILABLE" // Свободный слот
	LessonStatusBooked    LessonStatus = "BOOKED"    // Забронирован студентом
	LessonStatusCompleted LessonStatus = "COMPLETED" // Завершён, запись переезжает в историю
	LessonStatusCanceled  LessonStatus = "CANCELED"  // Отменён (используется только в событиях)
)

// Lesson представляет слот урока учителя
type Lesson struct {
	ID              uuid.UUID    `json:"id"`
	TeacherID       uuid.UUID    `json:"teacher_id"`
	StudentID       *uuid.UUID   `json:"student_id"` // nil пока слот свободен
	Name            string       `json:"name"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	Status          LessonStatus `json:"status"`
	Price           int64        `json:"price"`
	IsPaid          bool         `json:"is_paid"`
	ExternalEventID *string      `json:"external_event_id"` // id события во внешнем календаре
	MeetURL         *string      `json:"meet_url"`
	BookedAt        *time.Time   `json:"booked_at"`
	CompletedAt     *time.Time   `json:"completed_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsAvailable проверяет, можно ли забронировать слот
func (l *Lesson) IsAvailable() bool {
	return l.Status == LessonStatusAvailable && l.StudentID == nil
}

// IsBooked проверяет, что слот занят студентом
func (l *Lesson) IsBooked() bool {
	return l.Status == LessonStatusBooked && l.StudentID != nil
}

// Overlaps проверяет пересечение интервала урока с [start, end)
func (l *Lesson) Overlaps(start, end time.Time) bool {
	return l.StartTime.Before(end) && start.Before(l.EndTime)
}

// Clone возвращает независимую копию урока
func (l *Lesson) Clone() *Lesson {
	c := *l
	if l.StudentID != nil {
		id := *l.StudentID
		c.StudentID = &id
	}
	if l.ExternalEventID != nil {
		v := *l.ExternalEventID
		c.ExternalEventID = &v
	}
	if l.MeetURL != nil {
		v := *l.MeetURL
		c.MeetURL = &v
	}
	if l.BookedAt != nil {
		v := *l.BookedAt
		c.BookedAt = &v
	}
	if l.CompletedAt != nil {
		v := *l.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}
