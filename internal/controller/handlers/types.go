package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LessonService операции над уроками, доступные студенту через бота
type LessonService interface {
	ListAvailable(ctx context.Context) ([]*model.Lesson, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Lesson, error)
	HistoryByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.LessonHistory, error)
	BookSlot(ctx context.Context, lessonID, studentID uuid.UUID) (*model.Lesson, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	lessons  LessonService
	students repository.StudentStore
	location *time.Location
	logger   *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	lessons LessonService,
	students repository.StudentStore,
	location *time.Location,
	logger *zap.Logger,
) *Handlers {
	if location == nil {
		location = time.UTC
	}

	return &Handlers{
		lessons:  lessons,
		students: students,
		location: location,
		logger:   logger,
	}
}
