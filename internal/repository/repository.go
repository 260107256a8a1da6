package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

// LessonStore хранилище активных уроков.
// Методы Get* возвращают (nil, nil), если запись не найдена.
type LessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error)
	// GetByIDForUpdate блокирует строку до конца транзакции
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Lesson, error)
	FindTeacherOverlap(ctx context.Context, teacherID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*model.Lesson, error)
	FindStudentOverlap(ctx context.Context, studentID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*model.Lesson, error)
	// Book переводит AVAILABLE -> BOOKED только если слот ещё свободен.
	// Возвращает false, если условие не выполнилось.
	Book(ctx context.Context, id, studentID uuid.UUID, bookedAt time.Time) (bool, error)
	Update(ctx context.Context, lesson *model.Lesson) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteBooked удаляет урок только в статусе BOOKED
	DeleteBooked(ctx context.Context, id uuid.UUID) (bool, error)
	ListAvailable(ctx context.Context, from time.Time) ([]*model.Lesson, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.Lesson, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Lesson, error)
	// ListStartingBetween возвращает уроки с start_time в [from, to), limit <= 0 без ограничения
	ListStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]*model.Lesson, error)
	// LockOwner берёт блокировку владельца (учителя или студента) до конца транзакции
	LockOwner(ctx context.Context, ownerID uuid.UUID) error
}

// HistoryStore append-only хранилище завершённых уроков
type HistoryStore interface {
	Create(ctx context.Context, record *model.LessonHistory) error
	GetByLessonID(ctx context.Context, lessonID uuid.UUID) (*model.LessonHistory, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.LessonHistory, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.LessonHistory, error)
}

// ReminderStore маркеры отправленных напоминаний
type ReminderStore interface {
	IsSent(ctx context.Context, lessonID uuid.UUID) (bool, error)
	// MarkSent возвращает false, если маркер уже существовал
	MarkSent(ctx context.Context, dispatch *model.ReminderDispatch) (bool, error)
	// Release снимает маркер, если доставка не удалась
	Release(ctx context.Context, lessonID uuid.UUID) error
}

type TeacherStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Teacher, error)
}

type StudentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.Student, error)
}

// Stores набор хранилищ, привязанных к одному соединению или транзакции
type Stores struct {
	Lessons   LessonStore
	History   HistoryStore
	Reminders ReminderStore
	Teachers  TeacherStore
	Students  StudentStore
}

// Transactor выполняет fn в одной транзакции: commit при nil, rollback при ошибке или панике
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
	Stores() Stores
}
