package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/calendar"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCalendarTimeout = 10 * time.Second

// Options необязательные настройки сервиса
type Options struct {
	Now             func() time.Time
	CalendarTimeout time.Duration
}

// BookingService движок жизненного цикла урока: создание, бронирование, перенос, удаление и завершение
type BookingService struct {
	db              repository.Transactor
	calendar        calendar.Client
	publisher       events.Publisher
	logger          *zap.Logger
	now             func() time.Time
	calendarTimeout time.Duration
}

func NewBookingService(
	db repository.Transactor,
	calendarClient calendar.Client,
	publisher events.Publisher,
	logger *zap.Logger,
	opts Options,
) *BookingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CalendarTimeout <= 0 {
		opts.CalendarTimeout = defaultCalendarTimeout
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &BookingService{
		db:              db,
		calendar:        calendarClient,
		publisher:       publisher,
		logger:          logger,
		now:             opts.Now,
		calendarTimeout: opts.CalendarTimeout,
	}
}

// CreateSlot создаёт свободный слот и событие во внешнем календаре.
// Если календарь недоступен, слот не сохраняется.
func (s *BookingService) CreateSlot(ctx context.Context, req CreateSlotRequest) (*model.Lesson, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}
	if start.Before(s.now()) {
		return nil, ErrPastStartTime
	}

	var (
		lesson  *model.Lesson
		creds   calendar.Credentials
		eventID string
	)

	err := s.db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		teacher, err := tx.Teachers.GetByID(ctx, req.TeacherID)
		if err != nil {
			return err
		}
		if teacher == nil {
			return newError(KindNotFound, "teacher not found", nil)
		}
		if !teacher.IsActive {
			return newError(KindForbidden, "teacher account is inactive", nil)
		}
		if !teacher.HasCalendar() {
			return ErrExternalAccountNotLinked
		}

		// Сериализуем проверку конфликтов по учителю
		if err := tx.Lessons.LockOwner(ctx, teacher.ID); err != nil {
			return err
		}

		conflict, err := tx.Lessons.FindTeacherOverlap(ctx, teacher.ID, start, end, nil)
		if err != nil {
			return err
		}
		if conflict != nil {
			return newError(KindSlotConflict, "you already have a lesson at this time", nil)
		}

		creds = calendar.CredentialsFor(teacher)
		created, err := s.createEvent(ctx, creds, calendar.Event{
			Summary:        "Lesson: " + req.Name,
			Description:    "Google Meet link for the lesson",
			Start:          start,
			End:            end,
			WithConference: true,
		})
		if err != nil {
			return err
		}
		eventID = created.ID

		lesson = &model.Lesson{
			ID:              uuid.New(),
			TeacherID:       teacher.ID,
			Name:            req.Name,
			StartTime:       start,
			EndTime:         end,
			Status:          model.LessonStatusAvailable,
			Price:           req.Price,
			IsPaid:          req.IsPaid,
			ExternalEventID: &created.ID,
		}
		if created.MeetURL != "" {
			lesson.MeetURL = &created.MeetURL
		}

		return tx.Lessons.Create(ctx, lesson)
	})
	if err != nil {
		// Событие уже создано, а слот не сохранился: убираем событие
		if eventID != "" {
			s.deleteEventBestEffort(ctx, creds, eventID)
		}
		return nil, s.wrap(err, "create slot")
	}

	s.logger.Info("Lesson slot created",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("teacher_id", lesson.TeacherID.String()),
		zap.Time("start_time", lesson.StartTime),
		zap.Time("end_time", lesson.EndTime),
	)

	s.publish(ctx, events.KeyLessonCreated, lesson, 0)

	return lesson, nil
}

// BookSlot бронирует свободный слот для студента
func (s *BookingService) BookSlot(ctx context.Context, lessonID, studentID uuid.UUID) (*model.Lesson, error) {
	var lesson *model.Lesson

	err := s.db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		var err error
		lesson, err = tx.Lessons.GetByIDForUpdate(ctx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return newError(KindNotFound, "lesson not found", nil)
		}
		if lesson.Status != model.LessonStatusAvailable {
			return ErrNotAvailable
		}
		if lesson.StudentID != nil {
			return newError(KindNotAvailable, "lesson is already booked", nil)
		}

		student, err := tx.Students.GetByID(ctx, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return newError(KindNotFound, "student not found", nil)
		}
		if student.IsBlocked {
			return newError(KindForbidden, "student is blocked", nil)
		}

		if err := tx.Lessons.LockOwner(ctx, student.ID); err != nil {
			return err
		}

		conflict, err := tx.Lessons.FindStudentOverlap(ctx, student.ID, lesson.StartTime, lesson.EndTime, &lesson.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return newError(KindSlotConflict, "you already have a lesson at this time", nil)
		}

		bookedAt := s.now()
		booked, err := tx.Lessons.Book(ctx, lesson.ID, student.ID, bookedAt)
		if err != nil {
			return err
		}
		if !booked {
			return ErrNotAvailable
		}

		lesson.Status = model.LessonStatusBooked
		lesson.StudentID = &student.ID
		lesson.BookedAt = &bookedAt

		// Отметка в календаре обязательна: при ошибке бронирование откатывается
		if lesson.ExternalEventID != nil {
			teacher, err := tx.Teachers.GetByID(ctx, lesson.TeacherID)
			if err != nil {
				return err
			}
			if teacher == nil {
				return newError(KindNotFound, "teacher not found", nil)
			}

			description := "Lesson booked by: " + student.FullName()
			if err := s.patchEvent(ctx, calendar.CredentialsFor(teacher), *lesson.ExternalEventID, calendar.EventPatch{
				Description: &description,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, s.wrap(err, "book slot")
	}

	s.logger.Info("Lesson booked",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("student_id", studentID.String()),
		zap.String("teacher_id", lesson.TeacherID.String()),
	)

	s.publish(ctx, events.KeyLessonBooked, lesson, 0)

	return lesson, nil
}

// UpdateSlot применяет только переданные поля.
// При переносе времени проверяются порядок, пересечения и синхронизируется календарь.
func (s *BookingService) UpdateSlot(ctx context.Context, lessonID uuid.UUID, patch UpdateSlotRequest) (*model.Lesson, error) {
	if err := validateRequest(patch); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, newError(KindValidation, "Name must not be empty", nil)
	}

	var lesson *model.Lesson

	err := s.db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		var err error
		lesson, err = tx.Lessons.GetByIDForUpdate(ctx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return newError(KindNotFound, "lesson not found", nil)
		}

		if patch.StartTime != nil || patch.EndTime != nil {
			if err := s.reschedule(ctx, tx, lesson, patch); err != nil {
				return err
			}
		}

		if patch.Name != nil {
			lesson.Name = *patch.Name
		}
		if patch.Price != nil {
			lesson.Price = *patch.Price
		}
		if patch.IsPaid != nil {
			lesson.IsPaid = *patch.IsPaid
		}

		return tx.Lessons.Update(ctx, lesson)
	})
	if err != nil {
		return nil, s.wrap(err, "update slot")
	}

	s.logger.Info("Lesson updated",
		zap.String("lesson_id", lesson.ID.String()),
		zap.Time("start_time", lesson.StartTime),
		zap.Time("end_time", lesson.EndTime),
	)

	s.publish(ctx, events.KeyLessonUpdated, lesson, 0)

	return lesson, nil
}

func (s *BookingService) reschedule(ctx context.Context, tx repository.Stores, lesson *model.Lesson, patch UpdateSlotRequest) error {
	start, end := lesson.StartTime, lesson.EndTime
	if patch.StartTime != nil {
		start = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		end = patch.EndTime.UTC()
	}

	if !start.Before(end) {
		return ErrInvalidTimeRange
	}
	if !start.Equal(lesson.StartTime) && start.Before(s.now()) {
		return ErrPastStartTime
	}

	if err := tx.Lessons.LockOwner(ctx, lesson.TeacherID); err != nil {
		return err
	}
	conflict, err := tx.Lessons.FindTeacherOverlap(ctx, lesson.TeacherID, start, end, &lesson.ID)
	if err != nil {
		return err
	}
	if conflict != nil {
		return newError(KindSlotConflict, "you already have a lesson at this time", nil)
	}

	if lesson.StudentID != nil {
		conflict, err := tx.Lessons.FindStudentOverlap(ctx, *lesson.StudentID, start, end, &lesson.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return newError(KindSlotConflict, "the student already has a lesson at this time", nil)
		}
	}

	if lesson.ExternalEventID != nil {
		teacher, err := tx.Teachers.GetByID(ctx, lesson.TeacherID)
		if err != nil {
			return err
		}
		if teacher == nil {
			return newError(KindNotFound, "teacher not found", nil)
		}
		if err := s.patchEvent(ctx, calendar.CredentialsFor(teacher), *lesson.ExternalEventID, calendar.EventPatch{
			Start: &start,
			End:   &end,
		}); err != nil {
			return err
		}
	}

	lesson.StartTime = start
	lesson.EndTime = end
	return nil
}

// CancelOrDelete удаляет событие календаря (без гарантии) и затем сам урок.
// Причина попадает только в событие lesson.canceled.
func (s *BookingService) CancelOrDelete(ctx context.Context, req CancelRequest) error {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return err
	}

	stores := s.db.Stores()

	lesson, err := stores.Lessons.GetByID(ctx, req.LessonID)
	if err != nil {
		return s.wrap(err, "cancel lesson")
	}
	if lesson == nil {
		return newError(KindNotFound, "lesson not found", nil)
	}

	if lesson.ExternalEventID != nil {
		teacher, err := stores.Teachers.GetByID(ctx, lesson.TeacherID)
		if err != nil {
			s.logger.Warn("Failed to load teacher for calendar cleanup",
				zap.String("lesson_id", lesson.ID.String()),
				zap.Error(err),
			)
		} else if teacher != nil {
			s.deleteEventBestEffort(ctx, calendar.CredentialsFor(teacher), *lesson.ExternalEventID)
		}
	}

	deleted, err := stores.Lessons.Delete(ctx, lesson.ID)
	if err != nil {
		return s.wrap(err, "cancel lesson")
	}
	if !deleted {
		return newError(KindNotFound, "lesson not found", nil)
	}

	s.logger.Info("Lesson canceled and removed",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("status", string(lesson.Status)),
		zap.String("reason", req.Reason),
	)

	lesson.Status = model.LessonStatusCanceled
	evt := newLessonEvent(lesson, s.now())
	evt.Reason = req.Reason
	publishLessonEvent(ctx, s.publisher, s.logger, events.KeyLessonCanceled, evt)

	return nil
}

// GetLesson получает урок по ID
func (s *BookingService) GetLesson(ctx context.Context, lessonID uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.db.Stores().Lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, s.wrap(err, "get lesson")
	}
	if lesson == nil {
		return nil, newError(KindNotFound, "lesson not found", nil)
	}
	return lesson, nil
}

// ListAvailable свободные слоты, которые ещё не начались
func (s *BookingService) ListAvailable(ctx context.Context) ([]*model.Lesson, error) {
	return s.db.Stores().Lessons.ListAvailable(ctx, s.now())
}

// ListByTeacher уроки учителя по возрастанию времени начала
func (s *BookingService) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.Lesson, error) {
	return s.db.Stores().Lessons.ListByTeacher(ctx, teacherID)
}

// ListByStudent уроки студента по возрастанию времени начала
func (s *BookingService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Lesson, error) {
	return s.db.Stores().Lessons.ListByStudent(ctx, studentID)
}

// HistoryByStudent завершённые уроки студента
func (s *BookingService) HistoryByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.LessonHistory, error) {
	return s.db.Stores().History.ListByStudent(ctx, studentID)
}

// HistoryByTeacher завершённые уроки учителя
func (s *BookingService) HistoryByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.LessonHistory, error) {
	return s.db.Stores().History.ListByTeacher(ctx, teacherID)
}

func (s *BookingService) createEvent(ctx context.Context, creds calendar.Credentials, event calendar.Event) (*calendar.CreatedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.calendarTimeout)
	defer cancel()

	created, err := s.calendar.CreateEvent(ctx, creds, event)
	if err != nil {
		return nil, calendarError(err, "failed to create calendar event")
	}
	return created, nil
}

func (s *BookingService) patchEvent(ctx context.Context, creds calendar.Credentials, eventID string, patch calendar.EventPatch) error {
	ctx, cancel := context.WithTimeout(ctx, s.calendarTimeout)
	defer cancel()

	if err := s.calendar.PatchEvent(ctx, creds, eventID, patch); err != nil {
		return calendarError(err, "failed to update calendar event")
	}
	return nil
}

func (s *BookingService) deleteEventBestEffort(ctx context.Context, creds calendar.Credentials, eventID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.calendarTimeout)
	defer cancel()

	if err := s.calendar.DeleteEvent(ctx, creds, eventID); err != nil {
		s.logger.Warn("Failed to delete calendar event",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

// calendarError разделяет протухшие токены и прочие сбои календаря
func calendarError(err error, message string) error {
	if errors.Is(err, calendar.ErrAuthExpired) {
		return newError(KindExternalAccountNotLinked, "calendar authorization expired, link the account again", err)
	}
	return newError(KindExternalServiceFailure, message, err)
}

// wrap пропускает ошибки движка как есть, остальные логирует и заворачивает
func (s *BookingService) wrap(err error, op string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	s.logger.Error("Lesson operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (s *BookingService) publish(ctx context.Context, key string, lesson *model.Lesson, rating int) {
	evt := newLessonEvent(lesson, s.now())
	evt.Rating = rating
	publishLessonEvent(ctx, s.publisher, s.logger, key, evt)
}

func newLessonEvent(lesson *model.Lesson, at time.Time) events.LessonEvent {
	return events.LessonEvent{
		LessonID:   lesson.ID,
		TeacherID:  lesson.TeacherID,
		StudentID:  lesson.StudentID,
		Status:     string(lesson.Status),
		StartTime:  lesson.StartTime,
		EndTime:    lesson.EndTime,
		OccurredAt: at,
	}
}

func publishLessonEvent(ctx context.Context, publisher events.Publisher, logger *zap.Logger, key string, evt events.LessonEvent) {
	if err := publisher.PublishJSON(ctx, key, evt); err != nil {
		logger.Warn("Failed to publish lesson event",
			zap.String("key", key),
			zap.String("lesson_id", evt.LessonID.String()),
			zap.Error(err),
		)
	}
}
