package service

import (
	"context"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.uber.org/zap"
)

// Complete переносит забронированный урок в историю.
// Запись истории и удаление урока выполняются в одной транзакции.
func (s *BookingService) Complete(ctx context.Context, req CompleteRequest) (*model.LessonHistory, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rating := model.MaxRating
	if req.Rating != nil {
		if *req.Rating < model.MinRating || *req.Rating > model.MaxRating {
			return nil, newError(KindValidation, "Rating must be between 1 and 5", nil)
		}
		rating = *req.Rating
	}

	feedback := model.DefaultFeedback
	if req.Feedback != nil && strings.TrimSpace(*req.Feedback) != "" {
		feedback = strings.TrimSpace(*req.Feedback)
	}

	var (
		lesson *model.Lesson
		record *model.LessonHistory
	)

	err := s.db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		var err error
		lesson, err = tx.Lessons.GetByIDForUpdate(ctx, req.LessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			// Урок уже мог уйти в историю
			done, err := tx.History.GetByLessonID(ctx, req.LessonID)
			if err != nil {
				return err
			}
			if done != nil {
				return ErrAlreadyCompleted
			}
			return newError(KindNotFound, "lesson not found", nil)
		}

		if lesson.TeacherID != req.TeacherID {
			return ErrForbidden
		}
		if lesson.Status == model.LessonStatusCompleted {
			return ErrAlreadyCompleted
		}
		if !lesson.IsBooked() {
			return newError(KindNotAvailable, "only booked lessons can be completed", nil)
		}

		record = &model.LessonHistory{
			LessonID:  lesson.ID,
			TeacherID: lesson.TeacherID,
			StudentID: *lesson.StudentID,
			Rating:    rating,
			Feedback:  feedback,
		}
		if err := tx.History.Create(ctx, record); err != nil {
			return err
		}

		deleted, err := tx.Lessons.DeleteBooked(ctx, lesson.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return newError(KindNotAvailable, "lesson changed during completion", nil)
		}

		return nil
	})
	if err != nil {
		return nil, s.wrap(err, "complete lesson")
	}

	s.logger.Info("Lesson completed and moved to history",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("teacher_id", lesson.TeacherID.String()),
		zap.String("history_id", record.ID.String()),
		zap.Int("rating", rating),
	)

	completedAt := s.now()
	lesson.Status = model.LessonStatusCompleted
	lesson.CompletedAt = &completedAt
	s.publish(ctx, events.KeyLessonCompleted, lesson, rating)

	return record, nil
}
