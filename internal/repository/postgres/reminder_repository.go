package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

type ReminderRepository struct {
	q Querier
}

func NewReminderRepository(q Querier) *ReminderRepository {
	return &ReminderRepository{q: q}
}

// IsSent проверяет, отправлялось ли напоминание по уроку
func (r *ReminderRepository) IsSent(ctx context.Context, lessonID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reminder_dispatches WHERE lesson_id = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, lessonID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reminder dispatch: %w", err)
	}

	return exists, nil
}

// MarkSent записывает маркер отправки; повторная запись ничего не меняет
func (r *ReminderRepository) MarkSent(ctx context.Context, dispatch *model.ReminderDispatch) (bool, error) {
	query := `
		INSERT INTO reminder_dispatches (lesson_id, sent_at)
		VALUES ($1, $2)
		ON CONFLICT (lesson_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, dispatch.LessonID, dispatch.SentAt)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *ReminderRepository) Release(ctx context.Context, lessonID uuid.UUID) error {
	query := `DELETE FROM reminder_dispatches WHERE lesson_id = $1`

	if _, err := r.q.Exec(ctx, query, lessonID); err != nil {
		return fmt.Errorf("release reminder dispatch: %w", err)
	}

	return nil
}
