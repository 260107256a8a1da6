package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

type TeacherRepository struct {
	q Querier
}

func NewTeacherRepository(q Querier) *TeacherRepository {
	return &TeacherRepository{q: q}
}

// GetByID получает учителя вместе с токенами календаря
func (r *TeacherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Teacher, error) {
	query := `
		SELECT id, full_name, is_active,
		       COALESCE(calendar_access_token, ''), COALESCE(calendar_refresh_token, ''), calendar_token_expiry,
		       created_at
		FROM teachers
		WHERE id = $1
	`

	var teacher model.Teacher
	err := r.q.QueryRow(ctx, query, id).Scan(
		&teacher.ID,
		&teacher.FullName,
		&teacher.IsActive,
		&teacher.CalendarAccessToken,
		&teacher.CalendarRefreshToken,
		&teacher.CalendarTokenExpiry,
		&teacher.CreatedAt,
	)

	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by id: %w", err)
	}

	return &teacher, nil
}
