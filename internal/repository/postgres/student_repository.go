package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

const studentColumns = `id, first_name, last_name, telegram_id, is_blocked, created_at`

type StudentRepository struct {
	q Querier
}

func NewStudentRepository(q Querier) *StudentRepository {
	return &StudentRepository{q: q}
}

// GetByID получает студента по ID
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return student, nil
}

// GetByTelegramID получает студента по Telegram ID
func (r *StudentRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE telegram_id = $1`

	student, err := scanStudent(r.q.QueryRow(ctx, query, telegramID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by telegram id: %w", err)
	}

	return student, nil
}

func scanStudent(row scanner) (*model.Student, error) {
	var student model.Student
	err := row.Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.TelegramID,
		&student.IsBlocked,
		&student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}
