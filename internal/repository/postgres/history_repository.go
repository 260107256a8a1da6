package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

type HistoryRepository struct {
	q Querier
}

func NewHistoryRepository(q Querier) *HistoryRepository {
	return &HistoryRepository{q: q}
}

// Create добавляет запись в историю
func (r *HistoryRepository) Create(ctx context.Context, record *model.LessonHistory) error {
	query := `
		INSERT INTO lesson_history (id, lesson_id, teacher_id, student_id, rating, feedback)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	err := r.q.QueryRow(
		ctx, query,
		record.ID,
		record.LessonID,
		record.TeacherID,
		record.StudentID,
		record.Rating,
		record.Feedback,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("create lesson history: %w", err)
	}

	return nil
}

// GetByLessonID получает запись истории по ID урока
func (r *HistoryRepository) GetByLessonID(ctx context.Context, lessonID uuid.UUID) (*model.LessonHistory, error) {
	query := `
		SELECT id, lesson_id, teacher_id, student_id, rating, feedback, created_at
		FROM lesson_history
		WHERE lesson_id = $1
	`

	var record model.LessonHistory
	err := r.q.QueryRow(ctx, query, lessonID).Scan(
		&record.ID,
		&record.LessonID,
		&record.TeacherID,
		&record.StudentID,
		&record.Rating,
		&record.Feedback,
		&record.CreatedAt,
	)

	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson history by lesson id: %w", err)
	}

	return &record, nil
}

// ListByStudent получает историю студента, новые сверху
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.LessonHistory, error) {
	query := `
		SELECT id, lesson_id, teacher_id, student_id, rating, feedback, created_at
		FROM lesson_history
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, query, studentID)
}

// ListByTeacher получает историю учителя, новые сверху
func (r *HistoryRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.LessonHistory, error) {
	query := `
		SELECT id, lesson_id, teacher_id, student_id, rating, feedback, created_at
		FROM lesson_history
		WHERE teacher_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, query, teacherID)
}

func (r *HistoryRepository) list(ctx context.Context, query string, ownerID uuid.UUID) ([]*model.LessonHistory, error) {
	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list lesson history: %w", err)
	}
	defer rows.Close()

	var records []*model.LessonHistory
	for rows.Next() {
		var record model.LessonHistory
		err := rows.Scan(
			&record.ID,
			&record.LessonID,
			&record.TeacherID,
			&record.StudentID,
			&record.Rating,
			&record.Feedback,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lesson history: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
