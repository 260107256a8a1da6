package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

const lessonColumns = `id, teacher_id, student_id, name, start_time, end_time, status, price, is_paid,
	external_event_id, meet_url, booked_at, completed_at, created_at, updated_at`

type LessonRepository struct {
	q Querier
}

func NewLessonRepository(q Querier) *LessonRepository {
	return &LessonRepository{q: q}
}

// Create создаёт новый урок
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (id, teacher_id, student_id, name, start_time, end_time, status, price, is_paid,
			external_event_id, meet_url, booked_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	if lesson.ID == uuid.Nil {
		lesson.ID = uuid.New()
	}

	err := r.q.QueryRow(
		ctx, query,
		lesson.ID,
		lesson.TeacherID,
		lesson.StudentID,
		lesson.Name,
		lesson.StartTime,
		lesson.EndTime,
		lesson.Status,
		lesson.Price,
		lesson.IsPaid,
		lesson.ExternalEventID,
		lesson.MeetURL,
		lesson.BookedAt,
		lesson.CompletedAt,
	).Scan(&lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

// GetByID получает урок по ID
func (r *LessonRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// GetByIDForUpdate получает урок и блокирует строку до конца транзакции
func (r *LessonRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 FOR UPDATE`

	lesson, err := scanLesson(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson for update: %w", err)
	}

	return lesson, nil
}

// FindTeacherOverlap ищет урок учителя, пересекающийся с [start, end)
func (r *LessonRepository) FindTeacherOverlap(ctx context.Context, teacherID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE teacher_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4::uuid)
		ORDER BY start_time
		LIMIT 1
	`

	lesson, err := scanLesson(r.q.QueryRow(ctx, query, teacherID, start, end, exclude))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find teacher overlap: %w", err)
	}

	return lesson, nil
}

// FindStudentOverlap ищет урок студента, пересекающийся с [start, end)
func (r *LessonRepository) FindStudentOverlap(ctx context.Context, studentID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE student_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4::uuid)
		ORDER BY start_time
		LIMIT 1
	`

	lesson, err := scanLesson(r.q.QueryRow(ctx, query, studentID, start, end, exclude))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student overlap: %w", err)
	}

	return lesson, nil
}

// Book бронирует урок для студента, если он ещё свободен
func (r *LessonRepository) Book(ctx context.Context, id, studentID uuid.UUID, bookedAt time.Time) (bool, error) {
	query := `
		UPDATE lessons
		SET status = 'BOOKED', student_id = $2, booked_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'AVAILABLE' AND student_id IS NULL
	`

	result, err := r.q.Exec(ctx, query, id, studentID, bookedAt)
	if err != nil {
		return false, fmt.Errorf("book lesson: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Update сохраняет изменяемые поля урока
func (r *LessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	query := `
		UPDATE lessons
		SET name = $2, start_time = $3, end_time = $4, price = $5, is_paid = $6,
		    status = $7, student_id = $8, external_event_id = $9, meet_url = $10,
		    booked_at = $11, completed_at = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		lesson.ID,
		lesson.Name,
		lesson.StartTime,
		lesson.EndTime,
		lesson.Price,
		lesson.IsPaid,
		lesson.Status,
		lesson.StudentID,
		lesson.ExternalEventID,
		lesson.MeetURL,
		lesson.BookedAt,
		lesson.CompletedAt,
	).Scan(&lesson.UpdatedAt)

	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("lesson not found")
		}
		return fmt.Errorf("update lesson: %w", err)
	}

	return nil
}

// Delete удаляет урок
func (r *LessonRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete lesson: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// DeleteBooked удаляет урок, только если он забронирован
func (r *LessonRepository) DeleteBooked(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM lessons WHERE id = $1 AND status = 'BOOKED'`, id)
	if err != nil {
		return false, fmt.Errorf("delete booked lesson: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// ListAvailable получает свободные слоты начиная с from
func (r *LessonRepository) ListAvailable(ctx context.Context, from time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE status = 'AVAILABLE' AND start_time >= $1
		ORDER BY start_time ASC
	`

	return r.list(ctx, "list available lessons", query, from)
}

// ListByTeacher получает все уроки учителя
func (r *LessonRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE teacher_id = $1
		ORDER BY start_time ASC
	`

	return r.list(ctx, "list lessons by teacher", query, teacherID)
}

// ListByStudent получает все уроки студента
func (r *LessonRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE student_id = $1
		ORDER BY start_time ASC
	`

	return r.list(ctx, "list lessons by student", query, studentID)
}

// ListStartingBetween получает уроки, начинающиеся в [from, to)
func (r *LessonRepository) ListStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return r.list(ctx, "list lessons starting between", query, from, to)
}

// LockOwner берёт advisory-блокировку на время транзакции
func (r *LessonRepository) LockOwner(ctx context.Context, ownerID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, ownerID); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

func (r *LessonRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Lesson, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func scanLesson(row scanner) (*model.Lesson, error) {
	var lesson model.Lesson
	err := row.Scan(
		&lesson.ID,
		&lesson.TeacherID,
		&lesson.StudentID,
		&lesson.Name,
		&lesson.StartTime,
		&lesson.EndTime,
		&lesson.Status,
		&lesson.Price,
		&lesson.IsPaid,
		&lesson.ExternalEventID,
		&lesson.MeetURL,
		&lesson.BookedAt,
		&lesson.CompletedAt,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}
