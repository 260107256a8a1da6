package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

type lessonStore struct {
	db   *DB
	undo *undoLog
}

func (s *lessonStore) Create(ctx context.Context, lesson *model.Lesson) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if lesson.ID == uuid.Nil {
		lesson.ID = uuid.New()
	}
	if _, exists := s.db.lessons[lesson.ID]; exists {
		return fmt.Errorf("create lesson: duplicate id %s", lesson.ID)
	}
	// Тот же уникальный индекс, что и в Postgres: (teacher_id, start_time)
	for _, l := range s.db.lessons {
		if l.TeacherID == lesson.TeacherID && l.StartTime.Equal(lesson.StartTime) {
			return fmt.Errorf("create lesson: duplicate teacher start time")
		}
	}

	s.undo.saveLesson(s.db, lesson.ID)
	now := s.db.now()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	s.db.lessons[lesson.ID] = lesson.Clone()

	return nil
}

func (s *lessonStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if l, ok := s.db.lessons[id]; ok {
		return l.Clone(), nil
	}
	return nil, nil
}

// Транзакции и так выполняются последовательно
func (s *lessonStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	return s.GetByID(ctx, id)
}

func (s *lessonStore) FindTeacherOverlap(ctx context.Context, teacherID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*model.Lesson, error) {
	return s.findOverlap(func(l *model.Lesson) bool {
		return l.TeacherID == teacherID
	}, start, end, exclude), nil
}

func (s *lessonStore) FindStudentOverlap(ctx context.Context, studentID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*model.Lesson, error) {
	return s.findOverlap(func(l *model.Lesson) bool {
		return l.StudentID != nil && *l.StudentID == studentID
	}, start, end, exclude), nil
}

func (s *lessonStore) findOverlap(owner func(*model.Lesson) bool, start, end time.Time, exclude *uuid.UUID) *model.Lesson {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var found []*model.Lesson
	for _, l := range s.db.lessons {
		if !owner(l) || (exclude != nil && l.ID == *exclude) {
			continue
		}
		if l.Overlaps(start, end) {
			found = append(found, l)
		}
	}
	if len(found) == 0 {
		return nil
	}
	sortByStart(found)
	return found[0].Clone()
}

func (s *lessonStore) Book(ctx context.Context, id, studentID uuid.UUID, bookedAt time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	l, ok := s.db.lessons[id]
	if !ok || !l.IsAvailable() {
		return false, nil
	}

	s.undo.saveLesson(s.db, id)

	sid := studentID
	at := bookedAt
	l.Status = model.LessonStatusBooked
	l.StudentID = &sid
	l.BookedAt = &at
	l.UpdatedAt = s.db.now()

	return true, nil
}

func (s *lessonStore) Update(ctx context.Context, lesson *model.Lesson) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	current, ok := s.db.lessons[lesson.ID]
	if !ok {
		return fmt.Errorf("lesson not found")
	}

	s.undo.saveLesson(s.db, lesson.ID)
	updated := lesson.Clone()
	updated.TeacherID = current.TeacherID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.db.now()
	s.db.lessons[lesson.ID] = updated
	lesson.UpdatedAt = updated.UpdatedAt

	return nil
}

func (s *lessonStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.lessons[id]; !ok {
		return false, nil
	}
	s.delete(id)
	return true, nil
}

func (s *lessonStore) DeleteBooked(ctx context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	l, ok := s.db.lessons[id]
	if !ok || l.Status != model.LessonStatusBooked {
		return false, nil
	}
	s.delete(id)
	return true, nil
}

// delete повторяет ON DELETE CASCADE для маркеров напоминаний
func (s *lessonStore) delete(id uuid.UUID) {
	s.undo.saveLesson(s.db, id)
	delete(s.db.lessons, id)
	if _, ok := s.db.reminders[id]; ok {
		s.undo.saveReminder(s.db, id)
		delete(s.db.reminders, id)
	}
}

func (s *lessonStore) ListAvailable(ctx context.Context, from time.Time) ([]*model.Lesson, error) {
	return s.filter(func(l *model.Lesson) bool {
		return l.Status == model.LessonStatusAvailable && !l.StartTime.Before(from)
	}, 0), nil
}

func (s *lessonStore) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.Lesson, error) {
	return s.filter(func(l *model.Lesson) bool {
		return l.TeacherID == teacherID
	}, 0), nil
}

func (s *lessonStore) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Lesson, error) {
	return s.filter(func(l *model.Lesson) bool {
		return l.StudentID != nil && *l.StudentID == studentID
	}, 0), nil
}

func (s *lessonStore) ListStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]*model.Lesson, error) {
	return s.filter(func(l *model.Lesson) bool {
		return !l.StartTime.Before(from) && l.StartTime.Before(to)
	}, limit), nil
}

func (s *lessonStore) LockOwner(ctx context.Context, ownerID uuid.UUID) error {
	return nil
}

func (s *lessonStore) filter(match func(*model.Lesson) bool, limit int) []*model.Lesson {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Lesson
	for _, l := range s.db.lessons {
		if match(l) {
			result = append(result, l.Clone())
		}
	}
	sortByStart(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func sortByStart(lessons []*model.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].StartTime.Equal(lessons[j].StartTime) {
			return lessons[i].ID.String() < lessons[j].ID.String()
		}
		return lessons[i].StartTime.Before(lessons[j].StartTime)
	})
}
