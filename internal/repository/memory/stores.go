package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

type historyStore struct {
	db   *DB
	undo *undoLog
}

func (s *historyStore) Create(ctx context.Context, record *model.LessonHistory) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, h := range s.db.history {
		if h.LessonID == record.LessonID {
			return fmt.Errorf("create lesson history: duplicate lesson id %s", record.LessonID)
		}
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = s.db.now()

	s.undo.saveHistory(s.db, record.ID)
	c := *record
	s.db.history[c.ID] = &c
	return nil
}

func (s *historyStore) GetByLessonID(ctx context.Context, lessonID uuid.UUID) (*model.LessonHistory, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, h := range s.db.history {
		if h.LessonID == lessonID {
			c := *h
			return &c, nil
		}
	}
	return nil, nil
}

func (s *historyStore) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.LessonHistory, error) {
	return s.filter(func(h *model.LessonHistory) bool { return h.StudentID == studentID }), nil
}

func (s *historyStore) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*model.LessonHistory, error) {
	return s.filter(func(h *model.LessonHistory) bool { return h.TeacherID == teacherID }), nil
}

func (s *historyStore) filter(match func(*model.LessonHistory) bool) []*model.LessonHistory {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.LessonHistory
	for _, h := range s.db.history {
		if match(h) {
			c := *h
			result = append(result, &c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

type reminderStore struct {
	db   *DB
	undo *undoLog
}

func (s *reminderStore) IsSent(ctx context.Context, lessonID uuid.UUID) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	_, ok := s.db.reminders[lessonID]
	return ok, nil
}

func (s *reminderStore) MarkSent(ctx context.Context, dispatch *model.ReminderDispatch) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.reminders[dispatch.LessonID]; ok {
		return false, nil
	}
	s.undo.saveReminder(s.db, dispatch.LessonID)
	s.db.reminders[dispatch.LessonID] = *dispatch
	return true, nil
}

func (s *reminderStore) Release(ctx context.Context, lessonID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.reminders[lessonID]; ok {
		s.undo.saveReminder(s.db, lessonID)
		delete(s.db.reminders, lessonID)
	}
	return nil
}

type teacherStore struct {
	db *DB
}

func (s *teacherStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Teacher, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if t, ok := s.db.teachers[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

type studentStore struct {
	db *DB
}

func (s *studentStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if st, ok := s.db.students[id]; ok {
		c := *st
		return &c, nil
	}
	return nil, nil
}

func (s *studentStore) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, st := range s.db.students {
		if st.TelegramID != nil && *st.TelegramID == telegramID {
			c := *st
			return &c, nil
		}
	}
	return nil, nil
}
