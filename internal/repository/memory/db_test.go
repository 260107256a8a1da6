package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

func newLesson(teacherID uuid.UUID, start time.Time, d time.Duration) *model.Lesson {
	return &model.Lesson{
		ID:        uuid.New(),
		TeacherID: teacherID,
		Name:      "Chemistry",
		StartTime: start,
		EndTime:   start.Add(d),
		Status:    model.LessonStatusAvailable,
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	teacherID := uuid.New()
	kept := newLesson(teacherID, t0, time.Hour)
	require.NoError(t, db.Stores().Lessons.Create(ctx, kept))

	errBoom := errors.New("boom")
	err := db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		require.NoError(t, tx.Lessons.Create(ctx, newLesson(teacherID, t0.Add(2*time.Hour), time.Hour)))
		_, err := tx.Lessons.Delete(ctx, kept.ID)
		require.NoError(t, err)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	lessons, err := db.Stores().Lessons.ListByTeacher(ctx, teacherID)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, kept.ID, lessons[0].ID)
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	teacherID := uuid.New()

	assert.Panics(t, func() {
		_ = db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
			require.NoError(t, tx.Lessons.Create(ctx, newLesson(teacherID, t0, time.Hour)))
			panic("unexpected")
		})
	})

	lessons, err := db.Stores().Lessons.ListByTeacher(ctx, teacherID)
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	lesson := newLesson(uuid.New(), t0, time.Hour)

	err := db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		return tx.Lessons.Create(ctx, lesson)
	})
	require.NoError(t, err)

	got, err := db.Stores().Lessons.GetByID(ctx, lesson.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Chemistry", got.Name)
}

func TestWithinTx_RollbackKeepsWritesOutsideTx(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	teacherID := uuid.New()
	reminded := newLesson(teacherID, t0, time.Hour)
	removed := newLesson(teacherID, t0.Add(2*time.Hour), time.Hour)
	require.NoError(t, db.Stores().Lessons.Create(ctx, reminded))
	require.NoError(t, db.Stores().Lessons.Create(ctx, removed))

	errBoom := errors.New("boom")
	err := db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		_, err := tx.Lessons.Book(ctx, reminded.ID, uuid.New(), t0)
		require.NoError(t, err)

		// параллельные записи вне транзакции
		marked, err := db.Stores().Reminders.MarkSent(ctx, &model.ReminderDispatch{LessonID: reminded.ID, SentAt: t0})
		require.NoError(t, err)
		require.True(t, marked)
		deleted, err := db.Stores().Lessons.Delete(ctx, removed.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	sent, err := db.Stores().Reminders.IsSent(ctx, reminded.ID)
	require.NoError(t, err)
	assert.True(t, sent)

	gone, err := db.Stores().Lessons.GetByID(ctx, removed.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	restored, err := db.Stores().Lessons.GetByID(ctx, reminded.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, model.LessonStatusAvailable, restored.Status)
	assert.Nil(t, restored.StudentID)
}

func TestWithinTx_RollbackRestoresCascadedMarker(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	lesson := newLesson(uuid.New(), t0, time.Hour)
	require.NoError(t, db.Stores().Lessons.Create(ctx, lesson))
	_, err := db.Stores().Reminders.MarkSent(ctx, &model.ReminderDispatch{LessonID: lesson.ID, SentAt: t0})
	require.NoError(t, err)

	err = db.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		_, err := tx.Lessons.Delete(ctx, lesson.ID)
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	sent, err := db.Stores().Reminders.IsSent(ctx, lesson.ID)
	require.NoError(t, err)
	assert.True(t, sent)
	got, err := db.Stores().Lessons.GetByID(ctx, lesson.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestLessonStore_Overlap(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	teacherID := uuid.New()
	existing := newLesson(teacherID, t0, time.Hour)
	require.NoError(t, db.Stores().Lessons.Create(ctx, existing))
	store := db.Stores().Lessons

	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		conflict bool
	}{
		{"same interval", t0, t0.Add(time.Hour), true},
		{"starts inside", t0.Add(30 * time.Minute), t0.Add(90 * time.Minute), true},
		{"ends inside", t0.Add(-30 * time.Minute), t0.Add(30 * time.Minute), true},
		{"covers", t0.Add(-time.Hour), t0.Add(2 * time.Hour), true},
		{"adjacent after", t0.Add(time.Hour), t0.Add(2 * time.Hour), false},
		{"adjacent before", t0.Add(-time.Hour), t0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := store.FindTeacherOverlap(ctx, teacherID, tc.start, tc.end, nil)
			require.NoError(t, err)
			if tc.conflict {
				require.NotNil(t, found)
				assert.Equal(t, existing.ID, found.ID)
			} else {
				assert.Nil(t, found)
			}
		})
	}

	found, err := store.FindTeacherOverlap(ctx, teacherID, t0, t0.Add(time.Hour), &existing.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = store.FindTeacherOverlap(ctx, uuid.New(), t0, t0.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestLessonStore_BookIsConditional(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	lesson := newLesson(uuid.New(), t0, time.Hour)
	store := db.Stores().Lessons
	require.NoError(t, store.Create(ctx, lesson))

	first, second := uuid.New(), uuid.New()
	ok, err := store.Book(ctx, lesson.ID, first, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Book(ctx, lesson.ID, second, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetByID(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got.StudentID)

	found, err := store.FindStudentOverlap(ctx, first, t0.Add(30*time.Minute), t0.Add(2*time.Hour), nil)
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestLessonStore_DeleteBookedOnlyForBooked(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	lesson := newLesson(uuid.New(), t0, time.Hour)
	store := db.Stores().Lessons
	require.NoError(t, store.Create(ctx, lesson))

	ok, err := store.DeleteBooked(ctx, lesson.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Book(ctx, lesson.ID, uuid.New(), t0)
	require.NoError(t, err)
	_, err = db.Stores().Reminders.MarkSent(ctx, &model.ReminderDispatch{LessonID: lesson.ID, SentAt: t0})
	require.NoError(t, err)

	ok, err = store.DeleteBooked(ctx, lesson.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	sent, err := db.Stores().Reminders.IsSent(ctx, lesson.ID)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestLessonStore_ListStartingBetween(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	teacherID := uuid.New()
	store := db.Stores().Lessons
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, newLesson(teacherID, t0.Add(time.Duration(4-i)*time.Hour), time.Hour)))
	}

	all, err := store.ListStartingBetween(ctx, t0, t0.Add(4*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, t0, all[0].StartTime)
	assert.Equal(t, t0.Add(3*time.Hour), all[3].StartTime)

	limited, err := store.ListStartingBetween(ctx, t0, t0.Add(10*time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, t0.Add(time.Hour), limited[1].StartTime)
}

func TestLessonStore_DuplicateTeacherStart(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	teacherID := uuid.New()
	store := db.Stores().Lessons
	require.NoError(t, store.Create(ctx, newLesson(teacherID, t0, time.Hour)))

	assert.Error(t, store.Create(ctx, newLesson(teacherID, t0, 30*time.Minute)))
}

func TestReminderStore_MarkSentOnce(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	id := uuid.New()

	first, err := db.Stores().Reminders.MarkSent(ctx, &model.ReminderDispatch{LessonID: id, SentAt: t0})
	require.NoError(t, err)
	assert.True(t, first)

	second, err := db.Stores().Reminders.MarkSent(ctx, &model.ReminderDispatch{LessonID: id, SentAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, db.Stores().Reminders.Release(ctx, id))
	sent, err := db.Stores().Reminders.IsSent(ctx, id)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestHistoryStore_OneRecordPerLesson(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	record := model.LessonHistory{LessonID: uuid.New(), TeacherID: uuid.New(), StudentID: uuid.New(), Rating: 5}

	first := record
	require.NoError(t, db.Stores().History.Create(ctx, &first))
	second := record
	assert.Error(t, db.Stores().History.Create(ctx, &second))
}

func TestStudentStore_GetByTelegramID(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	tg := int64(42)
	db.AddStudent(&model.Student{FirstName: "Aziz", TelegramID: &tg})

	got, err := db.Stores().Students.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Aziz", got.FirstName)

	missing, err := db.Stores().Students.GetByTelegramID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
