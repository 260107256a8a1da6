// Package memory хранит данные в памяти процесса.
// Используется в тестах и для локального запуска без Postgres (STORAGE_DRIVER=memory).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/google/uuid"
)

// DB реализует repository.Transactor.
// Транзакции выполняются строго последовательно, при ошибке откатываются по журналу изменений.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	lessons   map[uuid.UUID]*model.Lesson
	history   map[uuid.UUID]*model.LessonHistory
	reminders map[uuid.UUID]model.ReminderDispatch
	teachers  map[uuid.UUID]*model.Teacher
	students  map[uuid.UUID]*model.Student

	now func() time.Time
}

// NewDB создаёт пустое хранилище
func NewDB() *DB {
	return &DB{
		lessons:   make(map[uuid.UUID]*model.Lesson),
		history:   make(map[uuid.UUID]*model.LessonHistory),
		reminders: make(map[uuid.UUID]model.ReminderDispatch),
		teachers:  make(map[uuid.UUID]*model.Teacher),
		students:  make(map[uuid.UUID]*model.Student),
		now:       time.Now,
	}
}

// AddTeacher добавляет учителя
func (db *DB) AddTeacher(teacher *model.Teacher) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if teacher.ID == uuid.Nil {
		teacher.ID = uuid.New()
	}
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = db.now()
	}
	t := *teacher
	db.teachers[t.ID] = &t
}

// AddStudent добавляет студента
func (db *DB) AddStudent(student *model.Student) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = db.now()
	}
	s := *student
	db.students[s.ID] = &s
}

// Stores возвращает хранилища вне транзакции
func (db *DB) Stores() repository.Stores {
	return db.stores(nil)
}

func (db *DB) stores(undo *undoLog) repository.Stores {
	return repository.Stores{
		Lessons:   &lessonStore{db: db, undo: undo},
		History:   &historyStore{db: db, undo: undo},
		Reminders: &reminderStore{db: db, undo: undo},
		Teachers:  &teacherStore{db: db},
		Students:  &studentStore{db: db},
	}
}

// WithinTx выполняет fn эксклюзивно; при ошибке или панике откатывает только записи самой транзакции
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Stores) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	undo := newUndoLog()

	defer func() {
		if p := recover(); p != nil {
			db.rollback(undo)
			panic(p)
		}
		if err != nil {
			db.rollback(undo)
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	return fn(ctx, db.stores(undo))
}

// undoLog прежние значения ключей, изменённых транзакцией; nil означает, что ключа не было.
// Записи вне транзакции в журнал не попадают и при откате не теряются.
type undoLog struct {
	lessons   map[uuid.UUID]*model.Lesson
	history   map[uuid.UUID]*model.LessonHistory
	reminders map[uuid.UUID]*model.ReminderDispatch
}

func newUndoLog() *undoLog {
	return &undoLog{
		lessons:   make(map[uuid.UUID]*model.Lesson),
		history:   make(map[uuid.UUID]*model.LessonHistory),
		reminders: make(map[uuid.UUID]*model.ReminderDispatch),
	}
}

// Методы save* вызываются под db.mu до изменения ключа; сохраняется только первое значение

func (u *undoLog) saveLesson(db *DB, id uuid.UUID) {
	if u == nil {
		return
	}
	if _, ok := u.lessons[id]; ok {
		return
	}
	var prev *model.Lesson
	if l, ok := db.lessons[id]; ok {
		prev = l.Clone()
	}
	u.lessons[id] = prev
}

func (u *undoLog) saveHistory(db *DB, id uuid.UUID) {
	if u == nil {
		return
	}
	if _, ok := u.history[id]; ok {
		return
	}
	var prev *model.LessonHistory
	if h, ok := db.history[id]; ok {
		c := *h
		prev = &c
	}
	u.history[id] = prev
}

func (u *undoLog) saveReminder(db *DB, lessonID uuid.UUID) {
	if u == nil {
		return
	}
	if _, ok := u.reminders[lessonID]; ok {
		return
	}
	var prev *model.ReminderDispatch
	if r, ok := db.reminders[lessonID]; ok {
		prev = &r
	}
	u.reminders[lessonID] = prev
}

func (db *DB) rollback(u *undoLog) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, prev := range u.lessons {
		if prev == nil {
			delete(db.lessons, id)
			continue
		}
		db.lessons[id] = prev
	}
	for id, prev := range u.history {
		if prev == nil {
			delete(db.history, id)
			continue
		}
		db.history[id] = prev
	}
	for id, prev := range u.reminders {
		if prev == nil {
			delete(db.reminders, id)
			continue
		}
		db.reminders[id] = *prev
	}
}

// SetClock подменяет источник времени для created_at/updated_at
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}
