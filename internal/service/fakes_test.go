package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/calendar"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/google/uuid"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(now time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type patchCall struct {
	EventID string
	Patch   calendar.EventPatch
}

type fakeCalendar struct {
	mu sync.Mutex

	createErr error
	patchErr  error
	deleteErr error

	created []calendar.Event
	patched []patchCall
	deleted []string
	seq     int
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, creds calendar.Credentials, event calendar.Event) (*calendar.CreatedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	f.created = append(f.created, event)
	return &calendar.CreatedEvent{
		ID:      fmt.Sprintf("event-%d", f.seq),
		MeetURL: fmt.Sprintf("https://meet.example.com/%d", f.seq),
	}, nil
}

func (f *fakeCalendar) PatchEvent(ctx context.Context, creds calendar.Credentials, eventID string, patch calendar.EventPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.patchErr != nil {
		return f.patchErr
	}
	f.patched = append(f.patched, patchCall{EventID: eventID, Patch: patch})
	return nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, creds calendar.Credentials, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, eventID)
	return f.deleteErr
}

func (f *fakeCalendar) counts() (created, patched, deleted int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created), len(f.patched), len(f.deleted)
}

type published struct {
	Key   string
	Value any
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []published
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{Key: key, Value: v})
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.Key)
	}
	return keys
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeSender struct {
	mu      sync.Mutex
	failFor map[int64]error
	block   chan struct{} // если не nil, Send ждёт закрытия канала
	entered chan struct{}
	sent    []sentMessage
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[int64]error)}
}

func (s *fakeSender) Send(ctx context.Context, chatID int64, text string) error {
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failFor[chatID]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (s *fakeSender) setFailure(chatID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failFor, chatID)
		return
	}
	s.failFor[chatID] = err
}

func (s *fakeSender) sentTo(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.sent {
		if m.ChatID == chatID {
			n++
		}
	}
	return n
}

func (s *fakeSender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.acquired++

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, true, nil
}

// failingTransactor подменяет DeleteBooked, чтобы проверить откат завершения
type failingTransactor struct {
	repository.Transactor
}

func (f failingTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Stores) error) error {
	return f.Transactor.WithinTx(ctx, func(ctx context.Context, tx repository.Stores) error {
		tx.Lessons = failingDeleteStore{LessonStore: tx.Lessons}
		return fn(ctx, tx)
	})
}

type failingDeleteStore struct {
	repository.LessonStore
}

func (failingDeleteStore) DeleteBooked(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, errors.New("connection reset")
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func newTeacher(linked bool) *model.Teacher {
	t := &model.Teacher{ID: uuid.New(), FullName: "Teacher T", IsActive: true}
	if linked {
		t.CalendarAccessToken = "access"
		t.CalendarRefreshToken = "refresh"
	}
	return t
}

func newStudent(first string, telegramID int64) *model.Student {
	s := &model.Student{ID: uuid.New(), FirstName: first, LastName: "Doe"}
	if telegramID != 0 {
		s.TelegramID = &telegramID
	}
	return s
}
