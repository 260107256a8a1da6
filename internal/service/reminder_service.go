package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"go.uber.org/zap"
)

// ErrCycleInProgress предыдущий цикл рассылки ещё не закончился
var ErrCycleInProgress = errors.New("reminder cycle already in progress")

const (
	defaultLookBehind        = 5 * time.Minute
	defaultLookAhead         = 20 * time.Minute
	defaultDiagnosticHorizon = 2 * time.Hour
	defaultDiagnosticLimit   = 3
	defaultLockTTL           = 50 * time.Second
	defaultSendTimeout       = 15 * time.Second

	reminderLockKey = "lesson_scheduler:reminder_cycle"
)

// Locker распределённая блокировка между экземплярами планировщика
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
}

// ReminderConfig окно поиска и прочие параметры рассылки
type ReminderConfig struct {
	LookBehind        time.Duration
	LookAhead         time.Duration
	DiagnosticHorizon time.Duration
	DiagnosticLimit   int
	LockTTL           time.Duration
	SendTimeout       time.Duration
	Location          *time.Location
	Now               func() time.Time
}

// CycleReport итог одного цикла
type CycleReport struct {
	StartedAt   time.Time
	WindowStart time.Time
	WindowEnd   time.Time

	Found       int
	Sent        int
	AlreadySent int
	NoStudent   int
	NoAddress   int
	Failed      int
}

// ReminderService ищет ближайшие уроки и отправляет студентам напоминания не больше одного раза
type ReminderService struct {
	stores    repository.Stores
	sender    notify.Sender
	publisher events.Publisher
	locker    Locker
	cfg       ReminderConfig
	logger    *zap.Logger

	inFlight atomic.Bool

	mu      sync.RWMutex
	lastRun time.Time
}

// NewReminderService создаёт сервис напоминаний; locker может быть nil
func NewReminderService(
	stores repository.Stores,
	sender notify.Sender,
	publisher events.Publisher,
	locker Locker,
	cfg ReminderConfig,
	logger *zap.Logger,
) *ReminderService {
	if cfg.LookBehind <= 0 {
		cfg.LookBehind = defaultLookBehind
	}
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = defaultLookAhead
	}
	if cfg.DiagnosticHorizon <= 0 {
		cfg.DiagnosticHorizon = defaultDiagnosticHorizon
	}
	if cfg.DiagnosticLimit <= 0 {
		cfg.DiagnosticLimit = defaultDiagnosticLimit
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &ReminderService{
		stores:    stores,
		sender:    sender,
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
	}
}

// LastRun время начала последнего выполненного цикла
func (s *ReminderService) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// InFlight выполняется ли сейчас цикл
func (s *ReminderService) InFlight() bool {
	return s.inFlight.Load()
}

// RunCycle выполняет один проход по окну [now-LookBehind, now+LookAhead).
// Одновременно выполняется не больше одного цикла.
func (s *ReminderService) RunCycle(ctx context.Context) (CycleReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.inFlight.Store(false)

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, reminderLockKey, s.cfg.LockTTL)
		switch {
		case err != nil:
			// Маркеры в БД всё равно защищают от повторов, поэтому цикл не пропускаем
			s.logger.Warn("Reminder lock unavailable, running without it", zap.Error(err))
		case !ok:
			return CycleReport{}, ErrCycleInProgress
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("Failed to release reminder lock", zap.Error(err))
				}
			}()
		}
	}

	now := s.cfg.Now()
	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()

	report := CycleReport{
		StartedAt:   now,
		WindowStart: now.Add(-s.cfg.LookBehind),
		WindowEnd:   now.Add(s.cfg.LookAhead),
	}

	lessons, err := s.stores.Lessons.ListStartingBetween(ctx, report.WindowStart, report.WindowEnd, 0)
	if err != nil {
		return report, err
	}
	report.Found = len(lessons)

	s.logger.Info("Reminder scan",
		zap.Time("window_start", report.WindowStart),
		zap.Time("window_end", report.WindowEnd),
		zap.Int("lessons", report.Found),
	)

	if len(lessons) == 0 {
		s.diagnose(ctx, now)
		return report, nil
	}

	for _, lesson := range lessons {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		s.remind(ctx, lesson, now, &report)
	}

	return report, nil
}

// remind обрабатывает один урок; ошибки не прерывают цикл
func (s *ReminderService) remind(ctx context.Context, lesson *model.Lesson, now time.Time, report *CycleReport) {
	log := s.logger.With(zap.String("lesson_id", lesson.ID.String()))

	if lesson.StudentID == nil {
		report.NoStudent++
		log.Debug("Lesson has no student, skipping reminder")
		return
	}

	sent, err := s.stores.Reminders.IsSent(ctx, lesson.ID)
	if err != nil {
		report.Failed++
		log.Error("Failed to check reminder marker", zap.Error(err))
		return
	}
	if sent {
		report.AlreadySent++
		return
	}

	student, err := s.stores.Students.GetByID(ctx, *lesson.StudentID)
	if err != nil {
		report.Failed++
		log.Error("Failed to load student", zap.Error(err))
		return
	}
	if student == nil || !student.CanReceiveReminders() {
		report.NoAddress++
		log.Warn("Student has no delivery address", zap.String("student_id", lesson.StudentID.String()))
		return
	}

	// Маркер занимаем до отправки: если блокировка истекла и цикл идёт в двух экземплярах,
	// отправит только тот, кто первым вставил маркер
	claimed, err := s.stores.Reminders.MarkSent(ctx, &model.ReminderDispatch{LessonID: lesson.ID, SentAt: now})
	if err != nil {
		report.Failed++
		log.Error("Failed to claim reminder marker", zap.Error(err))
		return
	}
	if !claimed {
		report.AlreadySent++
		return
	}

	text := notify.ReminderText(lesson, s.cfg.Location)
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	err = s.sender.Send(sendCtx, *student.TelegramID, text)
	cancel()
	if err != nil {
		report.Failed++
		log.Error("Failed to deliver reminder",
			zap.String("kind", string(KindDeliveryFailure)),
			zap.Int64("telegram_id", *student.TelegramID),
			zap.Error(err),
		)
		if err := s.stores.Reminders.Release(context.WithoutCancel(ctx), lesson.ID); err != nil {
			log.Error("Failed to release reminder marker, lesson will not be retried", zap.Error(err))
		}
		return
	}

	report.Sent++

	log.Info("Reminder sent", zap.Int64("telegram_id", *student.TelegramID))

	publishLessonEvent(ctx, s.publisher, s.logger, events.KeyReminderSent, newLessonEvent(lesson, now))
}

// diagnose только логирует ближайшие уроки, когда окно пустое
func (s *ReminderService) diagnose(ctx context.Context, now time.Time) {
	upcoming, err := s.stores.Lessons.ListStartingBetween(ctx, now, now.Add(s.cfg.DiagnosticHorizon), s.cfg.DiagnosticLimit)
	if err != nil {
		s.logger.Warn("Diagnostic lesson query failed", zap.Error(err))
		return
	}

	if len(upcoming) == 0 {
		s.logger.Info("No lessons in the reminder window or the next hours",
			zap.Duration("horizon", s.cfg.DiagnosticHorizon),
		)
		return
	}

	for _, l := range upcoming {
		s.logger.Info("Upcoming lesson outside reminder window",
			zap.String("lesson_id", l.ID.String()),
			zap.String("name", l.Name),
			zap.Time("start_time", l.StartTime),
			zap.String("local_start", notify.FormatDateTime(l.StartTime.In(s.cfg.Location))),
		)
	}
}
