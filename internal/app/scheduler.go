package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"go.uber.org/zap"
)

// ReminderRunner один цикл рассылки напоминаний
type ReminderRunner interface {
	RunCycle(ctx context.Context) (service.CycleReport, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	reminders ReminderRunner
	interval  time.Duration
	logger    *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(reminders ReminderRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("reminder_interval", s.interval))

	go s.runReminderTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт завершения текущего цикла.
// Вызывается только после Start.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	<-s.done
}

// runReminderTask периодически рассылает напоминания о занятиях
func (s *Scheduler) runReminderTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.sendReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sendReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

func (s *Scheduler) sendReminders(ctx context.Context) {
	report, err := s.reminders.RunCycle(ctx)
	switch {
	case errors.Is(err, service.ErrCycleInProgress):
		s.logger.Info("Previous reminder cycle still running, skipping tick")
		return
	case err != nil:
		s.logger.Error("Reminder cycle failed", zap.Error(err))
		return
	}

	s.logger.Info("Reminder cycle completed",
		zap.Int("found", report.Found),
		zap.Int("sent", report.Sent),
		zap.Int("already_sent", report.AlreadySent),
		zap.Int("no_address", report.NoAddress),
		zap.Int("failed", report.Failed),
	)
}
