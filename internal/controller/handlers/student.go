package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleMyLessons показывает забронированные уроки студента
func (h *Handlers) HandleMyLessons(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, telegramID, ok := senderFrom(update)
	if !ok {
		return
	}

	student, ok := h.requireStudent(ctx, b, chatID, telegramID)
	if !ok {
		return
	}

	lessons, err := h.lessons.ListByStudent(ctx, student.ID)
	if err != nil {
		h.logger.Error("Failed to get student lessons", zap.String("student_id", student.ID.String()), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось загрузить ваши занятия.")
		return
	}

	if len(lessons) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У вас пока нет занятий.\n\nСвободные слоты: /available", nil)
		return
	}

	h.sendMessage(ctx, b, chatID, FormatLessons("📅 Ваши занятия:", lessons, h.location), nil)
}

// HandleAvailable показывает свободные слоты с кнопками записи
func (h *Handlers) HandleAvailable(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := senderFrom(update)
	if !ok {
		return
	}

	lessons, err := h.lessons.ListAvailable(ctx)
	if err != nil {
		h.logger.Error("Failed to get available lessons", zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось загрузить свободные слоты.")
		return
	}

	if len(lessons) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Свободных слотов сейчас нет.", nil)
		return
	}

	h.sendMessage(ctx, b, chatID,
		FormatLessons("🟢 Свободные слоты:", lessons, h.location),
		BookingKeyboard(lessons, h.location),
	)
}

// HandleHistory показывает завершённые уроки студента
func (h *Handlers) HandleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, telegramID, ok := senderFrom(update)
	if !ok {
		return
	}

	student, ok := h.requireStudent(ctx, b, chatID, telegramID)
	if !ok {
		return
	}

	records, err := h.lessons.HistoryByStudent(ctx, student.ID)
	if err != nil {
		h.logger.Error("Failed to get lesson history", zap.String("student_id", student.ID.String()), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось загрузить историю.")
		return
	}

	if len(records) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Завершённых занятий пока нет.", nil)
		return
	}

	h.sendMessage(ctx, b, chatID, FormatHistory(records, h.location), nil)
}
