package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery обрабатывает нажатия на inline кнопки
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	h.logger.Info("Routing callback",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID))

	switch {
	case strings.HasPrefix(callback.Data, BookLesson):
		h.handleBookLesson(ctx, b, callback)
	default:
		h.answer(ctx, b, callback.ID, "", false)
	}
}

func (h *Handlers) handleBookLesson(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	lessonID, err := ParseLessonID(callback.Data, BookLesson)
	if err != nil {
		h.logger.Error("Failed to parse lesson ID", zap.String("data", callback.Data), zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Неверный формат", true)
		return
	}

	student, err := h.students.GetByTelegramID(ctx, callback.From.ID)
	if err != nil {
		h.logger.Error("Failed to get student", zap.Int64("telegram_id", callback.From.ID), zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте позже.", true)
		return
	}
	if student == nil {
		h.answer(ctx, b, callback.ID, notLinkedText, true)
		return
	}

	lesson, err := h.lessons.BookSlot(ctx, lessonID, student.ID)
	if err != nil {
		h.logger.Warn("Booking from bot failed",
			zap.String("lesson_id", lessonID.String()),
			zap.String("student_id", student.ID.String()),
			zap.Error(err))
		h.answer(ctx, b, callback.ID, ErrorText(err), true)
		return
	}

	h.answer(ctx, b, callback.ID, "✅ Вы записаны!", false)

	if callback.Message.Message != nil {
		h.sendMessage(ctx, b, callback.Message.Message.Chat.ID,
			"✅ Запись подтверждена\n\n"+notify.LessonLine(lesson, h.location),
			nil,
		)
	}
}

// answer подтверждает callback; alert показывает окно вместо всплывающей подсказки
func (h *Handlers) answer(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Error("Failed to answer callback", zap.Error(err))
	}
}
