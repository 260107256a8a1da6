package handlers

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireStudent находит профиль студента, привязанный к чату.
// Возвращает student и true если OK, nil и false если нет
func (h *Handlers) requireStudent(ctx context.Context, b *bot.Bot, chatID, telegramID int64) (*model.Student, bool) {
	student, err := h.students.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	if student == nil {
		h.sendError(ctx, b, chatID, notLinkedText)
		return nil, false
	}

	return student, true
}

// senderFrom достаёт чат и автора текстового сообщения
func senderFrom(update *models.Update) (chatID, telegramID int64, ok bool) {
	if update.Message == nil || update.Message.From == nil {
		return 0, 0, false
	}
	return update.Message.Chat.ID, update.Message.From.ID, true
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
