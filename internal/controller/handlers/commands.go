package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, telegramID, ok := senderFrom(update)
	if !ok {
		return
	}

	student, err := h.students.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get student", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	if student == nil {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf(
			"👋 Привет!\n\n"+
				"Ваш Telegram ID: %d\n\n"+
				"Профиль студента пока не привязан. Передайте этот ID учителю, "+
				"чтобы получать напоминания о занятиях.",
			telegramID,
		), nil)
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Я пришлю напоминание примерно за 20 минут до начала занятия.\n\n"+
			"Доступные команды:\n"+
			"/mylessons - Мои занятия\n"+
			"/available - Свободные слоты\n"+
			"/history - Завершённые занятия\n"+
			"/help - Справка",
		student.FirstName,
	)

	h.sendMessage(ctx, b, chatID, welcomeText, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := senderFrom(update)
	if !ok {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/mylessons - Мои предстоящие занятия\n" +
		"/available - Свободные слоты для записи\n" +
		"/history - Завершённые занятия и отзывы\n" +
		"/help - Показать эту справку\n\n" +
		"Для записи выберите слот в списке /available"

	h.sendMessage(ctx, b, chatID, helpText, nil)
}
