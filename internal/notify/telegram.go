package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// TelegramSender отправляет сообщения через Telegram Bot API
type TelegramSender struct {
	bot    *bot.Bot
	logger *zap.Logger
}

// NewTelegramSender создаёт отправителя поверх уже созданного бота
func NewTelegramSender(b *bot.Bot, logger *zap.Logger) *TelegramSender {
	return &TelegramSender{bot: b, logger: logger}
}

// Send отправляет текст в MarkdownV2; экранирование на стороне вызывающего
func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	s.logger.Debug("Telegram message sent",
		zap.Int64("chat_id", chatID),
		zap.Int("message_id", msg.ID),
	)

	return nil
}
