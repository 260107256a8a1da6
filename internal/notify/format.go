package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatTime форматирует только время
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatPrice форматирует цену в минимальных единицах валюты
func FormatPrice(price int64) string {
	if price%100 == 0 {
		return fmt.Sprintf("%d", price/100)
	}
	return fmt.Sprintf("%d.%02d", price/100, price%100)
}

// ReminderText собирает текст напоминания в MarkdownV2
func ReminderText(lesson *model.Lesson, loc *time.Location) string {
	name := lesson.Name
	if name == "" {
		name = "Занятие"
	}

	link := "Онлайн"
	if lesson.MeetURL != nil && *lesson.MeetURL != "" {
		link = *lesson.MeetURL
	}

	var sb strings.Builder
	sb.WriteString("🔔 *Напоминание о занятии\\!*\n\n")
	sb.WriteString("📚 *Предмет:* " + bot.EscapeMarkdown(name) + "\n")
	sb.WriteString("⏰ *Время:* " + bot.EscapeMarkdown(FormatTime(lesson.StartTime.In(loc))) + "\n")
	sb.WriteString("📍 *Ссылка:* " + bot.EscapeMarkdown(link) + "\n\n")
	sb.WriteString("Пожалуйста, не опаздывайте\\!")

	return sb.String()
}

// LessonLine одна строка списка уроков для бота
func LessonLine(lesson *model.Lesson, loc *time.Location) string {
	start := lesson.StartTime.In(loc)
	end := lesson.EndTime.In(loc)

	return fmt.Sprintf("%s %s · %s · %s",
		statusEmoji(lesson.Status),
		start.Format("02.01.2006"),
		FormatTimeRange(start, end),
		lesson.Name,
	)
}

func statusEmoji(status model.LessonStatus) string {
	switch status {
	case model.LessonStatusAvailable:
		return "🟢"
	case model.LessonStatusBooked:
		return "📌"
	case model.LessonStatusCompleted:
		return "✅"
	case model.LessonStatusCanceled:
		return "❌"
	default:
		return "•"
	}
}
