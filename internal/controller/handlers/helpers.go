package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// BookLesson callback кнопки записи: book_lesson:<lesson_id>
const BookLesson = "book_lesson:"

// maxButtons сколько кнопок записи показывать под списком
const maxButtons = 10

const notLinkedText = "❌ Профиль студента не найден.\n\nПопросите учителя привязать ваш Telegram к профилю."

// FormatLessons форматирует список уроков
func FormatLessons(title string, lessons []*model.Lesson, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")

	for i, l := range lessons {
		sb.WriteString(notify.LessonLine(l, loc))
		if l.Price > 0 {
			sb.WriteString(" · " + notify.FormatPrice(l.Price))
		}
		if l.MeetURL != nil && *l.MeetURL != "" && l.IsBooked() {
			sb.WriteString("\n   🔗 " + *l.MeetURL)
		}
		if i < len(lessons)-1 {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// FormatHistory форматирует историю завершённых уроков
func FormatHistory(records []*model.LessonHistory, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("📖 Завершённые занятия:\n")

	for _, r := range records {
		sb.WriteString(fmt.Sprintf("\n✅ %s · %s\n   💬 %s",
			notify.FormatDateTime(r.CreatedAt.In(loc)),
			strings.Repeat("⭐", r.Rating),
			r.Feedback,
		))
	}

	return sb.String()
}

// BookingKeyboard кнопки записи на свободные уроки
func BookingKeyboard(lessons []*model.Lesson, loc *time.Location) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(lessons))
	for i, l := range lessons {
		if i == maxButtons {
			break
		}
		start := l.StartTime.In(loc)
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("📝 %s %s", start.Format("02.01 15:04"), l.Name),
			CallbackData: BookLesson + l.ID.String(),
		}})
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// ParseLessonID достаёт ID урока из callback data
func ParseLessonID(data, prefix string) (uuid.UUID, error) {
	if !strings.HasPrefix(data, prefix) {
		return uuid.Nil, fmt.Errorf("unexpected callback data %q", data)
	}
	return uuid.Parse(strings.TrimPrefix(data, prefix))
}

// ErrorText текст ошибки движка для пользователя
func ErrorText(err error) string {
	switch service.KindOf(err) {
	case service.KindNotAvailable:
		return "❌ Этот слот уже занят."
	case service.KindSlotConflict:
		return "❌ У вас уже есть занятие в это время."
	case service.KindNotFound:
		return "❌ Занятие не найдено."
	case service.KindForbidden:
		return "❌ Запись недоступна."
	case service.KindExternalAccountNotLinked, service.KindExternalServiceFailure:
		return "❌ Не удалось обновить календарь учителя. Попробуйте позже."
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
