// Package calendar описывает работу с внешним календарём учителя.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

// ErrAuthExpired сохранённые токены недействительны или отозваны.
// Повторять запрос бессмысленно, учитель должен заново привязать аккаунт.
var ErrAuthExpired = errors.New("calendar credentials are invalid or expired")

// Credentials OAuth-токены аккаунта учителя
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// CredentialsFor достаёт токены из профиля учителя
func CredentialsFor(teacher *model.Teacher) Credentials {
	creds := Credentials{
		AccessToken:  teacher.CalendarAccessToken,
		RefreshToken: teacher.CalendarRefreshToken,
	}
	if teacher.CalendarTokenExpiry != nil {
		creds.Expiry = *teacher.CalendarTokenExpiry
	}
	return creds
}

// Event событие, создаваемое под урок
type Event struct {
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	WithConference bool // запросить ссылку на видеовстречу
}

// CreatedEvent результат создания события
type CreatedEvent struct {
	ID      string
	MeetURL string
}

// EventPatch частичное обновление события, nil-поля не меняются
type EventPatch struct {
	Description *string
	Start       *time.Time
	End         *time.Time
}

// IsEmpty проверяет, есть ли что обновлять
func (p EventPatch) IsEmpty() bool {
	return p.Description == nil && p.Start == nil && p.End == nil
}

// Client внешний календарь
type Client interface {
	CreateEvent(ctx context.Context, creds Credentials, event Event) (*CreatedEvent, error)
	PatchEvent(ctx context.Context, creds Credentials, eventID string, patch EventPatch) error
	DeleteEvent(ctx context.Context, creds Credentials, eventID string) error
}
