package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const conferenceSolutionMeet = "hangoutsMeet"

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CalendarID   string
	TimeZone     string
}

// GoogleClient реализует Client через Google Calendar API
type GoogleClient struct {
	oauth      *oauth2.Config
	calendarID string
	timeZone   string
	logger     *zap.Logger
}

// NewGoogleClient создаёт клиент Google Calendar
func NewGoogleClient(cfg GoogleConfig, logger *zap.Logger) *GoogleClient {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		calendarID: calendarID,
		timeZone:   cfg.TimeZone,
		logger:     logger,
	}
}

// CreateEvent создаёт событие и, если нужно, видеовстречу
func (c *GoogleClient) CreateEvent(ctx context.Context, creds Credentials, event Event) (*CreatedEvent, error) {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	call := svc.Events.Insert(c.calendarID, c.buildEvent(event)).Context(ctx)
	if event.WithConference {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", mapError(err))
	}

	c.logger.Debug("Calendar event created",
		zap.String("event_id", created.Id),
		zap.String("calendar_id", c.calendarID),
	)

	return &CreatedEvent{ID: created.Id, MeetURL: created.HangoutLink}, nil
}

// PatchEvent обновляет только переданные поля события
func (c *GoogleClient) PatchEvent(ctx context.Context, creds Credentials, eventID string, patch EventPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	svc, err := c.service(ctx, creds)
	if err != nil {
		return err
	}

	if _, err := svc.Events.Patch(c.calendarID, eventID, c.buildPatch(patch)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch calendar event: %w", mapError(err))
	}

	return nil
}

// DeleteEvent удаляет событие; уже удалённое событие не считается ошибкой
func (c *GoogleClient) DeleteEvent(ctx context.Context, creds Credentials, eventID string) error {
	svc, err := c.service(ctx, creds)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("delete calendar event: %w", mapError(err))
	}

	return nil
}

func (c *GoogleClient) service(ctx context.Context, creds Credentials) (*gcal.Service, error) {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, ErrAuthExpired
	}

	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(c.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return svc, nil
}

func (c *GoogleClient) buildEvent(event Event) *gcal.Event {
	ev := &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       c.dateTime(event.Start),
		End:         c.dateTime(event.End),
	}

	if event.WithConference {
		ev.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             "lesson-" + uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: conferenceSolutionMeet},
			},
		}
	}

	return ev
}

func (c *GoogleClient) buildPatch(patch EventPatch) *gcal.Event {
	ev := &gcal.Event{}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Start != nil {
		ev.Start = c.dateTime(*patch.Start)
	}
	if patch.End != nil {
		ev.End = c.dateTime(*patch.End)
	}
	return ev
}

func (c *GoogleClient) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.UTC().Format(time.RFC3339),
		TimeZone: c.timeZone,
	}
}

// mapError выделяет из ошибок Google и OAuth случай протухших токенов
func mapError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %s", ErrAuthExpired, retrieveErr.ErrorCode)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrAuthExpired, apiErr.Message)
	}

	return err
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}
