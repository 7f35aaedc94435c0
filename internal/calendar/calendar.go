// Package calendar создаёт события Google Calendar на дату клейма.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/logger"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const reminderMinutes = 60

// eventInserter - вставка события (в тестах подменяется).
type eventInserter interface {
	Insert(ctx context.Context, calendarID string, ev *gcal.Event) error
}

type googleInserter struct {
	svc *gcal.Service
}

func (g googleInserter) Insert(ctx context.Context, calendarID string, ev *gcal.Event) error {
	_, err := g.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	return err
}

type Client struct {
	events     eventInserter
	calendarID string
}

// New подключается к Calendar API по ключу сервисного аккаунта.
func New(ctx context.Context, cfg config.CalendarConfig) (*Client, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: connect: %w", err)
	}
	return newClient(googleInserter{svc: svc}, cfg.CalendarID), nil
}

func newClient(events eventInserter, calendarID string) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{events: events, calendarID: calendarID}
}

// CreateEvent создаёт событие на весь день date (UTC) с напоминанием за час.
// attendeeEmail пустой - без участников.
func (c *Client) CreateEvent(ctx context.Context, title, description string, date time.Time, attendeeEmail string) error {
	ev := buildEvent(title, description, date, attendeeEmail)
	if err := c.events.Insert(ctx, c.calendarID, ev); err != nil {
		return fmt.Errorf("calendar: insert event: %w", err)
	}
	logger.Infof("calendar: event %q on %s created", title, ev.Start.Date)
	return nil
}

func buildEvent(title, description string, date time.Time, attendeeEmail string) *gcal.Event {
	day := date.UTC().Format("2006-01-02")
	ev := &gcal.Event{
		Summary:     title,
		Description: description,
		Start:       &gcal.EventDateTime{Date: day, TimeZone: "UTC"},
		End:         &gcal.EventDateTime{Date: day, TimeZone: "UTC"},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: reminderMinutes}},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if attendeeEmail != "" {
		ev.Attendees = []*gcal.EventAttendee{{Email: attendeeEmail}}
	}
	return ev
}
