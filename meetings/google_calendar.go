package meetings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar creates Google Meet links by inserting calendar events with a
// conference create request on the platform's calendar.
type GoogleCalendar struct {
	events     *calendar.EventsService
	calendarID string
}

type GoogleCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string
}

func (c GoogleCredentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

func NewGoogleCalendar(ctx context.Context, creds GoogleCredentials) (*GoogleCalendar, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	srv, err := calendar.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	calendarID := creds.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{events: srv.Events, calendarID: calendarID}, nil
}

func (g *GoogleCalendar) CreateMeeting(ctx context.Context, start time.Time, durationMinutes int, title string) (string, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	event := &calendar.Event{
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := g.events.Insert(g.calendarID, event).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: insert calendar event: %v", ErrConferencing, err)
	}

	if created.HangoutLink != "" {
		return created.HangoutLink, nil
	}
	if created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri, nil
			}
		}
	}
	return "", fmt.Errorf("%w: event %s has no video entry point", ErrConferencing, created.Id)
}
