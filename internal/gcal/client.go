package gcal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Viishveesh/mediconnect/internal/model"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// Client talks to the Google Calendar API with per-doctor credentials.
// It implements EventsSource and TokenRefresher.
type Client struct {
	calendarID string
	maxResults int64
}

// NewClient creates a Google Calendar client reading the given calendar
// (usually "primary").
func NewClient(calendarID string) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{calendarID: calendarID, maxResults: 250}
}

// Events lists the doctor's events from the given time forward. All-day
// events carry only a date and no end timestamp; they come back with a
// zero End and the syncer skips them.
func (c *Client) Events(ctx context.Context, cred *model.GoogleCredential, from time.Time) ([]Event, error) {
	token := &oauth2.Token{
		AccessToken: cred.AccessToken,
		Expiry:      cred.Expiry,
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	call := svc.Events.List(c.calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(c.maxResults)

	list, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]Event, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Status == "cancelled" {
			continue
		}
		ev := Event{Summary: item.Summary}
		if item.Start != nil && item.Start.DateTime != "" {
			if ev.Start, err = time.Parse(time.RFC3339, item.Start.DateTime); err != nil {
				continue
			}
			ev.Start = ev.Start.UTC()
		}
		if item.End != nil && item.End.DateTime != "" {
			if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				ev.End = end.UTC()
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// Refresh exchanges the refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, cred *model.GoogleCredential) (*model.GoogleCredential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("credential for doctor %s has no refresh token", cred.DoctorID)
	}

	tokenURI := cred.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURI},
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	fresh := *cred
	fresh.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		fresh.RefreshToken = token.RefreshToken
	}
	fresh.Expiry = token.Expiry.UTC()
	return &fresh, nil
}
