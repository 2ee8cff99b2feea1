// Package calendar mirrors tasks into the owner's Google Calendar. Every
// call here is best effort: callers log failures and move on, and the task
// store is never blocked on this API.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/daybookhq/daybook/internal/domain"
)

const eventsBaseURL = "https://www.googleapis.com/calendar/v3/calendars/primary/events"

// Mirrored events block one hour starting at the task's due time.
const eventDuration = time.Hour

var ErrEventNotFound = errors.New("calendar: event not found")

// Client mirrors task mutations to an external calendar. The refreshToken is
// the per-user credential captured during federated login.
type Client interface {
	CreateEvent(ctx context.Context, refreshToken string, t domain.Todo) (eventID string, err error)
	UpdateEvent(ctx context.Context, refreshToken, eventID string, t domain.Todo) error
	DeleteEvent(ctx context.Context, refreshToken, eventID string) error
}

// TokenSourceFactory mints access tokens from stored refresh credentials.
// Satisfied by federated.Provider.
type TokenSourceFactory interface {
	TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource
}

type googleClient struct {
	tokens TokenSourceFactory
}

func NewGoogleClient(tokens TokenSourceFactory) Client {
	return &googleClient{tokens: tokens}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventResponse struct {
	ID string `json:"id"`
}

func mirrorEvent(t domain.Todo) eventBody {
	start := t.DueDate.UTC()
	return eventBody{
		Summary:     t.Title,
		Description: t.Description,
		Start:       eventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:         eventTime{DateTime: start.Add(eventDuration).Format(time.RFC3339), TimeZone: "UTC"},
	}
}

func (c *googleClient) CreateEvent(ctx context.Context, refreshToken string, t domain.Todo) (string, error) {
	var resp eventResponse
	err := c.do(ctx, refreshToken, http.MethodPost, eventsBaseURL, mirrorEvent(t), &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *googleClient) UpdateEvent(ctx context.Context, refreshToken, eventID string, t domain.Todo) error {
	return c.do(ctx, refreshToken, http.MethodPut, eventsBaseURL+"/"+url.PathEscape(eventID), mirrorEvent(t), nil)
}

func (c *googleClient) DeleteEvent(ctx context.Context, refreshToken, eventID string) error {
	return c.do(ctx, refreshToken, http.MethodDelete, eventsBaseURL+"/"+url.PathEscape(eventID), nil, nil)
}

func (c *googleClient) do(ctx context.Context, refreshToken, method, endpoint string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// oauth2.NewClient handles the refresh exchange and bearer header.
	httpClient := oauth2.NewClient(ctx, c.tokens.TokenSource(ctx, refreshToken))
	httpClient.Timeout = 15 * time.Second

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrEventNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("calendar api returned status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
