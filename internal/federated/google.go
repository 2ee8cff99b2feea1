// Package federated talks to the Google OAuth endpoints for the redirect
// login flow. Account linking and session minting live in the orchestration
// layer; this package only exchanges codes for identities.
package federated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrInvalidCode    = errors.New("federated: invalid authorization code")
	ErrNoPrimaryEmail = errors.New("federated: provider returned no email")
)

// Identity is the provider-side view of a user after a successful exchange.
type Identity struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	RefreshToken   string // empty unless Google issued one on this exchange
}

// Config carries the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Provider wraps the oauth2 config for the Google endpoints.
type Provider struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// Scopes cover identity plus calendar access so the stored refresh
// credential can mirror tasks later.
func NewProvider(cfg Config) *Provider {
	return &Provider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/calendar.events",
			},
			Endpoint: google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL builds the Google authorization URL for the given CSRF state.
// Offline access with forced consent makes Google return a refresh token,
// which we need for calendar mirroring after the browser session ends.
func (p *Provider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the callback code for the user's identity.
func (p *Provider) Exchange(ctx context.Context, code string) (Identity, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return Identity{}, ErrInvalidCode
	}

	u, err := p.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch google user: %w", err)
	}
	if u.Email == "" {
		return Identity{}, ErrNoPrimaryEmail
	}

	return Identity{
		ProviderUserID: u.ID,
		Email:          u.Email,
		EmailVerified:  u.VerifiedEmail,
		RefreshToken:   tok.RefreshToken,
	}, nil
}

// TokenSource mints short-lived access tokens from a stored refresh
// credential. Used by the calendar client.
func (p *Provider) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

func (p *Provider) fetchUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var u userInfo
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
