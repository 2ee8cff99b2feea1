package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/federated"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/cryptox"
	"github.com/daybookhq/daybook/pkg/idx"
)

// DefaultStateTTL bounds how long a login redirect can sit unfinished.
const DefaultStateTTL = 10 * time.Minute

// ErrInvalidState rejects a callback whose CSRF state is unknown, expired, or
// already consumed.
var ErrInvalidState = errors.New("invalid or expired login state")

// FederatedService runs the Google redirect login. Accounts created or
// linked here skip the emailed code and authenticator steps: Google already
// authenticated the user.
type FederatedService struct {
	Store    store.Store
	Provider *federated.Provider
	Sessions *SessionService
	StateTTL time.Duration
}

func (s *FederatedService) stateTTL() time.Duration {
	if s.StateTTL > 0 {
		return s.StateTTL
	}
	return DefaultStateTTL
}

// BeginLogin stores a fresh CSRF state and returns the provider URL to
// redirect the browser to.
func (s *FederatedService) BeginLogin(ctx context.Context) (string, error) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := s.Store.OAuthStates().CreateState(ctx, state, time.Now().Add(s.stateTTL())); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return s.Provider.AuthURL(state), nil
}

// CompleteLogin handles the provider callback: validates the state, exchanges
// the code, finds or creates the account, and mints a session.
//
// Identity resolution order: an account already linked to this Google id
// wins; otherwise an existing account with the same email gets linked;
// otherwise a new federated-only account is created.
func (s *FederatedService) CompleteLogin(ctx context.Context, state, code string) (SessionResult, error) {
	if err := s.Store.OAuthStates().ConsumeState(ctx, state, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionResult{}, ErrInvalidState
		}
		return SessionResult{}, fmt.Errorf("failed to consume state: %w", err)
	}

	identity, err := s.Provider.Exchange(ctx, code)
	if err != nil {
		return SessionResult{}, err
	}

	u, err := s.resolveUser(ctx, identity)
	if err != nil {
		return SessionResult{}, err
	}

	token, err := s.Sessions.Mint(u)
	if err != nil {
		return SessionResult{}, err
	}
	return SessionResult{Token: token, User: u.Public()}, nil
}

func (s *FederatedService) resolveUser(ctx context.Context, identity federated.Identity) (domain.User, error) {
	users := s.Store.Users()

	u, err := users.GetUserByGoogleID(ctx, identity.ProviderUserID)
	if err == nil {
		// Known link. Refresh the stored credential when Google issued a
		// new one on this exchange.
		if identity.RefreshToken != "" {
			if err := users.UpdateGoogleLink(ctx, u.ID, identity.ProviderUserID, identity.RefreshToken); err != nil {
				return domain.User{}, fmt.Errorf("failed to refresh google link: %w", err)
			}
		}
		return users.GetUserByID(ctx, u.ID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("failed to look up google link: %w", err)
	}

	email := normalizeEmail(identity.Email)

	u, err = users.GetUserByEmail(ctx, email)
	if err == nil {
		// Same email, first federated login: attach the link.
		if err := users.UpdateGoogleLink(ctx, u.ID, identity.ProviderUserID, identity.RefreshToken); err != nil {
			return domain.User{}, fmt.Errorf("failed to link google account: %w", err)
		}
		return users.GetUserByID(ctx, u.ID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	now := time.Now().UTC()
	created := domain.User{
		ID:                idx.New().String(),
		Email:             email,
		GoogleID:          &identity.ProviderUserID,
		CalendarConnected: identity.RefreshToken != "",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if identity.RefreshToken != "" {
		created.GoogleRefresh = &identity.RefreshToken
	}

	if err := users.CreateUser(ctx, created); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent callback for the same identity.
			// The unique constraints guarantee exactly one winner; read it.
			return users.GetUserByGoogleID(ctx, identity.ProviderUserID)
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}
