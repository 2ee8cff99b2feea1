package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/idx"
	"github.com/daybookhq/daybook/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthService(t *testing.T) (*AuthService, store.Store) {
	t.Helper()

	st := newTestStore(t)

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)

	svc := &AuthService{
		Store:    st,
		Codes:    &EmailCodeService{Codes: st.EmailCodes(), Sender: &fakeSender{}},
		TOTP:     &TOTPService{Issuer: "daybook"},
		Sessions: &SessionService{Signer: signer, Issuer: "daybook"},
	}
	return svc, st
}

func TestRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newAuthService(t)

	t.Run("creates the account with a normalized email", func(t *testing.T) {
		result, err := svc.Register(ctx, "  Alice@Example.COM ", "a long password")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", result.User.Email)
		require.NotEmpty(t, result.User.ID)
	})

	t.Run("returns enrollment material exactly once", func(t *testing.T) {
		result, err := svc.Register(ctx, "bob@example.com", "a long password")
		require.NoError(t, err)
		require.NotEmpty(t, result.Enrollment.Secret)
		require.Contains(t, result.Enrollment.OtpauthURL, "otpauth://totp/")
		require.Contains(t, result.Enrollment.QRCode, "data:image/png;base64,")
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, "alice@example.com", "another password")
		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := svc.Register(ctx, "not-an-email", "a long password")
		require.ErrorIs(t, err, ErrValidation)

		_, err = svc.Register(ctx, "short@example.com", "tiny")
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestLoginFullFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newAuthService(t)

	reg, err := svc.Register(ctx, "alice@example.com", "a long password")
	require.NoError(t, err)

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email is rejected identically", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "a long password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	// Step 1: password
	userID, err := svc.Login(ctx, "alice@example.com", "a long password")
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, userID)

	emailCode, err := st.EmailCodes().Get(ctx, "alice@example.com")
	require.NoError(t, err)

	// Step 2: emailed code
	step, err := svc.VerifyEmailCode(ctx, "alice@example.com", emailCode.Code)
	require.NoError(t, err)
	require.Equal(t, userID, step.UserID)
	require.True(t, step.RequiresTwoFactor)

	// Step 3: authenticator code completes the login and arms the factor.
	code := codeAt(t, reg.Enrollment.Secret, time.Now())
	result, err := svc.VerifyTOTP(ctx, userID, code)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "alice@example.com", result.User.Email)

	u, err := st.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, u.TwoFactorEnabled)

	t.Run("session token verifies", func(t *testing.T) {
		verifier, err := jwtx.NewVerifierHS256([]byte(testSecret), "daybook")
		require.NoError(t, err)

		claims, err := verifier.Verify(result.Token)
		require.NoError(t, err)
		require.Equal(t, result.User.ID, claims.Subject)
		require.Equal(t, "alice@example.com", claims.Email)
	})

	t.Run("second login still requires both factors", func(t *testing.T) {
		again, err := svc.Login(ctx, "alice@example.com", "a long password")
		require.NoError(t, err)
		require.Equal(t, userID, again)

		emailCode, err := st.EmailCodes().Get(ctx, "alice@example.com")
		require.NoError(t, err)

		step, err := svc.VerifyEmailCode(ctx, "alice@example.com", emailCode.Code)
		require.NoError(t, err)
		require.True(t, step.RequiresTwoFactor)
	})

	t.Run("bad authenticator code never mints a session", func(t *testing.T) {
		_, err := svc.VerifyTOTP(ctx, userID, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTP)
	})

	t.Run("unknown user id never mints a session", func(t *testing.T) {
		_, err := svc.VerifyTOTP(ctx, idx.New().String(), code)
		require.ErrorIs(t, err, ErrInvalidTOTP)
	})
}

func TestLoginRejectsFederatedOnlyAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newAuthService(t)

	googleID := "g-777"
	now := time.Now().UTC()
	require.NoError(t, st.Users().CreateUser(ctx, domain.User{
		ID:        idx.New().String(),
		Email:     "federated@example.com",
		GoogleID:  &googleID,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	// No password hash on record, so the password path is closed, and the
	// response is indistinguishable from a wrong password.
	_, err := svc.Login(ctx, "federated@example.com", "any password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmailCodeUnknownUser(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)

	_, err := svc.VerifyEmailCode(context.Background(), "ghost@example.com", "123456")
	require.ErrorIs(t, err, ErrInvalidCode)
}
