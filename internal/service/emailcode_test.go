package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/store/drivers/sqlite"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string // recipient addresses
	fail bool
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp is on fire")
	}
	f.sent = append(f.sent, to)
	return nil
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestEmailCodeIssueAndVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	sender := &fakeSender{}
	svc := &EmailCodeService{Codes: st.EmailCodes(), Sender: sender}

	require.NoError(t, svc.Issue(ctx, "alice@example.com"))
	require.Equal(t, []string{"alice@example.com"}, sender.sent)

	stored, err := st.EmailCodes().Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, stored.Code, 6)

	t.Run("wrong code rejected without consuming", func(t *testing.T) {
		require.ErrorIs(t, svc.Verify(ctx, "alice@example.com", "000000"), ErrInvalidCode)

		// A wrong guess must not burn the real code.
		require.NoError(t, svc.Verify(ctx, "alice@example.com", stored.Code))
	})

	t.Run("correct code is single use", func(t *testing.T) {
		require.ErrorIs(t, svc.Verify(ctx, "alice@example.com", stored.Code), ErrInvalidCode)
	})
}

func TestEmailCodeReissueInvalidatesPrior(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	svc := &EmailCodeService{Codes: st.EmailCodes(), Sender: &fakeSender{}}

	require.NoError(t, svc.Issue(ctx, "bob@example.com"))
	first, err := st.EmailCodes().Get(ctx, "bob@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Issue(ctx, "bob@example.com"))
	second, err := st.EmailCodes().Get(ctx, "bob@example.com")
	require.NoError(t, err)

	if first.Code != second.Code {
		require.ErrorIs(t, svc.Verify(ctx, "bob@example.com", first.Code), ErrInvalidCode)
	}
	require.NoError(t, svc.Verify(ctx, "bob@example.com", second.Code))
}

func TestEmailCodeExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	now := time.Now()
	svc := &EmailCodeService{
		Codes:  st.EmailCodes(),
		Sender: &fakeSender{},
		Now:    func() time.Time { return now },
	}

	require.NoError(t, svc.Issue(ctx, "carol@example.com"))
	stored, err := st.EmailCodes().Get(ctx, "carol@example.com")
	require.NoError(t, err)

	// Advance the clock past the two minute window.
	now = now.Add(DefaultCodeTTL + time.Second)

	require.ErrorIs(t, svc.Verify(ctx, "carol@example.com", stored.Code), ErrCodeExpired)

	// The expired code was removed lazily, so a retry reads as invalid.
	require.ErrorIs(t, svc.Verify(ctx, "carol@example.com", stored.Code), ErrInvalidCode)
}

func TestEmailCodeDeliveryFailureAborts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	svc := &EmailCodeService{Codes: st.EmailCodes(), Sender: &fakeSender{fail: true}}

	err := svc.Issue(ctx, "dave@example.com")
	require.ErrorIs(t, err, ErrEmailDelivery)

	// The undeliverable code must not be honored later.
	_, err = st.EmailCodes().Get(ctx, "dave@example.com")
	require.Error(t, err)
}
