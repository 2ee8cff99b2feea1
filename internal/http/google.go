package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/daybookhq/daybook/internal/service"
	"github.com/daybookhq/daybook/pkg/httpx"
	"github.com/daybookhq/daybook/pkg/slogx"
)

// GoogleHandler handles the federated login redirect flow.
type GoogleHandler struct {
	FederatedService *service.FederatedService

	// ClientURL is the frontend origin the callback bounces the browser
	// back to, with the token (or a failure marker) in the fragment-free
	// query string.
	ClientURL string
}

// HandleBegin handles GET /auth/google by redirecting to the provider.
func (h *GoogleHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	authURL, err := h.FederatedService.BeginLogin(ctx)
	if err != nil {
		log.Error("failed to begin federated login", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback handles GET /auth/google/callback. Whatever happens, the
// browser ends up back on the client; errors ride along as a query flag so
// the frontend can show something sensible.
func (h *GoogleHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		h.redirectFailure(w, r, "missing_parameters")
		return
	}

	result, err := h.FederatedService.CompleteLogin(ctx, state, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidState):
			log.Warn("federated login with bad state")
			h.redirectFailure(w, r, "invalid_state")
		default:
			log.Error("federated login failed", "err", err)
			h.redirectFailure(w, r, "login_failed")
		}
		return
	}

	log.Info("federated login completed", "user_id", result.User.ID)

	q := url.Values{}
	q.Set("token", result.Token)
	http.Redirect(w, r, h.ClientURL+"/auth/callback?"+q.Encode(), http.StatusFound)
}

func (h *GoogleHandler) redirectFailure(w http.ResponseWriter, r *http.Request, reason string) {
	q := url.Values{}
	q.Set("error", reason)
	http.Redirect(w, r, h.ClientURL+"/auth/callback?"+q.Encode(), http.StatusFound)
}
