package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cpcoach/backend/internal/httpx"
	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/ratingsource"
	"github.com/cpcoach/backend/internal/validation"
)

// ProfileLoader resolves a handle to its profile, creating it on first use.
type ProfileLoader interface {
	GetOrRefreshUser(ctx context.Context, handle string) (*models.UserProfile, error)
}

// SubmissionLister returns a handle's submissions straight from the
// rating source.
type SubmissionLister interface {
	Submissions(ctx context.Context, handle string) ([]ratingsource.Submission, error)
}

// ProblemPicker chooses the problem a challenge points at.
type ProblemPicker func() (models.Problem, bool)

type Handler struct {
	issuer  *Issuer
	users   ProfileLoader
	history SubmissionLister
	pick    ProblemPicker
}

func NewHandler(issuer *Issuer, users ProfileLoader, history SubmissionLister, pick ProblemPicker) *Handler {
	return &Handler{issuer: issuer, users: users, history: history, pick: pick}
}

// CreateChallenge starts a login: the caller proves they own the handle by
// submitting a compilation error to the returned problem.
func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.ChallengeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if _, err := h.users.GetOrRefreshUser(r.Context(), req.Handle); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, ok := h.pick()
	if !ok {
		httpx.WriteError(w, r, fmt.Errorf("pick challenge problem: catalog is empty"))
		return
	}
	token, exp, err := h.issuer.IssueChallenge(req.Handle, p.ID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, models.ChallengeResponse{
		Challenge:  token,
		ProblemID:  p.ID,
		ProblemURL: p.URL,
		Verdict:    ChallengeVerdict,
		ExpiresAt:  exp,
		Instructions: fmt.Sprintf("Submit code that fails to compile to problem %s from account %s before %s, then create a session with this challenge.",
			p.ID, req.Handle, exp.Format("15:04 MST")),
	})
}

// CreateSession issues a token once the challenge submission is visible
// on the rating source.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	ch, err := h.issuer.ParseChallenge(req.Challenge)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !sameHandle(ch.Handle, req.Handle) {
		httpx.WriteError(w, r, fmt.Errorf("%w: challenge was issued for another handle", models.ErrUnauthorized))
		return
	}

	subs, err := h.history.Submissions(r.Context(), ch.Handle)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !ch.Satisfied(subs) {
		httpx.WriteError(w, r, fmt.Errorf("%w: no %s submission to %s since the challenge was issued",
			models.ErrUnauthorized, ChallengeVerdict, ch.ProblemID))
		return
	}

	profile, err := h.users.GetOrRefreshUser(r.Context(), ch.Handle)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	token, exp, err := h.issuer.Issue(ch.Handle)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("handle", ch.Handle).Str("problem", ch.ProblemID).Msg("session issued")

	httpx.WriteJSON(w, http.StatusCreated, models.SessionResponse{Token: token, ExpiresAt: exp, Profile: *profile})
}
