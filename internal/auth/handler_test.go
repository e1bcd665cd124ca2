package auth

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/ratingsource"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct{}

func (stubUsers) GetOrRefreshUser(ctx context.Context, handle string) (*models.UserProfile, error) {
	if handle != "tourist" {
		return nil, models.ErrUserNotFound
	}
	return &models.UserProfile{Handle: handle, Rating: 3500}, nil
}

type stubHistory struct {
	subs []ratingsource.Submission
}

func (s *stubHistory) Submissions(ctx context.Context, handle string) ([]ratingsource.Submission, error) {
	return s.subs, nil
}

var challengeProblem = models.Problem{ID: "4A", ContestID: 4, Index: "A", URL: "https://codeforces.com/contest/4/problem/A"}

type sessionFixture struct {
	issuer  *Issuer
	history *stubHistory
	h       *Handler
	issued  time.Time
}

func newSessionFixture() *sessionFixture {
	issued := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return issued }
	history := &stubHistory{}
	pick := func() (models.Problem, bool) { return challengeProblem, true }
	return &sessionFixture{
		issuer:  issuer,
		history: history,
		h:       NewHandler(issuer, stubUsers{}, history, pick),
		issued:  issued,
	}
}

func post(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest("POST", "/", &buf))
	return w
}

func (f *sessionFixture) challenge(t *testing.T, handle string) models.ChallengeResponse {
	t.Helper()
	w := post(t, f.h.CreateChallenge, models.ChallengeRequest{Handle: handle})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.ChallengeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func submission(verdict string, at time.Time) ratingsource.Submission {
	return ratingsource.Submission{Problem: challengeProblem, Verdict: verdict, CreatedAt: at}
}

func TestSessionRequiresChallengeSubmission(t *testing.T) {
	f := newSessionFixture()
	ch := f.challenge(t, "tourist")
	assert.Equal(t, "4A", ch.ProblemID)
	assert.Equal(t, ChallengeVerdict, ch.Verdict)
	assert.True(t, f.issued.Add(ChallengeTTL).Equal(ch.ExpiresAt))

	tests := []struct {
		name   string
		subs   []ratingsource.Submission
		status int
	}{
		{"no submission", nil, http.StatusUnauthorized},
		{"wrong verdict", []ratingsource.Submission{submission("WRONG_ANSWER", f.issued.Add(time.Minute))}, http.StatusUnauthorized},
		{"before the challenge", []ratingsource.Submission{submission(ChallengeVerdict, f.issued.Add(-time.Minute))}, http.StatusUnauthorized},
		{"after expiry", []ratingsource.Submission{submission(ChallengeVerdict, f.issued.Add(ChallengeTTL+time.Minute))}, http.StatusUnauthorized},
		{"other problem", []ratingsource.Submission{{Problem: models.Problem{ID: "4B"}, Verdict: ChallengeVerdict, CreatedAt: f.issued.Add(time.Minute)}}, http.StatusUnauthorized},
		{"compilation error in window", []ratingsource.Submission{submission(ChallengeVerdict, f.issued.Add(time.Minute))}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.history.subs = tt.subs
			w := post(t, f.h.CreateSession, models.SessionRequest{Handle: "tourist", Challenge: ch.Challenge})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := post(t, f.h.CreateSession, models.SessionRequest{Handle: "tourist", Challenge: ch.Challenge})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	handle, err := f.issuer.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "tourist", handle)
	assert.Equal(t, 3500, resp.Profile.Rating)
}

func TestSessionRejectsForeignTokens(t *testing.T) {
	f := newSessionFixture()
	f.history.subs = []ratingsource.Submission{submission(ChallengeVerdict, f.issued.Add(time.Minute))}
	ch := f.challenge(t, "tourist")

	w := post(t, f.h.CreateSession, models.SessionRequest{Handle: "petr", Challenge: ch.Challenge})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "challenge is bound to its handle")

	session, _, err := f.issuer.Issue("tourist")
	require.NoError(t, err)
	w = post(t, f.h.CreateSession, models.SessionRequest{Handle: "tourist", Challenge: session})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a session token is not a challenge")

	_, err = f.issuer.Parse(ch.Challenge)
	assert.ErrorIs(t, err, models.ErrUnauthorized, "a challenge is not a session token")
}

func TestChallengeUnknownHandle(t *testing.T) {
	f := newSessionFixture()
	w := post(t, f.h.CreateChallenge, models.ChallengeRequest{Handle: "nobody_here"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
