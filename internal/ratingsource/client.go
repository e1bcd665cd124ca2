package ratingsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cpcoach/backend/internal/catalog"
	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/metrics"
	"github.com/cpcoach/backend/internal/models"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Problems outside this rating range are not ingested.
const (
	MinProblemRating = 800
	MaxProblemRating = 2400
)

type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryBase         time.Duration
	RequestsPerSecond float64
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
	HTTPClient        *http.Client
}

// Client is a Codeforces API client with rate limiting, retries and a
// circuit breaker.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	maxRetries int
	retryBase  time.Duration
	log        zerolog.Logger
}

// apiError is a well-formed FAILED response. It is not retried and does not
// count against the breaker.
type apiError struct {
	comment string
}

func (e *apiError) Error() string { return "codeforces: " + e.comment }

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.5
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	log := logging.WithComponent("ratingsource")

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "codeforces",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			var ae *apiError
			return err == nil || errors.As(err, &ae) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker:    breaker,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		log:        log,
	}
}

// call performs one API method and returns the raw "result" payload.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.callWithRetry(ctx, method, params)
	})
	if err != nil {
		metrics.RatingSourceRequests.WithLabelValues(method, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: circuit open", method, models.ErrRatingSource)
		}
		return nil, err
	}
	metrics.RatingSourceRequests.WithLabelValues(method, "ok").Inc()

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s: decode envelope: %w", method, errors.Join(models.ErrRatingSource, err))
	}
	return env.Result, nil
}

func (c *Client) callWithRetry(ctx context.Context, method string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := c.retryBase * time.Duration(1<<uint(attempt-1))
			c.log.Debug().Str("method", method).Int("attempt", attempt+1).Dur("backoff", sleep).Msg("retrying codeforces call")
			select {
			case <-ctx.Done():
				return nil, timeoutOr(ctx.Err(), method)
			case <-time.After(sleep):
			}
		}

		body, retry, err := c.do(ctx, method, params)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
		c.log.Warn().Err(err).Str("method", method).Int("attempt", attempt+1).Msg("codeforces call failed")
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", method, c.maxRetries+1, lastErr)
}

// do makes a single request. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, method string, params url.Values) (body []byte, retry bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, timeoutOr(err, method)
	}

	u := c.baseURL + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: build request: %w", method, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, timeoutOr(ctx.Err(), method)
		}
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, true, fmt.Errorf("%s: %w", method, models.ErrRatingSourceTimeout)
		}
		return nil, true, fmt.Errorf("%s: %w", method, errors.Join(models.ErrRatingSource, err))
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%s: read body: %w", method, errors.Join(models.ErrRatingSource, err))
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("%s: %w: HTTP %d", method, models.ErrRatingSource, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false, fmt.Errorf("%s: %w: HTTP %d with unreadable body", method, models.ErrRatingSource, resp.StatusCode)
	}
	if env.Status != "OK" {
		return nil, false, &apiError{comment: env.Comment}
	}
	return body, false, nil
}

func timeoutOr(err error, method string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", method, models.ErrRatingSourceTimeout)
	}
	return fmt.Errorf("%s: %w", method, err)
}

// ── API methods ──────────────────────────────────────────

type cfUser struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank"`
}

type cfProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

func (p cfProblem) toModel() models.Problem {
	return models.Problem{
		ID:        catalog.ProblemID(p.ContestID, p.Index),
		ContestID: p.ContestID,
		Index:     p.Index,
		Name:      p.Name,
		Rating:    p.Rating,
		Tags:      catalog.NormalizeTags(p.Tags),
		URL:       catalog.ProblemURL(p.ContestID, p.Index),
	}
}

type cfSubmission struct {
	ID                  int64     `json:"id"`
	ContestID           int       `json:"contestId"`
	CreationTimeSeconds int64     `json:"creationTimeSeconds"`
	Problem             cfProblem `json:"problem"`
	Verdict             string    `json:"verdict"`
	Author              struct {
		ParticipantType string `json:"participantType"`
	} `json:"author"`
}

func (c *Client) UserInfo(ctx context.Context, handle string) (*UserInfo, error) {
	raw, err := c.call(ctx, "user.info", url.Values{"handles": {handle}})
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && strings.Contains(strings.ToLower(ae.comment), "not found") {
			return nil, fmt.Errorf("user.info %s: %w", handle, models.ErrUserNotFound)
		}
		return nil, mapAPIError(err)
	}

	var users []cfUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("user.info: decode: %w", errors.Join(models.ErrRatingSource, err))
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user.info %s: %w", handle, models.ErrUserNotFound)
	}
	u := users[0]
	return &UserInfo{
		Handle:    u.Handle,
		Rating:    u.Rating,
		MaxRating: u.MaxRating,
		Rank:      u.Rank,
		FetchedAt: time.Now(),
	}, nil
}

func (c *Client) Problems(ctx context.Context) ([]models.Problem, error) {
	raw, err := c.call(ctx, "problemset.problems", nil)
	if err != nil {
		return nil, mapAPIError(err)
	}

	var result struct {
		Problems []cfProblem `json:"problems"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("problemset.problems: decode: %w", errors.Join(models.ErrRatingSource, err))
	}

	problems := make([]models.Problem, 0, len(result.Problems))
	for _, p := range result.Problems {
		if p.Rating < MinProblemRating || p.Rating > MaxProblemRating {
			continue
		}
		problems = append(problems, p.toModel())
	}
	c.log.Info().Int("fetched", len(result.Problems)).Int("kept", len(problems)).Msg("problem set fetched")
	return problems, nil
}

func (c *Client) Submissions(ctx context.Context, handle string) ([]Submission, error) {
	raw, err := c.call(ctx, "user.status", url.Values{"handle": {handle}})
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && strings.Contains(strings.ToLower(ae.comment), "not found") {
			return nil, fmt.Errorf("user.status %s: %w", handle, models.ErrUserNotFound)
		}
		return nil, mapAPIError(err)
	}

	var subs []cfSubmission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("user.status: decode: %w", errors.Join(models.ErrRatingSource, err))
	}

	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		out = append(out, Submission{
			ID:              s.ID,
			ContestID:       s.ContestID,
			CreatedAt:       time.Unix(s.CreationTimeSeconds, 0).UTC(),
			Problem:         s.Problem.toModel(),
			Verdict:         s.Verdict,
			ParticipantType: s.Author.ParticipantType,
		})
	}
	return out, nil
}

func mapAPIError(err error) error {
	var ae *apiError
	if errors.As(err, &ae) {
		return fmt.Errorf("%w: %s", models.ErrRatingSource, ae.comment)
	}
	return err
}
