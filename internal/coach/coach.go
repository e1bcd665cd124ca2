// Package coach turns deterministic analysis results into short coaching
// prose. It never decides what gets recommended.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/models"
	"github.com/goccy/go-json"
)

type Coach interface {
	WeaknessCoaching(ctx context.Context, summary models.WeaknessSummary) (string, error)
	SlowSolveTip(ctx context.Context, p models.Problem, elapsed, expected int) (string, error)
}

const weaknessSystemPrompt = `You are a competitive programming coach.
You receive a structured performance summary computed by a deterministic analyzer.
Rules:
- Do NOT recommend specific new problems.
- Do NOT change priorities or invent statistics.
- Keep it concise and actionable.
Respond with one short paragraph explaining the weak areas, then 3-5 bullet points on how to upsolve effectively.`

const slowSolveSystemPrompt = `You are a competitive programming coach.
A student just solved a problem noticeably slower than typical for its rating.
Give one or two sentences of practical advice for solving similar problems faster. No greetings.`

// LLMCoach asks an LLM and falls back to templates on any failure.
type LLMCoach struct {
	llm      LLMClient
	timeout  time.Duration
	fallback TemplateCoach
}

func NewLLMCoach(llm LLMClient, timeout time.Duration) *LLMCoach {
	return &LLMCoach{llm: llm, timeout: timeout}
}

// New picks a backend: the Anthropic API when a key is set, the local
// claude CLI when cliPath is set, templates otherwise.
func New(apiKey, model, cliPath string, timeout time.Duration) Coach {
	switch {
	case apiKey != "":
		return NewLLMCoach(NewAPIClient(apiKey, model), timeout)
	case cliPath != "":
		return NewLLMCoach(NewCLIClient(cliPath), timeout)
	default:
		return TemplateCoach{}
	}
}

func (c *LLMCoach) WeaknessCoaching(ctx context.Context, summary models.WeaknessSummary) (string, error) {
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return c.fallback.WeaknessCoaching(ctx, summary)
	}
	prompt := "Performance summary:\n" + string(b)
	return c.generate(ctx, weaknessSystemPrompt, prompt, func() (string, error) {
		return c.fallback.WeaknessCoaching(ctx, summary)
	})
}

func (c *LLMCoach) SlowSolveTip(ctx context.Context, p models.Problem, elapsed, expected int) (string, error) {
	prompt := fmt.Sprintf("Problem: %s (rating %d, tags: %s)\nTime taken: %d min\nTypical time: %d min",
		p.Name, p.Rating, strings.Join(p.Tags, ", "), elapsed/60, expected/60)
	return c.generate(ctx, slowSolveSystemPrompt, prompt, func() (string, error) {
		return c.fallback.SlowSolveTip(ctx, p, elapsed, expected)
	})
}

func (c *LLMCoach) generate(ctx context.Context, system, prompt string, fallback func() (string, error)) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := c.llm.Generate(ctx, system, prompt)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("coaching text unavailable, using template")
		return fallback()
	}
	return text, nil
}

// ── TemplateCoach ───────────────────────────────────────

// TemplateCoach produces fixed wording from the summary alone.
type TemplateCoach struct{}

func (TemplateCoach) WeaknessCoaching(ctx context.Context, s models.WeaknessSummary) (string, error) {
	if s.TotalAttempted == 0 {
		return "No contest history yet. Sync your Codeforces submissions after your next contest to get an analysis.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You solved %d of %d contest problems you attempted (%.0f%%).",
		s.TotalSolved, s.TotalAttempted, s.OverallSolvedRate*100)
	if len(s.WeakTopics) > 0 {
		fmt.Fprintf(&b, " Your weakest topics are %s.", strings.Join(s.WeakTopics, ", "))
	}
	if len(s.WeakRatingBands) > 0 {
		fmt.Fprintf(&b, " You most often get stuck on problems rated %s.", strings.Join(s.WeakRatingBands, ", "))
	}
	if s.UpsolveCount > 0 {
		fmt.Fprintf(&b, " Start with the %d upsolve suggestions below; read the editorial only after a genuine attempt.", s.UpsolveCount)
	}
	return b.String(), nil
}

func (TemplateCoach) SlowSolveTip(ctx context.Context, p models.Problem, elapsed, expected int) (string, error) {
	return fmt.Sprintf("Solved in %d min, over the ~%d min typical at rating %d. Reviewing the editorial may help.",
		elapsed/60, expected/60, p.Rating), nil
}
