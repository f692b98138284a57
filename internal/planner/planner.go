// Package planner drives the propose, resolve, validate and correct loop that turns
// macro targets into an accepted meal plan.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noot-app/macroplan-mcp-server/internal/adjust"
	"github.com/noot-app/macroplan-mcp-server/internal/config"
	"github.com/noot-app/macroplan-mcp-server/internal/nutrients"
	"github.com/noot-app/macroplan-mcp-server/internal/proposer"
	"github.com/noot-app/macroplan-mcp-server/internal/ratelimit"
	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/noot-app/macroplan-mcp-server/internal/validate"
)

var (
	// ErrProposerUnavailable is returned while the proposer is in its backoff window
	ErrProposerUnavailable = errors.New("proposer unavailable")
	// ErrAttemptsExhausted is returned when no attempt produced a valid plan
	ErrAttemptsExhausted = errors.New("planning attempts exhausted")
)

// DefaultMealCount is used when a request does not say how many meals it wants
const DefaultMealCount = 3

// FoodResolver looks up nutrient profiles for proposed food names
type FoodResolver interface {
	Resolve(ctx context.Context, name string) (nutrients.Food, error)
	ResolveAll(ctx context.Context, names []string) (map[string]nutrients.Food, []string, error)
}

// Request is one planning session's input
type Request struct {
	BaseMetabolicTarget float64           `json:"base_metabolic_target" yaml:"base_metabolic_target"`
	CalorieAdjustment   float64           `json:"calorie_adjustment" yaml:"calorie_adjustment"`
	Split               types.MacroSplit  `json:"split" yaml:"split"`
	MealCount           int               `json:"meal_count" yaml:"meal_count"`
	Constraints         types.Constraints `json:"constraints" yaml:"constraints"`
}

// Result is an accepted plan with its narrative
type Result struct {
	SessionID         string                 `json:"session_id"`
	Plan              *types.Plan            `json:"plan"`
	Targets           types.MacroTargets     `json:"targets"`
	Validation        types.ValidationResult `json:"validation"`
	Notes             string                 `json:"notes,omitempty"`
	Reasoning         string                 `json:"reasoning,omitempty"`
	Attempts          int                    `json:"attempts"`
	CorrectionApplied bool                   `json:"correction_applied"`
}

// Options tune the planning loop
type Options struct {
	MaxAttempts          int
	AttemptDelay         time.Duration
	LocalCorrection      bool
	MaxScalePercent      float64
	CorrectionCalorieCap float64
	MaxPortionIncrease   float64
	RateLimitDefault     time.Duration
	TransientRetries     int
	TransientBackoff     time.Duration
}

// OptionsFromConfig maps configuration onto loop options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxAttempts:          cfg.MaxAttempts,
		AttemptDelay:         cfg.AttemptDelay(),
		LocalCorrection:      cfg.LocalCorrection,
		MaxScalePercent:      cfg.MaxScalePercent,
		CorrectionCalorieCap: cfg.CorrectionCalorieCap,
		MaxPortionIncrease:   cfg.MaxPortionIncrease,
		RateLimitDefault:     cfg.RateLimitDefault(),
		TransientRetries:     3,
		TransientBackoff:     time.Second,
	}
}

// Planner runs planning sessions. It is safe for concurrent use; sessions share only the
// rate-limit gate and the resolver's cache.
type Planner struct {
	proposer  proposer.Proposer
	resolver  FoodResolver
	gate      *ratelimit.Gate
	corrector *adjust.Corrector
	opts      Options
	log       *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a planner. A nil gate uses the process-wide gate.
func New(p proposer.Proposer, resolver FoodResolver, gate *ratelimit.Gate, opts Options, logger *slog.Logger) *Planner {
	if gate == nil {
		gate = ratelimit.Shared()
	}
	if opts.MaxAttempts <= 0 || opts.MaxAttempts > config.MaxAttempts {
		opts.MaxAttempts = config.MaxAttempts
	}
	if opts.RateLimitDefault <= 0 {
		opts.RateLimitDefault = proposer.DefaultRetryAfter
	}
	return &Planner{
		proposer:  p,
		resolver:  resolver,
		gate:      gate,
		corrector: adjust.NewCorrector(resolver, opts.CorrectionCalorieCap, logger),
		opts:      opts,
		log:       logger,
		sleep:     sleepContext,
	}
}

// session carries per-request state through the loop
type session struct {
	id      string
	req     Request
	targets types.MacroTargets
	history []types.AttemptRecord
	state   State
	log     *slog.Logger
}

func (s *session) transition(to State) {
	s.log.Debug("Planner state change", "from", s.state.String(), "to", to.String())
	s.state = to
}

// PlanDiet computes targets for the request and runs the attempt loop until a plan
// validates or the attempt budget is spent
func (p *Planner) PlanDiet(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	t, err := targets.Compute(req.BaseMetabolicTarget, req.CalorieAdjustment, req.Split)
	if err != nil {
		return nil, err
	}
	if req.MealCount <= 0 {
		req.MealCount = DefaultMealCount
	}

	s := &session{id: uuid.NewString(), req: req, targets: t, state: StateIdle}
	s.log = p.log.With("session_id", s.id)
	s.log.Info("Planning session started",
		"calories", t.Calories,
		"protein_g", t.ProteinGrams,
		"carbs_g", t.CarbsGrams,
		"fat_g", t.FatGrams,
		"meals", req.MealCount,
		"strict", req.Constraints.Strict())

	s.transition(StateGeneratingInitial)

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			if err := p.sleep(ctx, p.opts.AttemptDelay); err != nil {
				return nil, err
			}
		}

		result, err := p.runAttempt(ctx, s, attempt)
		if err != nil {
			return nil, err
		}
		if result != nil {
			s.transition(StateAccepted)
			result.SessionID = s.id
			result.Targets = t
			result.Attempts = attempt
			s.log.Info("Planning session accepted", "attempts", attempt, "correction_applied", result.CorrectionApplied, "duration", time.Since(start))
			return result, nil
		}

		if attempt == p.opts.MaxAttempts {
			s.transition(StateExhausted)
		} else {
			s.transition(StateAdjustingIntelligently)
		}
	}

	s.log.Warn("Planning session exhausted", "attempts", p.opts.MaxAttempts, "duration", time.Since(start))
	return nil, fmt.Errorf("%w after %d attempts: %s", ErrAttemptsExhausted, p.opts.MaxAttempts, lastFailure(s.history))
}

// runAttempt performs one propose/validate round. A nil result with a nil error means the
// attempt failed in a way that consumes budget but does not end the session.
func (p *Planner) runAttempt(ctx context.Context, s *session, attempt int) (*Result, error) {
	attemptStart := time.Now()
	log := s.log.With("attempt", attempt)

	prompt := p.buildPrompt(s)
	text, err := p.propose(ctx, prompt, log)
	if err != nil {
		if errors.Is(err, ErrProposerUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn("Proposer call failed", "error", err)
		s.history = append(s.history, types.AttemptRecord{AttemptNumber: attempt, Err: err.Error()})
		return nil, nil
	}

	parsed, err := proposer.Parse(text)
	if err != nil {
		log.Warn("Proposer response could not be parsed", "error", err, "bytes", len(text))
		s.history = append(s.history, types.AttemptRecord{AttemptNumber: attempt, Err: err.Error()})
		return nil, nil
	}

	plan, err := p.buildPlan(ctx, parsed, s.req.Constraints, log)
	if err != nil {
		return nil, err
	}

	s.transition(StateValidating)
	validation := validate.Plan(plan.Meals, s.targets)
	correctionApplied := false

	if !validation.IsValid && p.opts.LocalCorrection {
		if corrected, ok := p.correct(ctx, plan, s.targets, log); ok {
			plan, validation, correctionApplied = corrected, validate.Plan(corrected.Meals, s.targets), true
		}
	}

	s.history = append(s.history, types.AttemptRecord{AttemptNumber: attempt, ResultPlan: plan, Validation: validation})

	log.Info("Attempt validated",
		"valid", validation.IsValid,
		"errors", len(validation.Errors),
		"calories", validation.ActualTotals.Calories,
		"protein_g", validation.ActualTotals.Protein,
		"carbs_g", validation.ActualTotals.Carbs,
		"fat_g", validation.ActualTotals.Fat,
		"correction_applied", correctionApplied,
		"duration", time.Since(attemptStart))

	if !validation.IsValid {
		return nil, nil
	}
	return &Result{
		Plan:              plan,
		Validation:        validation,
		Notes:             string(parsed.Notes),
		Reasoning:         string(parsed.Reasoning),
		CorrectionApplied: correctionApplied,
	}, nil
}

// buildPrompt asks for a fresh plan until some attempt produced one, then for adjustments
func (p *Planner) buildPrompt(s *session) string {
	for _, a := range s.history {
		if a.ResultPlan != nil {
			return proposer.BuildAdjustmentPrompt(s.targets, s.req.MealCount, s.req.Constraints, s.history)
		}
	}
	return proposer.BuildInitialPrompt(s.targets, s.req.MealCount, s.req.Constraints)
}

// propose calls the proposer behind the rate-limit gate, retrying transient failures with
// exponential backoff
func (p *Planner) propose(ctx context.Context, prompt string, log *slog.Logger) (string, error) {
	for try := 0; ; try++ {
		if !p.gate.TryAcquire() {
			return "", fmt.Errorf("%w: rate limited for another %s", ErrProposerUnavailable, p.gate.Remaining().Round(time.Second))
		}

		start := time.Now()
		text, err := p.proposer.Propose(ctx, prompt)
		if err == nil {
			log.Debug("Proposer call succeeded", "duration", time.Since(start))
			return text, nil
		}

		var rl *proposer.RateLimitError
		if errors.As(err, &rl) {
			backoff := rl.RetryAfter
			if backoff <= 0 {
				backoff = p.opts.RateLimitDefault
			}
			p.gate.Trip(backoff)
			log.Warn("Proposer rate limited, backing off", "retry_after", backoff)
			return "", fmt.Errorf("%w: %w", ErrProposerUnavailable, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !proposer.IsTransient(err) || try >= p.opts.TransientRetries {
			return "", err
		}

		wait := p.opts.TransientBackoff << try
		log.Debug("Transient proposer failure, retrying", "error", err, "retry", try+1, "wait", wait)
		if err := p.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

// buildPlan resolves every proposed food. Unknown foods become zero-nutrient placeholders,
// except in strict mode where they abort the session.
func (p *Planner) buildPlan(ctx context.Context, resp *proposer.Response, c types.Constraints, log *slog.Logger) (*types.Plan, error) {
	var names []string
	for _, meal := range resp.Meals {
		for _, f := range meal.Foods {
			if c.Strict() && !c.Allows(f.Name) {
				return nil, fmt.Errorf("%w: %q is not in the allowed foods", nutrients.ErrFoodNotFound, f.Name)
			}
			names = append(names, f.Name)
		}
	}

	resolved, missing, err := p.resolver.ResolveAll(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		if c.Strict() {
			return nil, fmt.Errorf("%w: %s", nutrients.ErrFoodNotFound, strings.Join(missing, ", "))
		}
		log.Info("Using placeholders for unknown foods", "foods", missing)
	}

	plan := &types.Plan{Meals: make([]types.Meal, 0, len(resp.Meals))}
	for _, meal := range resp.Meals {
		m := types.Meal{Name: meal.Name}
		for _, f := range meal.Foods {
			if c.Excludes(f.Name) {
				log.Warn("Dropping excluded food from proposal", "food", f.Name)
				continue
			}
			portion := types.FoodPortion{
				Name:          f.Name,
				QuantityGrams: targets.Round1(f.Grams),
				IsAlternative: f.Alternative,
				Reasoning:     f.Reasoning,
			}
			if food, ok := resolved[f.Name]; ok {
				portion.Profile = food.Profile
				portion.Source = food.Source
			} else {
				portion.Placeholder = true
			}
			m.Foods = append(m.Foods, portion)
		}
		plan.Meals = append(plan.Meals, m)
	}
	return plan, nil
}

// correct runs the local strategies on a copy: exact redistribution, or uniform scaling
// followed by greedy redistribution, then the macro correction loop. The copy is returned
// only when it validates.
func (p *Planner) correct(ctx context.Context, plan *types.Plan, t types.MacroTargets, log *slog.Logger) (*types.Plan, bool) {
	start := time.Now()
	work := plan.Clone()

	opts := adjust.DefaultExactOptions()
	if p.opts.MaxPortionIncrease > 0 {
		opts.MaxIncrease = p.opts.MaxPortionIncrease
	}
	strategy := "exact"
	if err := adjust.ExactRedistribute(work, t, opts); err != nil {
		log.Debug("Exact redistribution rejected", "error", err)
		work = plan.Clone()
		strategy = "scale+redistribute"
		adjust.ScalePortions(work, t, p.opts.MaxScalePercent)
		adjust.RedistributePortions(work, t, 0)
	}

	added, err := p.corrector.Correct(ctx, work, t)
	if err != nil {
		log.Warn("Macro correction failed", "error", err)
	}

	valid := validate.Plan(work.Meals, t).IsValid
	log.Debug("Local correction finished", "strategy", strategy, "correction_meal", added, "valid", valid, "duration", time.Since(start))
	if !valid {
		return nil, false
	}
	return work, true
}

func lastFailure(history []types.AttemptRecord) string {
	if len(history) == 0 {
		return "no attempts recorded"
	}
	last := history[len(history)-1]
	if last.Err != "" {
		return last.Err
	}
	if len(last.Validation.Errors) > 0 {
		return strings.Join(last.Validation.Errors, "; ")
	}
	return "plan did not validate"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
