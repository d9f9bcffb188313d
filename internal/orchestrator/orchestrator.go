// File: internal/orchestrator/orchestrator.go
// Description: Drives the plan -> act -> critique loop for one task at a
// time. Roles are injected via interfaces, making the loop testable without
// a browser or an LLM backend.

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
	"github.com/CharbelDaher34/jarvis/internal/agent"
	"github.com/CharbelDaher34/jarvis/internal/config"
	"github.com/CharbelDaher34/jarvis/internal/notify"
	"github.com/CharbelDaher34/jarvis/internal/resilience"
)

// Planner produces the standing plan and the next step.
type Planner interface {
	Plan(ctx context.Context, req agent.PlanRequest) (schemas.PlannerOutput, []schemas.Message, schemas.TokenUsage, error)
}

// Actor executes one planned step and narrates the outcome as free text.
type Actor interface {
	Execute(ctx context.Context, plan, step string, history []schemas.Message) (string, []schemas.Message, schemas.TokenUsage, error)
}

// Critic judges the iteration and decides whether the task is done.
type Critic interface {
	Review(ctx context.Context, req agent.CritiqueRequest) (schemas.TerminationDecision, []schemas.Message, schemas.TokenUsage, error)
}

// PageLocator reports where the browser currently is.
type PageLocator interface {
	CurrentURL(ctx context.Context) (string, error)
}

// Result summarizes one finished task run.
type Result struct {
	RunID         string
	FinalResponse string
	Iterations    int
	Terminated    bool
	Usage         map[schemas.Role]schemas.TokenUsage
	Elapsed       time.Duration
}

// Orchestrator runs bounded plan/act/critique iterations against one shared
// State. One task occupies the orchestrator at a time; role calls within an
// iteration are strictly sequential.
type Orchestrator struct {
	cfg     config.AgentConfig
	logger  *zap.Logger
	bus     *notify.Bus
	planner Planner
	actor   Actor
	critic  Critic
	locator PageLocator

	state *State
}

// New creates an orchestrator. All role collaborators are required; the
// locator is optional and may be nil when no browser is attached.
func New(
	cfg config.AgentConfig,
	logger *zap.Logger,
	bus *notify.Bus,
	planner Planner,
	actor Actor,
	critic Critic,
	locator PageLocator,
) (*Orchestrator, error) {
	if planner == nil || actor == nil || critic == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil role collaborators")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = notify.NewBus(logger)
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		bus:     bus,
		planner: planner,
		actor:   actor,
		critic:  critic,
		locator: locator,
		state:   NewState(),
	}, nil
}

// State exposes the current run record for introspection.
func (o *Orchestrator) State() *State { return o.state }

// Reset discards the run record so the orchestrator can serve another task.
func (o *Orchestrator) Reset() { o.state = NewState() }

// Run executes the full multi-agent loop for one query. Role failures are
// folded into the loop as failure narration; only security violations and
// caller cancellation abort the run.
func (o *Orchestrator) Run(ctx context.Context, query string) (Result, error) {
	o.Reset()
	s := o.state
	runID := uuid.NewString()
	start := time.Now()

	o.logger.Info("Task run starting",
		zap.String("run_id", runID),
		zap.String("query", query),
		zap.Int("max_iterations", o.cfg.MaxIterations),
	)
	o.bus.Notify("Task started: "+query, notify.KindInfo)

	var lastStep, lastReport string

	for s.iteration < o.cfg.MaxIterations {
		// Aborts are honored between iterations only; an in-flight step
		// runs to completion or its own timeout first.
		select {
		case <-ctx.Done():
			o.bus.Notify("Task aborted", notify.KindError)
			return o.result(runID, "", start), fmt.Errorf("task run aborted: %w", ctx.Err())
		default:
		}
		s.iteration++

		planOut, err := o.plan(ctx, query)
		if err != nil {
			s.lastFeedback = fmt.Sprintf("Planning failed: %v", err)
			o.logger.Warn("Planner failed, counting a failed iteration",
				zap.Int("iteration", s.iteration), zap.Error(err))
			o.bus.Notify(s.lastFeedback, notify.KindWarning)
			continue
		}
		lastStep = planOut.NextStep
		o.bus.Notify("Step "+fmt.Sprint(s.iteration)+": "+planOut.NextStep, notify.KindStep)

		report, err := o.act(ctx, planOut.NextStep)
		if err != nil {
			if resilience.KindOf(err) == resilience.KindSecurity {
				o.bus.Notify("Task aborted: "+err.Error(), notify.KindError)
				return o.result(runID, "", start), err
			}
			report = fmt.Sprintf("Action failed: %v", err)
			o.logger.Warn("Actor failed, narrating the failure to the critic",
				zap.Int("iteration", s.iteration), zap.Error(err))
		}
		lastReport = report

		decision, err := o.critique(ctx, query, planOut.NextStep, report, false)
		if err != nil {
			s.lastFeedback = fmt.Sprintf("Critique failed: %v", err)
			o.logger.Warn("Critic failed, counting a failed iteration",
				zap.Int("iteration", s.iteration), zap.Error(err))
			o.bus.Notify(s.lastFeedback, notify.KindWarning)
			continue
		}
		s.lastFeedback = decision.Feedback
		s.missingInfo = decision.MissingInformation

		if decision.Terminate {
			s.terminated = true
			final := decision.FinalResponse
			if final == "" {
				final = o.fallbackResponse()
			}
			o.bus.Notify("Task complete", notify.KindDone)
			o.logRunSummary(runID, start)
			return o.result(runID, final, start), nil
		}
		o.bus.Notify("Continuing: "+decision.Feedback, notify.KindInfo)
	}

	// Iteration budget spent. One forced critique gets the last word before
	// the fallback answer is synthesized.
	final := o.fallbackResponse()
	decision, err := o.critique(ctx, query, lastStep, lastReport, true)
	if err != nil {
		o.logger.Warn("Forced final critique failed", zap.Error(err))
	} else if decision.FinalResponse != "" {
		final = decision.FinalResponse
	}

	o.bus.Notify("Task ended at iteration limit", notify.KindWarning)
	o.logRunSummary(runID, start)
	return o.result(runID, final, start), nil
}

// RunSingle bypasses the state machine and passes the query straight to the
// actor. Used when the caller judges the task trivial.
func (o *Orchestrator) RunSingle(ctx context.Context, query string) (Result, error) {
	o.Reset()
	s := o.state
	runID := uuid.NewString()
	start := time.Now()

	o.logger.Info("Single-shot run starting",
		zap.String("run_id", runID),
		zap.String("query", query),
	)
	o.bus.Notify("Task started: "+query, notify.KindInfo)

	s.iteration = 1
	report, newMessages, usage, err := o.actor.Execute(ctx, "", query, nil)
	s.AppendHistory(schemas.RoleActor, newMessages...)
	s.AddUsage(schemas.RoleActor, usage)
	if err != nil {
		o.bus.Notify("Task failed: "+err.Error(), notify.KindError)
		return o.result(runID, "", start), err
	}

	s.terminated = true
	o.bus.Notify("Task complete", notify.KindDone)
	o.logRunSummary(runID, start)
	return o.result(runID, report, start), nil
}

func (o *Orchestrator) plan(ctx context.Context, query string) (schemas.PlannerOutput, error) {
	s := o.state
	out, newMessages, usage, err := o.planner.Plan(ctx, agent.PlanRequest{
		Query:        query,
		OriginalPlan: s.currentPlan,
		Feedback:     s.lastFeedback,
		MissingInfo:  s.missingInfo,
		CurrentURL:   o.currentURL(ctx),
		History:      s.History(schemas.RolePlanner),
	})
	s.AddUsage(schemas.RolePlanner, usage)
	if err != nil {
		return schemas.PlannerOutput{}, err
	}
	s.AppendHistory(schemas.RolePlanner, newMessages...)

	// The first plan stays the standing reference; later iterations only
	// contribute the next step, which keeps the run anchored to the
	// original intent.
	if s.iteration == 1 {
		s.currentPlan = out.Plan
	}
	return out, nil
}

func (o *Orchestrator) act(ctx context.Context, step string) (string, error) {
	s := o.state
	report, newMessages, usage, err := o.actor.Execute(ctx, s.currentPlan, step, s.History(schemas.RoleActor))
	s.AddUsage(schemas.RoleActor, usage)
	s.AppendHistory(schemas.RoleActor, newMessages...)
	return report, err
}

func (o *Orchestrator) critique(ctx context.Context, query, step, report string, atMax bool) (schemas.TerminationDecision, error) {
	s := o.state
	decision, newMessages, usage, err := o.critic.Review(ctx, agent.CritiqueRequest{
		Query:           query,
		CurrentStep:     step,
		OriginalPlan:    s.currentPlan,
		ToolResponse:    report,
		CurrentURL:      o.currentURL(ctx),
		AtMaxIterations: atMax,
		History:         s.History(schemas.RoleCritic),
	})
	s.AddUsage(schemas.RoleCritic, usage)
	if err != nil {
		return schemas.TerminationDecision{}, err
	}
	s.AppendHistory(schemas.RoleCritic, newMessages...)
	return decision, nil
}

func (o *Orchestrator) currentURL(ctx context.Context) string {
	if o.locator == nil {
		return ""
	}
	u, err := o.locator.CurrentURL(ctx)
	if err != nil {
		o.logger.Debug("Could not read current URL", zap.Error(err))
		return ""
	}
	return u
}

func (o *Orchestrator) fallbackResponse() string {
	msg := fmt.Sprintf("Task did not complete within %d iterations.", o.cfg.MaxIterations)
	if o.state.lastFeedback != "" {
		msg += " Last feedback: " + o.state.lastFeedback
	}
	return msg
}

func (o *Orchestrator) result(runID, final string, start time.Time) Result {
	return Result{
		RunID:         runID,
		FinalResponse: final,
		Iterations:    o.state.iteration,
		Terminated:    o.state.terminated,
		Usage:         o.state.UsageSnapshot(),
		Elapsed:       time.Since(start),
	}
}

func (o *Orchestrator) logRunSummary(runID string, start time.Time) {
	total := o.state.TotalUsage()
	o.logger.Info("Task run finished",
		zap.String("run_id", runID),
		zap.Int("iterations", o.state.iteration),
		zap.Bool("terminated", o.state.terminated),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total_tokens", total.TotalTokens),
		zap.Int("request_tokens", total.RequestTokens),
		zap.Int("response_tokens", total.ResponseTokens),
	)
}
