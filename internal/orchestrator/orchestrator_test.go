// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
	"github.com/CharbelDaher34/jarvis/internal/agent"
	"github.com/CharbelDaher34/jarvis/internal/config"
	"github.com/CharbelDaher34/jarvis/internal/notify"
	"github.com/CharbelDaher34/jarvis/internal/resilience"
)

// -- Role stubs --

type stubPlanner struct {
	requests []agent.PlanRequest
	outputs  []schemas.PlannerOutput
	errs     []error
	usage    schemas.TokenUsage
}

func (s *stubPlanner) Plan(_ context.Context, req agent.PlanRequest) (schemas.PlannerOutput, []schemas.Message, schemas.TokenUsage, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx < len(s.errs) && s.errs[idx] != nil {
		return schemas.PlannerOutput{}, nil, s.usage, s.errs[idx]
	}
	out := schemas.PlannerOutput{Plan: "the plan", NextStep: "the step"}
	if idx < len(s.outputs) {
		out = s.outputs[idx]
	}
	msgs := []schemas.Message{
		{Role: "user", Content: "plan request"},
		{Role: "model", Content: "plan response"},
	}
	return out, msgs, s.usage, nil
}

type stubActor struct {
	calls   []string
	reports []string
	errs    []error
	usage   schemas.TokenUsage
}

func (s *stubActor) Execute(_ context.Context, _, step string, _ []schemas.Message) (string, []schemas.Message, schemas.TokenUsage, error) {
	s.calls = append(s.calls, step)
	idx := len(s.calls) - 1
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", nil, s.usage, s.errs[idx]
	}
	report := "step done"
	if idx < len(s.reports) {
		report = s.reports[idx]
	}
	msgs := []schemas.Message{
		{Role: "user", Content: "act request"},
		{Role: "model", Content: "act response"},
	}
	return report, msgs, s.usage, nil
}

type stubCritic struct {
	requests  []agent.CritiqueRequest
	decisions []schemas.TerminationDecision
	errs      []error
	usage     schemas.TokenUsage
}

func (s *stubCritic) Review(_ context.Context, req agent.CritiqueRequest) (schemas.TerminationDecision, []schemas.Message, schemas.TokenUsage, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx < len(s.errs) && s.errs[idx] != nil {
		return schemas.TerminationDecision{}, nil, s.usage, s.errs[idx]
	}
	decision := schemas.TerminationDecision{Feedback: "keep going"}
	if idx < len(s.decisions) {
		decision = s.decisions[idx]
	}
	msgs := []schemas.Message{
		{Role: "user", Content: "critique request"},
		{Role: "model", Content: "critique response"},
	}
	return decision, msgs, s.usage, nil
}

type stubLocator struct{ url string }

func (s *stubLocator) CurrentURL(context.Context) (string, error) { return s.url, nil }

func newTestOrchestrator(t *testing.T, maxIterations int, p *stubPlanner, a *stubActor, c *stubCritic) *Orchestrator {
	t.Helper()
	cfg := config.AgentConfig{MaxIterations: maxIterations, MaxToolCalls: 5, MultiAgent: true}
	o, err := New(cfg, zap.NewNop(), notify.NewBus(zap.NewNop()), p, a, c, &stubLocator{url: "https://example.com"})
	require.NoError(t, err)
	return o
}

func continueN(n int) []schemas.TerminationDecision {
	decisions := make([]schemas.TerminationDecision, n)
	for i := range decisions {
		decisions[i] = schemas.TerminationDecision{Feedback: "not there yet"}
	}
	return decisions
}

// -- Tests --

func TestNew_RequiresRoleCollaborators(t *testing.T) {
	cfg := config.AgentConfig{MaxIterations: 5}
	_, err := New(cfg, zap.NewNop(), nil, nil, &stubActor{}, &stubCritic{}, nil)
	assert.Error(t, err)
}

func TestRun_TerminatesOnCritiqueDecision(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{decisions: append(continueN(2),
		schemas.TerminationDecision{Terminate: true, FinalResponse: "the answer", Feedback: "found it"},
	)}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	result, err := o.Run(context.Background(), "find the answer")

	require.NoError(t, err)
	assert.Equal(t, "the answer", result.FinalResponse)
	assert.Equal(t, 3, result.Iterations)
	assert.True(t, result.Terminated)
	assert.Len(t, planner.requests, 3)
	assert.Len(t, actor.calls, 3)
	assert.Len(t, critic.requests, 3)
	assert.NotEmpty(t, result.RunID)
}

func TestRun_IterationBoundForcesFinalCritique(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{decisions: append(continueN(3),
		schemas.TerminationDecision{Terminate: true, FinalResponse: "best effort answer"},
	)}
	o := newTestOrchestrator(t, 3, planner, actor, critic)

	result, err := o.Run(context.Background(), "impossible task")

	require.NoError(t, err)
	assert.Equal(t, 3, result.Iterations)
	assert.False(t, result.Terminated)
	assert.Equal(t, "best effort answer", result.FinalResponse)

	// Three in-loop critiques plus the forced final one.
	require.Len(t, critic.requests, 4)
	for _, req := range critic.requests[:3] {
		assert.False(t, req.AtMaxIterations)
	}
	assert.True(t, critic.requests[3].AtMaxIterations)
}

func TestRun_SynthesizesFallbackWhenForcedCritiqueEmpty(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{}
	o := newTestOrchestrator(t, 2, planner, actor, critic)

	result, err := o.Run(context.Background(), "impossible task")

	require.NoError(t, err)
	assert.Contains(t, result.FinalResponse, "did not complete within 2 iterations")
	assert.Contains(t, result.FinalResponse, "keep going")
}

func TestRun_PlanStoredOnlyOnFirstIteration(t *testing.T) {
	planner := &stubPlanner{outputs: []schemas.PlannerOutput{
		{Plan: "original plan", NextStep: "step one"},
		{Plan: "drifted plan", NextStep: "step two"},
	}}
	actor := &stubActor{}
	critic := &stubCritic{decisions: append(continueN(1),
		schemas.TerminationDecision{Terminate: true, FinalResponse: "done"},
	)}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.Run(context.Background(), "task")

	require.NoError(t, err)
	assert.Equal(t, "original plan", o.State().CurrentPlan())
	// The second planner call still sees the original plan as reference.
	require.Len(t, planner.requests, 2)
	assert.Empty(t, planner.requests[0].OriginalPlan)
	assert.Equal(t, "original plan", planner.requests[1].OriginalPlan)
}

func TestRun_CritiqueFeedbackReachesNextPlan(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{decisions: append([]schemas.TerminationDecision{
		{Feedback: "wrong page", MissingInformation: "product name"},
	}, schemas.TerminationDecision{Terminate: true, FinalResponse: "done"})}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.Run(context.Background(), "task")

	require.NoError(t, err)
	require.Len(t, planner.requests, 2)
	assert.Equal(t, "wrong page", planner.requests[1].Feedback)
	assert.Equal(t, "product name", planner.requests[1].MissingInfo)
}

func TestRun_ActorFailureNarratedToCritic(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{errs: []error{
		resilience.NewError(resilience.KindElementNotFound, "resolver.resolve", "no strategy matched"),
	}}
	critic := &stubCritic{decisions: []schemas.TerminationDecision{
		{Terminate: true, FinalResponse: "gave up"},
	}}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	result, err := o.Run(context.Background(), "task")

	require.NoError(t, err, "actor failures must not crash the run")
	assert.Equal(t, "gave up", result.FinalResponse)
	require.Len(t, critic.requests, 1)
	assert.Contains(t, critic.requests[0].ToolResponse, "Action failed")
	assert.Contains(t, critic.requests[0].ToolResponse, "no strategy matched")
}

func TestRun_SecurityViolationAbortsRun(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{errs: []error{
		resilience.NewError(resilience.KindSecurity, "tools.navigate", "navigation to blocked domain refused"),
	}}
	critic := &stubCritic{}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.Run(context.Background(), "task")

	require.Error(t, err)
	assert.Equal(t, resilience.KindSecurity, resilience.KindOf(err))
	assert.Empty(t, critic.requests, "security violations skip the critic")
}

func TestRun_PlannerFailureCountsIteration(t *testing.T) {
	planner := &stubPlanner{errs: []error{assert.AnError}}
	actor := &stubActor{}
	critic := &stubCritic{decisions: []schemas.TerminationDecision{
		{Terminate: true, FinalResponse: "recovered"},
	}}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	result, err := o.Run(context.Background(), "task")

	require.NoError(t, err)
	assert.Equal(t, "recovered", result.FinalResponse)
	assert.Equal(t, 2, result.Iterations)
	assert.Len(t, actor.calls, 1, "failed planning iteration skips act and critique")
}

func TestRun_UsageAccumulatesPerRole(t *testing.T) {
	planner := &stubPlanner{usage: schemas.TokenUsage{TotalTokens: 10, RequestTokens: 7, ResponseTokens: 3}}
	actor := &stubActor{usage: schemas.TokenUsage{TotalTokens: 4, RequestTokens: 3, ResponseTokens: 1}}
	critic := &stubCritic{
		usage: schemas.TokenUsage{TotalTokens: 6, RequestTokens: 4, ResponseTokens: 2},
		decisions: append(continueN(1),
			schemas.TerminationDecision{Terminate: true, FinalResponse: "done"}),
	}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	result, err := o.Run(context.Background(), "task")

	require.NoError(t, err)
	assert.Equal(t, 20, result.Usage[schemas.RolePlanner].TotalTokens)
	assert.Equal(t, 8, result.Usage[schemas.RoleActor].TotalTokens)
	assert.Equal(t, 12, result.Usage[schemas.RoleCritic].TotalTokens)
	assert.Equal(t, 40, o.State().TotalUsage().TotalTokens)
}

func TestRun_HistoriesAppendPerRole(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{decisions: append(continueN(1),
		schemas.TerminationDecision{Terminate: true, FinalResponse: "done"})}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.Run(context.Background(), "task")

	require.NoError(t, err)
	assert.Len(t, o.State().History(schemas.RolePlanner), 4)
	assert.Len(t, o.State().History(schemas.RoleActor), 4)
	assert.Len(t, o.State().History(schemas.RoleCritic), 4)
}

func TestRun_AbortedBetweenIterations(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, "task")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, planner.requests)
}

func TestRun_LocatorURLReachesRoles(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{decisions: []schemas.TerminationDecision{
		{Terminate: true, FinalResponse: "done"},
	}}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.Run(context.Background(), "task")

	require.NoError(t, err)
	require.Len(t, planner.requests, 1)
	assert.Equal(t, "https://example.com", planner.requests[0].CurrentURL)
	require.Len(t, critic.requests, 1)
	assert.Equal(t, "https://example.com", critic.requests[0].CurrentURL)
}

func TestRunSingle_BypassesPlanAndCritique(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{reports: []string{"looked it up"}}
	critic := &stubCritic{}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	result, err := o.RunSingle(context.Background(), "what is on this page")

	require.NoError(t, err)
	assert.Equal(t, "looked it up", result.FinalResponse)
	assert.Equal(t, 1, result.Iterations)
	assert.True(t, result.Terminated)
	assert.Empty(t, planner.requests)
	assert.Empty(t, critic.requests)
	assert.Equal(t, []string{"what is on this page"}, actor.calls)
}

func TestRunSingle_ActorErrorPropagates(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{errs: []error{assert.AnError}}
	critic := &stubCritic{}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.RunSingle(context.Background(), "task")

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReset_ClearsRunState(t *testing.T) {
	planner := &stubPlanner{}
	actor := &stubActor{}
	critic := &stubCritic{decisions: []schemas.TerminationDecision{
		{Terminate: true, FinalResponse: "done"},
	}}
	o := newTestOrchestrator(t, 20, planner, actor, critic)

	_, err := o.Run(context.Background(), "task")
	require.NoError(t, err)
	require.True(t, o.State().Terminated())

	o.Reset()

	assert.Equal(t, 0, o.State().Iteration())
	assert.False(t, o.State().Terminated())
	assert.Empty(t, o.State().History(schemas.RolePlanner))
	assert.Zero(t, o.State().TotalUsage().TotalTokens)
}
