// internal/agent/planner.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
)

// Planner turns the user query plus critique feedback into a plan and a
// single next step. Runs on the powerful model tier.
type Planner struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewPlanner creates the planning role.
func NewPlanner(llm schemas.LLMClient, logger *zap.Logger) *Planner {
	return &Planner{llm: llm, logger: logger.Named("planner")}
}

// PlanRequest carries everything the planner sees for one iteration.
type PlanRequest struct {
	Query        string
	OriginalPlan string
	Feedback     string
	MissingInfo  string
	CurrentURL   string
	History      []schemas.Message
}

// Plan produces the next plan. The returned messages are the new turns to
// append to the planner's history.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (schemas.PlannerOutput, []schemas.Message, schemas.TokenUsage, error) {
	prompt := buildPlannerPrompt(req)

	gen, err := p.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: plannerSystemPrompt,
		UserPrompt:   prompt,
		History:      req.History,
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature:     0.5,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return schemas.PlannerOutput{}, nil, schemas.TokenUsage{}, fmt.Errorf("planner generation failed: %w", err)
	}

	var out schemas.PlannerOutput
	if err := decodeModelJSON(gen.Text, &out); err != nil {
		return schemas.PlannerOutput{}, nil, gen.Usage, fmt.Errorf("planner returned malformed output: %w", err)
	}
	if out.NextStep == "" {
		return schemas.PlannerOutput{}, nil, gen.Usage, fmt.Errorf("planner produced no next step")
	}

	p.logger.Info("Plan produced", zap.String("next_step", out.NextStep))

	newMessages := []schemas.Message{
		{Role: "user", Content: prompt},
		{Role: "model", Content: gen.Text},
	}
	return out, newMessages, gen.Usage, nil
}

func buildPlannerPrompt(req PlanRequest) string {
	parts := []string{"User Query: " + req.Query}
	if req.OriginalPlan != "" {
		parts = append(parts, "Original Plan: "+req.OriginalPlan)
	}
	if req.Feedback != "" {
		parts = append(parts, "Feedback: "+req.Feedback)
	}
	if req.MissingInfo != "" {
		parts = append(parts, "Missing Information: "+req.MissingInfo)
	}
	if req.CurrentURL != "" {
		parts = append(parts, "Current URL: "+req.CurrentURL)
	}
	return strings.Join(parts, "\n\n")
}
