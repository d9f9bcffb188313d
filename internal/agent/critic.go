// internal/agent/critic.go
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
)

// Critic judges each iteration's progress and decides whether the task is
// done. Runs on the powerful model tier.
type Critic struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewCritic creates the critique role.
func NewCritic(llm schemas.LLMClient, logger *zap.Logger) *Critic {
	return &Critic{llm: llm, logger: logger.Named("critic")}
}

// CritiqueRequest carries the critic's view of one iteration.
type CritiqueRequest struct {
	Query           string
	CurrentStep     string
	OriginalPlan    string
	ToolResponse    string
	CurrentURL      string
	AtMaxIterations bool
	History         []schemas.Message
}

// Review evaluates the iteration. The returned messages are the new turns
// to append to the critic's history.
func (c *Critic) Review(ctx context.Context, req CritiqueRequest) (schemas.TerminationDecision, []schemas.Message, schemas.TokenUsage, error) {
	prompt := buildCritiquePrompt(req)

	gen, err := c.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: criticSystemPrompt,
		UserPrompt:   prompt,
		History:      req.History,
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			Temperature:     0.3,
			ForceJSONFormat: true,
		},
	})
	if err != nil {
		return schemas.TerminationDecision{}, nil, schemas.TokenUsage{}, fmt.Errorf("critique generation failed: %w", err)
	}

	var decision schemas.TerminationDecision
	if err := decodeModelJSON(gen.Text, &decision); err != nil {
		return schemas.TerminationDecision{}, nil, gen.Usage, fmt.Errorf("critic returned malformed output: %w", err)
	}

	c.logger.Info("Critique produced",
		zap.Bool("terminate", decision.Terminate),
		zap.String("feedback", decision.Feedback),
	)

	newMessages := []schemas.Message{
		{Role: "user", Content: prompt},
		{Role: "model", Content: gen.Text},
	}
	return decision, newMessages, gen.Usage, nil
}

func buildCritiquePrompt(req CritiqueRequest) string {
	return fmt.Sprintf(
		"User Query: %s\n\nCurrent Step: %s\n\nOriginal Plan: %s\n\nTool Response: %s\n\nCurrent URL: %s\n\nAt Max Iterations: %t",
		req.Query, req.CurrentStep, req.OriginalPlan, req.ToolResponse, req.CurrentURL, req.AtMaxIterations,
	)
}
