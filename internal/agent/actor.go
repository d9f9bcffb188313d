// internal/agent/actor.go
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
	"github.com/CharbelDaher34/jarvis/internal/resilience"
)

// Actor executes one planned step through a bounded inner loop of tool
// calls. Runs on the fast model tier.
type Actor struct {
	llm          schemas.LLMClient
	tools        *Toolbox
	logger       *zap.Logger
	maxToolCalls int
}

// NewActor creates the acting role. maxToolCalls bounds the inner loop per
// step.
func NewActor(llm schemas.LLMClient, tools *Toolbox, maxToolCalls int, logger *zap.Logger) *Actor {
	if maxToolCalls < 1 {
		maxToolCalls = 1
	}
	return &Actor{
		llm:          llm,
		tools:        tools,
		logger:       logger.Named("actor"),
		maxToolCalls: maxToolCalls,
	}
}

// Execute runs the step to completion or until the tool call budget is
// spent. Tool failures are folded into the report for the critic to judge;
// only security violations abort the run.
func (a *Actor) Execute(ctx context.Context, plan, step string, history []schemas.Message) (string, []schemas.Message, schemas.TokenUsage, error) {
	var usage schemas.TokenUsage

	prompt := fmt.Sprintf("Plan: %s\n\nCurrent Step: %s\n\nExecute the current step using available tools.", plan, step)
	newMessages := []schemas.Message{{Role: "user", Content: prompt}}
	lastResult := "no tool was executed"

	for i := 0; i < a.maxToolCalls; i++ {
		turns := make([]schemas.Message, 0, len(history)+len(newMessages)-1)
		turns = append(turns, history...)
		turns = append(turns, newMessages[:len(newMessages)-1]...)

		gen, err := a.llm.Generate(ctx, schemas.GenerationRequest{
			SystemPrompt: actorSystemPrompt,
			UserPrompt:   prompt,
			History:      turns,
			Tier:         schemas.TierFast,
			Options: schemas.GenerationOptions{
				Temperature:     0.2,
				ForceJSONFormat: true,
			},
		})
		if err != nil {
			return "", nil, usage, fmt.Errorf("actor generation failed: %w", err)
		}
		usage.Add(gen.Usage)
		newMessages = append(newMessages, schemas.Message{Role: "model", Content: gen.Text})

		var call ToolCall
		if err := decodeModelJSON(gen.Text, &call); err != nil {
			a.logger.Warn("Actor produced malformed tool call", zap.Error(err))
			prompt = "Your previous response was not valid JSON. Respond with exactly one tool call object."
			newMessages = append(newMessages, schemas.Message{Role: "user", Content: prompt})
			continue
		}

		if call.Done {
			report := call.Summary
			if report == "" {
				report = "Step completed. Last tool result: " + lastResult
			}
			a.logger.Info("Step finished", zap.String("report", report))
			return report, newMessages, usage, nil
		}

		result, err := a.tools.Invoke(ctx, call)
		if err != nil {
			if resilience.KindOf(err) == resilience.KindSecurity {
				return "", newMessages, usage, err
			}
			result = fmt.Sprintf("Tool %s failed: %v", call.Tool, err)
			a.logger.Warn("Tool execution failed", zap.String("tool", call.Tool), zap.Error(err))
		}

		lastResult = result
		prompt = "Tool result: " + result
		newMessages = append(newMessages, schemas.Message{Role: "user", Content: prompt})
	}

	report := fmt.Sprintf("Tool call budget (%d) exhausted before the step finished. Last tool result: %s",
		a.maxToolCalls, lastResult)
	a.logger.Warn("Tool call budget exhausted", zap.Int("budget", a.maxToolCalls))
	return report, newMessages, usage, nil
}
