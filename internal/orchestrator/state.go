// File: internal/orchestrator/state.go
// Description: Per-run mutable record shared across the plan/act/critique
// loop. Owned exclusively by the Orchestrator; histories are append-only and
// usage counters are additive for the lifetime of one run.

package orchestrator

import (
	"github.com/CharbelDaher34/jarvis/api/schemas"
)

// State tracks one task run.
type State struct {
	iteration    int
	terminated   bool
	currentPlan  string
	lastFeedback string
	missingInfo  string
	histories    map[schemas.Role][]schemas.Message
	usage        map[schemas.Role]*schemas.TokenUsage
}

// NewState creates an empty run record with a history and usage slot for
// every role.
func NewState() *State {
	s := &State{
		histories: make(map[schemas.Role][]schemas.Message),
		usage:     make(map[schemas.Role]*schemas.TokenUsage),
	}
	for _, role := range schemas.Roles() {
		s.histories[role] = nil
		s.usage[role] = &schemas.TokenUsage{}
	}
	return s
}

// Iteration returns the current iteration count. It only ever increases.
func (s *State) Iteration() int { return s.iteration }

// Terminated reports whether the run reached a clean termination decision.
func (s *State) Terminated() bool { return s.terminated }

// CurrentPlan returns the standing plan recorded on the first iteration.
func (s *State) CurrentPlan() string { return s.currentPlan }

// History returns the recorded turns for one role.
func (s *State) History(role schemas.Role) []schemas.Message {
	return s.histories[role]
}

// AppendHistory adds new turns to a role's history.
func (s *State) AppendHistory(role schemas.Role, msgs ...schemas.Message) {
	s.histories[role] = append(s.histories[role], msgs...)
}

// AddUsage accumulates token usage for one role.
func (s *State) AddUsage(role schemas.Role, u schemas.TokenUsage) {
	s.usage[role].Add(u)
}

// UsageSnapshot returns a copy of the per-role usage counters.
func (s *State) UsageSnapshot() map[schemas.Role]schemas.TokenUsage {
	out := make(map[schemas.Role]schemas.TokenUsage, len(s.usage))
	for role, u := range s.usage {
		out[role] = *u
	}
	return out
}

// TotalUsage sums usage across all roles.
func (s *State) TotalUsage() schemas.TokenUsage {
	var total schemas.TokenUsage
	for _, u := range s.usage {
		total.Add(*u)
	}
	return total
}
