// Package api exposes the workflow control surface over HTTP: manual
// triggers, stop requests, progress snapshots, publish history, and the
// next scheduled run.
package api

import (
	"sync"

	"video-autopilot/internal/pipeline"
)

// StepState is one row of the progress snapshot.
type StepState struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
	Status  string `json:"status"`
}

// Tracker holds the latest progress report per pipeline step. Its Update
// method is the ProgressFunc injected into the runner; reads come from the
// status endpoint on other goroutines.
type Tracker struct {
	mu    sync.Mutex
	steps map[pipeline.Step]StepState
}

// NewTracker returns a Tracker with every step Pending at 0%.
func NewTracker() *Tracker {
	t := &Tracker{steps: make(map[pipeline.Step]StepState)}
	t.Reset()
	return t
}

// Reset returns every step to Pending. Called at the start of a run so a
// status snapshot never mixes two runs.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range pipeline.Steps() {
		t.steps[s] = StepState{Name: s.String(), Status: string(pipeline.StatusPending)}
	}
}

// Update records a progress transition. Satisfies pipeline.ProgressFunc.
func (t *Tracker) Update(step pipeline.Step, percent int, status pipeline.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps[step] = StepState{Name: step.String(), Percent: percent, Status: string(status)}
}

// Snapshot returns the per-step states in execution order.
func (t *Tracker) Snapshot() []StepState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StepState, 0, len(t.steps))
	for _, s := range pipeline.Steps() {
		out = append(out, t.steps[s])
	}
	return out
}
