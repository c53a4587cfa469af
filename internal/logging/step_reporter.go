package logging

import (
	"sync"
	"time"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// StepReporter reports pipeline progress as log lines. It is used when the
// interactive progress view is unavailable.
type StepReporter struct {
	logger pgjson.Logger
	now    func() time.Time

	mu      sync.Mutex
	started map[pgjson.Step]time.Time
}

func NewStepReporter(logger pgjson.Logger) *StepReporter {
	return &StepReporter{
		logger:  logger,
		now:     time.Now,
		started: make(map[pgjson.Step]time.Time),
	}
}

func (r *StepReporter) StepStarted(step pgjson.Step) {
	r.mu.Lock()
	r.started[step] = r.now()
	r.mu.Unlock()
	r.logger.Verbose("-> %s", step)
}

func (r *StepReporter) StepCompleted(step pgjson.Step, detail string) {
	elapsed := r.elapsed(step)
	if detail == "" {
		r.logger.Info("✓ %s (%v)", step, elapsed)
		return
	}
	r.logger.Info("✓ %s: %s (%v)", step, detail, elapsed)
}

func (r *StepReporter) StepFailed(step pgjson.Step, err error) {
	r.logger.Error("✗ %s failed after %v: %v", step, r.elapsed(step), err)
}

func (r *StepReporter) elapsed(step pgjson.Step) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	start, ok := r.started[step]
	if !ok {
		return 0
	}
	return r.now().Sub(start).Round(time.Millisecond)
}

// NullReporter discards progress.
type NullReporter struct{}

func (NullReporter) StepStarted(pgjson.Step)           {}
func (NullReporter) StepCompleted(pgjson.Step, string) {}
func (NullReporter) StepFailed(pgjson.Step, error)     {}
