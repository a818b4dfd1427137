// Package orchestrator drives the multi-step transaction flows: one state
// machine per user intent, strictly sequential within an action, with every
// failure mapped to the user-facing error taxonomy before it escapes.
package orchestrator

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cipherdex/internal/model"
)

// Step is the externally visible progress of one action. The caller renders
// it between suspension points; it never moves backwards except via Reset.
type Step string

const (
	StepIdle       Step = "idle"
	StepChecking   Step = "checking"
	StepWrapping   Step = "wrapping"
	StepApproving  Step = "approving"
	StepEncrypting Step = "encrypting"
	StepSubmitting Step = "submitting"
	StepComplete   Step = "complete"
	StepError      Step = "error"
)

// legalNext is the transition relation shared by every operation kind.
// Individual operations skip steps (a claim never encrypts) but can never
// reorder them: each row only reaches steps strictly later in the flow.
var legalNext = map[Step][]Step{
	StepIdle:       {StepChecking},
	StepChecking:   {StepWrapping, StepApproving, StepEncrypting, StepSubmitting},
	StepWrapping:   {StepApproving, StepEncrypting, StepSubmitting},
	StepApproving:  {StepEncrypting, StepSubmitting},
	StepEncrypting: {StepSubmitting},
	StepSubmitting: {StepComplete},
	StepComplete:   {},
	StepError:      {},
}

// machine owns the step state of one orchestrator instance. A single logical
// thread drives it; the mutex only guards concurrent Step reads from the
// rendering side.
type machine struct {
	kind   string
	logger *zap.Logger

	mu      sync.RWMutex
	step    Step
	lastErr *model.TxError
}

func newMachine(kind string, logger *zap.Logger) *machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &machine{kind: kind, logger: logger, step: StepIdle}
}

// Step returns the current step.
func (m *machine) Step() Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.step
}

// Err returns the terminal error, if the machine is in StepError.
func (m *machine) Err() *model.TxError {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Reset returns a finished or failed machine to idle for the next action.
func (m *machine) Reset() {
	m.mu.Lock()
	m.step = StepIdle
	m.lastErr = nil
	m.mu.Unlock()
}

// to advances to next, rejecting transitions outside the legal relation.
// An illegal transition is a bug in the orchestrator, not a runtime
// condition, so it fails loudly instead of being absorbed.
func (m *machine) to(next Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range legalNext[m.step] {
		if allowed == next {
			m.logger.Debug("step",
				zap.String("op", m.kind),
				zap.String("from", string(m.step)),
				zap.String("to", string(next)))
			m.step = next
			return nil
		}
	}
	return fmt.Errorf("illegal %s transition %s -> %s", m.kind, m.step, next)
}

// fail moves to the terminal error state carrying the classified error.
func (m *machine) fail(err *model.TxError) *model.TxError {
	m.mu.Lock()
	m.step = StepError
	m.lastErr = err
	m.mu.Unlock()
	m.logger.Warn("operation failed",
		zap.String("op", m.kind),
		zap.String("kind", string(err.Kind)),
		zap.String("message", err.Message))
	return err
}
