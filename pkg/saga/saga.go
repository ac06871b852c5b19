package saga

import (
	"context"
	"errors"
	"fmt"

	"cardetail/pkg/logger"
)

// Step is one unit of a saga. Compensate undoes Execute and may be nil for
// steps with nothing to undo (reads, the final step).
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

func NewStep(name string, execute, compensate func(ctx context.Context) error) Step {
	return Step{
		Name:       name,
		Execute:    execute,
		Compensate: compensate,
	}
}

// StepError reports the step that failed and any compensation failures.
type StepError struct {
	Flow               string
	Step               string
	Err                error
	CompensationErrors []error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %s step failed: %v", e.Flow, e.Step, e.Err)
	if len(e.CompensationErrors) > 0 {
		msg += fmt.Sprintf(" (compensation errors: %v)", errors.Join(e.CompensationErrors...))
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Saga struct {
	name  string
	steps []Step
	log   *logger.Logger
}

func New(name string, log *logger.Logger) *Saga {
	if log == nil {
		log = logger.Discard()
	}
	return &Saga{name: name, log: log}
}

func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

func (s *Saga) Then(name string, execute, compensate func(ctx context.Context) error) *Saga {
	return s.AddStep(NewStep(name, execute, compensate))
}

// Run executes the steps in order. When step N fails, compensations for
// steps N-1..1 run in reverse on a context that ignores the caller's
// cancellation. The returned error wraps the failing step's error.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.rollback(ctx, i, step.Name, err)
		}
		if err := step.Execute(ctx); err != nil {
			return s.rollback(ctx, i, step.Name, err)
		}
	}
	return nil
}

func (s *Saga) rollback(ctx context.Context, failedAt int, stepName string, cause error) error {
	stepErr := &StepError{Flow: s.name, Step: stepName, Err: cause}

	s.log.Warn("Saga step failed, compensating",
		"flow", s.name,
		"step", stepName,
		"error", cause,
	)

	undoCtx := context.WithoutCancel(ctx)
	for i := failedAt - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(undoCtx); err != nil {
			s.log.Error("Saga compensation failed",
				"flow", s.name,
				"step", step.Name,
				"error", err,
			)
			stepErr.CompensationErrors = append(stepErr.CompensationErrors, fmt.Errorf("%s: %w", step.Name, err))
		}
	}

	return stepErr
}
