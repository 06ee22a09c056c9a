package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// Transaction runs steps in order and, when one fails, runs the
// compensations of the steps that already succeeded in reverse order.
type Transaction struct {
	steps  []Step
	logger *slog.Logger
}

type Step struct {
	Name       string
	Fn         func(context.Context) error
	Compensate func(context.Context) error
}

func NewTransaction(logger *slog.Logger) *Transaction {
	return &Transaction{logger: logger}
}

// AddStep registers a step. compensate may be nil.
func (t *Transaction) AddStep(name string, fn, compensate func(context.Context) error) {
	t.steps = append(t.steps, Step{Name: name, Fn: fn, Compensate: compensate})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, step := range t.steps {
		if err := step.Fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("step '%s' failed: %w (rolled back %d steps)", step.Name, err, i)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAt int) {
	for i := failedAt - 1; i >= 0; i-- {
		step := t.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			t.logger.WarnContext(ctx, "compensation failed",
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)
		}
	}
}
