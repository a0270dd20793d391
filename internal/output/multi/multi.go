package multi

import (
	"context"
	"errors"

	"github.com/sakuffo/sakwatch/internal/output"
)

// Multi is the agent's output when more than one destination is configured.
// A document is offered to every destination in configuration order; one
// failing destination never hides the document from the others.
type Multi struct {
	outputs []output.Output
}

func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Len is the number of destinations.
func (m *Multi) Len() int {
	return len(m.outputs)
}

// Write returns every destination's error joined, or nil.
func (m *Multi) Write(ctx context.Context, doc output.Document) error {
	errs := make([]error, 0, len(m.outputs))
	for _, o := range m.outputs {
		errs = append(errs, o.Write(ctx, doc))
	}
	return errors.Join(errs...)
}

// Close closes every destination, even after a failure.
func (m *Multi) Close() error {
	errs := make([]error, 0, len(m.outputs))
	for _, o := range m.outputs {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}
