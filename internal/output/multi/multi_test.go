package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/sakuffo/sakwatch/internal/output"
)

type mockOutput struct {
	docs     []output.Document
	writeErr error
	closeErr error
	closed   bool
}

func (m *mockOutput) Write(_ context.Context, doc output.Document) error {
	m.docs = append(m.docs, doc)
	return m.writeErr
}

func (m *mockOutput) Close() error {
	m.closed = true
	return m.closeErr
}

func TestFanOut(t *testing.T) {
	a, b := &mockOutput{}, &mockOutput{}
	m := New(a, b)

	if err := m.Write(context.Background(), output.Document{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	if len(a.docs) != 1 || len(b.docs) != 1 {
		t.Errorf("deliveries = (%d, %d), want (1, 1)", len(a.docs), len(b.docs))
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestErrorDoesNotStopDelivery(t *testing.T) {
	errA := errors.New("a failed")
	a := &mockOutput{writeErr: errA}
	b := &mockOutput{}
	m := New(a, b)

	err := m.Write(context.Background(), output.Document{ID: "1"})
	if !errors.Is(err, errA) {
		t.Errorf("Write error = %v, want %v", err, errA)
	}
	if len(b.docs) != 1 {
		t.Error("second output did not receive the document")
	}
}

func TestCloseAll(t *testing.T) {
	errB := errors.New("b close failed")
	a, b := &mockOutput{}, &mockOutput{closeErr: errB}
	m := New(a, b)

	if err := m.Close(); !errors.Is(err, errB) {
		t.Errorf("Close error = %v, want %v", err, errB)
	}
	if !a.closed || !b.closed {
		t.Error("not every output was closed")
	}
}

func TestEmpty(t *testing.T) {
	m := New()
	if err := m.Write(context.Background(), output.Document{}); err != nil {
		t.Errorf("Write on empty Multi = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close on empty Multi = %v", err)
	}
}
