package xcontent

import (
	"errors"
	"math"
	"testing"
)

func TestYAMLBuilderFieldOrder(t *testing.T) {
	b := NewYAML()
	if err := b.Field("type", "node_event"); err != nil {
		t.Fatal(err)
	}
	if err := b.Field("flag", "true"); err != nil {
		t.Fatal(err)
	}
	if err := b.StartObject("node"); err != nil {
		t.Fatal(err)
	}
	if err := b.Field("port", 9300); err != nil {
		t.Fatal(err)
	}
	if err := b.EndObject(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	want := "type: node_event\nflag: \"true\"\nnode:\n    port: 9300\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("document =\n%s\nwant\n%s", got, want)
	}
}

func TestYAMLBuilderBytesBeforeClose(t *testing.T) {
	b := NewYAML()
	b.Field("a", 1)
	if got := b.Bytes(); len(got) != 0 {
		t.Errorf("Bytes before Close = %q, want empty", got)
	}
}

func TestYAMLBuilderErrors(t *testing.T) {
	b := NewYAML()
	if err := b.EndObject(); !errors.Is(err, ErrNoOpenObject) {
		t.Errorf("EndObject on root = %v, want %v", err, ErrNoOpenObject)
	}
	if err := b.Field("f", math.Inf(1)); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("Field(Inf) = %v, want %v", err, ErrUnsupportedValue)
	}
	if err := b.StartObject("open"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); !errors.Is(err, ErrUnbalanced) {
		t.Errorf("Close with open object = %v, want %v", err, ErrUnbalanced)
	}
	b.EndObject()
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.StartObject("late"); !errors.Is(err, ErrClosed) {
		t.Errorf("StartObject after Close = %v, want %v", err, ErrClosed)
	}
}
