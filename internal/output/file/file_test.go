package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sakuffo/sakwatch/internal/output"
)

func testDoc(i int) output.Document {
	return output.Document{
		ID:     fmt.Sprintf("doc-%d", i),
		Source: []byte(fmt.Sprintf(`{"type":"node_event","seq":%d}`, i)),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestWriteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	o, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := o.Write(context.Background(), testDoc(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		var v map[string]any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if v["seq"] != float64(i) {
			t.Errorf("line %d seq = %v", i, v["seq"])
		}
	}
}

func TestAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	if err := os.WriteFile(path, []byte("{\"old\":true}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	o, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	o.Write(context.Background(), testDoc(1))
	o.Close()

	if lines := readLines(t, path); len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	line := len(testDoc(0).Source) + 1
	o, err := New(path, WithMaxSize(int64(2*line)))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := o.Write(context.Background(), testDoc(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	if got := readLines(t, path); len(got) != 1 {
		t.Errorf("current file has %d lines, want 1", len(got))
	}
	if got := readLines(t, path+".1"); len(got) != 2 {
		t.Errorf("%s.1 has %d lines, want 2", path, len(got))
	}
	if got := readLines(t, path+".2"); len(got) != 2 {
		t.Errorf("%s.2 has %d lines, want 2", path, len(got))
	}
}

func TestFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	o, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()

	o.Write(context.Background(), testDoc(0))
	if err := o.Flush(); err != nil {
		t.Fatal(err)
	}
	if lines := readLines(t, path); len(lines) != 1 {
		t.Errorf("got %d lines after flush, want 1", len(lines))
	}
}

func TestNewInvalidPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "events.ndjson")); err == nil {
		t.Error("expected error for missing directory")
	}
}
