package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sakuffo/sakwatch/internal/output"
	"github.com/sakuffo/sakwatch/internal/xcontent"
)

// Output writes documents to stdout, either as NDJSON or as one
// human-readable line per event.
type Output struct {
	mu   sync.Mutex
	w    io.Writer
	text bool
}

// New creates a stdout Output. With text set, each event is printed as
// "<timestamp> [<cluster>] <description>".
func New(text bool) *Output {
	return NewWriter(os.Stdout, text)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, text bool) *Output {
	return &Output{w: w, text: text}
}

func (o *Output) Write(_ context.Context, doc output.Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	if o.text {
		_, err = fmt.Fprintf(o.w, "%s [%s] %s\n",
			xcontent.FormatMillis(doc.Timestamp), doc.ClusterName, doc.Description)
	} else {
		_, err = o.w.Write(output.Line(doc))
	}
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
