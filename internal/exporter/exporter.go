// Package exporter renders cluster events into documents and hands them to
// an output.
package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakuffo/sakwatch/internal/event"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/output"
)

const (
	defaultIndexPrefix   = "sakwatch"
	defaultHandleTimeout = 30 * time.Second
)

// Option configures an Exporter.
type Option func(*Exporter)

// WithSourceNode attaches the identity of the exporting node to every document.
func WithSourceNode(n event.Node) Option {
	return func(e *Exporter) { e.renderer.SourceNode = n }
}

// WithIndexPrefix sets the daily index prefix. Default: "sakwatch".
func WithIndexPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.indexPrefix = prefix
		}
	}
}

// Exporter converts events to JSON documents and writes them to an output.
// Failed writes are reported, never retried.
type Exporter struct {
	out         output.Output
	renderer    Renderer
	indexPrefix string
	logger      logger.Logger
}

// New creates an exporter writing to out.
func New(out output.Output, log logger.Logger, opts ...Option) *Exporter {
	e := &Exporter{
		out:         out,
		renderer:    Renderer{Format: FormatJSON},
		indexPrefix: defaultIndexPrefix,
		logger:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document renders ev into a document with a fresh ID.
func (e *Exporter) Document(ev event.Event) (output.Document, error) {
	src, err := e.renderer.Render(ev)
	if err != nil {
		return output.Document{}, err
	}
	doc := output.Document{
		ID:          uuid.NewString(),
		Index:       IndexName(e.indexPrefix, ev.Timestamp()),
		Type:        ev.Type(),
		Timestamp:   ev.Timestamp(),
		ClusterName: ev.ClusterName(),
		Description: ev.ConciseDescription(),
		Source:      src,
	}
	if ne, ok := ev.(event.NodeEventer); ok {
		doc.Kind = ne.Kind()
	}
	return doc, nil
}

// Export renders ev and writes it to the output.
func (e *Exporter) Export(ctx context.Context, ev event.Event) error {
	doc, err := e.Document(ev)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := e.out.Write(ctx, doc); err != nil {
		return fmt.Errorf("export %s to %s: %w", doc.ID, doc.Index, err)
	}
	e.logger.Debug("Exported %s: %s", doc.ID, doc.Description)
	return nil
}

// Handle exports ev and logs any failure. It has the shape of a cluster
// event subscriber.
func (e *Exporter) Handle(ev event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHandleTimeout)
	defer cancel()
	if err := e.Export(ctx, ev); err != nil {
		e.logger.Error("Failed to export event %q: %v", ev.ConciseDescription(), err)
	}
}

// Close closes the output.
func (e *Exporter) Close() error {
	return e.out.Close()
}
