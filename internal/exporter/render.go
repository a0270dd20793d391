package exporter

import (
	"fmt"
	"time"

	"github.com/sakuffo/sakwatch/internal/event"
	"github.com/sakuffo/sakwatch/internal/xcontent"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown document format %q", s)
	}
}

// NewBuilder returns an empty document builder for f.
func NewBuilder(f Format) xcontent.DocumentBuilder {
	if f == FormatYAML {
		return xcontent.NewYAML()
	}
	return xcontent.NewJSON()
}

// Renderer turns events into complete documents. A document starts with a
// header (@timestamp, cluster_name, message and, when set, source_node)
// followed by the event body.
type Renderer struct {
	Format     Format
	SourceNode event.Node
}

// Render returns the encoded document for ev.
func (r Renderer) Render(ev event.Event) ([]byte, error) {
	b := NewBuilder(r.Format)
	if err := r.writeHeader(b, ev); err != nil {
		return nil, fmt.Errorf("render %s header: %w", ev.Type(), err)
	}
	if err := event.WriteBody(ev, b); err != nil {
		return nil, fmt.Errorf("render %s body: %w", ev.Type(), err)
	}
	if err := b.Close(); err != nil {
		return nil, fmt.Errorf("render %s: %w", ev.Type(), err)
	}
	return b.Bytes(), nil
}

func (r Renderer) writeHeader(b xcontent.Builder, ev event.Event) error {
	if err := b.Field("@timestamp", xcontent.FormatMillis(ev.Timestamp())); err != nil {
		return err
	}
	if err := b.Field("cluster_name", ev.ClusterName()); err != nil {
		return err
	}
	if err := b.Field("message", ev.ConciseDescription()); err != nil {
		return err
	}
	if r.SourceNode == nil {
		return nil
	}
	if err := b.StartObject("source_node"); err != nil {
		return err
	}
	if err := r.SourceNode.RenderXContent(b); err != nil {
		return err
	}
	return b.EndObject()
}

// IndexName returns the daily index "<prefix>-YYYY.MM.DD" for a ms timestamp.
func IndexName(prefix string, ms int64) string {
	return prefix + "-" + time.UnixMilli(ms).UTC().Format("2006.01.02")
}
