// Package output defines the destinations exported event documents are
// written to.
package output

import (
	"bytes"
	"context"
)

// Document is a rendered event ready for storage.
type Document struct {
	ID          string
	Index       string // daily index name, e.g. sakwatch-2026.10.19
	Type        string // top-level event type
	Kind        string // variant within the type, empty when the type has none
	Timestamp   int64  // ms since epoch
	ClusterName string
	Description string
	Source      []byte // JSON document body
}

// Output defines the interface for document destinations.
type Output interface {
	Write(ctx context.Context, doc Document) error
	Close() error
}

// JSONArray joins the sources of docs into a single JSON array.
func JSONArray(docs []Document) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(d.Source)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// Line returns the document source followed by a newline, without touching
// the backing array of doc.Source.
func Line(doc Document) []byte {
	line := make([]byte, 0, len(doc.Source)+1)
	line = append(line, doc.Source...)
	return append(line, '\n')
}
