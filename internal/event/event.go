// Package event models cluster lifecycle events and their document bodies.
//
// Every event body is produced by an ordered list of field writers: the
// envelope writer first, then the writer of the event family, then the
// writer of the concrete variant. WriteBody runs that list against a
// document builder, so base fields always precede derived ones.
package event

import "github.com/sakuffo/sakwatch/internal/xcontent"

// FieldWriter appends one group of fields to an open document.
type FieldWriter func(b xcontent.Builder) error

// Event is an immutable, timestamped fact about the monitored cluster.
type Event interface {
	// Timestamp is the moment the fact was observed, in ms since the epoch.
	Timestamp() int64
	ClusterName() string
	// Type is the top-level discriminator shared by a whole event family.
	Type() string
	ConciseDescription() string
	// Writers returns the body field writers, envelope first.
	Writers() []FieldWriter
}

// WriteBody writes the body of e into b. The first builder error stops the
// write and is returned unchanged.
func WriteBody(e Event, b xcontent.Builder) error {
	for _, w := range e.Writers() {
		if err := w(b); err != nil {
			return err
		}
	}
	return nil
}

type envelope struct {
	timestamp   int64
	clusterName string
}

func (e envelope) Timestamp() int64    { return e.timestamp }
func (e envelope) ClusterName() string { return e.clusterName }

func typeWriter(typ string) FieldWriter {
	return func(b xcontent.Builder) error {
		return b.Field("type", typ)
	}
}
