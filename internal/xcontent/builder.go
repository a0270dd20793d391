// Package xcontent provides ordered structured-document builders. Fields are
// emitted in exactly the order they are written, which is what the event
// envelope relies on.
package xcontent

import "time"

// DateFormat is the layout used for time values in every document format.
const DateFormat = "2006-01-02T15:04:05.000Z"

// MaxDepth limits object nesting, root included.
const MaxDepth = 16

// Builder is a generic structured-document writer. Implementations are not
// safe for concurrent use; use one builder per document.
type Builder interface {
	// StartObject opens a nested object under the given field name.
	StartObject(name string) error
	// EndObject closes the innermost nested object.
	EndObject() error
	// Field writes a single name/value pair into the innermost open object.
	Field(name string, value any) error
}

// DocumentBuilder is a Builder that owns a whole document. The root object is
// opened on construction and closed by Close; Bytes is valid after Close.
type DocumentBuilder interface {
	Builder
	Close() error
	Bytes() []byte
}

// FormatTime renders t in DateFormat, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// FormatMillis renders a millisecond epoch timestamp in DateFormat.
func FormatMillis(ms int64) string {
	return FormatTime(time.UnixMilli(ms))
}
