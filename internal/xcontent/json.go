package xcontent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// JSONBuilder writes a compact JSON object with fields in write order.
type JSONBuilder struct {
	buf    bytes.Buffer
	first  []bool // per open object: no field written yet
	closed bool
}

// NewJSON creates a JSON document builder with the root object already open.
func NewJSON() *JSONBuilder {
	b := &JSONBuilder{}
	b.buf.WriteByte('{')
	b.first = append(b.first, true)
	return b
}

func (b *JSONBuilder) StartObject(name string) error {
	if err := b.check(name); err != nil {
		return err
	}
	if len(b.first)+1 > MaxDepth {
		return fmt.Errorf("%w: object %q at depth %d", ErrMaxDepth, name, len(b.first)+1)
	}
	if err := b.writeKey(name); err != nil {
		return err
	}
	b.buf.WriteByte('{')
	b.first = append(b.first, true)
	return nil
}

func (b *JSONBuilder) EndObject() error {
	if b.closed {
		return ErrClosed
	}
	if len(b.first) <= 1 {
		return ErrNoOpenObject
	}
	b.buf.WriteByte('}')
	b.first = b.first[:len(b.first)-1]
	return nil
}

func (b *JSONBuilder) Field(name string, value any) error {
	if err := b.check(name); err != nil {
		return err
	}
	encoded, err := encodeJSON(value)
	if err != nil {
		return fmt.Errorf("xcontent: field %q: %w", name, err)
	}
	if err := b.writeKey(name); err != nil {
		return err
	}
	b.buf.Write(encoded)
	return nil
}

// Close ends the root object. Any nested object still open is an error.
func (b *JSONBuilder) Close() error {
	if b.closed {
		return ErrClosed
	}
	if len(b.first) != 1 {
		return fmt.Errorf("%w: %d nested", ErrUnbalanced, len(b.first)-1)
	}
	b.buf.WriteByte('}')
	b.first = nil
	b.closed = true
	return nil
}

// Bytes returns a copy of the document written so far.
func (b *JSONBuilder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

func (b *JSONBuilder) check(name string) error {
	if b.closed {
		return ErrClosed
	}
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

func (b *JSONBuilder) writeKey(name string) error {
	top := len(b.first) - 1
	if !b.first[top] {
		b.buf.WriteByte(',')
	}
	b.first[top] = false
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	b.buf.Write(key)
	b.buf.WriteByte(':')
	return nil
}

func encodeJSON(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return json.Marshal(v)
	case bool:
		return strconv.AppendBool(nil, v), nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return json.Marshal(v)
	case float64:
		return json.Marshal(v)
	case time.Time:
		return json.Marshal(FormatTime(v))
	case []string:
		if v == nil {
			v = []string{}
		}
		return json.Marshal(v)
	case fmt.Stringer:
		return json.Marshal(v.String())
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}
