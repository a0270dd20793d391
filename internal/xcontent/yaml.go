package xcontent

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLBuilder assembles an ordered yaml.Node mapping and encodes it on Close.
type YAMLBuilder struct {
	root   *yaml.Node
	stack  []*yaml.Node
	out    []byte
	closed bool
}

// NewYAML creates a YAML document builder with the root mapping already open.
func NewYAML() *YAMLBuilder {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	return &YAMLBuilder{
		root:  root,
		stack: []*yaml.Node{root},
	}
}

func (b *YAMLBuilder) StartObject(name string) error {
	if err := b.check(name); err != nil {
		return err
	}
	if len(b.stack)+1 > MaxDepth {
		return fmt.Errorf("%w: object %q at depth %d", ErrMaxDepth, name, len(b.stack)+1)
	}
	obj := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	b.append(name, obj)
	b.stack = append(b.stack, obj)
	return nil
}

func (b *YAMLBuilder) EndObject() error {
	if b.closed {
		return ErrClosed
	}
	if len(b.stack) <= 1 {
		return ErrNoOpenObject
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func (b *YAMLBuilder) Field(name string, value any) error {
	if err := b.check(name); err != nil {
		return err
	}
	node, err := yamlValue(value)
	if err != nil {
		return fmt.Errorf("xcontent: field %q: %w", name, err)
	}
	b.append(name, node)
	return nil
}

// Close ends the root mapping and encodes the document.
func (b *YAMLBuilder) Close() error {
	if b.closed {
		return ErrClosed
	}
	if len(b.stack) != 1 {
		return fmt.Errorf("%w: %d nested", ErrUnbalanced, len(b.stack)-1)
	}
	out, err := yaml.Marshal(b.root)
	if err != nil {
		return fmt.Errorf("xcontent: encode yaml: %w", err)
	}
	b.out = out
	b.stack = nil
	b.closed = true
	return nil
}

// Bytes returns the encoded document, or nil before Close.
func (b *YAMLBuilder) Bytes() []byte {
	return append([]byte(nil), b.out...)
}

func (b *YAMLBuilder) check(name string) error {
	if b.closed {
		return ErrClosed
	}
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

func (b *YAMLBuilder) append(name string, value *yaml.Node) {
	top := b.stack[len(b.stack)-1]
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
	top.Content = append(top.Content, key, value)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlValue(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case string:
		return scalar("!!str", v), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v)), nil
	case int:
		return scalar("!!int", strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return scalar("!!int", strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(v, 10)), nil
	case uint:
		return scalar("!!int", strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return scalar("!!int", strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return scalar("!!int", strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return scalar("!!int", strconv.FormatUint(v, 10)), nil
	case float32:
		return yamlFloat(float64(v))
	case float64:
		return yamlFloat(v)
	case time.Time:
		return scalar("!!str", FormatTime(v)), nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range v {
			seq.Content = append(seq.Content, scalar("!!str", s))
		}
		return seq, nil
	case fmt.Stringer:
		return scalar("!!str", v.String()), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// yamlFloat rejects NaN and infinities so YAML output accepts exactly what
// the JSON builder accepts.
func yamlFloat(f float64) (*yaml.Node, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite float %v", ErrUnsupportedValue, f)
	}
	return scalar("!!float", strconv.FormatFloat(f, 'g', -1, 64)), nil
}
