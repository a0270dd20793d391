package xcontent

import "errors"

var (
	ErrClosed           = errors.New("xcontent: builder is closed")
	ErrNoOpenObject     = errors.New("xcontent: no open object to end")
	ErrMaxDepth         = errors.New("xcontent: maximum nesting depth exceeded")
	ErrUnbalanced       = errors.New("xcontent: objects left open")
	ErrEmptyName        = errors.New("xcontent: field name must not be empty")
	ErrUnsupportedValue = errors.New("xcontent: unsupported value type")
)
