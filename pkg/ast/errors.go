package ast

import (
	"errors"
	"fmt"
)

// Error kinds. A *ClassError wraps exactly one of these, so callers test
// with errors.Is.
var (
	ErrUnresolvedParent     = errors.New("unresolved parent")
	ErrMissingPrimaryImpl   = errors.New("missing primary impl")
	ErrUnsupportedLayout    = errors.New("unsupported layout")
	ErrMalformedInput       = errors.New("malformed input")
	ErrInheritanceCycle     = errors.New("inheritance cycle")
	ErrConflictingOperation = errors.New("conflicting operation")
)

// ClassError reports a fatal problem with one class declaration.
type ClassError struct {
	Kind   error
	Class  string
	Parent string // set for ErrUnresolvedParent and ErrInheritanceCycle
	Pos    Location
	Detail string
}

func (e *ClassError) Error() string {
	var prefix string
	if e.Pos.File != "" {
		prefix = fmt.Sprintf("%s:%d:%d: ", e.Pos.File, e.Pos.Line, e.Pos.Col)
	}
	msg := fmt.Sprintf("%sclass %s: %v", prefix, e.Class, e.Kind)
	if e.Parent != "" {
		msg += fmt.Sprintf(" %s", e.Parent)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ClassError) Unwrap() error {
	return e.Kind
}

// NewClassError builds a ClassError positioned at the class declaration.
func NewClassError(kind error, class *Class, format string, args ...any) *ClassError {
	e := &ClassError{Kind: kind}
	if class != nil {
		e.Class = class.Name
		e.Pos = class.Location
	}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}
