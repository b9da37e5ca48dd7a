// Package recovery classifies page-builder failures, derives the recovery
// actions offered to the operator, and isolates render failures to the unit
// that produced them.
package recovery

import (
	"errors"
	"fmt"
)

// Kind is the failure taxonomy.
type Kind string

const (
	KindRender     Kind = "render"
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// Error is a classified page-builder failure.
type Error struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	Component   string `json:"component,omitempty"`
	SectionID   string `json:"sectionId,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Cause       error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Component != "" && e.SectionID != "":
		return fmt.Sprintf("%s error in %s (section %s): %s", e.Kind, e.Component, e.SectionID, e.Message)
	case e.Component != "":
		return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Component, e.Message)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Context describes where a failure was caught.
type Context struct {
	Kind      Kind
	Component string
	SectionID string
}

// Classify turns a caught failure (an error, a recovered panic value or a
// message) into a classified Error. Kind defaults to unknown unless ctx
// supplies one; an already classified error keeps its kind and gains any
// missing context.
func Classify(failure any, ctx Context) *Error {
	var prior *Error
	if err, ok := failure.(error); ok && errors.As(err, &prior) {
		out := *prior
		if out.Component == "" {
			out.Component = ctx.Component
		}
		if out.SectionID == "" {
			out.SectionID = ctx.SectionID
		}
		out.Recoverable = !fatal(out.Kind)
		return &out
	}

	kind := ctx.Kind
	if kind == "" {
		kind = KindUnknown
	}
	e := &Error{
		Kind:        kind,
		Component:   ctx.Component,
		SectionID:   ctx.SectionID,
		Recoverable: !fatal(kind),
	}
	switch f := failure.(type) {
	case nil:
		e.Message = "unknown failure"
	case error:
		e.Message = f.Error()
		e.Cause = f
	case string:
		e.Message = f
	case fmt.Stringer:
		e.Message = f.String()
	default:
		e.Message = fmt.Sprintf("%v", f)
	}
	return e
}

// fatal reports whether a kind can not be recovered from. Every
// kind in the taxonomy is recoverable.
func fatal(Kind) bool {
	return false
}
