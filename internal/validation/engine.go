// Package validation checks a section draft against the field rules of its
// type. It is pure and total: every call returns a fresh list and never panics.
package validation

import (
	"fmt"
	"strings"
	"sync"

	"pagebuilder/internal/domain"
)

// Error is one field-level problem in a section draft. Field uses the same
// dotted path accepted by the editor ("hero.buttonUrl"), or "content".
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the result of one validation pass.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// For returns the messages reported for a single field.
func (e Errors) For(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

// Rule inspects one section and reports problems into r.
type Rule func(s domain.Section, r *Report)

// Report collects errors for one pass.
type Report struct {
	prefix string
	errs   Errors
}

func (r *Report) Add(field, message string) {
	r.errs = append(r.errs, Error{Field: r.path(field), Message: message})
}

func (r *Report) Addf(field, format string, args ...any) {
	r.Add(field, fmt.Sprintf(format, args...))
}

// AddContent reports a problem with the section's content payload.
func (r *Report) AddContent(message string) {
	r.errs = append(r.errs, Error{Field: "content", Message: message})
}

func (r *Report) path(field string) string {
	if r.prefix == "" {
		return field
	}
	return r.prefix + "." + field
}

// Engine maps section types to their rules.
type Engine struct {
	mu    sync.RWMutex
	rules map[domain.SectionType][]Rule
}

// NewEngine returns an engine with no rules; unknown types always pass.
func NewEngine() *Engine {
	return &Engine{rules: make(map[domain.SectionType][]Rule)}
}

// Register appends a rule for t.
func (e *Engine) Register(t domain.SectionType, rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[t] = append(e.rules[t], rule)
}

// Validate runs every rule registered for the section's type. A panicking
// rule is reported as a single generic error instead of propagating.
func (e *Engine) Validate(s domain.Section) (errs Errors) {
	e.mu.RLock()
	rules := e.rules[s.Type]
	e.mu.RUnlock()
	if len(rules) == 0 {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			errs = Errors{{Field: "section", Message: fmt.Sprintf("validation failed: %v", rec)}}
		}
	}()

	r := &Report{prefix: string(s.Type)}
	for _, rule := range rules {
		rule(s, r)
	}
	return r.errs
}

var defaultEngine = newDefaultEngine()

// Default returns the engine preloaded with the built-in section rules.
func Default() *Engine {
	return defaultEngine
}

// Validate checks s with the built-in rules.
func Validate(s domain.Section) Errors {
	return defaultEngine.Validate(s)
}

func newDefaultEngine() *Engine {
	e := NewEngine()
	for t, rule := range builtinRules {
		e.Register(t, rule)
	}
	return e
}
