package recovery

import "fmt"

// ActionType is a recovery option offered after a classified failure.
type ActionType string

const (
	ActionRetry    ActionType = "retry"
	ActionReset    ActionType = "reset"
	ActionFallback ActionType = "fallback"
	ActionDismiss  ActionType = "dismiss"
)

// Action is a user-triggerable recovery. Run may itself fail.
type Action struct {
	Type  ActionType   `json:"type"`
	Label string       `json:"label"`
	Run   func() error `json:"-"`
}

// Callbacks are the recovery hooks a call site may provide.
type Callbacks struct {
	OnRetry    func() error
	OnReset    func() error
	OnFallback func() error
}

// GenerateActions derives the ordered recovery actions for err: retry, reset
// and fallback when the matching callback is present, otherwise a bare
// dismiss that only clears the error display.
func GenerateActions(err *Error, cb Callbacks) []Action {
	var actions []Action
	if cb.OnRetry != nil {
		actions = append(actions, Action{Type: ActionRetry, Label: "Try again", Run: cb.OnRetry})
	}
	if cb.OnReset != nil {
		label := "Reset"
		if err != nil && err.SectionID != "" {
			label = "Reset section"
		}
		actions = append(actions, Action{Type: ActionReset, Label: label, Run: cb.OnReset})
	}
	if cb.OnFallback != nil {
		actions = append(actions, Action{Type: ActionFallback, Label: "Use fallback", Run: cb.OnFallback})
	}
	if len(actions) == 0 {
		actions = append(actions, Action{Type: ActionDismiss, Label: "Dismiss", Run: func() error { return nil }})
	}
	return actions
}

// run invokes a, turning a panic into an error.
func run(a Action) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s action panicked: %v", a.Type, rec)
		}
	}()
	if a.Run == nil {
		return nil
	}
	return a.Run()
}
