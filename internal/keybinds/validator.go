package keybinds

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// Issue severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is a problem found in a set of keybindings
type Issue struct {
	Severity string
	Context  Context
	Key      string
	Message  string
}

func (i Issue) String() string {
	if i.Key == "" {
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Context, i.Message)
	}
	return fmt.Sprintf("[%s] %s '%s': %s", i.Severity, i.Context, i.Key, i.Message)
}

// required lists the actions each view cannot work without. A user file that
// unbinds one of them would leave the planner stuck in that view.
var required = map[Context][]Action{
	ContextGlobal:      {ActionQuitForce},
	ContextNormal:      {ActionQuit, ActionAddChannel, ActionSwitchFocus},
	ContextDwell:       {ActionToggleDwell, ActionSwitchFocus},
	ContextParameters:  {ActionSwitchFocus},
	ContextModelPicker: {ActionSelect, ActionCloseModal},
	ContextSubTubes:    {ActionToggleSubTube, ActionCloseModal},
	ContextRecent:      {ActionSelect, ActionCloseModal},
	ContextHistory:     {ActionCloseModal},
	ContextHelp:        {ActionCloseModal},
	ContextModal:       {ActionCloseModal},
	ContextConfirm:     {ActionConfirm, ActionCancel},
	ContextTextInput:   {ActionTextSubmit, ActionTextCancel},
}

// searchContexts feed printable keys into a text field
var searchContexts = map[Context]bool{
	ContextModelPicker: true,
	ContextTextInput:   true,
}

const forceQuitKey = "ctrl+c"

// Check inspects a registry and returns its issues sorted by context and key.
// Errors make the registry unusable; warnings are worth telling the user about.
func Check(registry *Registry) []Issue {
	var issues []Issue

	for context, actions := range required {
		for _, action := range actions {
			if len(registry.GetBinding(context, action)) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Context:  context,
					Message:  fmt.Sprintf("'%s' has no key", action),
				})
			}
		}
	}

	for context, bindings := range registry.bindings {
		for key, action := range bindings {
			switch {
			case key == forceQuitKey && action != ActionQuitForce:
				issues = append(issues, Issue{
					Severity: SeverityError,
					Context:  context,
					Key:      key,
					Message:  fmt.Sprintf("bound to '%s', force quit must stay on %s", action, forceQuitKey),
				})
			case !IsKnownAction(action):
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Context:  context,
					Key:      key,
					Message:  fmt.Sprintf("unknown action '%s'", action),
				})
			case searchContexts[context] && utf8.RuneCountInString(key) == 1:
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Context:  context,
					Key:      key,
					Message:  fmt.Sprintf("'%s' takes a key that can no longer be typed", action),
				})
			}

			if isSequence(key) {
				first := key[:1]
				if single, ok := bindings[first]; ok && single != ActionGoToTopPrepare {
					issues = append(issues, Issue{
						Severity: SeverityWarning,
						Context:  context,
						Key:      first,
						Message:  fmt.Sprintf("'%s' is unreachable, it starts sequence '%s'", single, key),
					})
				}
			}
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Context != issues[j].Context {
			return issues[i].Context < issues[j].Context
		}
		if issues[i].Key != issues[j].Key {
			return issues[i].Key < issues[j].Key
		}
		return issues[i].Message < issues[j].Message
	})
	return issues
}

// Errors joins the error-level issues, or returns nil when there are none
func Errors(issues []Issue) error {
	var errs []error
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			errs = append(errs, errors.New(issue.String()))
		}
	}
	return errors.Join(errs...)
}

// ValidateKey checks if a key string is valid
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	for _, mod := range []string{"ctrl+", "alt+", "shift+", "super+"} {
		if key == mod {
			return fmt.Errorf("modifier without key: %s", key)
		}
	}

	return nil
}

// ValidateAction checks if an action string is valid
func ValidateAction(actionStr string) error {
	if actionStr == "" {
		return fmt.Errorf("action cannot be empty")
	}
	return nil
}
