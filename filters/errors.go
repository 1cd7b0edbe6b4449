package filters

import "fmt"

// InvalidFilterError indicates a malformed filter expression: an unknown
// operator name or an operand of the wrong shape. It is raised during parsing,
// before anything is registered, so callers can treat it as a client error.
type InvalidFilterError struct {
	Operator string
	Reason   string
}

func (e *InvalidFilterError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid filter: unknown operator %q", e.Operator)
	}
	if e.Operator == "" {
		return fmt.Sprintf("invalid filter: %s", e.Reason)
	}
	return fmt.Sprintf("invalid filter: %s: %s", e.Operator, e.Reason)
}

func invalidf(operator, format string, args ...any) *InvalidFilterError {
	return &InvalidFilterError{Operator: operator, Reason: fmt.Sprintf(format, args...)}
}
