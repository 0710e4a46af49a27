package ops

import "fmt"

// GuardError is a guard-violation failure (spec 7 "Guard violations"):
// writing into a code table, inserting over a code cell/other table,
// deleting a UI row. These propagate through the executor and abort
// the transaction, unlike structural "already gone" conditions which
// are silently converted to no-ops.
type GuardError struct {
	Kind    string
	Message string
}

func (e *GuardError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func NewGuardError(kind, format string, args ...any) *GuardError {
	return &GuardError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
