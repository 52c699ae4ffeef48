package gpg

import "fmt"

// OperationError reports a gpg invocation that ran and failed. Stderr is kept
// for internal logging only; callers translate to generic messages at the
// boundary.
type OperationError struct {
	Op     string
	Stderr string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("gpg %s failed: %s", e.Op, e.Stderr)
}
