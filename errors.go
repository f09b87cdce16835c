package octree

import "fmt"

// PreconditionError reports a programmer-error precondition violation (spec
// §7): unsorted input where sorted is required, parent(root), children at
// Dmax, closest-common-ancestor called with arguments from different spaces,
// and the like. The core asserts these rather than silently producing
// invalid octants.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("octree: %s: %s", e.Op, e.Msg)
}

func newPrecondition(op, msg string) *PreconditionError {
	return &PreconditionError{Op: op, Msg: msg}
}
