package timeline

import (
	"errors"
	"fmt"

	"maunium.net/go/mautrix/id"
)

// ErrInvariant is matched by every *ReconcileError.
var ErrInvariant = errors.New("timeline invariant violated")

// ReconcileError reports that the item map and the ordering index went out
// of sync. It points at a bug in the reconciler, never at bad input.
type ReconcileError struct {
	EventID id.EventID
	Reason  string
	Items   int
	Indexed int
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("timeline: %s while adding %s (items=%d, indexed=%d)", e.Reason, e.EventID, e.Items, e.Indexed)
}

func (e *ReconcileError) Unwrap() error {
	return ErrInvariant
}
