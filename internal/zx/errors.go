package zx

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDiagram is returned when a diagram violates a structural
	// invariant: boundary arity mismatch, a boundary of degree other than one
	// or with a phase, a dangling edge, a self loop. Such a diagram is
	// rejected before any rewrite runs.
	ErrMalformedDiagram = errors.New("malformed diagram")

	// ErrExtractionFailure is returned when no causal gate sequence could be
	// recovered from a diagram.
	ErrExtractionFailure = errors.New("diagram is not extractable")

	// ErrRoundLimit is returned when simplification hits its round limit
	// before reaching a fixpoint.
	ErrRoundLimit = errors.New("simplification round limit reached")

	// ErrUnsupportedGate is returned by the importer for gates it has no
	// exact diagram for.
	ErrUnsupportedGate = errors.New("gate not supported by the importer")
)

// StaleMatchError is the panic value raised when a match is applied after an
// earlier rewrite invalidated it. It always indicates an engine bug.
type StaleMatchError struct {
	Match  Match
	Reason string
}

func (e *StaleMatchError) Error() string {
	return fmt.Sprintf("stale %s match on %v: %s", e.Match.Rule, e.Match.Vertices, e.Reason)
}
