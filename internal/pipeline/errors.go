package pipeline

import (
	"errors"
	"fmt"
)

// StageKind classifies why an analysis failed.
type StageKind string

const (
	KindExtraction     StageKind = "extraction_failure"
	KindReconciliation StageKind = "reconciliation_failure"
	KindScoring        StageKind = "scoring_unavailable"
	KindNarrative      StageKind = "narrative_unavailable"
	KindPersistence    StageKind = "persistence_degraded"
)

// Sentinels for errors.Is matching against a *StageError.
var (
	ErrExtraction     = errors.New("statement extraction failed")
	ErrReconciliation = errors.New("transaction reconciliation failed")
	ErrScoring        = errors.New("scoring service unavailable")
	ErrNarrative      = errors.New("narrative service unavailable")
	ErrPersistence    = errors.New("report persistence degraded")
)

var sentinelByKind = map[StageKind]error{
	KindExtraction:     ErrExtraction,
	KindReconciliation: ErrReconciliation,
	KindScoring:        ErrScoring,
	KindNarrative:      ErrNarrative,
	KindPersistence:    ErrPersistence,
}

// StageError is returned by a pipeline step. Err carries the underlying cause.
type StageError struct {
	Kind StageKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *StageError) Is(target error) bool {
	return sentinelByKind[e.Kind] == target
}

// NewStageError wraps err with kind. A nil err yields nil.
func NewStageError(kind StageKind, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) && se.Kind == kind {
		return err
	}
	return &StageError{Kind: kind, Err: err}
}

// KindOf returns the kind of the first StageError in err's chain, or "".
func KindOf(err error) StageKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
