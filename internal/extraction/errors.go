package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInput is returned when neither audio nor text was supplied.
	ErrNoInput = errors.New("extraction: audio or text input is required")
	// ErrInvalidToday is returned when the instruction anchor date is not an ISO date.
	ErrInvalidToday = errors.New("extraction: today must be a YYYY-MM-DD date")
)

// UnknownModeError reports a mode identifier outside the catalog.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("extraction: unknown mode %q", e.Mode)
}

// Parse failure stages.
const (
	StageLocate = "locate"
	StageDecode = "decode"
	StageSchema = "schema"
)

// ParseFailure means the reply could not be turned into a usable record. It is
// recoverable: the operator retries or fills the form in manually.
type ParseFailure struct {
	Stage  string
	Reason string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("extraction: reply unusable at %s: %s", e.Stage, e.Reason)
}

func parseFailure(stage, format string, args ...any) *ParseFailure {
	return &ParseFailure{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}
