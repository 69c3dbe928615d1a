package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField         = errors.New("missing route field")
	ErrInvalidRoute         = errors.New("invalid route field")
	ErrInvalidScenario      = errors.New("invalid scenario")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrScenarioNotFound     = errors.New("scenario not found")
	ErrNonFinite            = errors.New("non-finite value")
)

// MissingFieldError reports a route record that lacks a field the
// computation requires. A batch containing one is rejected as a whole.
type MissingFieldError struct {
	Index   int
	RouteID string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("route #%d (%q): missing required field %s", e.Index, e.RouteID, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// InvalidFieldError reports a route field whose value is out of range.
type InvalidFieldError struct {
	Index   int
	RouteID string
	Field   string
	Reason  string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("route #%d (%q): field %s %s", e.Index, e.RouteID, e.Field, e.Reason)
}

func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidRoute }

// InvalidScenarioError reports a scenario that is missing a required key or
// carries a value the applier cannot interpret.
type InvalidScenarioError struct {
	ScenarioID string
	Field      string
	Reason     string
}

func (e *InvalidScenarioError) Error() string {
	id := e.ScenarioID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("scenario %s: %s %s", id, e.Field, e.Reason)
}

func (e *InvalidScenarioError) Is(target error) bool { return target == ErrInvalidScenario }

// InvalidConfigurationError reports a run-level setting that makes the
// margin arithmetic undefined.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigurationError) Is(target error) bool { return target == ErrInvalidConfiguration }
