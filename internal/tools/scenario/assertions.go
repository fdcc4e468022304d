package scenario

import (
	"fmt"
	"log"
)

// AssertionMode controls how unmet expectations are reported.
type AssertionMode int

const (
	// AssertionStrict stops the scenario at the first unmet expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs unmet expectations and keeps going.
	AssertionLogOnly
)

// Assertions reports expectation results for one run and counts the ones
// that were only logged.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger

	unmet int
}

// Failf always returns an error, for problems a run cannot continue past
// such as a missing session.
func (a *Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf reports an unmet expectation according to the mode.
func (a *Assertions) Assertf(format string, args ...any) error {
	if a.Mode != AssertionLogOnly {
		return fmt.Errorf(format, args...)
	}
	a.unmet++
	if a.Logger != nil {
		a.Logger.Printf("expectation failed: "+format, args...)
	}
	return nil
}

// Unmet returns how many expectations were logged instead of failing.
func (a *Assertions) Unmet() int {
	return a.unmet
}
