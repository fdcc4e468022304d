package prompt

import "errors"

// MaxDrawAttempts bounds how many face values a single large-pool draw may
// roll before the pool is reported exhausted.
const MaxDrawAttempts = 10

// ErrExhausted reports that no eligible prompt remains.
var ErrExhausted = errors.New("prompt pool exhausted")

// Roller yields uniform integers in [0, n). *math/rand.Rand satisfies it.
type Roller interface {
	Intn(n int) int
}

// Allocator draws prompts from the pools.
type Allocator struct {
	Roller Roller
	// MaxAttempts overrides MaxDrawAttempts when positive.
	MaxAttempts int
}

// DrawFace picks a uniform random face prompt among those not yet consumed.
func (a Allocator) DrawFace(consumed Consumption) (Ref, error) {
	candidates := make([]int, 0, FaceCount)
	for id := 1; id <= FaceCount; id++ {
		if !consumed.FaceConsumed(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return Ref{}, ErrExhausted
	}
	pick := candidates[0]
	if len(candidates) > 1 {
		pick = candidates[a.Roller.Intn(len(candidates))]
	}
	return Face(pick), nil
}

// DrawNumbered rolls a face value and returns the lowest unconsumed draw
// order for it, or Terminal when the roll lands on the terminal value.
//
// A rolled value with every order consumed is excluded and re-rolled; so is
// the terminal value while fewer than TerminalEligibleAfter large-pool draws
// exist. Each roll counts toward the attempt bound.
func (a Allocator) DrawNumbered(consumed Consumption) (Ref, error) {
	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = MaxDrawAttempts
	}
	terminalEligible := consumed.LargeDraws() >= TerminalEligibleAfter
	excluded := map[int]bool{}

	for attempt := 0; attempt < attempts; attempt++ {
		values := a.eligibleValues(excluded, terminalEligible)
		if len(values) == 0 {
			return Ref{}, ErrExhausted
		}
		value := values[a.Roller.Intn(len(values))]
		if value == TerminalValue {
			return Terminal(), nil
		}
		order, ok := consumed.nextOrder(value)
		if !ok {
			excluded[value] = true
			continue
		}
		return Numbered(value, order), nil
	}
	return Ref{}, ErrExhausted
}

func (a Allocator) eligibleValues(excluded map[int]bool, terminalEligible bool) []int {
	values := make([]int, 0, MaxValue-MinValue+2)
	for v := MinValue; v <= MaxValue; v++ {
		if !excluded[v] {
			values = append(values, v)
		}
	}
	if terminalEligible {
		values = append(values, TerminalValue)
	}
	return values
}
