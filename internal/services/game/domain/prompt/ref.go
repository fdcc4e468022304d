package prompt

import "fmt"

// Kind distinguishes the two prompt pools.
type Kind string

const (
	KindFace     Kind = "face"
	KindNumbered Kind = "numbered"
)

const (
	// FaceCount is the size of the small pool.
	FaceCount = 12
	// MinValue and MaxValue bound the large-pool face values.
	MinValue = 2
	MaxValue = 9
	// TerminalValue is the cycle-end signal.
	TerminalValue = 10
	// OrdersPerValue is the number of draw orders per face value.
	OrdersPerValue = 4
	// TerminalEligibleAfter is the number of large-pool draws that must exist
	// before the terminal value can be rolled.
	TerminalEligibleAfter = 2
)

// Ref identifies one drawn prompt. Face refs carry FaceID; numbered refs
// carry Value and Order. The terminal ref has Value 10 and Order 0.
type Ref struct {
	Kind   Kind `json:"kind"`
	FaceID int  `json:"face_id,omitempty"`
	Value  int  `json:"value,omitempty"`
	Order  int  `json:"order,omitempty"`
}

// Face returns a small-pool ref.
func Face(id int) Ref {
	return Ref{Kind: KindFace, FaceID: id}
}

// Numbered returns a large-pool ref.
func Numbered(value, order int) Ref {
	return Ref{Kind: KindNumbered, Value: value, Order: order}
}

// Terminal returns the cycle-end ref.
func Terminal() Ref {
	return Ref{Kind: KindNumbered, Value: TerminalValue}
}

// IsTerminal reports whether r is the cycle-end signal.
func (r Ref) IsTerminal() bool {
	return r.Kind == KindNumbered && r.Value == TerminalValue
}

// Validate reports whether r names a real prompt slot.
func (r Ref) Validate() error {
	switch r.Kind {
	case KindFace:
		if r.FaceID < 1 || r.FaceID > FaceCount {
			return fmt.Errorf("face prompt %d out of range", r.FaceID)
		}
		if r.Value != 0 || r.Order != 0 {
			return fmt.Errorf("face prompt must not carry a card number")
		}
	case KindNumbered:
		if r.IsTerminal() {
			return fmt.Errorf("terminal value is not a prompt")
		}
		if r.Value < MinValue || r.Value > MaxValue {
			return fmt.Errorf("card value %d out of range", r.Value)
		}
		if r.Order < 1 || r.Order > OrdersPerValue {
			return fmt.Errorf("draw order %d out of range", r.Order)
		}
		if r.FaceID != 0 {
			return fmt.Errorf("numbered prompt must not carry a face id")
		}
	default:
		return fmt.Errorf("unknown prompt kind %q", r.Kind)
	}
	return nil
}

func (r Ref) String() string {
	switch {
	case r.Kind == KindFace:
		return fmt.Sprintf("face:%d", r.FaceID)
	case r.IsTerminal():
		return "terminal"
	default:
		return fmt.Sprintf("card:%d/%d", r.Value, r.Order)
	}
}

// Consumption is the set of slots already drawn in one session.
type Consumption struct {
	faces    map[int]bool
	numbered map[int]map[int]bool
	large    int
}

// Consume builds a Consumption from the refs in a session's turn ledger.
// Terminal refs are ignored since they never consume a slot.
func Consume(refs ...Ref) Consumption {
	c := Consumption{faces: map[int]bool{}, numbered: map[int]map[int]bool{}}
	for _, ref := range refs {
		switch {
		case ref.Kind == KindFace:
			c.faces[ref.FaceID] = true
		case ref.Kind == KindNumbered && !ref.IsTerminal():
			orders := c.numbered[ref.Value]
			if orders == nil {
				orders = map[int]bool{}
				c.numbered[ref.Value] = orders
			}
			if !orders[ref.Order] {
				orders[ref.Order] = true
				c.large++
			}
		}
	}
	return c
}

// FaceConsumed reports whether face id has been drawn.
func (c Consumption) FaceConsumed(id int) bool {
	return c.faces[id]
}

// FacesDrawn returns how many small-pool prompts have been drawn.
func (c Consumption) FacesDrawn() int {
	return len(c.faces)
}

// NumberedConsumed reports whether (value, order) has been drawn.
func (c Consumption) NumberedConsumed(value, order int) bool {
	return c.numbered[value][order]
}

// LargeDraws returns how many large-pool prompts have been drawn.
func (c Consumption) LargeDraws() int {
	return c.large
}

// nextOrder returns the lowest unconsumed draw order for value.
func (c Consumption) nextOrder(value int) (int, bool) {
	for order := 1; order <= OrdersPerValue; order++ {
		if !c.numbered[value][order] {
			return order, true
		}
	}
	return 0, false
}
