package session

import (
	"strconv"
	"strings"
)

var phaseLabels = map[Phase]string{
	PhaseWaiting:              "WAITING",
	PhaseCycleLengthSelection: "CYCLE_LENGTH_SELECTION",
	PhaseEstablishing:         "ESTABLISHING",
	PhaseDrawing:              "DRAWING",
	PhaseEnded:                "ENDED",
}

func (p Phase) String() string {
	if label, ok := phaseLabels[p]; ok {
		return label
	}
	return "PHASE_" + strconv.Itoa(int(p))
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p >= PhaseWaiting && p <= PhaseEnded
}

// CycleLengths is the label set rolled during cycle length selection.
var CycleLengths = []string{"days", "weeks", "months", "years", "generations"}

// Topics are the questions that may be carried across a cycle boundary.
var Topics = []string{"who", "what", "where", "when", "why"}

// NormalizeTopic returns the canonical topic label and whether it is known.
func NormalizeTopic(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, topic := range Topics {
		if topic == value {
			return topic, true
		}
	}
	return "", false
}
