// Package phase holds the transition table that decides which actions are
// legal in which phase and sub-state, and who may issue them.
//
// Every action the engine accepts has exactly one row. Adding an action
// means adding a row here and a handler in the engine.
package phase

import (
	"slices"

	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/domain/session"
)

// Role is the relationship the actor must have with the session.
type Role int

const (
	// RoleVisitor is anyone, seated or not.
	RoleVisitor Role = iota
	// RoleAny is any seated participant.
	RoleAny
	// RoleCreator is the participant who created the session.
	RoleCreator
	// RoleTurnHolder is the current turn holder.
	RoleTurnHolder
	// RoleFocusHolder is the participant who entered focus.
	RoleFocusHolder
)

// Flag is a tri-state sub-state requirement.
type Flag int

const (
	Either Flag = iota
	Set
	Clear
)

func (f Flag) allows(value bool) bool {
	switch f {
	case Set:
		return value
	case Clear:
		return !value
	default:
		return true
	}
}

// SubState lists the phase-3 sub-state requirements of a rule.
type SubState struct {
	TenFlag   Flag
	Focused   Flag
	TurnDrawn Flag
}

// Rule is one row of the transition table.
type Rule struct {
	Action   command.Type
	Phases   []session.Phase
	Role     Role
	SubState SubState
	// Transition names the phase the action may move the session to. It is
	// documentation for readers of the table; the engine performs the move.
	Transition []session.Phase
}

var (
	waiting     = []session.Phase{session.PhaseWaiting}
	selecting   = []session.Phase{session.PhaseCycleLengthSelection}
	establish   = []session.Phase{session.PhaseEstablishing}
	drawing     = []session.Phase{session.PhaseDrawing}
	beforeEnded = []session.Phase{session.PhaseWaiting, session.PhaseCycleLengthSelection, session.PhaseEstablishing, session.PhaseDrawing}
)

var table = []Rule{
	{Action: command.TypeJoin, Phases: waiting, Role: RoleVisitor},
	{Action: command.TypeLeave, Phases: waiting, Role: RoleCreator},
	{Action: command.TypeSetLocation, Phases: waiting, Role: RoleCreator},
	{Action: command.TypeConfirmLocation, Phases: waiting, Role: RoleAny},
	{Action: command.TypeUnconfirmLocation, Phases: waiting, Role: RoleAny},
	{Action: command.TypeStart, Phases: waiting, Role: RoleCreator, Transition: selecting},

	{Action: command.TypeRollCycleLength, Phases: selecting, Role: RoleCreator},
	{Action: command.TypeConfirmCycleLength, Phases: selecting, Role: RoleCreator, Transition: establish},

	{Action: command.TypeDrawFace, Phases: establish, Role: RoleTurnHolder},
	{Action: command.TypeToggleReady, Phases: establish, Role: RoleAny},
	{Action: command.TypeAdvanceToDrawing, Phases: establish, Role: RoleAny, Transition: drawing},

	{Action: command.TypeDrawNumbered, Phases: drawing, Role: RoleTurnHolder,
		SubState: SubState{TenFlag: Clear, Focused: Clear, TurnDrawn: Clear}},
	{Action: command.TypeContinueTurn, Phases: drawing, Role: RoleTurnHolder,
		SubState: SubState{TenFlag: Clear, Focused: Clear, TurnDrawn: Set}},
	{Action: command.TypeEnterFocus, Phases: drawing, Role: RoleTurnHolder,
		SubState: SubState{TenFlag: Clear, Focused: Clear}},
	{Action: command.TypeExitFocus, Phases: drawing, Role: RoleFocusHolder,
		SubState: SubState{Focused: Set}},
	{Action: command.TypeSelectTopic, Phases: drawing, Role: RoleTurnHolder,
		SubState: SubState{TenFlag: Set, Focused: Clear}},
	{Action: command.TypeContinueCycle, Phases: drawing, Role: RoleTurnHolder,
		SubState: SubState{TenFlag: Set, Focused: Clear}, Transition: []session.Phase{session.PhaseDrawing, session.PhaseEnded}},

	{Action: command.TypeSetConnected, Phases: beforeEnded, Role: RoleAny},
}

// Lookup returns the rule for action.
func Lookup(action command.Type) (Rule, bool) {
	for _, rule := range table {
		if rule.Action == action {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the full table.
func Rules() []Rule {
	return slices.Clone(table)
}

// AllowsPhase reports whether the rule applies in phase p.
func (r Rule) AllowsPhase(p session.Phase) bool {
	return slices.Contains(r.Phases, p)
}

// AllowsSubState reports whether s satisfies the rule's sub-state guard.
// The reason names the first failing flag.
func (r Rule) AllowsSubState(s session.Session) (bool, string) {
	switch {
	case !r.SubState.TenFlag.allows(s.TenFlag):
		if s.TenFlag {
			return false, "the cycle is ending; select a topic and continue the cycle"
		}
		return false, "the cycle is not ending"
	case !r.SubState.Focused.allows(s.Focused):
		if s.Focused {
			return false, "play is focused until the focus holder exits"
		}
		return false, "play is not focused"
	case !r.SubState.TurnDrawn.allows(s.TurnDrawn):
		if s.TurnDrawn {
			return false, "a card was already drawn this turn; continue the turn"
		}
		return false, "draw a card before continuing the turn"
	}
	return true, ""
}
