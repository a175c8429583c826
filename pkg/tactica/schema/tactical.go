package schema

import "strings"

// GameElement is one of the nine Peters/Schumacher game elements.
type GameElement string

const (
	CounterAttack       GameElement = "Counter Attack"
	FastBreak           GameElement = "Fast Break"
	PositionalAttack    GameElement = "Positional Attack"
	Pressing            GameElement = "Pressing"
	CounterPressing     GameElement = "Counter Pressing"
	OrganizedDefense    GameElement = "Organized Defense"
	BuildUpPlay         GameElement = "Build-Up Play"
	TransitionToAttack  GameElement = "Transition to Attack"
	TransitionToDefense GameElement = "Transition to Defense"
)

// GameElements lists every game element in declaration order.
var GameElements = []GameElement{
	CounterAttack, FastBreak, PositionalAttack, Pressing, CounterPressing,
	OrganizedDefense, BuildUpPlay, TransitionToAttack, TransitionToDefense,
}

// Valid reports whether g is a known game element.
func (g GameElement) Valid() bool {
	for _, v := range GameElements {
		if v == g {
			return true
		}
	}
	return false
}

// ParseGameElement matches s case-insensitively against the known elements.
func ParseGameElement(s string) (GameElement, bool) {
	for _, v := range GameElements {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// SituationType is a basic 2v1 situation.
type SituationType string

const (
	Frontal SituationType = "Frontal"
	Lateral SituationType = "Lateral"
	Behind  SituationType = "Behind"
	Before  SituationType = "Before"
)

// SituationTypes lists every situation type in declaration order.
var SituationTypes = []SituationType{Frontal, Lateral, Behind, Before}

func (s SituationType) Valid() bool {
	for _, v := range SituationTypes {
		if v == s {
			return true
		}
	}
	return false
}

// ParseSituationType matches s case-insensitively.
func ParseSituationType(s string) (SituationType, bool) {
	for _, v := range SituationTypes {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// Lane is one of the five vertical pitch lanes.
type Lane string

const (
	LeftWing        Lane = "left_wing"
	LeftHalfSpace   Lane = "left_half_space"
	CentralCorridor Lane = "central_corridor"
	RightHalfSpace  Lane = "right_half_space"
	RightWing       Lane = "right_wing"
)

// Lanes lists the lanes in left-to-right pitch order.
var Lanes = []Lane{LeftWing, LeftHalfSpace, CentralCorridor, RightHalfSpace, RightWing}

// Order returns the lane's left-to-right position, or -1 if unknown.
func (l Lane) Order() int {
	for i, v := range Lanes {
		if v == l {
			return i
		}
	}
	return -1
}

func (l Lane) Valid() bool { return l.Order() >= 0 }

// ParseLane accepts either the stored form ("left_wing") or a display form ("Left Wing").
func ParseLane(s string) (Lane, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, v := range Lanes {
		if string(v) == norm {
			return v, true
		}
	}
	return "", false
}

// TacticalContext links a drill to the taxonomy. At most one per drill and
// never mutated after the enricher creates it.
type TacticalContext struct {
	Methodology        string         `json:"methodology"`
	GameElement        *GameElement   `json:"game_element,omitempty"`
	Lanes              []Lane         `json:"lanes"`
	SituationType      *SituationType `json:"situation_type,omitempty"`
	NumericalAdvantage *string        `json:"numerical_advantage,omitempty"`
}

// Clone returns a deep copy.
func (tc *TacticalContext) Clone() *TacticalContext {
	if tc == nil {
		return nil
	}
	out := &TacticalContext{Methodology: tc.Methodology}
	if tc.GameElement != nil {
		g := *tc.GameElement
		out.GameElement = &g
	}
	if tc.SituationType != nil {
		s := *tc.SituationType
		out.SituationType = &s
	}
	if tc.NumericalAdvantage != nil {
		n := *tc.NumericalAdvantage
		out.NumericalAdvantage = &n
	}
	out.Lanes = append([]Lane{}, tc.Lanes...)
	return out
}
