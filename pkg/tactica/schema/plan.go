package schema

import (
	"math"
	"time"
)

// Role is the normalized player role on a diagram.
type Role string

const (
	Goalkeeper Role = "goalkeeper"
	Attacker   Role = "attacker"
	Defender   Role = "defender"
	Neutral    Role = "neutral"
)

// Roles lists the role enumeration.
var Roles = []Role{Goalkeeper, Attacker, Defender, Neutral}

func (r Role) Valid() bool {
	switch r {
	case Goalkeeper, Attacker, Defender, Neutral:
		return true
	}
	return false
}

// PlayerPosition is a player marker in Opta coordinates (0-100 on both axes).
type PlayerPosition struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Role  Role    `json:"role"`
	Label string  `json:"label"`
	Color string  `json:"color,omitempty"`
}

// ArrowType is the kind of movement an arrow draws.
type ArrowType string

const (
	ArrowRun         ArrowType = "run"
	ArrowPass        ArrowType = "pass"
	ArrowShot        ArrowType = "shot"
	ArrowDribble     ArrowType = "dribble"
	ArrowCross       ArrowType = "cross"
	ArrowThroughBall ArrowType = "through_ball"
	ArrowMovement    ArrowType = "movement"
)

func (a ArrowType) Valid() bool {
	switch a {
	case ArrowRun, ArrowPass, ArrowShot, ArrowDribble, ArrowCross, ArrowThroughBall, ArrowMovement:
		return true
	}
	return false
}

// Arrow is a movement line between two pitch points.
type Arrow struct {
	StartX    float64   `json:"start_x"`
	StartY    float64   `json:"start_y"`
	EndX      float64   `json:"end_x"`
	EndY      float64   `json:"end_y"`
	Type      ArrowType `json:"arrow_type"`
	FromLabel string    `json:"from_label,omitempty"`
	Sequence  int       `json:"sequence_number,omitempty"`
}

// Length is the Manhattan distance between the arrow's endpoints.
func (a Arrow) Length() float64 {
	return math.Abs(a.StartX-a.EndX) + math.Abs(a.StartY-a.EndY)
}

// EquipmentMarker is a cone, mannequin, pole or similar item on a diagram.
type EquipmentMarker struct {
	Type  string  `json:"equipment_type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color,omitempty"`
}

// Goal is a goal drawn on a diagram.
type Goal struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"goal_type"`
}

// PitchView is the portion of the pitch a diagram shows.
type PitchView string

const (
	PenaltyArea PitchView = "penalty_area"
	Third       PitchView = "third"
	HalfPitch   PitchView = "half_pitch"
	FullPitch   PitchView = "full_pitch"
	CustomView  PitchView = "custom"
)

func (v PitchView) Valid() bool {
	switch v {
	case PenaltyArea, Third, HalfPitch, FullPitch, CustomView:
		return true
	}
	return false
}

// DiagramInfo is the Pass-1/Pass-2 result for one extracted image.
type DiagramInfo struct {
	ImageKey         string            `json:"image_key"`
	Index            int               `json:"index"`
	Page             int               `json:"page"`
	IsDiagram        bool              `json:"is_diagram"`
	Description      string            `json:"description"`
	MovementPatterns []string          `json:"movement_patterns"`
	Positions        []PlayerPosition  `json:"positions"`
	Arrows           []Arrow           `json:"arrows"`
	Equipment        []EquipmentMarker `json:"equipment"`
	Goals            []Goal            `json:"goals"`
	PitchView        *PitchView        `json:"pitch_view,omitempty"`
	Degraded         bool              `json:"-"`
}

// DrillSetup groups the setup fields of a drill.
type DrillSetup struct {
	Description    string   `json:"description"`
	PlayerCount    string   `json:"player_count,omitempty"`
	Equipment      []string `json:"equipment"`
	AreaDimensions string   `json:"area_dimensions,omitempty"`
}

// DrillBlock is one coaching exercise.
type DrillBlock struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Setup           DrillSetup        `json:"setup"`
	Sequence        []string          `json:"sequence"`
	Rules           []string          `json:"rules"`
	Scoring         []string          `json:"scoring"`
	CoachingPoints  []string          `json:"coaching_points"`
	Progressions    []string          `json:"progressions"`
	VLMDescription  *string           `json:"vlm_description,omitempty"`
	ImageRef        *string           `json:"image_ref,omitempty"`
	Positions       []PlayerPosition  `json:"positions"`
	Arrows          []Arrow           `json:"arrows"`
	Equipment       []EquipmentMarker `json:"equipment"`
	Goals           []Goal            `json:"goals"`
	PitchView       *PitchView        `json:"pitch_view,omitempty"`
	TacticalContext *TacticalContext  `json:"tactical_context,omitempty"`
}

// Metadata is free-text information about a session plan.
type Metadata struct {
	Title          string `json:"title"`
	Author         string `json:"author,omitempty"`
	Category       string `json:"category,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	DesiredOutcome string `json:"desired_outcome,omitempty"`
}

// Source describes the ingested document.
type Source struct {
	Filename    string    `json:"filename"`
	PageCount   int       `json:"page_count"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// SessionPlan is the root aggregate built once per ingest request.
type SessionPlan struct {
	ID       string       `json:"id"`
	Metadata Metadata     `json:"metadata"`
	Drills   []DrillBlock `json:"drills"`
	Source   Source       `json:"source"`
}

// Clone returns a deep copy of the drill.
func (d DrillBlock) Clone() DrillBlock {
	out := d
	out.Setup.Equipment = append([]string{}, d.Setup.Equipment...)
	out.Sequence = append([]string{}, d.Sequence...)
	out.Rules = append([]string{}, d.Rules...)
	out.Scoring = append([]string{}, d.Scoring...)
	out.CoachingPoints = append([]string{}, d.CoachingPoints...)
	out.Progressions = append([]string{}, d.Progressions...)
	out.Positions = append([]PlayerPosition{}, d.Positions...)
	out.Arrows = append([]Arrow{}, d.Arrows...)
	out.Equipment = append([]EquipmentMarker{}, d.Equipment...)
	out.Goals = append([]Goal{}, d.Goals...)
	if d.PitchView != nil {
		v := *d.PitchView
		out.PitchView = &v
	}
	if d.VLMDescription != nil {
		s := *d.VLMDescription
		out.VLMDescription = &s
	}
	if d.ImageRef != nil {
		s := *d.ImageRef
		out.ImageRef = &s
	}
	out.TacticalContext = d.TacticalContext.Clone()
	return out
}

// Clone returns a deep copy of the plan.
func (p SessionPlan) Clone() SessionPlan {
	out := p
	out.Drills = make([]DrillBlock, len(p.Drills))
	for i, d := range p.Drills {
		out.Drills[i] = d.Clone()
	}
	return out
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
