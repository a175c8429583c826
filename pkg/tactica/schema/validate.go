package schema

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Coordinate bounds for the Opta pitch system.
const (
	MinCoord = 0.0
	MaxCoord = 100.0
)

// ClampCoord forces v into [MinCoord, MaxCoord]. NaN maps to the pitch centre.
func ClampCoord(v float64) float64 {
	if math.IsNaN(v) {
		return 50
	}
	return math.Max(MinCoord, math.Min(MaxCoord, v))
}

type positionKey struct {
	x, y int64
	role Role
}

// DedupPositions drops positions whose (rounded x, rounded y, role) triple was
// already seen, keeping the first occurrence.
func DedupPositions(in []PlayerPosition) []PlayerPosition {
	seen := make(map[positionKey]struct{}, len(in))
	out := make([]PlayerPosition, 0, len(in))
	for _, p := range in {
		k := positionKey{x: int64(math.Round(p.X)), y: int64(math.Round(p.Y)), role: p.Role}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Normalize trims strings and replaces nil slices so partial records
// serialize with empty fields instead of nulls.
func (p *SessionPlan) Normalize() {
	p.Metadata.Title = strings.TrimSpace(p.Metadata.Title)
	p.Metadata.Author = strings.TrimSpace(p.Metadata.Author)
	p.Metadata.Category = strings.TrimSpace(p.Metadata.Category)
	p.Metadata.Difficulty = strings.TrimSpace(p.Metadata.Difficulty)
	p.Metadata.DesiredOutcome = strings.TrimSpace(p.Metadata.DesiredOutcome)
	if p.Drills == nil {
		p.Drills = []DrillBlock{}
	}
	for i := range p.Drills {
		p.Drills[i].Normalize()
	}
}

// Normalize fills empty defaults on the drill.
func (d *DrillBlock) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Setup.Description = strings.TrimSpace(d.Setup.Description)
	d.Setup.PlayerCount = strings.TrimSpace(d.Setup.PlayerCount)
	d.Setup.AreaDimensions = strings.TrimSpace(d.Setup.AreaDimensions)
	d.Setup.Equipment = nonNil(d.Setup.Equipment)
	d.Sequence = nonNil(d.Sequence)
	d.Rules = nonNil(d.Rules)
	d.Scoring = nonNil(d.Scoring)
	d.CoachingPoints = nonNil(d.CoachingPoints)
	d.Progressions = nonNil(d.Progressions)
	if d.Positions == nil {
		d.Positions = []PlayerPosition{}
	}
	if d.Arrows == nil {
		d.Arrows = []Arrow{}
	}
	if d.Equipment == nil {
		d.Equipment = []EquipmentMarker{}
	}
	if d.Goals == nil {
		d.Goals = []Goal{}
	}
	if d.TacticalContext != nil && d.TacticalContext.Lanes == nil {
		d.TacticalContext.Lanes = []Lane{}
	}
}

// Validate checks the aggregate's invariants.
func (p *SessionPlan) Validate() error {
	if strings.TrimSpace(p.Source.Filename) == "" {
		return errors.New("session plan source filename is required")
	}
	if p.Source.PageCount < 0 {
		return fmt.Errorf("session plan page count %d is negative", p.Source.PageCount)
	}
	for i := range p.Drills {
		if err := p.Drills[i].Validate(); err != nil {
			return fmt.Errorf("drill %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks coordinates, enumerations and the tactical context.
func (d *DrillBlock) Validate() error {
	for i, pos := range d.Positions {
		if !onPitch(pos.X, pos.Y) {
			return fmt.Errorf("position %d (%s) outside pitch: %.2f,%.2f", i, pos.Label, pos.X, pos.Y)
		}
		if !pos.Role.Valid() {
			return fmt.Errorf("position %d has unknown role %q", i, pos.Role)
		}
	}
	if len(DedupPositions(d.Positions)) != len(d.Positions) {
		return errors.New("duplicate player positions")
	}
	for i, a := range d.Arrows {
		if !onPitch(a.StartX, a.StartY) || !onPitch(a.EndX, a.EndY) {
			return fmt.Errorf("arrow %d outside pitch", i)
		}
		if !a.Type.Valid() {
			return fmt.Errorf("arrow %d has unknown type %q", i, a.Type)
		}
	}
	for i, e := range d.Equipment {
		if !onPitch(e.X, e.Y) {
			return fmt.Errorf("equipment %d (%s) outside pitch", i, e.Type)
		}
	}
	for i, g := range d.Goals {
		if !onPitch(g.X, g.Y) {
			return fmt.Errorf("goal %d outside pitch", i)
		}
	}
	if d.PitchView != nil && !d.PitchView.Valid() {
		return fmt.Errorf("unknown pitch view %q", *d.PitchView)
	}
	if tc := d.TacticalContext; tc != nil {
		return tc.Validate()
	}
	return nil
}

// Validate checks enum membership and lane ordering.
func (tc *TacticalContext) Validate() error {
	if strings.TrimSpace(tc.Methodology) == "" {
		return errors.New("tactical context methodology is required")
	}
	if tc.GameElement != nil && !tc.GameElement.Valid() {
		return fmt.Errorf("unknown game element %q", *tc.GameElement)
	}
	if tc.SituationType != nil && !tc.SituationType.Valid() {
		return fmt.Errorf("unknown situation type %q", *tc.SituationType)
	}
	last := -1
	for _, l := range tc.Lanes {
		o := l.Order()
		if o < 0 {
			return fmt.Errorf("unknown lane %q", l)
		}
		if o <= last {
			return errors.New("lanes must be unique and in pitch order")
		}
		last = o
	}
	return nil
}

func onPitch(x, y float64) bool {
	return x >= MinCoord && x <= MaxCoord && y >= MinCoord && y <= MaxCoord
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
