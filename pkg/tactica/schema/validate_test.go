package schema

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestClampCoord(t *testing.T) {
	cases := map[float64]float64{
		-5:    0,
		0:     0,
		42.5:  42.5,
		100:   100,
		105:   100,
		1e9:   100,
		-1e-9: 0,
	}
	for in, want := range cases {
		if got := ClampCoord(in); got != want {
			t.Errorf("ClampCoord(%v) = %v, want %v", in, got, want)
		}
	}
	if got := ClampCoord(math.NaN()); got != 50 {
		t.Errorf("NaN should clamp to 50, got %v", got)
	}
}

func TestDedupPositionsKeepsFirst(t *testing.T) {
	in := []PlayerPosition{
		{X: 10.2, Y: 20.4, Role: Attacker, Label: "A1"},
		{X: 9.8, Y: 19.6, Role: Attacker, Label: "A2"},
		{X: 10, Y: 20, Role: Defender, Label: "D1"},
	}
	out := DedupPositions(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(out))
	}
	if out[0].Label != "A1" || out[1].Label != "D1" {
		t.Errorf("unexpected order: %+v", out)
	}
}

func TestNormalizeFillsEmptySlices(t *testing.T) {
	p := SessionPlan{
		Metadata: Metadata{Title: "  Rondo Book  "},
		Drills:   []DrillBlock{{Name: " Drill 1 "}},
		Source:   Source{Filename: "a.pdf"},
	}
	p.Normalize()

	if p.Metadata.Title != "Rondo Book" {
		t.Errorf("title not trimmed: %q", p.Metadata.Title)
	}
	raw, err := json.Marshal(p.Drills[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "null") {
		t.Errorf("normalized drill should not serialize nulls: %s", raw)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejectsBadPositions(t *testing.T) {
	d := DrillBlock{Positions: []PlayerPosition{{X: 101, Y: 5, Role: Attacker}}}
	if err := d.Validate(); err == nil {
		t.Error("expected out-of-range error")
	}

	d = DrillBlock{Positions: []PlayerPosition{{X: 1, Y: 5, Role: "winger"}}}
	if err := d.Validate(); err == nil {
		t.Error("expected role error")
	}

	d = DrillBlock{Positions: []PlayerPosition{
		{X: 1, Y: 5, Role: Attacker, Label: "A1"},
		{X: 1.2, Y: 4.9, Role: Attacker, Label: "A2"},
	}}
	if err := d.Validate(); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestValidateDiagramStructure(t *testing.T) {
	view := HalfPitch
	d := DrillBlock{
		Arrows:    []Arrow{{StartX: 30, StartY: 55, EndX: 45, EndY: 75, Type: ArrowRun}},
		Equipment: []EquipmentMarker{{Type: "cone", X: 10, Y: 10}},
		Goals:     []Goal{{X: 50, Y: 100, Type: "full_goal"}},
		PitchView: &view,
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("valid structure rejected: %v", err)
	}
	if got := d.Arrows[0].Length(); got != 35 {
		t.Errorf("arrow length = %v", got)
	}

	bad := d.Clone()
	bad.Arrows[0].Type = "sprint"
	if err := bad.Validate(); err == nil {
		t.Error("expected arrow type error")
	}
	bad = d.Clone()
	bad.Goals[0].Y = 120
	if err := bad.Validate(); err == nil {
		t.Error("expected goal outside pitch error")
	}
	bad = d.Clone()
	*bad.PitchView = "corner"
	if err := bad.Validate(); err == nil {
		t.Error("expected pitch view error")
	}
	if *d.PitchView != HalfPitch {
		t.Error("clone shares the pitch view")
	}
}

func TestTacticalContextValidateLaneOrder(t *testing.T) {
	tc := &TacticalContext{Methodology: "m", Lanes: []Lane{RightWing, LeftWing}}
	if err := tc.Validate(); err == nil {
		t.Error("out-of-order lanes should fail")
	}
	tc.Lanes = []Lane{LeftWing, CentralCorridor, RightWing}
	if err := tc.Validate(); err != nil {
		t.Errorf("ordered lanes should pass: %v", err)
	}
	tc.Methodology = ""
	if err := tc.Validate(); err == nil {
		t.Error("missing methodology should fail")
	}
}

func TestParseHelpers(t *testing.T) {
	if g, ok := ParseGameElement("pressing"); !ok || g != Pressing {
		t.Errorf("ParseGameElement: %v %v", g, ok)
	}
	if s, ok := ParseSituationType("LATERAL"); !ok || s != Lateral {
		t.Errorf("ParseSituationType: %v %v", s, ok)
	}
	if l, ok := ParseLane("Left Half-Space"); !ok || l != LeftHalfSpace {
		t.Errorf("ParseLane: %v %v", l, ok)
	}
	if _, ok := ParseLane("touchline"); ok {
		t.Error("unknown lane should not parse")
	}
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator()
	p := SessionPlan{Drills: []DrillBlock{{}, {ID: "keep"}}}
	g.AssignIDs(&p)

	if !ValidID(p.ID) {
		t.Errorf("plan id %q is not a ULID", p.ID)
	}
	if !ValidID(p.Drills[0].ID) {
		t.Errorf("drill id %q is not a ULID", p.Drills[0].ID)
	}
	if p.Drills[1].ID != "keep" {
		t.Error("existing ids must be preserved")
	}
	if a, b := g.New(), g.New(); a >= b {
		t.Errorf("ids should be monotonic: %s >= %s", a, b)
	}
}

func TestCloneIsDeep(t *testing.T) {
	ge := Pressing
	d := DrillBlock{
		Sequence:        []string{"a"},
		TacticalContext: &TacticalContext{Methodology: "m", GameElement: &ge},
	}
	c := d.Clone()
	c.Sequence[0] = "b"
	*c.TacticalContext.GameElement = CounterAttack

	if d.Sequence[0] != "a" || *d.TacticalContext.GameElement != Pressing {
		t.Error("clone shares memory with original")
	}
}
