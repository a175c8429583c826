package enrich

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

func TestEnrichRondoPressing(t *testing.T) {
	d := &schema.DrillBlock{
		Name:           "Drill 1: 2v1 Rondo",
		CoachingPoints: []string{"press high and win the ball"},
	}
	tc := Default().Enrich(d)
	if tc == nil {
		t.Fatal("expected a tactical context")
	}
	if tc.GameElement == nil || *tc.GameElement != schema.Pressing {
		t.Errorf("game element = %v, want Pressing", tc.GameElement)
	}
	if tc.NumericalAdvantage == nil || *tc.NumericalAdvantage != "2v1" {
		t.Errorf("numerical advantage = %v, want 2v1", tc.NumericalAdvantage)
	}
	if tc.Methodology != DefaultMethodology {
		t.Errorf("methodology = %q", tc.Methodology)
	}
	if err := tc.Validate(); err != nil {
		t.Errorf("context should validate: %v", err)
	}
}

func TestEnrichNoMatch(t *testing.T) {
	d := &schema.DrillBlock{Name: "Juggling", Sequence: []string{"keep the ball up"}}
	if tc := Default().Enrich(d); tc != nil {
		t.Errorf("expected nil context, got %+v", tc)
	}
	if tc := Default().Enrich(&schema.DrillBlock{}); tc != nil {
		t.Errorf("empty drill should have no context, got %+v", tc)
	}
}

func TestEnrichPriorityOrder(t *testing.T) {
	cases := []struct {
		text string
		want schema.GameElement
	}{
		{"counter press immediately after losing the ball", schema.CounterPressing},
		{"Gegenpressing drill", schema.CounterPressing},
		{"Counter-attack after winning possession and press", schema.CounterAttack},
		{"pressing trap on the touchline", schema.Pressing},
		{"build-up from the goalkeeper", schema.BuildUpPlay},
		{"transition to defence after the shot", schema.TransitionToDefense},
	}
	e := Default()
	for _, tc := range cases {
		ctx := e.Enrich(&schema.DrillBlock{Name: tc.text})
		if ctx == nil || ctx.GameElement == nil {
			t.Errorf("%q: no game element", tc.text)
			continue
		}
		if *ctx.GameElement != tc.want {
			t.Errorf("%q: got %s, want %s", tc.text, *ctx.GameElement, tc.want)
		}
	}
}

func TestEnrichWordStartMatching(t *testing.T) {
	ctx := Default().Enrich(&schema.DrillBlock{Name: "Express passing"})
	if ctx != nil && ctx.GameElement != nil {
		t.Errorf("\"express\" should not match Pressing, got %s", *ctx.GameElement)
	}
}

func TestEnrichLanesInPitchOrder(t *testing.T) {
	d := &schema.DrillBlock{
		Name:     "Switch play",
		Sequence: []string{"start on the right wing", "play through the middle", "finish on the left flank"},
	}
	tc := Default().Enrich(d)
	if tc == nil {
		t.Fatal("expected context")
	}
	want := []schema.Lane{schema.LeftWing, schema.CentralCorridor, schema.RightWing}
	if !reflect.DeepEqual(tc.Lanes, want) {
		t.Errorf("lanes = %v, want %v", tc.Lanes, want)
	}
}

func TestEnrichSituationAndNumbers(t *testing.T) {
	d := &schema.DrillBlock{
		Name:  "Lateral 2 vs 1",
		Rules: []string{"defender starts from the side", "then 3v2"},
	}
	tc := Default().Enrich(d)
	if tc == nil || tc.SituationType == nil || *tc.SituationType != schema.Lateral {
		t.Fatalf("situation = %+v", tc)
	}
	if *tc.NumericalAdvantage != "2v1" {
		t.Errorf("first match should win, got %s", *tc.NumericalAdvantage)
	}
}

func TestEnrichIsDeterministic(t *testing.T) {
	vlm := "Attackers A1 and A2 in the left half-space, defender approaches from behind"
	d := &schema.DrillBlock{
		Name:           "3v2 to goal",
		VLMDescription: &vlm,
		CoachingPoints: []string{"fast break when we win it"},
	}
	e := Default()
	first := e.Enrich(d)
	for i := 0; i < 20; i++ {
		if got := e.Enrich(d); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, got)
		}
	}
	if *first.GameElement != schema.FastBreak || *first.SituationType != schema.Behind {
		t.Errorf("unexpected context %+v", first)
	}
	if !reflect.DeepEqual(first.Lanes, []schema.Lane{schema.LeftHalfSpace}) {
		t.Errorf("lanes = %v", first.Lanes)
	}
}

func TestEnrichPlanWarnings(t *testing.T) {
	plan := &schema.SessionPlan{
		Drills: []schema.DrillBlock{
			{Name: "Pressing game", Sequence: []string{"go"}},
		},
	}
	warnings := Default().EnrichPlan(plan)
	if plan.Drills[0].TacticalContext == nil {
		t.Error("drill should be enriched")
	}
	var msgs []string
	for _, w := range warnings {
		msgs = append(msgs, w.Message)
	}
	joined := strings.Join(msgs, "; ")
	if !strings.Contains(joined, "no title") || !strings.Contains(joined, "no coaching points") {
		t.Errorf("unexpected warnings: %s", joined)
	}
	if strings.Contains(joined, "no sequence") {
		t.Errorf("drill has a sequence: %s", joined)
	}
}

func TestTaxonomyValidateAndMerge(t *testing.T) {
	bad := DefaultTaxonomy()
	bad.GameElements = append(bad.GameElements, Entry{Value: "Tiki Taka"})
	if _, err := New(bad); err == nil {
		t.Error("unknown game element should be rejected")
	}

	merged := DefaultTaxonomy().Merge(Taxonomy{
		Version:      "2",
		GameElements: []Entry{{Value: "Pressing", Keywords: []string{"hunt the ball"}}},
	})
	if merged.Version != "2" || merged.Methodology != DefaultMethodology {
		t.Errorf("merge header = %q/%q", merged.Version, merged.Methodology)
	}
	e, err := New(merged)
	if err != nil {
		t.Fatal(err)
	}
	tc := e.Enrich(&schema.DrillBlock{Name: "hunt the ball in packs"})
	if tc == nil || tc.GameElement == nil || *tc.GameElement != schema.Pressing {
		t.Errorf("override keyword not applied: %+v", tc)
	}
	if tc := e.Enrich(&schema.DrillBlock{Name: "press"}); tc != nil && tc.GameElement != nil {
		t.Errorf("replaced keyword still matches: %s", *tc.GameElement)
	}
}
