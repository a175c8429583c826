package analytics

import (
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

func drill(ge schema.GameElement, lanes ...schema.Lane) schema.DrillBlock {
	g := ge
	return schema.DrillBlock{
		Name:            string(ge),
		TacticalContext: &schema.TacticalContext{GameElement: &g, Lanes: lanes},
	}
}

func TestAnalyzerCounts(t *testing.T) {
	a := NewAnalyzer()
	ref := "diagram"
	na := "3v2"
	a.Process(schema.SessionPlan{Drills: []schema.DrillBlock{
		drill(schema.Pressing, schema.CentralCorridor),
		drill(schema.Pressing, schema.CentralCorridor, schema.LeftWing),
		{Name: "Warm up"},
	}})
	a.Process(schema.SessionPlan{Drills: []schema.DrillBlock{
		drill(schema.CounterAttack, schema.LeftWing),
		{Name: "Finishing", ImageRef: &ref, TacticalContext: &schema.TacticalContext{NumericalAdvantage: &na}},
	}})

	stats := a.Snapshot()
	if stats.Plans != 2 || stats.Drills != 5 || stats.Enriched != 4 || stats.WithDiagram != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := stats.Coverage(); got != 0.8 {
		t.Errorf("coverage = %v", got)
	}

	top := Top(stats.GameElements, 1)
	if len(top) != 1 || top[0].Value != string(schema.Pressing) || top[0].Count != 2 {
		t.Errorf("top game elements = %+v", top)
	}
	lanes := Top(stats.Lanes, 0)
	if len(lanes) != 2 || lanes[0].Count != 2 || lanes[0].Value != string(schema.CentralCorridor) {
		t.Errorf("lanes = %+v", lanes)
	}
	if stats.Numbers["3v2"] != 1 {
		t.Errorf("numbers = %v", stats.Numbers)
	}
}

func TestAssociationsRankByPMI(t *testing.T) {
	a := NewAnalyzer()
	a.Process(schema.SessionPlan{Drills: []schema.DrillBlock{
		drill(schema.Pressing, schema.CentralCorridor),
		drill(schema.Pressing, schema.CentralCorridor),
		drill(schema.Pressing, schema.CentralCorridor),
		drill(schema.CounterAttack, schema.RightWing),
		drill(schema.CounterAttack, schema.RightWing),
		drill(schema.CounterAttack, schema.CentralCorridor),
	}})
	assoc := a.Snapshot().Associations(2)
	if len(assoc) != 2 {
		t.Fatalf("associations = %+v", assoc)
	}
	if assoc[0].GameElement != string(schema.CounterAttack) || assoc[0].Lane != string(schema.RightWing) {
		t.Errorf("strongest association = %+v", assoc[0])
	}
	if assoc[0].PMI <= assoc[1].PMI {
		t.Errorf("expected descending PMI: %+v", assoc)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	a := NewAnalyzer()
	a.Process(schema.SessionPlan{Drills: []schema.DrillBlock{drill(schema.Pressing)}})
	stats := a.Snapshot()
	stats.GameElements["Pressing"] = 99
	if a.Snapshot().GameElements["Pressing"] != 1 {
		t.Error("snapshot shares state with the analyzer")
	}
}
