// Package storetest holds behavior checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

// NewPlan builds a valid plan with two drills, the first enriched.
func NewPlan(ids *schema.IDGenerator, title string) schema.SessionPlan {
	ge := schema.Pressing
	st := schema.Frontal
	adv := "2v1"
	ref := "file:///images/diagram_000.png"
	desc := "Two attackers against one defender"
	view := schema.HalfPitch
	plan := schema.SessionPlan{
		Metadata: schema.Metadata{Title: title, Author: "Marco Rossi", Category: "Pressing"},
		Drills: []schema.DrillBlock{
			{
				Name:           "Drill 1: 2v1 Rondo",
				Setup:          schema.DrillSetup{Description: "20x20 m grid", PlayerCount: "2v1"},
				CoachingPoints: []string{"Press on the first touch"},
				VLMDescription: &desc,
				ImageRef:       &ref,
				Positions: []schema.PlayerPosition{
					{X: 30, Y: 50, Role: schema.Attacker, Label: "A1"},
					{X: 60, Y: 50, Role: schema.Defender, Label: "D1", Color: "blue"},
				},
				Arrows:    []schema.Arrow{{StartX: 30, StartY: 50, EndX: 45, EndY: 70, Type: schema.ArrowRun, FromLabel: "A1"}},
				Equipment: []schema.EquipmentMarker{{Type: "cone", X: 10, Y: 10}},
				Goals:     []schema.Goal{{X: 50, Y: 100, Type: "full_goal"}},
				PitchView: &view,
				TacticalContext: &schema.TacticalContext{
					Methodology:        "Peters/Schumacher 2v1 v1",
					GameElement:        &ge,
					SituationType:      &st,
					Lanes:              []schema.Lane{schema.LeftWing, schema.CentralCorridor},
					NumericalAdvantage: &adv,
				},
			},
			{Name: "Drill 2: Cool down"},
		},
		Source: schema.Source{Filename: "rondo.pdf", PageCount: 12, ExtractedAt: time.Now().UTC().Truncate(time.Second)},
	}
	ids.AssignIDs(&plan)
	plan.Normalize()
	return plan
}

// Run exercises the full Store contract against a fresh store from open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("SaveGet", func(t *testing.T) { testSaveGet(t, open(t)) })
	t.Run("SaveRejectsInvalid", func(t *testing.T) { testSaveRejectsInvalid(t, open(t)) })
	t.Run("SaveDuplicate", func(t *testing.T) { testSaveDuplicate(t, open(t)) })
	t.Run("List", func(t *testing.T) { testList(t, open(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("FindDrills", func(t *testing.T) { testFindDrills(t, open(t)) })
	t.Run("TacticalContextRecord", func(t *testing.T) { testTacticalContextRecord(t, open(t)) })
	t.Run("SaveIsAtomic", func(t *testing.T) { testSaveIsAtomic(t, open(t)) })
}

func testSaveGet(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()
	plan := NewPlan(ids, "Rondo Book")
	if err := st.SaveSessionPlan(ctx, plan); err != nil {
		t.Fatalf("SaveSessionPlan: %v", err)
	}
	got, err := st.GetSessionPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetSessionPlan: %v", err)
	}
	if got.ID != plan.ID || got.Metadata != plan.Metadata {
		t.Errorf("plan mismatch: %+v", got)
	}
	if !got.Source.ExtractedAt.Equal(plan.Source.ExtractedAt) || got.Source.PageCount != 12 {
		t.Errorf("source mismatch: %+v", got.Source)
	}
	if len(got.Drills) != 2 || got.Drills[0].ID != plan.Drills[0].ID || got.Drills[1].Name != "Drill 2: Cool down" {
		t.Fatalf("drills not in document order: %+v", got.Drills)
	}
	d := got.Drills[0]
	if d.TacticalContext == nil || *d.TacticalContext.GameElement != schema.Pressing || len(d.TacticalContext.Lanes) != 2 {
		t.Errorf("tactical context lost: %+v", d.TacticalContext)
	}
	if len(d.Positions) != 2 || d.ImageRef == nil || *d.ImageRef != *plan.Drills[0].ImageRef {
		t.Errorf("diagram data lost: %+v", d)
	}
	if len(d.Arrows) != 1 || d.Arrows[0] != plan.Drills[0].Arrows[0] || len(d.Goals) != 1 || len(d.Equipment) != 1 {
		t.Errorf("diagram structure lost: %+v", d)
	}
	if d.PitchView == nil || *d.PitchView != schema.HalfPitch || d.Positions[1].Color != "blue" {
		t.Errorf("pitch view or colour lost: %+v", d)
	}
	if got.Drills[1].TacticalContext != nil {
		t.Error("unenriched drill gained a context")
	}

	if _, err := st.GetSessionPlan(ctx, ids.New()); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSaveRejectsInvalid(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()

	plan := NewPlan(ids, "Bad")
	plan.ID = ""
	if err := st.SaveSessionPlan(ctx, plan); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("missing id: expected ErrInvalidInput, got %v", err)
	}

	plan = NewPlan(ids, "Bad")
	plan.Drills[0].Positions[0].X = 140
	if err := st.SaveSessionPlan(ctx, plan); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("bad position: expected ErrInvalidInput, got %v", err)
	}
	if _, err := st.GetSessionPlan(ctx, plan.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("rejected plan must not be stored, got %v", err)
	}
}

func testSaveDuplicate(t *testing.T, st store.Store) {
	ctx := context.Background()
	plan := NewPlan(schema.NewIDGenerator(), "Dup")
	if err := st.SaveSessionPlan(ctx, plan); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSessionPlan(ctx, plan); !errors.Is(err, internalerr.ErrConflict) {
		t.Errorf("saving the same id twice: expected ErrConflict, got %v", err)
	}
	got, err := st.GetSessionPlan(ctx, plan.ID)
	if err != nil || len(got.Drills) != 2 {
		t.Errorf("failed save must leave the original intact: %v %d", err, len(got.Drills))
	}
}

func testList(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()
	older := NewPlan(ids, "Older")
	older.Source.ExtractedAt = older.Source.ExtractedAt.Add(-time.Hour)
	newer := NewPlan(ids, "Newer")
	newer.Drills = newer.Drills[:1]
	for _, p := range []schema.SessionPlan{older, newer} {
		if err := st.SaveSessionPlan(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := st.ListSessionPlans(ctx, store.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "Newer" || list[1].Title != "Older" {
		t.Fatalf("expected newest first: %+v", list)
	}
	if list[0].DrillCount != 1 || list[1].DrillCount != 2 || list[0].Filename != "rondo.pdf" {
		t.Errorf("unexpected summaries: %+v", list)
	}

	page, err := st.ListSessionPlans(ctx, store.ListOptions{Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || page[0].Title != "Older" {
		t.Errorf("paging: %+v %v", page, err)
	}
}

func testUpdate(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()
	plan := NewPlan(ids, "Before")
	if err := st.SaveSessionPlan(ctx, plan); err != nil {
		t.Fatal(err)
	}

	plan.Metadata.Title = "After"
	plan.Drills = plan.Drills[1:]
	plan.Drills = append(plan.Drills, schema.DrillBlock{ID: ids.New(), Name: "Drill 3"})
	if err := st.UpdateSessionPlan(ctx, plan); err != nil {
		t.Fatalf("UpdateSessionPlan: %v", err)
	}
	got, err := st.GetSessionPlan(ctx, plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.Title != "After" || len(got.Drills) != 2 || got.Drills[1].Name != "Drill 3" {
		t.Errorf("update not applied: %+v", got)
	}
	if matches, _ := st.FindDrills(ctx, store.DrillFilter{GameElement: schema.Pressing}); len(matches) != 0 {
		t.Errorf("removed drill still indexed: %+v", matches)
	}

	missing := NewPlan(ids, "Missing")
	if err := st.UpdateSessionPlan(ctx, missing); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, st store.Store) {
	ctx := context.Background()
	plan := NewPlan(schema.NewIDGenerator(), "Gone")
	if err := st.SaveSessionPlan(ctx, plan); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteSessionPlan(ctx, plan.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetSessionPlan(ctx, plan.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	drills, err := st.ListDrills(ctx, plan.ID)
	if err != nil || len(drills) != 0 {
		t.Errorf("drills should cascade: %d %v", len(drills), err)
	}
	if err := st.DeleteSessionPlan(ctx, plan.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func testFindDrills(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()
	a := NewPlan(ids, "A")
	b := NewPlan(ids, "B")
	ca := schema.CounterAttack
	b.Drills[0].TacticalContext.GameElement = &ca
	b.Drills[0].TacticalContext.Lanes = []schema.Lane{schema.RightWing}
	for _, p := range []schema.SessionPlan{a, b} {
		if err := st.SaveSessionPlan(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	drills, err := st.ListDrills(ctx, a.ID)
	if err != nil || len(drills) != 2 || drills[0].Name != "Drill 1: 2v1 Rondo" {
		t.Fatalf("ListDrills: %+v %v", drills, err)
	}

	cases := []struct {
		name   string
		filter store.DrillFilter
		want   []string
	}{
		{"game element", store.DrillFilter{GameElement: schema.Pressing}, []string{a.Drills[0].ID}},
		{"lane", store.DrillFilter{Lane: schema.RightWing}, []string{b.Drills[0].ID}},
		{"situation", store.DrillFilter{SituationType: schema.Frontal}, []string{a.Drills[0].ID, b.Drills[0].ID}},
		{"combined", store.DrillFilter{SituationType: schema.Frontal, Lane: schema.CentralCorridor}, []string{a.Drills[0].ID}},
		{"plan scoped", store.DrillFilter{PlanID: b.ID}, []string{b.Drills[0].ID, b.Drills[1].ID}},
		{"limit", store.DrillFilter{SituationType: schema.Frontal, Limit: 1}, []string{a.Drills[0].ID}},
	}
	for _, tc := range cases {
		matches, err := st.FindDrills(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		var got []string
		for _, m := range matches {
			got = append(got, m.Drill.ID)
		}
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
				break
			}
		}
	}

	matches, _ := st.FindDrills(ctx, store.DrillFilter{GameElement: schema.CounterAttack})
	if len(matches) != 1 || matches[0].PlanID != b.ID || matches[0].PlanTitle != "B" {
		t.Errorf("match should carry its plan: %+v", matches)
	}
}

func testTacticalContextRecord(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()
	plan := NewPlan(ids, "Context Record")
	if err := st.SaveSessionPlan(ctx, plan); err != nil {
		t.Fatalf("SaveSessionPlan: %v", err)
	}

	tc, err := st.GetTacticalContext(ctx, plan.Drills[0].ID)
	if err != nil {
		t.Fatalf("GetTacticalContext: %v", err)
	}
	want := plan.Drills[0].TacticalContext
	if tc.Methodology != want.Methodology || tc.GameElement == nil || *tc.GameElement != *want.GameElement {
		t.Errorf("context record = %+v", tc)
	}
	if tc.SituationType == nil || *tc.SituationType != schema.Frontal || tc.NumericalAdvantage == nil || *tc.NumericalAdvantage != "2v1" {
		t.Errorf("context record = %+v", tc)
	}
	if len(tc.Lanes) != 2 || tc.Lanes[0] != schema.LeftWing || tc.Lanes[1] != schema.CentralCorridor {
		t.Errorf("lanes = %v", tc.Lanes)
	}

	if _, err := st.GetTacticalContext(ctx, plan.Drills[1].ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("unenriched drill: expected ErrNotFound, got %v", err)
	}

	ge := schema.CounterPressing
	plan.Drills[0].TacticalContext.GameElement = &ge
	if err := st.UpdateSessionPlan(ctx, plan); err != nil {
		t.Fatalf("UpdateSessionPlan: %v", err)
	}
	tc, err = st.GetTacticalContext(ctx, plan.Drills[0].ID)
	if err != nil || tc.GameElement == nil || *tc.GameElement != schema.CounterPressing {
		t.Errorf("context record not replaced: %+v %v", tc, err)
	}

	if err := st.DeleteSessionPlan(ctx, plan.ID); err != nil {
		t.Fatalf("DeleteSessionPlan: %v", err)
	}
	if _, err := st.GetTacticalContext(ctx, plan.Drills[0].ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("context should be deleted with its plan, got %v", err)
	}
}

func testSaveIsAtomic(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := schema.NewIDGenerator()

	// The plan row is written before the drill insert fails.
	plan := NewPlan(ids, "Duplicate Drills")
	plan.Drills[1].ID = plan.Drills[0].ID
	if err := st.SaveSessionPlan(ctx, plan); err == nil {
		t.Fatal("expected duplicate drill ids to fail")
	}
	if _, err := st.GetSessionPlan(ctx, plan.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("failed save left a plan behind: %v", err)
	}
	if drills, err := st.ListDrills(ctx, plan.ID); err != nil || len(drills) != 0 {
		t.Errorf("failed save left drills behind: %v %v", drills, err)
	}

	first := NewPlan(ids, "First")
	if err := st.SaveSessionPlan(ctx, first); err != nil {
		t.Fatalf("SaveSessionPlan: %v", err)
	}
	second := NewPlan(ids, "Second")
	second.Drills[1].ID = first.Drills[0].ID
	if err := st.SaveSessionPlan(ctx, second); err == nil {
		t.Fatal("expected a drill id owned by another plan to fail")
	}
	if _, err := st.GetSessionPlan(ctx, second.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("failed save left a plan behind: %v", err)
	}
	got, err := st.GetSessionPlan(ctx, first.ID)
	if err != nil || len(got.Drills) != 2 || got.Drills[0].Name != first.Drills[0].Name {
		t.Errorf("existing plan disturbed: %+v %v", got, err)
	}
	if _, err := st.GetTacticalContext(ctx, first.Drills[0].ID); err != nil {
		t.Errorf("existing context disturbed: %v", err)
	}

	// A failed update keeps the previous version.
	update := first.Clone()
	update.Metadata.Title = "Renamed"
	update.Drills = append(update.Drills, update.Drills[0])
	if err := st.UpdateSessionPlan(ctx, update); err == nil {
		t.Fatal("expected duplicate drill ids to fail on update")
	}
	got, err = st.GetSessionPlan(ctx, first.ID)
	if err != nil || got.Metadata.Title != "First" || len(got.Drills) != 2 {
		t.Errorf("failed update changed the plan: %+v %v", got, err)
	}
}
