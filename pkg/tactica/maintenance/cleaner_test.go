package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/enrich"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
	"github.com/cognicore/tactica/pkg/tactica/store/memstore"
	"github.com/cognicore/tactica/pkg/tactica/store/storetest"
)

func seed(t *testing.T, st store.Store, ids *schema.IDGenerator, n int) []string {
	t.Helper()
	var out []string
	for i := 0; i < n; i++ {
		plan := storetest.NewPlan(ids, "Plan")
		plan.Drills[0].Setup.Description = "Overload the left wing"
		plan.Drills[0].TacticalContext = nil
		if err := st.SaveSessionPlan(context.Background(), plan); err != nil {
			t.Fatal(err)
		}
		out = append(out, plan.ID)
	}
	return out
}

func TestCleanReenrichesChangedDrills(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	ids := seed(t, st, schema.NewIDGenerator(), 3)

	c := &Cleaner{Store: st, Enricher: enrich.Default(), PageSize: 2}
	res, err := c.Clean(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 3 || res.Updated != 3 || res.Errors != 0 {
		t.Fatalf("result = %+v", res)
	}
	plan, err := st.GetSessionPlan(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	tc := plan.Drills[0].TacticalContext
	if tc == nil || len(tc.Lanes) != 1 || tc.Lanes[0] != schema.LeftWing {
		t.Errorf("context = %+v", tc)
	}

	// A second run finds nothing to change.
	res, err = c.Clean(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || res.DrillsChanged != 0 {
		t.Errorf("second run = %+v", res)
	}
}

func TestCleanDryRun(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	ids := seed(t, st, schema.NewIDGenerator(), 1)

	res, err := (&Cleaner{Store: st, Enricher: enrich.Default(), DryRun: true}).Clean(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 {
		t.Errorf("result = %+v", res)
	}
	plan, _ := st.GetSessionPlan(ctx, ids[0])
	if plan.Drills[0].TacticalContext != nil {
		t.Error("dry run must not write")
	}
}

func TestCleanCountsUpdateFailures(t *testing.T) {
	st := memstore.New()
	seed(t, st, schema.NewIDGenerator(), 1)
	st.FailSave = errors.New("locked")

	res, err := (&Cleaner{Store: st, Enricher: enrich.Default()}).Clean(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors != 1 || res.Updated != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestCleanRequiresCollaborators(t *testing.T) {
	if _, err := (&Cleaner{}).Clean(context.Background()); err == nil {
		t.Error("expected configuration error")
	}
}
