package tactica

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/config"
	"github.com/cognicore/tactica/pkg/tactica/decompose"
	"github.com/cognicore/tactica/pkg/tactica/imagestore"
	"github.com/cognicore/tactica/pkg/tactica/index"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/pipeline"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
	"github.com/cognicore/tactica/pkg/tactica/store/memstore"
	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Page >> endobj\n%%EOF")

const sampleMarkdown = `# Counter Attacking Week

## Transition Game
After winning the ball the team plays a fast break down the left wing.

### Coaching Points
- First pass forward

## Finishing Drill
Frontal 3v2 attack on goal from the central corridor.

### Sequence
1. Wide player crosses
2. Striker finishes
`

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeBundle lays out a pre-decomposed "session.pdf" in dir.
func writeBundle(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "session.md"), []byte(sampleMarkdown), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "session"), 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(dir, "session", "01.png"), color.White)
	writePNG(t, filepath.Join(dir, "session", "02.png"), color.Black)
}

var diagramBackend = vlm.BackendFunc(func(ctx context.Context, req vlm.Request) (string, error) {
	return `{"is_diagram": true, "description": "Winger overlaps and crosses", "movement_patterns": ["overlap"]}`, nil
})

type engine struct {
	*Tactica
	store  *memstore.Store
	images *imagestore.FS
	index  *index.Bleve
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	dir := t.TempDir()
	writeBundle(t, dir)

	st := memstore.New()
	images, err := imagestore.NewFS(filepath.Join(dir, "images"))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := index.OpenBleve("", nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(pipeline.Options{
		Decomposer: &decompose.Bundle{Dir: dir},
		Analyzer:   vlm.NewAnalyzer(diagramBackend, nil, false),
		Store:      st,
		Images:     images,
		Indexer:    idx,
	})
	if err != nil {
		t.Fatal(err)
	}
	e := &engine{
		Tactica: New(Options{Store: st, Pipeline: p, Images: images, Indexer: idx}),
		store:   st,
		images:  images,
		index:   idx,
	}
	t.Cleanup(func() {
		e.Close()
		idx.Close()
	})
	return e
}

func ingest(t *testing.T, e *engine) schema.SessionPlan {
	t.Helper()
	res, err := e.Ingest(context.Background(), samplePDF, "session.pdf")
	if err != nil {
		t.Fatal(err)
	}
	return res.Plan
}

func TestIngestAndBrowse(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	plan := ingest(t, e)

	if plan.Metadata.Title != "Counter Attacking Week" {
		t.Errorf("title = %q", plan.Metadata.Title)
	}
	if len(plan.Drills) != 2 {
		t.Fatalf("drills = %d", len(plan.Drills))
	}

	sessions, err := e.ListSessions(ctx, store.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != plan.ID || sessions[0].DrillCount != 2 {
		t.Errorf("sessions = %+v", sessions)
	}

	drills, err := e.Drills(ctx, plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if drills[0].Name != "Transition Game" || drills[1].Name != "Finishing Drill" {
		t.Errorf("drills = %q, %q", drills[0].Name, drills[1].Name)
	}
	if drills[1].ImageRef == nil {
		t.Fatal("second drill should reference the second diagram")
	}
	img, err := e.Image(ctx, *drills[1].ImageRef)
	if err != nil || len(img) == 0 {
		t.Errorf("image: %d bytes, %v", len(img), err)
	}

	matches, err := e.FindDrills(ctx, store.DrillFilter{Lane: schema.CentralCorridor})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Drill.Name != "Finishing Drill" || matches[0].PlanTitle != plan.Metadata.Title {
		t.Errorf("matches = %+v", matches)
	}
}

func TestSearchResolvesPlans(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	plan := ingest(t, e)

	hits, err := e.Search(ctx, "striker finishes", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].PlanID != plan.ID || hits[0].PlanTitle != plan.Metadata.Title {
		t.Errorf("hits = %+v", hits)
	}

	// Index entries for plans missing from the store are dropped.
	if err := e.index.Index(ctx, "ghost", []index.Page{{Number: 1, Text: "striker finishes alone"}}); err != nil {
		t.Fatal(err)
	}
	hits, err = e.Search(ctx, "striker finishes", 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.PlanID == "ghost" {
			t.Errorf("ghost hit returned: %+v", h)
		}
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	e := New(Options{Store: memstore.New()})
	_, err := e.Search(context.Background(), "anything", 3)
	if !errors.Is(err, internalerr.ErrIndexing) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdateSessionReEnriches(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	plan := ingest(t, e)

	edited := plan.Clone()
	edited.Metadata.Title = "Pressing Week"
	edited.Drills[0].Setup.Description = "Counter press immediately after losing the ball."
	edited.Drills = append(edited.Drills, schema.DrillBlock{Name: "Cool Down", Setup: schema.DrillSetup{Description: "Light jog"}})

	updated, warnings, err := e.UpdateSession(ctx, edited)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) == 0 {
		t.Error("expected quality warnings for the cool down drill")
	}
	ge := updated.Drills[0].TacticalContext.GameElement
	if ge == nil || *ge != schema.CounterPressing {
		t.Errorf("game element = %v", ge)
	}
	if !schema.ValidID(updated.Drills[2].ID) {
		t.Errorf("new drill id = %q", updated.Drills[2].ID)
	}
	if updated.Drills[0].ID != plan.Drills[0].ID {
		t.Error("existing drill ids must be kept")
	}

	got, err := e.GetSession(ctx, plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.Title != "Pressing Week" || len(got.Drills) != 3 {
		t.Errorf("stored = %q with %d drills", got.Metadata.Title, len(got.Drills))
	}
	if !got.Source.ExtractedAt.Equal(plan.Source.ExtractedAt) {
		t.Error("source must not change on update")
	}
}

func TestUpdateSessionMissing(t *testing.T) {
	e := newEngine(t)
	plan := ingest(t, e)
	plan.ID = schema.NewIDGenerator().New()
	if _, _, err := e.UpdateSession(context.Background(), plan); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	plan.ID = "not-a-ulid"
	if _, _, err := e.UpdateSession(context.Background(), plan); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteSessionRemovesEverything(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	plan := ingest(t, e)
	ref := *plan.Drills[0].ImageRef

	if err := e.DeleteSession(ctx, plan.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.GetSession(ctx, plan.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if _, err := e.images.Get(ctx, ref); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("image after delete: %v", err)
	}
	if hits, _ := e.index.Search(ctx, "striker", 5); len(hits) != 0 {
		t.Errorf("index hits after delete: %+v", hits)
	}
	if err := e.DeleteSession(ctx, plan.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestOpenFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir)
	t.Chdir(dir)

	app, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	app.Store.Driver = "sqlite"
	app.Store.DSN = filepath.Join(dir, "tactica.db")
	app.Decomposer.Backend = "bundle"
	app.Decomposer.BundleDir = dir
	app.Images.Dir = filepath.Join(dir, "images")
	app.Index.Path = filepath.Join(dir, "pages.bleve")
	app.Cache.Backend = "none"

	e, err := Open(context.Background(), app, nil)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := e.ListSessions(context.Background(), store.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d", len(sessions))
	}
	if e.Taxonomy().Methodology == "" {
		t.Error("taxonomy not loaded")
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenRejectsIncompleteBundleConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	app, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	app.Store.Driver = "memory"
	app.Decomposer.Backend = "bundle"
	app.Index.Enabled = false
	if _, err := Open(context.Background(), app, nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("err = %v", err)
	}
}

func TestStatsAndReenrich(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	plan := ingest(t, e)

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Plans != 1 || stats.Drills != 2 || stats.WithDiagram != 2 {
		t.Errorf("stats = %+v", stats)
	}

	res, err := e.Reenrich(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Updated != 0 {
		t.Errorf("reenrich on a fresh plan = %+v", res)
	}

	edited, _ := e.GetSession(ctx, plan.ID)
	edited.Drills[1].TacticalContext = nil
	if err := e.store.UpdateSessionPlan(ctx, edited); err != nil {
		t.Fatal(err)
	}
	res, err = e.Reenrich(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.DrillsChanged != 1 {
		t.Errorf("reenrich = %+v", res)
	}
}
