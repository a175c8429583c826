package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/pipeline"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

const bundleMarkdown = `# Wing Play

## Overlap Drill
2v1 down the right wing. The full back overlaps.

### Coaching Points
- Time the run

## Pressing Game
Press the ball carrier in the central corridor.
`

type cliEnv struct {
	dir        string
	configPath string
	pdfPath    string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	vlmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"is_diagram": true, "description": "Full back overlaps the winger", "movement_patterns": ["overlap"]}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "test",
			"message": map[string]string{"role": "assistant", "content": content},
		})
	}))
	t.Cleanup(vlmServer.Close)

	bundle := filepath.Join(dir, "bundle")
	if err := os.MkdirAll(filepath.Join(bundle, "wing"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "wing.md"), []byte(bundleMarkdown), 0o644); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "wing", "01.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	pdfPath := filepath.Join(dir, "wing.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4\n1 0 obj << /Type /Page >> endobj\n%%EOF"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := strings.Join([]string{
		"log_mode: \"off\"",
		"vlm:",
		"  url: " + vlmServer.URL,
		"  model: test-vl",
		"  positions_enabled: false",
		"  max_attempts: 1",
		"cache:",
		"  backend: none",
		"decomposer:",
		"  backend: bundle",
		"  bundle_dir: " + bundle,
		"store:",
		"  driver: sqlite",
		"  dsn: " + filepath.Join(dir, "tactica.db"),
		"images:",
		"  dir: " + filepath.Join(dir, "images"),
		"index:",
		"  path: " + filepath.Join(dir, "pages.bleve"),
		"  wait: 10s",
		"",
	}, "\n")
	configPath := filepath.Join(dir, "tactica.yaml")
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return &cliEnv{dir: dir, configPath: configPath, pdfPath: pdfPath}
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in output:\n%s", want, out)
	}
}

func ingestJSON(t *testing.T, env *cliEnv) pipeline.Result {
	t.Helper()
	out, err := runCLI(t, env, "ingest", env.pdfPath, "--json")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode ingest output: %v\n%s", err, out)
	}
	return res
}

func TestIngestListShowExportDelete(t *testing.T) {
	env := setupCLIEnv(t)
	res := ingestJSON(t, env)
	id := res.Plan.ID
	if !schema.ValidID(id) || len(res.Plan.Drills) != 2 || !res.Indexed {
		t.Fatalf("result = %+v", res)
	}

	out, err := runCLI(t, env, "sessions", "list")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, id)
	requireContains(t, out, "Wing Play")

	out, err = runCLI(t, env, "sessions", "show", id)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Overlap Drill")
	requireContains(t, out, "Right Wing")

	target := filepath.Join(env.dir, "export.json")
	out, err = runCLI(t, env, "sessions", "export", id, "--output", target)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Exported")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	var exported schema.SessionPlan
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatal(err)
	}
	if exported.ID != id || len(exported.Drills) != 2 {
		t.Errorf("exported = %s with %d drills", exported.ID, len(exported.Drills))
	}

	out, err = runCLI(t, env, "sessions", "delete", id)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Deleted")
	if _, err := runCLI(t, env, "sessions", "show", id); err == nil {
		t.Error("show after delete should fail")
	}
}

func TestDrillsAndSearch(t *testing.T) {
	env := setupCLIEnv(t)
	res := ingestJSON(t, env)

	out, err := runCLI(t, env, "drills", res.Plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Overlap Drill")
	requireContains(t, out, "Pressing Game")

	out, err = runCLI(t, env, "drills", "--game-element", "pressing")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Pressing Game")
	if strings.Contains(out, "Overlap Drill") {
		t.Errorf("filter leaked:\n%s", out)
	}

	if _, err := runCLI(t, env, "drills", "--lane", "nowhere"); err == nil {
		t.Error("unknown lane should fail")
	}
	if _, err := runCLI(t, env, "drills"); err == nil {
		t.Error("drills without plan or filter should fail")
	}

	out, err = runCLI(t, env, "search", "full", "back", "overlaps")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, res.Plan.ID)
}

func TestTaxonomyCommand(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := runCLI(t, env, "taxonomy")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Counter Pressing")
	requireContains(t, out, "Central Corridor")
}

func TestIngestRejectsNonPDF(t *testing.T) {
	env := setupCLIEnv(t)
	bad := filepath.Join(env.dir, "notes.pdf")
	if err := os.WriteFile(bad, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, env, "ingest", bad); err == nil {
		t.Fatal("expected an error for a non-PDF file")
	}
}

func TestStatsAndReenrichCommands(t *testing.T) {
	env := setupCLIEnv(t)
	ingestJSON(t, env)

	out, err := runCLI(t, env, "stats")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Plans: 1")
	requireContains(t, out, "Pressing")

	out, err = runCLI(t, env, "reenrich", "--dry-run")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Processed 1 plans")
}
