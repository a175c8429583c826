package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/tactica/pkg/tactica/extract"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadVocabularyExtendsDefaults(t *testing.T) {
	path := writeFile(t, "vocab.yaml", `denylist:
  - about this book
sub_headers:
  coaching_points:
    - Trainer Tips
  equipment:
    - Kit
`)
	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if f, ok := vocab.SubHeaderField("trainer tips:"); !ok || f != extract.FieldCoachingPoints {
		t.Errorf("custom sub-header not loaded: %v %v", f, ok)
	}
	if f, ok := vocab.SubHeaderField("Setup"); !ok || f != extract.FieldSetup {
		t.Error("built-in sub-headers should remain")
	}
	if !vocab.IsStructural("About This Book") || !vocab.IsStructural("Contents") {
		t.Error("denylist should contain custom and built-in entries")
	}
}

func TestLoadVocabularyReplace(t *testing.T) {
	path := writeFile(t, "vocab.yaml", `replace: true
sub_headers:
  sequence: [Ablauf]
`)
	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := vocab.SubHeaderField("Setup"); ok {
		t.Error("replace should drop built-in sub-headers")
	}
	if f, _ := vocab.SubHeaderField("Ablauf"); f != extract.FieldSequence {
		t.Errorf("expected sequence, got %q", f)
	}
}

func TestLoadVocabularyUnknownField(t *testing.T) {
	path := writeFile(t, "vocab.yaml", "sub_headers:\n  warmup: [Warm Up]\n")
	if _, err := LoadVocabulary(path); err == nil {
		t.Error("expected unknown field error")
	}
}

func TestLoadTaxonomyMergesDefaults(t *testing.T) {
	path := writeFile(t, "taxonomy.yaml", `version: "2"
game_elements:
  - value: Pressing
    keywords: [high press, pressing trap]
lanes:
  - value: left_wing
    keywords: [left side]
`)
	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy: %v", err)
	}
	if tax.Version != "2" || tax.Methodology == "" {
		t.Errorf("unexpected header: %q %q", tax.Version, tax.Methodology)
	}
	if len(tax.GameElements) != len(schema.GameElements) {
		t.Errorf("merge should keep every game element, got %d", len(tax.GameElements))
	}
	for _, e := range tax.GameElements {
		if e.Value == string(schema.Pressing) && (len(e.Keywords) != 2 || e.Keywords[0] != "high press") {
			t.Errorf("pressing keywords not replaced: %v", e.Keywords)
		}
	}
}

func TestLoadTaxonomyRejectsUnknownValues(t *testing.T) {
	path := writeFile(t, "taxonomy.yaml", `game_elements:
  - value: Tiki Taka
    keywords: [tiki]
`)
	if _, err := LoadTaxonomy(path); err == nil {
		t.Error("expected validation error")
	}

	path = writeFile(t, "taxonomy.yaml", `replace: true
version: "x"
game_elements:
  - value: Pressing
    keywords: [press]
`)
	if _, err := LoadTaxonomy(path); err == nil {
		t.Error("replacing taxonomy without methodology should fail")
	}
}

func TestLoaderDefaults(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("empty loader should succeed: %v", err)
	}
	if comp.Extractor == nil || comp.Enricher == nil {
		t.Fatal("components missing")
	}
	if comp.Enricher.Taxonomy().Version != "1" {
		t.Errorf("expected built-in taxonomy, got %q", comp.Enricher.Taxonomy().Version)
	}
}

func TestLoaderNonExistentFiles(t *testing.T) {
	if _, err := (&Loader{VocabularyPath: "/nonexistent/vocab.yaml"}).Load(); err == nil {
		t.Error("should error on nonexistent vocabulary")
	}
	if _, err := (&Loader{TaxonomyPath: "/nonexistent/taxonomy.yaml"}).Load(); err == nil {
		t.Error("should error on nonexistent taxonomy")
	}
}

func TestLoadAppDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	app, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if app.MaxUploadBytes != 50<<20 || app.IngestTimeout != 300*time.Second {
		t.Errorf("unexpected limits: %d %v", app.MaxUploadBytes, app.IngestTimeout)
	}
	if app.VLM.Model != "qwen3-vl:8b" || app.VLM.URL != "http://localhost:11434" || !app.VLM.PositionsEnabled {
		t.Errorf("unexpected vlm defaults: %+v", app.VLM)
	}
	if app.Index.Wait != 5*time.Second || app.Store.Driver != "sqlite" {
		t.Errorf("unexpected defaults: %+v %+v", app.Index, app.Store)
	}
}

func TestLoadAppFileAndEnv(t *testing.T) {
	path := writeFile(t, "tactica.yaml", `vlm:
  model: llava:13b
  concurrency: 4
store:
  driver: postgres
  dsn: postgres://localhost/tactica
images:
  backend: s3
  s3:
    bucket: drills
`)
	t.Setenv("TACTICA_VLM_MODEL", "qwen2.5-vl:7b")
	t.Setenv("TACTICA_INDEX_WAIT", "2s")
	t.Setenv("TACTICA_VLM_API_KEY", "secret")

	app, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if app.VLM.Model != "qwen2.5-vl:7b" {
		t.Errorf("env should override file, got %q", app.VLM.Model)
	}
	if app.VLM.Concurrency != 4 || app.Store.Driver != "postgres" || app.Images.S3.Bucket != "drills" {
		t.Errorf("file values not applied: %+v", app)
	}
	if app.Index.Wait != 2*time.Second || app.VLM.APIKey != "secret" {
		t.Errorf("env values not applied: %v %q", app.Index.Wait, app.VLM.APIKey)
	}
}

func TestLoadAppValidation(t *testing.T) {
	path := writeFile(t, "tactica.yaml", "store:\n  driver: mongo\n")
	if _, err := Load(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("an explicit missing file should fail")
	}
}
