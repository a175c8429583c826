package extract

import (
	"strings"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
)

func TestExtractNoDrills(t *testing.T) {
	res := NewExtractor(Vocabulary{}).Extract("")
	if res.Drills == nil || len(res.Drills) != 0 {
		t.Fatalf("expected empty non-nil drills, got %#v", res.Drills)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != internalerr.KindExtraction {
		t.Fatalf("expected one extraction warning, got %+v", res.Warnings)
	}
}

func TestExtractSkipsStructuralSections(t *testing.T) {
	md := strings.Join([]string{
		"## ACKNOWLEDGMENT",
		"Thanks to everyone who helped.",
		"## Drill 1: 2v1 Rondo",
		"### Coaching Points:",
		"- press high and win the ball",
	}, "\n")

	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 1 {
		t.Fatalf("expected 1 drill, got %d: %+v", len(res.Drills), res.Drills)
	}
	d := res.Drills[0]
	if d.Name != "Drill 1: 2v1 Rondo" {
		t.Errorf("name = %q", d.Name)
	}
	if len(d.CoachingPoints) != 1 || d.CoachingPoints[0] != "press high and win the ball" {
		t.Errorf("coaching points = %v", d.CoachingPoints)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestExtractKeepsDrillsNamedLikeStructure(t *testing.T) {
	res := NewExtractor(Vocabulary{}).Extract(strings.Join([]string{
		"## Part-Field Rondo",
		"Setup: 4v2 in a 20x20 meters grid",
		"### Coaching Points",
		"- press high",
	}, "\n"))
	if len(res.Drills) != 1 || res.Drills[0].Name != "Part-Field Rondo" {
		t.Fatalf("expected the rondo to survive, got %+v", res.Drills)
	}
	if len(res.Drills[0].CoachingPoints) != 1 {
		t.Errorf("coaching points = %v", res.Drills[0].CoachingPoints)
	}

	res = NewExtractor(Vocabulary{}).Extract("## Index Passing\nSetup: pairs")
	if len(res.Drills) != 1 || res.Drills[0].Name != "Index Passing" {
		t.Fatalf("expected Index Passing to survive, got %+v", res.Drills)
	}

	res = NewExtractor(Vocabulary{}).Extract("## Part Two\nDefending\n## Index\nrondo, 12")
	if len(res.Drills) != 0 {
		t.Errorf("book structure should be skipped, got %+v", res.Drills)
	}
}

func TestExtractEmptyDrillHeader(t *testing.T) {
	md := "## Drill 1\n## Drill 2\n### Setup\n4v2 in a 20x20 m grid\n"
	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 2 {
		t.Fatalf("expected 2 drills, got %d", len(res.Drills))
	}
	empty := res.Drills[0]
	if empty.Name != "Drill 1" || empty.Setup.Description != "" {
		t.Errorf("unexpected empty drill: %+v", empty)
	}
	if empty.Sequence == nil || empty.CoachingPoints == nil || empty.Setup.Equipment == nil {
		t.Error("empty drill should carry empty lists, not nil")
	}

	d := res.Drills[1]
	if !strings.HasPrefix(d.Setup.PlayerCount, "4v2") {
		t.Errorf("player count = %q", d.Setup.PlayerCount)
	}
	if !strings.HasPrefix(d.Setup.AreaDimensions, "20x20 m") {
		t.Errorf("area = %q", d.Setup.AreaDimensions)
	}
}

func TestExtractMergesRepeatedSubHeaders(t *testing.T) {
	md := strings.Join([]string{
		"## Rondo",
		"### Coaching Points",
		"- a",
		"### Rules",
		"- r",
		"### Coaching Points",
		"- b",
	}, "\n")
	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 1 {
		t.Fatalf("expected 1 drill, got %d", len(res.Drills))
	}
	d := res.Drills[0]
	if strings.Join(d.CoachingPoints, ",") != "a,b" {
		t.Errorf("coaching points = %v", d.CoachingPoints)
	}
	if strings.Join(d.Rules, ",") != "r" {
		t.Errorf("rules = %v", d.Rules)
	}
}

func TestExtractUnknownSubHeaderGoesToSetup(t *testing.T) {
	md := "## Rondo\nIntro text\n### Notes\nKeep it sharp\n"
	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 1 {
		t.Fatalf("expected 1 drill, got %d", len(res.Drills))
	}
	want := "Intro text\nNotes\nKeep it sharp"
	if got := res.Drills[0].Setup.Description; got != want {
		t.Errorf("setup = %q, want %q", got, want)
	}
}

func TestExtractInlineSubHeaders(t *testing.T) {
	md := "## Rondo\n**Coaching Points:** stay compact\n- move the ball\n"
	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 1 {
		t.Fatalf("expected 1 drill, got %d", len(res.Drills))
	}
	if got := strings.Join(res.Drills[0].CoachingPoints, "|"); got != "stay compact|move the ball" {
		t.Errorf("coaching points = %q", got)
	}
}

func TestExtractDiscardsFrontMatter(t *testing.T) {
	md := strings.Join([]string{
		"Some preamble before any header",
		"## INTRODUCTION",
		"This book is about rondos.",
		"## Table of Contents",
		"1. Drill A",
		"## Drill A",
		"Four players around two.",
	}, "\n")
	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 1 || res.Drills[0].Name != "Drill A" {
		t.Fatalf("unexpected drills: %+v", res.Drills)
	}
	if res.Drills[0].Setup.Description != "Four players around two." {
		t.Errorf("setup = %q", res.Drills[0].Setup.Description)
	}
}

func TestExtractDropsTitleCard(t *testing.T) {
	explicit := "# Pressing Book\n## Pressing Book\nCategory: Pressing Difficulty: Hard\n## Drill A\n### Rules\n- r\n"
	res := NewExtractor(Vocabulary{}).Extract(explicit)
	if len(res.Drills) != 1 || res.Drills[0].Name != "Drill A" {
		t.Errorf("explicit title: unexpected drills %+v", res.Drills)
	}

	implicit := "## Session 5\nCategory: Pressing\n## Drill A\n- x\n"
	res = NewExtractor(Vocabulary{}).Extract(implicit)
	if len(res.Drills) != 1 || res.Drills[0].Name != "Drill A" {
		t.Errorf("implicit title: unexpected drills %+v", res.Drills)
	}
}

func TestExtractLevelOneDrills(t *testing.T) {
	res := NewExtractor(Vocabulary{}).Extract("# Drill A\n- x\n# Drill B\n- y\n")
	if len(res.Drills) != 2 {
		t.Fatalf("expected 2 drills, got %d", len(res.Drills))
	}
}

func TestExtractOrphanSubHeaderWarns(t *testing.T) {
	res := NewExtractor(Vocabulary{}).Extract("### Rules\n- r\n## Drill\ntext\n")
	if len(res.Drills) != 1 {
		t.Fatalf("expected 1 drill, got %d", len(res.Drills))
	}
	if len(res.Drills[0].Rules) != 0 {
		t.Errorf("orphan rules leaked into drill: %v", res.Drills[0].Rules)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected orphan warning, got %+v", res.Warnings)
	}
}

func TestExtractIgnoresFencedHeaders(t *testing.T) {
	md := "## Drill A\n```\n## not a header\n```\n"
	res := NewExtractor(Vocabulary{}).Extract(md)
	if len(res.Drills) != 1 {
		t.Fatalf("expected 1 drill, got %d", len(res.Drills))
	}
}

func TestExtractStripsImageMarkersAndPageNumbers(t *testing.T) {
	md := "## Drill A\n<!-- image -->\n12\n- first step\n"
	res := NewExtractor(Vocabulary{}).Extract(md)
	if got := res.Drills[0].Setup.Description; got != "first step" {
		t.Errorf("setup = %q", got)
	}
}
