package extract

import "testing"

func TestVocabularyIsStructural(t *testing.T) {
	v := DefaultVocabulary()
	cases := map[string]bool{
		"ACKNOWLEDGMENT":              true,
		"Part 2: Pressing":            true,
		"PART ONE":                    true,
		"Part IV - Defending":         true,
		"Index":                       true,
		"Authors":                     true,
		"About the Authors":           true,
		"Introduction: Why Rondos":    true,
		"Appendix - Session Template": true,
		"Participation game":          false,
		"Part-Field Rondo":            false,
		"Part 2v1 Overload":           false,
		"Partner Passing":             false,
		"Index Passing":               false,
		"Indexing drills":             false,
		"Author's Favourite Rondo":    false,
		"Introduction to Pressing":    false,
		"Rondo 4v2":                   false,
	}
	for header, want := range cases {
		if got := v.IsStructural(header); got != want {
			t.Errorf("IsStructural(%q) = %v, want %v", header, got, want)
		}
	}
}

func TestVocabularySubHeaderField(t *testing.T) {
	v := Vocabulary{}.Merge(DefaultVocabulary())
	cases := map[string]Field{
		"**Coaching Point(s):**": FieldCoachingPoints,
		"Set-Up":                 FieldSetup,
		"ORGANISATION":           FieldSetup,
		"Variations":             FieldProgressions,
		"Points":                 FieldScoring,
	}
	for header, want := range cases {
		got, ok := v.SubHeaderField(header)
		if !ok || got != want {
			t.Errorf("SubHeaderField(%q) = %q,%v want %q", header, got, ok, want)
		}
	}
	if _, ok := v.SubHeaderField("Notes"); ok {
		t.Error("Notes should not be a known sub-header")
	}
}

func TestVocabularyMergeOverrides(t *testing.T) {
	v := DefaultVocabulary().Merge(Vocabulary{
		Denylist:   []string{"Credits"},
		SubHeaders: map[string]Field{"Coaching Points": FieldRules, "Drill Notes": FieldSetup},
	})
	if f, _ := v.SubHeaderField("coaching points"); f != FieldRules {
		t.Errorf("override lost: %q", f)
	}
	if f, ok := v.SubHeaderField("DRILL NOTES:"); !ok || f != FieldSetup {
		t.Errorf("added entry not found: %q %v", f, ok)
	}
	if !v.IsStructural("Credits") {
		t.Error("added denylist entry not honored")
	}
}

func TestFieldValid(t *testing.T) {
	for _, f := range Fields {
		if !f.Valid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if Field("notes").Valid() {
		t.Error("notes should be invalid")
	}
}
