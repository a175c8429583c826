package enrich

import (
	"fmt"
	"strings"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

// Entry maps one enumerated value to the phrases that signal it.
type Entry struct {
	Value    string   `yaml:"value" json:"value"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Taxonomy is a versioned set of lookup tables, one per classification
// axis. For single-valued axes the order of entries is the match priority.
type Taxonomy struct {
	Version      string  `yaml:"version" json:"version"`
	Methodology  string  `yaml:"methodology" json:"methodology"`
	GameElements []Entry `yaml:"game_elements" json:"game_elements"`
	Situations   []Entry `yaml:"situations" json:"situations"`
	Lanes        []Entry `yaml:"lanes" json:"lanes"`
}

// DefaultMethodology identifies the built-in taxonomy on every context it creates.
const DefaultMethodology = "Peters/Schumacher 2v1 v1"

// DefaultTaxonomy returns the built-in Peters/Schumacher tables.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Version:     "1",
		Methodology: DefaultMethodology,
		GameElements: []Entry{
			{string(schema.CounterAttack), []string{"counter attack", "counterattack", "counter attacking"}},
			{string(schema.FastBreak), []string{"fast break", "quick break"}},
			{string(schema.PositionalAttack), []string{"positional attack", "positional play", "positional"}},
			// Counter Pressing precedes Pressing so "counter press" is not
			// swallowed by the shorter keyword.
			{string(schema.CounterPressing), []string{"counter press", "counterpress", "gegenpress"}},
			{string(schema.Pressing), []string{"press", "pressure the ball"}},
			{string(schema.OrganizedDefense), []string{"organized defense", "organised defence", "organized defence", "defensive organization", "defensive organisation", "defensive shape"}},
			{string(schema.BuildUpPlay), []string{"build up", "buildup", "playing out from the back", "play out from the back"}},
			{string(schema.TransitionToAttack), []string{"transition to attack", "attacking transition", "offensive transition"}},
			{string(schema.TransitionToDefense), []string{"transition to defense", "transition to defence", "defensive transition"}},
		},
		Situations: []Entry{
			{string(schema.Frontal), []string{"frontal", "face to face", "head on"}},
			{string(schema.Lateral), []string{"lateral", "from the side", "side on"}},
			{string(schema.Behind), []string{"from behind", "behind"}},
			{string(schema.Before), []string{"before", "in front"}},
		},
		Lanes: []Entry{
			{string(schema.LeftWing), []string{"left wing", "left flank", "left touchline"}},
			{string(schema.LeftHalfSpace), []string{"left half space", "left half"}},
			{string(schema.CentralCorridor), []string{"central corridor", "central", "centre", "center", "middle"}},
			{string(schema.RightHalfSpace), []string{"right half space", "right half"}},
			{string(schema.RightWing), []string{"right wing", "right flank", "right touchline"}},
		},
	}
}

// Validate checks every entry against its axis enumeration.
func (t Taxonomy) Validate() error {
	if strings.TrimSpace(t.Methodology) == "" {
		return fmt.Errorf("taxonomy %q: methodology is required", t.Version)
	}
	for _, e := range t.GameElements {
		if _, ok := schema.ParseGameElement(e.Value); !ok {
			return fmt.Errorf("taxonomy %q: unknown game element %q", t.Version, e.Value)
		}
	}
	for _, e := range t.Situations {
		if _, ok := schema.ParseSituationType(e.Value); !ok {
			return fmt.Errorf("taxonomy %q: unknown situation type %q", t.Version, e.Value)
		}
	}
	for _, e := range t.Lanes {
		if _, ok := schema.ParseLane(e.Value); !ok {
			return fmt.Errorf("taxonomy %q: unknown lane %q", t.Version, e.Value)
		}
	}
	return nil
}

// Merge overlays other onto t. Entries for a value already present have
// their keywords replaced in place; new values are appended, lowest priority.
func (t Taxonomy) Merge(other Taxonomy) Taxonomy {
	out := Taxonomy{
		Version:      t.Version,
		Methodology:  t.Methodology,
		GameElements: mergeEntries(t.GameElements, other.GameElements),
		Situations:   mergeEntries(t.Situations, other.Situations),
		Lanes:        mergeEntries(t.Lanes, other.Lanes),
	}
	if other.Version != "" {
		out.Version = other.Version
	}
	if other.Methodology != "" {
		out.Methodology = other.Methodology
	}
	return out
}

func mergeEntries(base, over []Entry) []Entry {
	out := make([]Entry, len(base))
	for i, e := range base {
		out[i] = Entry{Value: e.Value, Keywords: append([]string(nil), e.Keywords...)}
	}
	for _, e := range over {
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Value, e.Value) {
				out[i].Keywords = append([]string(nil), e.Keywords...)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, Entry{Value: e.Value, Keywords: append([]string(nil), e.Keywords...)})
		}
	}
	return out
}
