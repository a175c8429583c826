// Package analytics aggregates tactical statistics over a drill library.
package analytics

import (
	"math"
	"sort"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

// Analyzer aggregates drill-level tactical counts.
type Analyzer struct {
	plans        int64
	drills       int64
	enriched     int64
	withDiagram  int64
	gameElements map[string]int64
	situations   map[string]int64
	lanes        map[string]int64
	numbers      map[string]int64
	pairCounts   map[pair]int64 // game element x lane co-occurrence per drill
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		gameElements: make(map[string]int64),
		situations:   make(map[string]int64),
		lanes:        make(map[string]int64),
		numbers:      make(map[string]int64),
		pairCounts:   make(map[pair]int64),
	}
}

// Process consumes one session plan.
func (a *Analyzer) Process(plan schema.SessionPlan) {
	a.plans++
	for _, d := range plan.Drills {
		a.processDrill(d)
	}
}

func (a *Analyzer) processDrill(d schema.DrillBlock) {
	a.drills++
	if d.ImageRef != nil {
		a.withDiagram++
	}
	tc := d.TacticalContext
	if tc == nil {
		return
	}
	a.enriched++
	if tc.GameElement != nil {
		a.gameElements[string(*tc.GameElement)]++
	}
	if tc.SituationType != nil {
		a.situations[string(*tc.SituationType)]++
	}
	if tc.NumericalAdvantage != nil {
		a.numbers[*tc.NumericalAdvantage]++
	}
	for _, l := range tc.Lanes {
		a.lanes[string(l)]++
		if tc.GameElement != nil {
			a.pairCounts[pair{GameElement: string(*tc.GameElement), Lane: string(l)}]++
		}
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	Plans        int64
	Drills       int64
	Enriched     int64
	WithDiagram  int64
	GameElements map[string]int64
	Situations   map[string]int64
	Lanes        map[string]int64
	Numbers      map[string]int64
	PairCounts   map[pair]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyPairs := make(map[pair]int64, len(a.pairCounts))
	for p, count := range a.pairCounts {
		copyPairs[p] = count
	}
	return Stats{
		Plans:        a.plans,
		Drills:       a.drills,
		Enriched:     a.enriched,
		WithDiagram:  a.withDiagram,
		GameElements: copyCounts(a.gameElements),
		Situations:   copyCounts(a.situations),
		Lanes:        copyCounts(a.lanes),
		Numbers:      copyCounts(a.numbers),
		PairCounts:   copyPairs,
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Count is one value with its drill count.
type Count struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Top returns counts in descending order, ties by value. limit <= 0
// returns everything.
func Top(counts map[string]int64, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for v, c := range counts {
		out = append(out, Count{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Coverage is the share of drills carrying a tactical context.
func (s Stats) Coverage() float64 {
	if s.Drills == 0 {
		return 0
	}
	return float64(s.Enriched) / float64(s.Drills)
}

// Association is a game element and lane that co-occur on drills.
type Association struct {
	GameElement string  `json:"game_element"`
	Lane        string  `json:"lane"`
	Support     int64   `json:"support"`
	PMI         float64 `json:"pmi"`
}

// Associations ranks game element/lane pairs by PMI over enriched drills.
// Only pairs with support >= minSupport are returned.
func (s Stats) Associations(minSupport int64) []Association {
	var out []Association
	for p, count := range s.PairCounts {
		if count < minSupport {
			continue
		}
		out = append(out, Association{
			GameElement: p.GameElement,
			Lane:        p.Lane,
			Support:     count,
			PMI:         computePMI(count, s.GameElements[p.GameElement], s.Lanes[p.Lane], s.Enriched),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PMI != out[j].PMI {
			return out[i].PMI > out[j].PMI
		}
		if out[i].Support != out[j].Support {
			return out[i].Support > out[j].Support
		}
		if out[i].GameElement != out[j].GameElement {
			return out[i].GameElement < out[j].GameElement
		}
		return out[i].Lane < out[j].Lane
	})
	return out
}

func computePMI(pairCount, dfA, dfB, total int64) float64 {
	if dfA == 0 || dfB == 0 || total == 0 {
		return 0
	}
	smooth := 1.0
	numerator := (float64(pairCount) + smooth) / float64(total)
	denominator := ((float64(dfA) + smooth) / float64(total)) * ((float64(dfB) + smooth) / float64(total))
	return math.Log(numerator / denominator)
}

type pair struct {
	GameElement string
	Lane        string
}
