package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

// PlanRow is the flattened session_plans record. RawJSON holds the plan
// without drills; drills live in their own rows.
type PlanRow struct {
	ID             string
	Title          string
	Author         string
	Category       string
	Difficulty     string
	DesiredOutcome string
	Filename       string
	PageCount      int
	ExtractedAt    time.Time
	RawJSON        []byte
}

// DrillRow is the flattened drill_blocks record.
type DrillRow struct {
	ID       string
	PlanID   string
	Position int
	Name     string
	ImageRef *string
	RawJSON  []byte
	Context  *ContextRow
}

// ContextRow is the flattened tactical_contexts record. RawJSON holds the
// full context next to the queryable columns.
type ContextRow struct {
	Methodology        string
	GameElement        *string
	SituationType      *string
	NumericalAdvantage *string
	Lanes              string
	RawJSON            []byte
}

// EncodePlan validates plan and splits it into rows.
func EncodePlan(plan schema.SessionPlan) (PlanRow, []DrillRow, error) {
	plan = plan.Clone()
	plan.Normalize()
	if !schema.ValidID(plan.ID) {
		return PlanRow{}, nil, fmt.Errorf("%w: plan id %q", internalerr.ErrInvalidInput, plan.ID)
	}
	if err := plan.Validate(); err != nil {
		return PlanRow{}, nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}

	drills := make([]DrillRow, 0, len(plan.Drills))
	for i, d := range plan.Drills {
		if !schema.ValidID(d.ID) {
			return PlanRow{}, nil, fmt.Errorf("%w: drill %d id %q", internalerr.ErrInvalidInput, i, d.ID)
		}
		raw, err := json.Marshal(d)
		if err != nil {
			return PlanRow{}, nil, fmt.Errorf("encode drill %s: %w", d.ID, err)
		}
		ctxRow, err := contextRow(d.TacticalContext)
		if err != nil {
			return PlanRow{}, nil, fmt.Errorf("encode tactical context %s: %w", d.ID, err)
		}
		drills = append(drills, DrillRow{
			ID:       d.ID,
			PlanID:   plan.ID,
			Position: i,
			Name:     d.Name,
			ImageRef: d.ImageRef,
			RawJSON:  raw,
			Context:  ctxRow,
		})
	}

	head := plan
	head.Drills = nil
	raw, err := json.Marshal(head)
	if err != nil {
		return PlanRow{}, nil, fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}
	return PlanRow{
		ID:             plan.ID,
		Title:          plan.Metadata.Title,
		Author:         plan.Metadata.Author,
		Category:       plan.Metadata.Category,
		Difficulty:     plan.Metadata.Difficulty,
		DesiredOutcome: plan.Metadata.DesiredOutcome,
		Filename:       plan.Source.Filename,
		PageCount:      plan.Source.PageCount,
		ExtractedAt:    plan.Source.ExtractedAt.UTC(),
		RawJSON:        raw,
	}, drills, nil
}

func contextRow(tc *schema.TacticalContext) (*ContextRow, error) {
	if tc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(tc)
	if err != nil {
		return nil, err
	}
	row := &ContextRow{Methodology: tc.Methodology, Lanes: EncodeLanes(tc.Lanes), NumericalAdvantage: tc.NumericalAdvantage, RawJSON: raw}
	if tc.GameElement != nil {
		s := string(*tc.GameElement)
		row.GameElement = &s
	}
	if tc.SituationType != nil {
		s := string(*tc.SituationType)
		row.SituationType = &s
	}
	return row, nil
}

// EncodeLanes stores lanes as "|a|b|" so a single lane can be matched with
// LIKE '%|lane|%'.
func EncodeLanes(lanes []schema.Lane) string {
	if len(lanes) == 0 {
		return ""
	}
	parts := make([]string, len(lanes))
	for i, l := range lanes {
		parts[i] = string(l)
	}
	return "|" + strings.Join(parts, "|") + "|"
}

// LanePattern is the LIKE pattern matching one encoded lane.
func LanePattern(l schema.Lane) string {
	return "%|" + string(l) + "|%"
}

// DecodePlan rebuilds a plan from its raw JSON and ordered drill JSON.
func DecodePlan(raw []byte, drills [][]byte) (schema.SessionPlan, error) {
	var plan schema.SessionPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return schema.SessionPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	plan.Drills = make([]schema.DrillBlock, 0, len(drills))
	for _, d := range drills {
		drill, err := DecodeDrill(d)
		if err != nil {
			return schema.SessionPlan{}, err
		}
		plan.Drills = append(plan.Drills, drill)
	}
	plan.Normalize()
	return plan, nil
}

// DecodeDrill parses one drill row.
func DecodeDrill(raw []byte) (schema.DrillBlock, error) {
	var d schema.DrillBlock
	if err := json.Unmarshal(raw, &d); err != nil {
		return schema.DrillBlock{}, fmt.Errorf("decode drill: %w", err)
	}
	d.Normalize()
	return d, nil
}

// DecodeContext parses one tactical_contexts row.
func DecodeContext(raw []byte) (schema.TacticalContext, error) {
	var tc schema.TacticalContext
	if err := json.Unmarshal(raw, &tc); err != nil {
		return schema.TacticalContext{}, fmt.Errorf("decode tactical context: %w", err)
	}
	if tc.Lanes == nil {
		tc.Lanes = []schema.Lane{}
	}
	return tc, nil
}

// Limit resolves a requested limit against the default.
func Limit(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	return n
}
