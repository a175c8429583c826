// Package store defines persistence for session plans. A plan and its
// drills are written atomically; drills keep document order.
package store

import (
	"context"
	"time"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

// Store is the main interface for persisting and querying session plans.
type Store interface {
	Close() error

	// Plans
	SaveSessionPlan(ctx context.Context, plan schema.SessionPlan) error
	GetSessionPlan(ctx context.Context, id string) (schema.SessionPlan, error)
	ListSessionPlans(ctx context.Context, opts ListOptions) ([]PlanSummary, error)
	UpdateSessionPlan(ctx context.Context, plan schema.SessionPlan) error
	DeleteSessionPlan(ctx context.Context, id string) error

	// Drills
	ListDrills(ctx context.Context, planID string) ([]schema.DrillBlock, error)
	FindDrills(ctx context.Context, filter DrillFilter) ([]DrillMatch, error)
	// GetTacticalContext reads a drill's stored context record; ErrNotFound
	// when the drill does not exist or was never enriched.
	GetTacticalContext(ctx context.Context, drillID string) (schema.TacticalContext, error)
}

// ListOptions pages through plans, newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 50

// PlanSummary is the listing view of a plan.
type PlanSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Category    string    `json:"category,omitempty"`
	Filename    string    `json:"filename"`
	PageCount   int       `json:"page_count"`
	DrillCount  int       `json:"drill_count"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// DrillFilter selects drills by tactical context. Empty fields match
// anything; a filter with any field set only matches enriched drills.
type DrillFilter struct {
	GameElement   schema.GameElement
	SituationType schema.SituationType
	Lane          schema.Lane
	PlanID        string
	Limit         int
}

// Empty reports whether no tactical criterion is set.
func (f DrillFilter) Empty() bool {
	return f.GameElement == "" && f.SituationType == "" && f.Lane == ""
}

// Matches applies the filter to one drill.
func (f DrillFilter) Matches(planID string, d schema.DrillBlock) bool {
	if f.PlanID != "" && f.PlanID != planID {
		return false
	}
	if f.Empty() {
		return true
	}
	tc := d.TacticalContext
	if tc == nil {
		return false
	}
	if f.GameElement != "" && (tc.GameElement == nil || *tc.GameElement != f.GameElement) {
		return false
	}
	if f.SituationType != "" && (tc.SituationType == nil || *tc.SituationType != f.SituationType) {
		return false
	}
	if f.Lane != "" {
		found := false
		for _, l := range tc.Lanes {
			if l == f.Lane {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DrillMatch is a drill found by FindDrills together with its plan.
type DrillMatch struct {
	PlanID    string            `json:"plan_id"`
	PlanTitle string            `json:"plan_title"`
	Drill     schema.DrillBlock `json:"drill"`
}
