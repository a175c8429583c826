// Package maintenance reprocesses stored plans after the taxonomy changes.
package maintenance

import (
	"context"
	"errors"
	"reflect"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/enrich"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

// Cleaner re-enriches stored drills after taxonomy updates.
type Cleaner struct {
	Store    store.Store
	Enricher *enrich.Enricher
	Log      *logger.Logger
	// PageSize is the number of plans listed per batch.
	PageSize int
	// DryRun counts changes without writing them.
	DryRun bool
}

// Result summarizes the cleaning run.
type Result struct {
	Processed     int `json:"processed"`
	Updated       int `json:"updated"`
	DrillsChanged int `json:"drills_changed"`
	Errors        int `json:"errors"`
}

// Clean walks every plan and rewrites those whose tactical contexts differ
// from what the current taxonomy produces. Per-plan failures are counted
// and skipped.
func (c *Cleaner) Clean(ctx context.Context) (Result, error) {
	var res Result
	if c.Store == nil || c.Enricher == nil {
		return res, errors.New("cleaner: invalid configuration")
	}
	log := c.Log
	if log == nil {
		log = logger.NewNop()
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = store.DefaultListLimit
	}

	// Collect ids first so rewrites cannot shift the listing under us.
	var ids []string
	for offset := 0; ; offset += pageSize {
		page, err := c.Store.ListSessionPlans(ctx, store.ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return res, err
		}
		for _, p := range page {
			ids = append(ids, p.ID)
		}
		if len(page) < pageSize {
			break
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		plan, err := c.Store.GetSessionPlan(ctx, id)
		if err != nil {
			log.Warn("cleaner: load plan", "plan", id, "error", err)
			res.Errors++
			continue
		}
		res.Processed++

		changed := 0
		for i := range plan.Drills {
			d := &plan.Drills[i]
			next := c.Enricher.Enrich(d)
			if contextsEqual(d.TacticalContext, next) {
				continue
			}
			d.TacticalContext = next
			changed++
		}
		if changed == 0 {
			continue
		}
		res.DrillsChanged += changed
		if c.DryRun {
			res.Updated++
			continue
		}
		if err := c.Store.UpdateSessionPlan(ctx, plan); err != nil {
			log.Warn("cleaner: update plan", "plan", id, "error", err)
			res.Errors++
			continue
		}
		res.Updated++
		log.Debug("cleaner: plan re-enriched", "plan", id, "drills", changed)
	}
	return res, nil
}

func contextsEqual(a, b *schema.TacticalContext) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a.Lanes) == 0 && len(b.Lanes) == 0 {
		ac, bc := *a, *b
		ac.Lanes, bc.Lanes = nil, nil
		return reflect.DeepEqual(ac, bc)
	}
	return reflect.DeepEqual(a, b)
}
