package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

// Store is an in-memory implementation of store.Store for tests and
// one-shot CLI runs.
type Store struct {
	mu    sync.RWMutex
	plans map[string]schema.SessionPlan

	// FailSave makes the next save or update fail, for exercising rollback paths.
	FailSave error
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{plans: make(map[string]schema.SessionPlan)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// prepare validates plan the same way the SQL backends do and returns a
// private copy.
func prepare(plan schema.SessionPlan) (schema.SessionPlan, error) {
	if _, _, err := store.EncodePlan(plan); err != nil {
		return schema.SessionPlan{}, err
	}
	c := plan.Clone()
	c.Normalize()
	return c, nil
}

func (s *Store) SaveSessionPlan(ctx context.Context, plan schema.SessionPlan) error {
	c, err := prepare(plan)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, ok := s.plans[c.ID]; ok {
		return fmt.Errorf("session plan %s: %w", c.ID, internalerr.ErrConflict)
	}
	if err := s.checkDrillIDs(c); err != nil {
		return err
	}
	s.plans[c.ID] = c
	return nil
}

func (s *Store) UpdateSessionPlan(ctx context.Context, plan schema.SessionPlan) error {
	c, err := prepare(plan)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, ok := s.plans[c.ID]; !ok {
		return fmt.Errorf("session plan %s: %w", c.ID, internalerr.ErrNotFound)
	}
	if err := s.checkDrillIDs(c); err != nil {
		return err
	}
	s.plans[c.ID] = c
	return nil
}

// checkDrillIDs enforces the drill id uniqueness the SQL schemas get from
// their primary keys. Drills of the plan being replaced do not count.
func (s *Store) checkDrillIDs(plan schema.SessionPlan) error {
	seen := make(map[string]struct{}, len(plan.Drills))
	for _, d := range plan.Drills {
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("drill %s: %w", d.ID, internalerr.ErrConflict)
		}
		seen[d.ID] = struct{}{}
	}
	for id, p := range s.plans {
		if id == plan.ID {
			continue
		}
		for _, d := range p.Drills {
			if _, dup := seen[d.ID]; dup {
				return fmt.Errorf("drill %s: %w", d.ID, internalerr.ErrConflict)
			}
		}
	}
	return nil
}

func (s *Store) takeFailure() error {
	err := s.FailSave
	s.FailSave = nil
	return err
}

func (s *Store) GetSessionPlan(ctx context.Context, id string) (schema.SessionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return schema.SessionPlan{}, fmt.Errorf("session plan %s: %w", id, internalerr.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *Store) ListSessionPlans(ctx context.Context, opts store.ListOptions) ([]store.PlanSummary, error) {
	s.mu.RLock()
	out := make([]store.PlanSummary, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, store.PlanSummary{
			ID:          p.ID,
			Title:       p.Metadata.Title,
			Author:      p.Metadata.Author,
			Category:    p.Metadata.Category,
			Filename:    p.Source.Filename,
			PageCount:   p.Source.PageCount,
			DrillCount:  len(p.Drills),
			ExtractedAt: p.Source.ExtractedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExtractedAt.Equal(out[j].ExtractedAt) {
			return out[i].ExtractedAt.After(out[j].ExtractedAt)
		}
		return out[i].ID > out[j].ID
	})
	offset := min(max(opts.Offset, 0), len(out))
	out = out[offset:]
	if limit := store.Limit(opts.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteSessionPlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return fmt.Errorf("session plan %s: %w", id, internalerr.ErrNotFound)
	}
	delete(s.plans, id)
	return nil
}

func (s *Store) ListDrills(ctx context.Context, planID string) ([]schema.DrillBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[planID]
	if !ok {
		return []schema.DrillBlock{}, nil
	}
	return p.Clone().Drills, nil
}

func (s *Store) FindDrills(ctx context.Context, f store.DrillFilter) ([]store.DrillMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	limit := store.Limit(f.Limit)
	var out []store.DrillMatch
	for _, id := range ids {
		p := s.plans[id]
		for _, d := range p.Drills {
			if !f.Matches(id, d) {
				continue
			}
			out = append(out, store.DrillMatch{PlanID: id, PlanTitle: p.Metadata.Title, Drill: d.Clone()})
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Store) GetTacticalContext(ctx context.Context, drillID string) (schema.TacticalContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		for _, d := range p.Drills {
			if d.ID == drillID && d.TacticalContext != nil {
				return *d.TacticalContext.Clone(), nil
			}
		}
	}
	return schema.TacticalContext{}, fmt.Errorf("tactical context %s: %w", drillID, internalerr.ErrNotFound)
}
