package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
	"github.com/cognicore/tactica/pkg/tactica/store/storetest"
)

func TestMemStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestMemStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	plan := storetest.NewPlan(schema.NewIDGenerator(), "Copies")
	if err := s.SaveSessionPlan(ctx, plan); err != nil {
		t.Fatal(err)
	}
	plan.Drills[0].Name = "mutated after save"

	got, _ := s.GetSessionPlan(ctx, plan.ID)
	if got.Drills[0].Name == "mutated after save" {
		t.Error("store shares memory with the caller's plan")
	}
	got.Drills[0].CoachingPoints[0] = "mutated after get"
	again, _ := s.GetSessionPlan(ctx, plan.ID)
	if again.Drills[0].CoachingPoints[0] == "mutated after get" {
		t.Error("store shares memory with returned plans")
	}
}

func TestMemStoreFailSaveIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("disk full")
	s.FailSave = boom

	plan := storetest.NewPlan(schema.NewIDGenerator(), "Fail")
	if err := s.SaveSessionPlan(ctx, plan); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if err := s.SaveSessionPlan(ctx, plan); err != nil {
		t.Errorf("second save should succeed: %v", err)
	}
}
