package internalerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindSentinels(t *testing.T) {
	err := fmt.Errorf("ingest: %w", New(KindPersistence, "save plan", context.DeadlineExceeded))

	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence kind to match")
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("persistence error must not match timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to stay reachable")
	}
	if !errors.Is(err, &Error{Kind: KindPersistence, Op: "save plan"}) {
		t.Fatalf("expected kind+op match")
	}
	if errors.Is(err, &Error{Kind: KindPersistence, Op: "delete plan"}) {
		t.Fatalf("different op must not match")
	}
	if kind, ok := KindOf(err); !ok || kind != KindPersistence {
		t.Fatalf("KindOf = %q, %v", kind, ok)
	}
}

func TestFatal(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("untyped"), true},
		{New(KindDecomposition, "convert", nil), true},
		{New(KindTimeout, "", context.DeadlineExceeded), true},
		{New(KindPersistence, "commit", nil), true},
		{New(KindVLM, "describe", nil), false},
		{New(KindExtraction, "", nil), false},
		{New(KindIndexing, "index", nil), false},
	}
	for _, tc := range cases {
		if got := Fatal(tc.err); got != tc.want {
			t.Errorf("Fatal(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	if got := New(KindVLM, "describe", errors.New("boom")).Error(); got != "vlm: describe: boom" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (&Error{Kind: KindIndexing}).Error(); got != "indexing error" {
		t.Fatalf("unexpected message %q", got)
	}
	w := Warn(KindExtraction, "%d dropped", 2)
	if w.Kind != KindExtraction || w.Message != "2 dropped" {
		t.Fatalf("unexpected warning %+v", w)
	}
}
