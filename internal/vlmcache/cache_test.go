package vlmcache

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

func TestKeyDistinguishesFields(t *testing.T) {
	base := vlm.Request{Image: []byte("img"), System: "s", User: "u", JSONMode: true}
	k := Key("m", base)
	if k != Key("m", base) {
		t.Fatal("key must be stable")
	}
	variants := []vlm.Request{
		{Image: []byte("img2"), System: "s", User: "u", JSONMode: true},
		{Image: []byte("img"), System: "s2", User: "u", JSONMode: true},
		{Image: []byte("img"), System: "s", User: "u", JSONMode: false},
		{Image: []byte("img"), System: "", User: "su", JSONMode: true},
	}
	for i, v := range variants {
		if Key("m", v) == k {
			t.Errorf("variant %d collides", i)
		}
	}
	if Key("other", base) == k {
		t.Error("model must be part of the key")
	}
}

func TestBackendCachesSuccesses(t *testing.T) {
	calls := 0
	next := vlm.BackendFunc(func(ctx context.Context, req vlm.Request) (string, error) {
		calls++
		if req.User == "fail" {
			return "", errors.New("down")
		}
		return "reply:" + req.User, nil
	})
	mem := NewMemory(0)
	b := Wrap(next, mem, "m", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := b.Complete(ctx, vlm.Request{User: "a"})
		if err != nil || out != "reply:a" {
			t.Fatalf("Complete = %q, %v", out, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 backend call, got %d", calls)
	}

	for i := 0; i < 2; i++ {
		if _, err := b.Complete(ctx, vlm.Request{User: "fail"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls != 3 {
		t.Errorf("errors must not be cached, got %d calls", calls)
	}
	if mem.Len() != 1 {
		t.Errorf("cache should hold 1 entry, got %d", mem.Len())
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	_ = m.Set(ctx, "a", "1")
	_ = m.Set(ctx, "b", "2")
	_ = m.Set(ctx, "c", "3")
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if v, ok, _ := m.Get(ctx, "c"); !ok || v != "3" {
		t.Errorf("newest entry missing: %q %v", v, ok)
	}
}

func TestNewRedisRequiresAddr(t *testing.T) {
	if _, err := NewRedis(context.Background(), RedisConfig{}); err == nil {
		t.Error("expected error for empty address")
	}
}
