package logger

import "testing"

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	out := sanitizeKVs([]interface{}{"model", "qwen3-vl:8b", "api_key", "sk-123", "dangling"})
	if len(out) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(out))
	}
	if out[1] != "qwen3-vl:8b" {
		t.Errorf("model should pass through, got %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Errorf("api_key should be redacted, got %v", out[3])
	}
	if out[4] != "dangling" {
		t.Errorf("odd trailing key should be kept, got %v", out[4])
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop().With("stage", "test")
	l.Info("hello", "k", 1)
	l.Sync()
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Debug("ok")
	}
}
