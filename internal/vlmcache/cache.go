// Package vlmcache memoizes vision completions keyed by image and prompt so
// re-ingesting the same document does not repeat model calls.
package vlmcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

// Cache stores completion text by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Key derives a stable cache key from the model and request.
func Key(model string, req vlm.Request) string {
	h := sha256.New()
	for _, part := range []string{model, req.System, req.User, strconv.FormatBool(req.JSONMode), strconv.Itoa(req.MaxTokens)} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	h.Write(req.Image)
	return hex.EncodeToString(h.Sum(nil))
}

// Backend wraps a vlm.Backend with a cache. Cache failures are logged and
// fall through to the wrapped backend; errors are never cached.
type Backend struct {
	next  vlm.Backend
	cache Cache
	model string
	log   *logger.Logger
}

// Wrap returns next with caching in front of it.
func Wrap(next vlm.Backend, cache Cache, model string, log *logger.Logger) *Backend {
	if log == nil {
		log = logger.NewNop()
	}
	return &Backend{next: next, cache: cache, model: model, log: log}
}

func (b *Backend) Complete(ctx context.Context, req vlm.Request) (string, error) {
	key := Key(b.model, req)
	if val, ok, err := b.cache.Get(ctx, key); err != nil {
		b.log.Warn("vlm cache get failed", "error", err)
	} else if ok {
		return val, nil
	}
	val, err := b.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := b.cache.Set(ctx, key, val); err != nil {
		b.log.Warn("vlm cache set failed", "error", err)
	}
	return val, nil
}

// Memory is an in-process cache bounded to MaxEntries (0 means unbounded).
// When full, the oldest entry is evicted.
type Memory struct {
	MaxEntries int

	mu    sync.Mutex
	items map[string]string
	order []string
}

func NewMemory(maxEntries int) *Memory {
	return &Memory{MaxEntries: maxEntries, items: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	if _, exists := m.items[key]; !exists {
		m.order = append(m.order, key)
	}
	m.items[key] = value
	for m.MaxEntries > 0 && len(m.order) > m.MaxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.items, oldest)
	}
	return nil
}

// Len reports the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
