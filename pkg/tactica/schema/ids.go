package schema

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// IDGenerator hands out monotonic ULIDs for plans and drills.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a generator seeded from crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns the next identifier.
func (g *IDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}

// AssignIDs fills empty plan and drill identifiers.
func (g *IDGenerator) AssignIDs(p *SessionPlan) {
	if p.ID == "" {
		p.ID = g.New()
	}
	for i := range p.Drills {
		if p.Drills[i].ID == "" {
			p.Drills[i].ID = g.New()
		}
	}
}

// ValidID reports whether s parses as a ULID.
func ValidID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
