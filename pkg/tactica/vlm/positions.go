package vlm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

var roleAliases = map[string]schema.Role{
	"goalkeeper": schema.Goalkeeper,
	"gk":         schema.Goalkeeper,
	"goalie":     schema.Goalkeeper,
	"keeper":     schema.Goalkeeper,
	"attacker":   schema.Attacker,
	"attack":     schema.Attacker,
	"att":        schema.Attacker,
	"forward":    schema.Attacker,
	"fwd":        schema.Attacker,
	"striker":    schema.Attacker,
	"defender":   schema.Defender,
	"defence":    schema.Defender,
	"defense":    schema.Defender,
	"def":        schema.Defender,
	"back":       schema.Defender,
	"cb":         schema.Defender,
	"fb":         schema.Defender,
	"neutral":    schema.Neutral,
	"server":     schema.Neutral,
	"joker":      schema.Neutral,
}

// NormalizeRole maps model output to the role enumeration. Role text wins
// when present; otherwise the label prefix decides. Anything unrecognized
// is neutral.
func NormalizeRole(role, label string) schema.Role {
	if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
		if r, ok := roleAliases[role]; ok {
			return r
		}
		return schema.Neutral
	}
	return roleFromLabel(label)
}

func roleFromLabel(label string) schema.Role {
	l := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(l, "GK"):
		return schema.Goalkeeper
	case strings.HasPrefix(l, "A"):
		return schema.Attacker
	case strings.HasPrefix(l, "D"):
		return schema.Defender
	default:
		return schema.Neutral
	}
}

type rawPlayer struct {
	Label string          `json:"label"`
	X     json.RawMessage `json:"x"`
	Y     json.RawMessage `json:"y"`
	Role  string          `json:"role"`
	Color string          `json:"color"`
}

type playersPayload struct {
	Players   []rawPlayer `json:"players"`
	Positions []rawPlayer `json:"positions"`
}

func (p playersPayload) list() ([]rawPlayer, bool) {
	switch {
	case p.Players != nil:
		return p.Players, true
	case p.Positions != nil:
		return p.Positions, true
	}
	return nil, false
}

// PositionExtractor runs Pass 2 on confirmed diagrams.
type PositionExtractor struct {
	backend   Backend
	log       *logger.Logger
	maxTokens int
}

// NewPositionExtractor creates a Pass-2 extractor. A nil logger discards output.
func NewPositionExtractor(backend Backend, log *logger.Logger) *PositionExtractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &PositionExtractor{backend: backend, log: log, maxTokens: defaultPositionsTokens}
}

// Extract returns validated player positions for a diagram. Every
// coordinate is clamped to [0,100] and duplicates on (rounded x, rounded y,
// role) are removed. A malformed or failed reply yields an empty list and
// degraded=true. Non-diagrams are never sent to the backend.
func (p *PositionExtractor) Extract(ctx context.Context, image []byte, prior schema.DiagramInfo) ([]schema.PlayerPosition, bool) {
	if !prior.IsDiagram {
		return []schema.PlayerPosition{}, false
	}
	user := fmt.Sprintf(positionsPromptTemplate, describeForPrompt(prior.Description))

	players, err := p.request(ctx, image, positionsSystemPrompt, user)
	if err != nil && ctx.Err() == nil {
		p.log.Debug("pass 2 retry", "error", err)
		players, err = p.request(ctx, image, positionsSystemPrompt+noThinkSuffix, user)
	}
	if err != nil {
		p.log.Warn("pass 2 degraded", "image", prior.ImageKey, "error", err)
		return []schema.PlayerPosition{}, true
	}
	return p.validate(prior.ImageKey, players), false
}

func (p *PositionExtractor) request(ctx context.Context, image []byte, system, user string) ([]rawPlayer, error) {
	var payload playersPayload
	err := complete(ctx, p.backend, "positions", Request{
		Image:     image,
		System:    system,
		User:      user,
		JSONMode:  true,
		MaxTokens: p.maxTokens,
	}, &payload)
	if err != nil {
		return nil, err
	}
	players, ok := payload.list()
	if !ok {
		return nil, internalerr.New(internalerr.KindVLM, "positions", errShape)
	}
	return players, nil
}

func (p *PositionExtractor) validate(imageKey string, players []rawPlayer) []schema.PlayerPosition {
	out := make([]schema.PlayerPosition, 0, len(players))
	for i, rp := range players {
		x, xok := coord(rp.X)
		y, yok := coord(rp.Y)
		if !xok || !yok {
			p.log.Warn("pass 2 position skipped", "image", imageKey, "index", i, "label", rp.Label,
				"x", string(rp.X), "y", string(rp.Y))
			continue
		}
		cx, cy := schema.ClampCoord(x), schema.ClampCoord(y)
		if cx != x || cy != y {
			p.log.Debug("pass 2 position clamped", "image", imageKey, "label", rp.Label,
				"x", x, "y", y)
		}
		out = append(out, schema.PlayerPosition{
			X:     cx,
			Y:     cy,
			Role:  NormalizeRole(rp.Role, rp.Label),
			Label: strings.TrimSpace(rp.Label),
			Color: strings.ToLower(strings.TrimSpace(rp.Color)),
		})
	}
	deduped := schema.DedupPositions(out)
	if dropped := len(out) - len(deduped); dropped > 0 {
		p.log.Debug("pass 2 duplicates removed", "image", imageKey, "count", dropped)
	}
	return deduped
}

// coord reads a coordinate given as a JSON number or numeric string.
// Missing values default to the pitch centre.
func coord(raw json.RawMessage) (float64, bool) {
	return coordOr(raw, 50)
}

func coordOr(raw json.RawMessage, missing float64) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return missing, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func describeForPrompt(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "(no description)"
	}
	return desc
}
