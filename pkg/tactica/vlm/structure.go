package vlm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

const (
	defaultStructureTokens = 2048
	defaultPitchViewTokens = 512

	// minArrowLength is the shortest arrow, in pitch units, that is kept.
	minArrowLength = 2.0
)

var arrowAliases = map[string]schema.ArrowType{
	"run":          schema.ArrowRun,
	"pass":         schema.ArrowPass,
	"shot":         schema.ArrowShot,
	"shoot":        schema.ArrowShot,
	"dribble":      schema.ArrowDribble,
	"cross":        schema.ArrowCross,
	"through_ball": schema.ArrowThroughBall,
	"through":      schema.ArrowThroughBall,
	"movement":     schema.ArrowMovement,
}

var pitchViewAliases = map[string]schema.PitchView{
	"penalty_area": schema.PenaltyArea,
	"penalty_box":  schema.PenaltyArea,
	"box":          schema.PenaltyArea,
	"third":        schema.Third,
	"half_pitch":   schema.HalfPitch,
	"half":         schema.HalfPitch,
	"full_pitch":   schema.FullPitch,
	"full":         schema.FullPitch,
	"custom":       schema.CustomView,
}

type rawArrow struct {
	StartX    json.RawMessage `json:"start_x"`
	StartY    json.RawMessage `json:"start_y"`
	EndX      json.RawMessage `json:"end_x"`
	EndY      json.RawMessage `json:"end_y"`
	Type      string          `json:"arrow_type"`
	FromLabel string          `json:"from_label"`
	Sequence  json.RawMessage `json:"sequence_number"`
}

type rawMarker struct {
	Type     string          `json:"equipment_type"`
	GoalType string          `json:"goal_type"`
	X        json.RawMessage `json:"x"`
	Y        json.RawMessage `json:"y"`
	Color    string          `json:"color"`
}

type arrowsPayload struct {
	Arrows *[]rawArrow `json:"arrows"`
}

type equipmentPayload struct {
	Equipment *[]rawMarker `json:"equipment"`
	Goals     *[]rawMarker `json:"goals"`
}

type pitchViewPayload struct {
	PitchView json.RawMessage `json:"pitch_view"`
}

// StructureExtractor runs the Pass-2 prompts beyond player positions:
// movement arrows, equipment and goals, and the pitch view. Each prompt
// gets one stricter retry; a reply that is still unusable yields an empty
// result and degraded=true.
type StructureExtractor struct {
	backend   Backend
	log       *logger.Logger
	maxTokens int
}

// NewStructureExtractor creates a structure extractor. A nil logger discards output.
func NewStructureExtractor(backend Backend, log *logger.Logger) *StructureExtractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &StructureExtractor{backend: backend, log: log, maxTokens: defaultStructureTokens}
}

// ask runs one prompt with the stricter retry.
func (s *StructureExtractor) ask(ctx context.Context, op string, req Request, decode func() error, out any) error {
	err := complete(ctx, s.backend, op, req, out)
	if err == nil {
		err = decode()
	}
	if err != nil && ctx.Err() == nil {
		s.log.Debug("pass 2 retry", "op", op, "error", err)
		req.System += noThinkSuffix
		err = complete(ctx, s.backend, op, req, out)
		if err == nil {
			err = decode()
		}
	}
	return err
}

// Arrows extracts movement arrows. Coordinates are clamped to the pitch.
func (s *StructureExtractor) Arrows(ctx context.Context, image []byte, imageKey string) ([]schema.Arrow, bool) {
	var payload arrowsPayload
	err := s.ask(ctx, "arrows", Request{
		Image:     image,
		System:    arrowsSystemPrompt,
		User:      arrowsPrompt,
		JSONMode:  true,
		MaxTokens: s.maxTokens,
	}, func() error {
		if payload.Arrows == nil {
			return internalerr.New(internalerr.KindVLM, "arrows", errShape)
		}
		return nil
	}, &payload)
	if err != nil {
		s.log.Warn("pass 2 arrows degraded", "image", imageKey, "error", err)
		return []schema.Arrow{}, true
	}

	out := make([]schema.Arrow, 0, len(*payload.Arrows))
	for i, ra := range *payload.Arrows {
		sx, ok1 := coord(ra.StartX)
		sy, ok2 := coord(ra.StartY)
		ex, ok3 := coord(ra.EndX)
		ey, ok4 := coord(ra.EndY)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			s.log.Warn("pass 2 arrow skipped", "image", imageKey, "index", i)
			continue
		}
		out = append(out, schema.Arrow{
			StartX:    schema.ClampCoord(sx),
			StartY:    schema.ClampCoord(sy),
			EndX:      schema.ClampCoord(ex),
			EndY:      schema.ClampCoord(ey),
			Type:      NormalizeArrowType(ra.Type),
			FromLabel: strings.TrimSpace(ra.FromLabel),
			Sequence:  sequence(ra.Sequence),
		})
	}
	return out, false
}

// EquipmentAndGoals extracts equipment markers and goals. players is the
// number of player markers already found, so the model does not count them
// twice.
func (s *StructureExtractor) EquipmentAndGoals(ctx context.Context, image []byte, imageKey string, players int) ([]schema.EquipmentMarker, []schema.Goal, bool) {
	var payload equipmentPayload
	err := s.ask(ctx, "equipment", Request{
		Image:     image,
		System:    equipmentSystemPrompt,
		User:      fmt.Sprintf(equipmentPromptTemplate, players),
		JSONMode:  true,
		MaxTokens: s.maxTokens,
	}, func() error {
		if payload.Equipment == nil && payload.Goals == nil {
			return internalerr.New(internalerr.KindVLM, "equipment", errShape)
		}
		return nil
	}, &payload)
	if err != nil {
		s.log.Warn("pass 2 equipment degraded", "image", imageKey, "error", err)
		return []schema.EquipmentMarker{}, []schema.Goal{}, true
	}

	equipment := []schema.EquipmentMarker{}
	if payload.Equipment != nil {
		for i, rm := range *payload.Equipment {
			kind := normalizeToken(rm.Type)
			x, xok := coord(rm.X)
			y, yok := coord(rm.Y)
			if kind == "" || !xok || !yok {
				s.log.Warn("pass 2 equipment skipped", "image", imageKey, "index", i, "type", rm.Type)
				continue
			}
			equipment = append(equipment, schema.EquipmentMarker{
				Type:  kind,
				X:     schema.ClampCoord(x),
				Y:     schema.ClampCoord(y),
				Color: strings.ToLower(strings.TrimSpace(rm.Color)),
			})
		}
	}
	goals := []schema.Goal{}
	if payload.Goals != nil {
		for i, rm := range *payload.Goals {
			x, xok := coord(rm.X)
			y, yok := coordOr(rm.Y, schema.MaxCoord)
			if !xok || !yok {
				s.log.Warn("pass 2 goal skipped", "image", imageKey, "index", i)
				continue
			}
			goals = append(goals, schema.Goal{
				X:    schema.ClampCoord(x),
				Y:    schema.ClampCoord(y),
				Type: goalType(rm),
			})
		}
	}
	return equipment, goals, false
}

// PitchView classifies the portion of the pitch a diagram shows. A null
// view is not an error; an unrecognized one is custom.
func (s *StructureExtractor) PitchView(ctx context.Context, image []byte, prior schema.DiagramInfo) (*schema.PitchView, bool) {
	var payload pitchViewPayload
	err := s.ask(ctx, "pitch view", Request{
		Image:     image,
		System:    pitchViewSystemPrompt,
		User:      fmt.Sprintf(pitchViewPromptTemplate, describeForPrompt(prior.Description)),
		JSONMode:  true,
		MaxTokens: defaultPitchViewTokens,
	}, func() error { return nil }, &payload)
	if err != nil {
		s.log.Warn("pass 2 pitch view degraded", "image", prior.ImageKey, "error", err)
		return nil, true
	}

	raw := strings.TrimSpace(string(payload.PitchView))
	if raw == "" || raw == "null" {
		return nil, false
	}
	var name string
	if err := json.Unmarshal(payload.PitchView, &name); err != nil {
		var obj struct {
			ViewType *string `json:"view_type"`
		}
		if err := json.Unmarshal(payload.PitchView, &obj); err != nil || obj.ViewType == nil {
			s.log.Warn("pass 2 pitch view unreadable", "image", prior.ImageKey, "value", raw)
			return nil, false
		}
		name = *obj.ViewType
	}
	if strings.TrimSpace(name) == "" {
		return nil, false
	}
	view := NormalizePitchView(name)
	return &view, false
}

// NormalizeArrowType maps model output to the arrow enumeration. Unknown
// types are generic movement.
func NormalizeArrowType(s string) schema.ArrowType {
	if t, ok := arrowAliases[normalizeToken(s)]; ok {
		return t
	}
	return schema.ArrowMovement
}

// NormalizePitchView maps model output to the pitch view enumeration.
// Unknown views are custom.
func NormalizePitchView(s string) schema.PitchView {
	if v, ok := pitchViewAliases[normalizeToken(s)]; ok {
		return v
	}
	return schema.CustomView
}

// CrossValidate cleans a combined Pass-2 result: full-size goals reported
// as equipment move to the goal list, and arrows too short to show any
// movement are dropped.
func CrossValidate(info *schema.DiagramInfo) {
	equipment := make([]schema.EquipmentMarker, 0, len(info.Equipment))
	for _, e := range info.Equipment {
		if e.Type == "full_goal" {
			info.Goals = append(info.Goals, schema.Goal{X: e.X, Y: e.Y, Type: "full_goal"})
			continue
		}
		equipment = append(equipment, e)
	}
	info.Equipment = equipment
	if info.Goals == nil {
		info.Goals = []schema.Goal{}
	}

	arrows := make([]schema.Arrow, 0, len(info.Arrows))
	for _, a := range info.Arrows {
		if a.Length() > minArrowLength {
			arrows = append(arrows, a)
		}
	}
	info.Arrows = arrows
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func goalType(rm rawMarker) string {
	if t := normalizeToken(rm.GoalType); t != "" {
		return t
	}
	if t := normalizeToken(rm.Type); t != "" {
		return t
	}
	return "full_goal"
}

// sequence reads an optional sequence number given as a number or string.
func sequence(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(math.Round(f))
}
