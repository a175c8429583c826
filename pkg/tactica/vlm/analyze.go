package vlm

import (
	"context"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica/schema"
)

// Analyzer runs Pass 1 and, for diagrams, the Pass-2 prompts on a single
// image. The Pass-2 prompts run one after another so each image holds at
// most one backend call at a time.
type Analyzer struct {
	Describer        *Describer
	Positions        *PositionExtractor
	Structure        *StructureExtractor
	PositionsEnabled bool
}

// NewAnalyzer wires both passes to the same backend. positionsEnabled
// switches all of Pass 2 on or off.
func NewAnalyzer(backend Backend, log *logger.Logger, positionsEnabled bool) *Analyzer {
	return &Analyzer{
		Describer:        NewDescriber(backend, log),
		Positions:        NewPositionExtractor(backend, log),
		Structure:        NewStructureExtractor(backend, log),
		PositionsEnabled: positionsEnabled,
	}
}

// Analyze returns the combined result for one image. key, index and page
// identify the image in its source document.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, key string, index, page int) schema.DiagramInfo {
	info := a.Describer.Describe(ctx, image)
	info.ImageKey = key
	info.Index = index
	info.Page = page
	info.Arrows = []schema.Arrow{}
	info.Equipment = []schema.EquipmentMarker{}
	info.Goals = []schema.Goal{}
	if !info.IsDiagram || !a.PositionsEnabled {
		return info
	}

	if a.Positions != nil {
		positions, degraded := a.Positions.Extract(ctx, image, info)
		info.Positions = positions
		info.Degraded = info.Degraded || degraded
	}
	if a.Structure != nil {
		var degraded [3]bool
		info.Arrows, degraded[0] = a.Structure.Arrows(ctx, image, key)
		info.Equipment, info.Goals, degraded[1] = a.Structure.EquipmentAndGoals(ctx, image, key, len(info.Positions))
		info.PitchView, degraded[2] = a.Structure.PitchView(ctx, image, info)
		info.Degraded = info.Degraded || degraded[0] || degraded[1] || degraded[2]
		CrossValidate(&info)
	}
	return info
}
