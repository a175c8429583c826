package vlm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

// Merge assigns diagrams to drills in document order: each drill takes the
// next diagram by image index. Non-diagrams are skipped and never
// referenced. refOf maps a diagram to its stored image handle; a nil refOf
// uses the image key. Drills left without a diagram are unchanged.
func Merge(drills []schema.DrillBlock, diagrams []schema.DiagramInfo, refOf func(schema.DiagramInfo) string) {
	ordered := make([]schema.DiagramInfo, 0, len(diagrams))
	for _, d := range diagrams {
		if d.IsDiagram {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for i := range drills {
		if i >= len(ordered) {
			return
		}
		d := ordered[i]
		ref := d.ImageKey
		if refOf != nil {
			ref = refOf(d)
		}
		drills[i].VLMDescription = schema.StringPtr(MergedDescription(d))
		drills[i].ImageRef = schema.StringPtr(ref)
		drills[i].Positions = append([]schema.PlayerPosition{}, d.Positions...)
		drills[i].Arrows = append([]schema.Arrow{}, d.Arrows...)
		drills[i].Equipment = append([]schema.EquipmentMarker{}, d.Equipment...)
		drills[i].Goals = append([]schema.Goal{}, d.Goals...)
		if d.PitchView != nil {
			v := *d.PitchView
			drills[i].PitchView = &v
		}
	}
}

// MergedDescription renders the Pass-1 description with the movement
// patterns and the Pass-2 structure appended.
func MergedDescription(d schema.DiagramInfo) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(d.Description))
	if len(d.MovementPatterns) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Movement: ")
		b.WriteString(strings.Join(d.MovementPatterns, "; "))
	}
	if len(d.Positions) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Players: ")
		for i, p := range d.Positions {
			if i > 0 {
				b.WriteString("; ")
			}
			label := p.Label
			if label == "" {
				label = "?"
			}
			fmt.Fprintf(&b, "%s (%s) at %.0f,%.0f", label, p.Role, p.X, p.Y)
		}
	}
	if len(d.Arrows) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Arrows: ")
		for i, a := range d.Arrows {
			if i > 0 {
				b.WriteString("; ")
			}
			if a.FromLabel != "" {
				b.WriteString(a.FromLabel + " ")
			}
			fmt.Fprintf(&b, "%s %.0f,%.0f to %.0f,%.0f", a.Type, a.StartX, a.StartY, a.EndX, a.EndY)
		}
	}
	if len(d.Equipment) > 0 || len(d.Goals) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Equipment: %d item(s), %d goal(s)", len(d.Equipment), len(d.Goals))
	}
	if d.PitchView != nil {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("View: " + string(*d.PitchView))
	}
	return b.String()
}
