package main

import (
	"strconv"
	"strings"

	"github.com/cognicore/tactica/pkg/tactica/schema"
)

func renderDrills(drills []schema.DrillBlock) string {
	rows := make([][]string, 0, len(drills))
	for i, d := range drills {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.Name,
			d.Setup.PlayerCount,
			gameElement(d.TacticalContext),
			lanes(d.TacticalContext),
			yesNo(d.ImageRef != nil),
		})
	}
	return renderTable(
		[]string{"#", "Drill", "Players", "Game element", "Lanes", "Diagram"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func gameElement(tc *schema.TacticalContext) string {
	if tc == nil || tc.GameElement == nil {
		return "-"
	}
	return string(*tc.GameElement)
}

func situation(tc *schema.TacticalContext) string {
	if tc == nil || tc.SituationType == nil {
		return "-"
	}
	return string(*tc.SituationType)
}

func lanes(tc *schema.TacticalContext) string {
	if tc == nil || len(tc.Lanes) == 0 {
		return "-"
	}
	names := make([]string, len(tc.Lanes))
	for i, l := range tc.Lanes {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
