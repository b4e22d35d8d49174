package main

import (
	"strings"
	"testing"

	"thepipe/internal/geometry"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B", "C"}, [][]string{{"1"}, {"2", "3", "4"}}, nil)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines (border, header, rule, 2 rows, border), got %d:\n%s", len(lines), out)
	}
	if renderTable(nil, [][]string{{"x"}}, nil) != "" {
		t.Fatal("a table without headers renders nothing")
	}
}

func TestRenderKindTableSkipsAbsentKindsAndTotals(t *testing.T) {
	out := renderKindTable(map[geometry.Kind]int{
		geometry.KindMesh: 2,
		geometry.KindArc:  3,
	})
	requireContains(t, out, "Arc")
	requireContains(t, out, "Mesh")
	requireContains(t, out, "TOTAL")
	requireContains(t, out, "5")
	if strings.Contains(out, "Polyline") {
		t.Fatalf("absent kinds should not be listed:\n%s", out)
	}
	if strings.Index(out, "Arc") > strings.Index(out, "Mesh") {
		t.Fatalf("kinds should follow tag order:\n%s", out)
	}
}
