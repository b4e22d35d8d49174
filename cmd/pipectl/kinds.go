package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
)

var titleCaser = cases.Title(language.Und)

// kindLabel turns a wire kind name such as "nurbs_curve" into "Nurbs Curve".
func kindLabel(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func renderKindTable(kinds map[geometry.Kind]int) string {
	rows := make([][]string, 0, len(kinds))
	total := 0
	for _, k := range geometry.AllKinds() {
		n := kinds[k]
		if n == 0 {
			continue
		}
		total += n
		rows = append(rows, []string{kindLabel(k.String()), strconv.Itoa(n)})
	}
	return tableSpec{
		Headers: []string{"Kind", "Count"},
		Rows:    rows,
		Footer:  []string{"Total", strconv.Itoa(total)},
		Aligns:  []columnAlignment{alignLeft, alignRight},
	}.render()
}

// summarizeKinds renders a journal kind histogram on one line.
func summarizeKinds(kinds map[string]int) string {
	if len(kinds) == 0 {
		return "-"
	}
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s×%d", kindLabel(name), kinds[name]))
	}
	return strings.Join(parts, ", ")
}

func writeTreeSummary(out io.Writer, source string, tree *datatree.Node) {
	fmt.Fprintf(out, "Source: %s\n", source)
	fmt.Fprintf(out, "Nodes:  %d\n", tree.Count())
	fmt.Fprintf(out, "Depth:  %d\n", tree.Depth())
	fmt.Fprintln(out, renderKindTable(tree.Kinds()))
}
