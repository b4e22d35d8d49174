package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"thepipe/internal/geometry"
	"thepipe/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Relay", statusError, "connection refused", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Relay:", "[ERROR] connection refused")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Relay", statusOK, "reachable", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderCheck(t *testing.T) {
	got := renderCheck(preflight.Result{Name: "Journal", Detail: "locked"}, false)
	if !strings.Contains(got, "[ERROR] locked") {
		t.Fatalf("failed check should render as error, got %q", got)
	}
	got = renderCheck(preflight.Result{Name: "Journal", Passed: true}, false)
	if !strings.Contains(got, "[OK]") {
		t.Fatalf("passed check should render as ok, got %q", got)
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestKindLabel(t *testing.T) {
	cases := map[string]string{
		geometry.KindNurbsSurface.String(): "Nurbs Surface",
		geometry.KindVec.String():          "Vec",
		"polyline":                         "Polyline",
	}
	for in, want := range cases {
		if got := kindLabel(in); got != want {
			t.Fatalf("kindLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarizeKinds(t *testing.T) {
	if got := summarizeKinds(nil); got != "-" {
		t.Fatalf("empty kinds = %q", got)
	}
	got := summarizeKinds(map[string]int{"mesh": 2, "arc": 1})
	if got != "Arc×1, Mesh×2" {
		t.Fatalf("summarizeKinds = %q", got)
	}
}
