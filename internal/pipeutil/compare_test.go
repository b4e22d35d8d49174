package pipeutil_test

import (
	"testing"

	"thepipe/internal/pipeutil"
)

func intEq(a, b int) bool { return a == b }

func TestEqualIgnoreOrder(t *testing.T) {
	cases := []struct {
		name string
		a, b []int
		want bool
	}{
		{"both empty", nil, []int{}, true},
		{"same order", []int{1, 2, 3}, []int{1, 2, 3}, true},
		{"reversed", []int{1, 2, 3}, []int{3, 2, 1}, true},
		{"length mismatch", []int{1, 2}, []int{1, 2, 2}, false},
		{"duplicate counts differ", []int{1, 1, 2}, []int{1, 2, 2}, false},
		{"duplicate counts differ reversed", []int{1, 2, 2}, []int{1, 1, 2}, false},
		{"duplicates match", []int{2, 1, 2}, []int{2, 2, 1}, true},
		{"missing element", []int{1, 2, 3}, []int{1, 2, 4}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pipeutil.EqualIgnoreOrder(tc.a, tc.b, intEq); got != tc.want {
				t.Fatalf("EqualIgnoreOrder(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestEqualIgnoreOrderReassignsUnderTolerance(t *testing.T) {
	near := func(x, y float64) bool { d := x - y; return d <= 1 && d >= -1 }
	a := []float64{1.5, 2.6}
	b := []float64{2.0, 0.8}
	// 1.5 matches both 2.0 and 0.8 but 2.6 only matches 2.0, so the first
	// pairing found for 1.5 has to be undone.
	if !pipeutil.EqualIgnoreOrder(a, b, near) {
		t.Fatal("a valid pairing exists but was not found")
	}
	if !pipeutil.EqualIgnoreOrder(b, a, near) {
		t.Fatal("pairing should not depend on argument order")
	}
	if pipeutil.EqualIgnoreOrder([]float64{1.5, 1.6}, []float64{2.0, 5.0}, near) {
		t.Fatal("5.0 has no partner")
	}
}

func TestIsValidURL(t *testing.T) {
	cases := map[string]bool{
		"http://localhost:7480/pipes/a": true,
		"https://relay.example.com":     true,
		"redis://127.0.0.1:6379/0":      true,
		"my-pipe":                       false,
		"/tmp/thepipe/pipe.sock":        false,
		"":                              false,
		"file:///tmp/x":                 false,
		"  ":                            false,
	}
	for in, want := range cases {
		if got := pipeutil.IsValidURL(in); got != want {
			t.Fatalf("IsValidURL(%q) = %v, want %v", in, got, want)
		}
	}
}
