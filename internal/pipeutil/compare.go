// Package pipeutil holds small helpers shared by the exchange packages.
package pipeutil

// EqualIgnoreOrder reports whether a and b hold the same elements under eq
// regardless of order. Each element of b pairs with at most one element of a,
// so duplicates must appear the same number of times on both sides.
//
// eq need not be transitive: a tolerance comparison can match x with two
// elements of b that do not match each other. Pairing therefore searches for
// augmenting paths, reassigning earlier pairs when a later element has no
// free partner, and succeeds whenever any perfect pairing exists.
func EqualIgnoreOrder[T any](a, b []T, eq func(x, y T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	n := len(a)
	adj := make([][]int, n)
	for i, x := range a {
		for j, y := range b {
			if eq(x, y) {
				adj[i] = append(adj[i], j)
			}
		}
		if len(adj[i]) == 0 {
			return false
		}
	}

	owner := make([]int, n) // owner[j] is the index in a paired with b[j], or -1
	for j := range owner {
		owner[j] = -1
	}
	seen := make([]bool, n)
	var augment func(i int) bool
	augment = func(i int) bool {
		for _, j := range adj[i] {
			if seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j]) {
				owner[j] = i
				return true
			}
		}
		return false
	}
	for i := range n {
		clear(seen)
		if !augment(i) {
			return false
		}
	}
	return true
}
