// Package treefile reads and writes trees as human-editable YAML (or JSON,
// chosen by file extension). The CLI uses it to push hand-written trees and
// to print pulled ones.
//
// A document looks like:
//
//	version: 1
//	tree:
//	  children:
//	    - value: {kind: number, value: 42}
//	    - value: {kind: line, start: [0, 0, 0], end: [1, 1, 0]}
package treefile
