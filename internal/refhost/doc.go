// Package refhost is a small in-memory design host. It owns native object
// types with their own conventions (closed polylines repeat the first point,
// triangles repeat the third mesh index, curves carry their own parameter
// domains), a transactional Document, and the converter registry that maps
// them to pipe geometry.
//
// The pipectl demo commands and the exchange tests drive it; real host
// bridges follow the same shape.
package refhost
