package geometry

import "fmt"

// Mesh is an indexed polygon mesh. Each face lists three or four vertex
// indices.
type Mesh struct {
	Vertices []Vec
	Faces    [][]int
}

func (*Mesh) Kind() Kind { return KindMesh }

// Validate checks face arity and index bounds.
func (m *Mesh) Validate() error {
	for i, f := range m.Faces {
		if len(f) != 3 && len(f) != 4 {
			return fmt.Errorf("geometry: mesh face %d has %d vertices", i, len(f))
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("geometry: mesh face %d references vertex %d of %d", i, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

func (m *Mesh) Equal(other Value) bool { return m.EqualWithin(other, DefaultTolerance) }

func (m *Mesh) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(*Mesh)
	if !ok || m == nil || o == nil {
		return false
	}
	if !tol.vecs(m.Vertices, o.Vertices) || len(m.Faces) != len(o.Faces) {
		return false
	}
	for i := range m.Faces {
		if len(m.Faces[i]) != len(o.Faces[i]) {
			return false
		}
		for j := range m.Faces[i] {
			if m.Faces[i][j] != o.Faces[i][j] {
				return false
			}
		}
	}
	return true
}
