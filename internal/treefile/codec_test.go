package treefile_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
	"thepipe/internal/testsupport"
	"thepipe/internal/treefile"
)

func TestYAMLRoundTrip(t *testing.T) {
	tree := testsupport.SampleTree(t)
	data, err := treefile.Marshal(tree)
	require.NoError(t, err)
	require.Contains(t, string(data), "kind: nurbs_surface")

	back, err := treefile.Unmarshal(data)
	require.NoError(t, err)
	require.True(t, datatree.Equal(tree, back), "yaml:\n%s", data)
}

func TestFileRoundTripByExtension(t *testing.T) {
	tree := testsupport.SampleTree(t)
	dir := t.TempDir()
	for _, name := range []string{"tree.yaml", "nested/tree.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, treefile.WriteFile(path, tree))
		back, err := treefile.ReadFile(path)
		require.NoError(t, err)
		require.True(t, datatree.Equal(tree, back), name)
	}
	require.Equal(t, treefile.JSON, treefile.FormatFor("x.JSON"))
	require.Equal(t, treefile.YAML, treefile.FormatFor("x.yml"))
}

func TestHandWrittenDocument(t *testing.T) {
	doc := `
tree:
  children:
    - value: {kind: number, value: 42}
    - value: {kind: text, value: hello}
    - children:
        - value: {kind: vec, coords: [1, 2]}
        - value:
            kind: extrusion
            profile:
              kind: polyline
              closed: true
              points: [[0, 0, 0], [1, 0, 0], [1, 1, 0]]
            direction: [0, 0, 5]
            height: 5
`
	tree, err := treefile.Unmarshal([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 6, tree.Count())

	payloads := tree.Payloads()
	require.Len(t, payloads, 4)
	require.True(t, payloads[0].Equal(geometry.Number{Value: 42}))
	require.True(t, payloads[2].Equal(geometry.V2(1, 2)))
	ext := payloads[3].(*geometry.Extrusion)
	require.True(t, ext.Direction().Equal(geometry.V3(0, 0, 1)), "direction is unitized")
}

func TestDecodeErrorsNameTheNode(t *testing.T) {
	_, err := treefile.Unmarshal([]byte("tree:\n  children:\n    - value: {kind: number, value: 1}\n    - value: {kind: spline}\n"))
	require.ErrorContains(t, err, "tree.children[1]")
	require.ErrorContains(t, err, `unknown kind "spline"`)

	_, err = treefile.Unmarshal([]byte("tree:\n  value: {kind: mesh, vertices: [[0, 0, 0]], faces: [[0, 1, 2]]}\n"))
	require.ErrorContains(t, err, "references vertex")

	_, err = treefile.Unmarshal([]byte("version: 9\ntree: {}\n"))
	require.ErrorIs(t, err, treefile.ErrVersion)
}

func TestEmptyDocumentIsEmptyTree(t *testing.T) {
	tree, err := treefile.Decode(bytes.NewReader(nil), treefile.YAML)
	require.NoError(t, err)
	require.True(t, datatree.Equal(datatree.Group(), tree))
}
