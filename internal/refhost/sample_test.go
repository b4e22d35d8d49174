package refhost_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"thepipe/internal/geometry"
	"thepipe/internal/refhost"
)

func TestSampleSceneExportsEveryKind(t *testing.T) {
	doc, err := refhost.SampleScene()
	require.NoError(t, err)
	r := newRegistry(t)

	tree, err := r.TreeToPipe(doc.Objects())
	require.NoError(t, err)

	kinds := tree.Kinds()
	for _, k := range geometry.AllKinds() {
		require.Equal(t, 1, kinds[k], "kind %s", k)
	}

	back, err := r.TreeFromPipe(tree)
	require.NoError(t, err)
	require.Len(t, back, doc.Len())
}
