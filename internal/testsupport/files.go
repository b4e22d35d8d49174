package testsupport

import (
	"path/filepath"
	"testing"

	"thepipe/internal/datatree"
	"thepipe/internal/treefile"
)

// WriteTreeFile stores tree under dir/name and returns the path. The
// extension picks YAML or JSON.
func WriteTreeFile(t testing.TB, dir, name string, tree *datatree.Node) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := treefile.WriteFile(path, tree); err != nil {
		t.Fatalf("write tree file %s: %v", path, err)
	}
	return path
}
