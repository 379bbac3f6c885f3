package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBuild creates a build record with minimal required fields and
// one query space.
func createTestBuild(id, root string) BuildRecord {
	return BuildRecord{
		ID:                 id,
		Root:               root,
		Signature:          "sig-" + root,
		MetamodelSignature: "metamodel-sig",
		SpaceCount:         1,
		Options:            "{}",
		PlanText:           "EntityReturn " + root + "\n",
		PlanView:           "{}",
		RecordedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Spaces: []SpaceRecord{
			{Ordinal: 0, UID: "<gen:0>", Kind: "entity", Descriptor: root, Alias: "t0_"},
		},
	}
}
