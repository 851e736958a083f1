package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
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

// createTestFlush creates a flush with minimal required fields.
func createTestFlush(id string, uid, seq int64, patch ir.IRObject) component.Flush {
	return component.Flush{
		ID:        id,
		Seq:       seq,
		Component: "test",
		UID:       uid,
		Mounted:   true,
		Patch:     patch,
	}
}
