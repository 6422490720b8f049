package db

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// setupTestDB opens a fresh file-backed ledger in a temp dir.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "ledger", "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { Close(d) })
	return d
}
