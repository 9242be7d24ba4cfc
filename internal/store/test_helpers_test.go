package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/storefront/internal/domain"
)

var testNow = time.Date(2025, time.October, 4, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
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

// createTestUser inserts a user with a placeholder hash.
func createTestUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "Test User", email, "hash", testNow)
	if err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", email, err)
	}
	return u
}

// createTestProduct inserts a product owned by ownerID.
func createTestProduct(t *testing.T, s *Store, ownerID int64, title string, price domain.Money) domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		OwnerID:     ownerID,
		Title:       title,
		Description: "A product used in tests",
		Price:       price,
		ImagePath:   "/images/test.png",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%q) failed: %v", title, err)
	}
	return p
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("failed to query columns of %s: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	if err != nil {
		t.Fatalf("failed to query indexes of %s: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
