package store

import (
	"database/sql"
	"testing"

	"github.com/optiplus/storefront/internal/testutil"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	return testutil.SetupTestDB(t)
}
