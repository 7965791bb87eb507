// Package tests contains integration tests for models and repositories against PostgreSQL
package tests

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	testingutil "github.com/thisisfaizi/product-image-upload/testing"
)

// withTestDB runs fn against a fresh migrated database.
// Set TEST_DB_HOST to run these tests.
func withTestDB(t *testing.T, fn func(testDB *testingutil.TestDB) error) {
	t.Helper()
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST not set; skipping database test")
	}
	require.NoError(t, testingutil.TestWithDB(fn))
}
