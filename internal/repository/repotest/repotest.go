// Package repotest opens throwaway stores for tests.
package repotest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sipitali-server/internal/repository"
)

// Stores returns gorm stores over a fresh in-memory SQLite database that is
// closed when the test ends.
func Stores(t testing.TB) repository.Stores {
	t.Helper()
	stores, closeDB, err := repository.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeDB() })
	return stores
}
