package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredMigrations(t *testing.T) {
	require.NotEmpty(t, registeredMigrations)

	seen := map[string]bool{}
	for _, m := range registeredMigrations {
		assert.False(t, seen[m.Version], "duplicate version %s", m.Version)
		seen[m.Version] = true
		assert.NotEmpty(t, m.Description, m.Version)
		assert.NotNil(t, m.Up, m.Version)
		assert.NotNil(t, m.Down, m.Version)

		prefix, _, ok := strings.Cut(m.Version, "_")
		assert.True(t, ok, m.Version)
		assert.Len(t, prefix, 3, m.Version)
	}
}
