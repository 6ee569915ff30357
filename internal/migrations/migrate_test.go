package migrations

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/vidrieria/internal/db"
)

func TestUpIsRepeatable(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Up(database.DB, zerolog.Nop()))
	require.NoError(t, Up(database.DB, zerolog.Nop()))

	v, err := Version(database.DB, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	var last int64
	require.NoError(t, database.Get(&last, `SELECT last_value FROM quote_sequence WHERE id = 1`))
	assert.Zero(t, last)
}
