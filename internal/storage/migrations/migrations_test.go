package migrations

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRunsFilesInLexicalOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_trades.sql":    {Data: []byte("CREATE TABLE trades")},
		"sql/0001_positions.sql": {Data: []byte("CREATE TABLE positions")},
		"sql/0003_blank.sql":     {Data: []byte("  \n")},
		"sql/README.txt":         {Data: []byte("not a migration")},
	}

	var ran []string
	require.NoError(t, apply(fsys, "sql", func(stmt string) error {
		ran = append(ran, stmt)
		return nil
	}))

	// Blank files and non-SQL entries are skipped.
	assert.Equal(t, []string{"CREATE TABLE positions", "CREATE TABLE trades"}, ran)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0001_bad.sql":   {Data: []byte("CREATE TABL positions")},
		"sql/0002_never.sql": {Data: []byte("CREATE TABLE trades")},
	}

	calls := 0
	err := apply(fsys, "sql", func(string) error {
		calls++
		return errors.New("syntax error")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_bad.sql")
	assert.Equal(t, 1, calls)
}
