package dbutil

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize(`SELECT id FROM documents WHERE name = ? AND content_type = ?`, []interface{}{"a", "b"})
	require.Equal(t, `SELECT id FROM documents WHERE name = $1 AND content_type = $2`, query)
	require.Equal(t, []interface{}{"a", "b"}, args)
}

func TestFinalizeRewritesLimitClause(t *testing.T) {
	query, args := Finalize(`SELECT id FROM documents WHERE name = ? LIMIT ?,?`, []interface{}{"a", 10, 5})
	require.Equal(t, `SELECT id FROM documents WHERE name = $1 LIMIT $2 OFFSET $3`, query)
	// gendry emits LIMIT offset,count; postgres wants LIMIT count OFFSET offset.
	require.Equal(t, []interface{}{"a", 5, 10}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(errors.New("boom")))
	require.False(t, IsConflict(nil))
}
