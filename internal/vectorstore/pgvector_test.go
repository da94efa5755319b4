package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSQL_Unfiltered(t *testing.T) {
	q, err := searchSQL(nil)
	require.NoError(t, err)
	assert.NotContains(t, q, "WHERE")
	assert.NotContains(t, q, "$3")
	assert.Contains(t, q, "ORDER BY embedding <=> $1")
}

func TestSearchSQL_FilterNarrowsBeforeRanking(t *testing.T) {
	q, err := searchSQL(&Filter{Field: FieldBookName, Value: "atlas.pdf"})
	require.NoError(t, err)

	assert.Contains(t, q, "AS MATERIALIZED")
	where := strings.Index(q, "WHERE metadata->>'bookName' = $3")
	order := strings.Index(q, "ORDER BY embedding <=> $1")
	require.NotEqual(t, -1, where)
	require.NotEqual(t, -1, order)
	assert.Less(t, where, order)
	assert.Contains(t, q, "FROM candidates")
}

func TestSearchSQL_RejectsUnknownField(t *testing.T) {
	_, err := searchSQL(&Filter{Field: "page; DROP TABLE documents", Value: "1"})
	assert.ErrorContains(t, err, "unknown metadata field")
}
