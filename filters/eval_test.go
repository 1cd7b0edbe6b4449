package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/matchgo/document"
)

func mustParse(t *testing.T, body map[string]any) *Node {
	t.Helper()
	n, err := Parse(body)
	require.NoError(t, err)
	return n
}

func mustDoc(t *testing.T, m map[string]any) document.Document {
	t.Helper()
	d, err := document.FromMap(m)
	require.NoError(t, err)
	return d
}

func TestMatch(t *testing.T) {
	t.Run("Nil matches everything", func(t *testing.T) {
		assert.True(t, Match(nil, nil))
		assert.True(t, Match(nil, mustDoc(t, map[string]any{"a": 1.0})))
	})

	t.Run("Term", func(t *testing.T) {
		n := mustParse(t, map[string]any{"term": map[string]any{"firstName": "Ada"}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"firstName": "Ada"})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"firstName": "Grace"})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"lastName": "Lovelace"})))
	})

	t.Run("Term numeric widening", func(t *testing.T) {
		n := mustParse(t, map[string]any{"term": map[string]any{"age": 36}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"age": 36.0})))
		assert.True(t, Match(n, mustDoc(t, map[string]any{"age": 36})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"age": 37})))
	})

	t.Run("Term array contains", func(t *testing.T) {
		n := mustParse(t, map[string]any{"term": map[string]any{"tags": "vip"}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"tags": []any{"new", "vip"}})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"tags": []any{"new"}})))
	})

	t.Run("Term nested path", func(t *testing.T) {
		n := mustParse(t, map[string]any{"term": map[string]any{"address.city": "London"}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{
			"address": map[string]any{"city": "London"},
		})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{
			"address": map[string]any{"city": "Paris"},
		})))
	})

	t.Run("Terms", func(t *testing.T) {
		n := mustParse(t, map[string]any{"terms": map[string]any{"status": []any{"new", "open"}}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"status": "open"})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"status": "closed"})))
	})

	t.Run("Range", func(t *testing.T) {
		n := mustParse(t, map[string]any{"range": map[string]any{"age": map[string]any{"gte": 18.0, "lt": 65.0}}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"age": 18.0})))
		assert.True(t, Match(n, mustDoc(t, map[string]any{"age": 42})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"age": 65.0})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"age": 17.0})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"age": "old"})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"name": "Ada"})))
	})

	t.Run("Exists and missing", func(t *testing.T) {
		exists := mustParse(t, map[string]any{"exists": map[string]any{"field": "lastName"}})
		missing := mustParse(t, map[string]any{"missing": map[string]any{"field": "lastName"}})
		with := mustDoc(t, map[string]any{"lastName": "Lovelace"})
		without := mustDoc(t, map[string]any{"firstName": "Ada"})
		assert.True(t, Match(exists, with))
		assert.False(t, Match(exists, without))
		assert.False(t, Match(missing, with))
		assert.True(t, Match(missing, without))
	})

	t.Run("Combinators", func(t *testing.T) {
		n := mustParse(t, map[string]any{"and": []any{
			map[string]any{"term": map[string]any{"status": "open"}},
			map[string]any{"not": map[string]any{"term": map[string]any{"owner": "bot"}}},
		}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"status": "open", "owner": "ada"})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"status": "open", "owner": "bot"})))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"status": "closed", "owner": "ada"})))

		or := mustParse(t, map[string]any{"or": []any{
			map[string]any{"term": map[string]any{"a": 1.0}},
			map[string]any{"term": map[string]any{"b": 2.0}},
		}})
		assert.True(t, Match(or, mustDoc(t, map[string]any{"b": 2.0})))
		assert.False(t, Match(or, mustDoc(t, map[string]any{"a": 2.0, "b": 1.0})))
	})

	t.Run("Not on missing field", func(t *testing.T) {
		n := mustParse(t, map[string]any{"not": map[string]any{"term": map[string]any{"status": "open"}}})
		assert.True(t, Match(n, mustDoc(t, map[string]any{"other": 1.0})))
	})
}
