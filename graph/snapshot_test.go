package graph

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/knownet/core"
)

func TestSnapshot_JSONShape(t *testing.T) {
	s := newTestStore(t, nil)
	mustAdd(t, s, "Tesla", "is a", "company", "https://a.example/1")

	var buf bytes.Buffer
	require.NoError(t, s.WriteSnapshot(&buf))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "entities")
	assert.Contains(t, raw, "triples")

	triples := raw["triples"].([]any)
	require.Len(t, triples, 1)
	tr := triples[0].(map[string]any)
	assert.Equal(t, "is a", tr["predicate"])
	assert.Contains(t, tr, "subjectId")
	assert.Contains(t, tr, "objectId")
	assert.Equal(t, []any{"https://a.example/1"}, tr["provenance"])
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s, _ := buildChain(t)

	var buf bytes.Buffer
	require.NoError(t, s.WriteSnapshot(&buf))

	snap, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Graph(), snap)
}

func TestSnapshotFile_MemFS(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)

	s, a := buildChain(t)
	require.NoError(t, s.WriteSnapshotFile(fs, "exports/run-1/graph.json"))

	snap, err := ReadSnapshotFile(fs, "exports/run-1/graph.json")
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 4)
	assert.Len(t, snap.Triples, 4)

	view, err := NewView(snap)
	require.NoError(t, err)

	for depth := 1; depth <= 3; depth++ {
		want, err := s.Neighborhood(a, depth)
		require.NoError(t, err)
		got, err := view.Neighborhood(a, depth)
		require.NoError(t, err)
		assert.Equal(t, want, got, "depth %d", depth)
	}

	got, err := view.NeighborhoodOf("B", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"(A, knows, B)", "(B, likes, C)"}, got)

	_, err = view.NeighborhoodOf("nobody", 1)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	_, err = view.Neighborhood(core.EntityID(77), 1)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = ReadSnapshotFile(fs, "exports/missing.json")
	assert.Error(t, err)
}

func TestReadSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "{"},
		{name: "zero id", input: `{"entities":[{"id":0,"name":"a","provenance":[]}],"triples":[]}`},
		{name: "duplicate id", input: `{"entities":[{"id":1,"name":"a","provenance":[]},{"id":1,"name":"b","provenance":[]}],"triples":[]}`},
		{name: "unknown parent", input: `{"entities":[{"id":1,"name":"a","parentId":5,"provenance":[]}],"triples":[]}`},
		{name: "dangling triple", input: `{"entities":[{"id":1,"name":"a","provenance":[]}],"triples":[{"subjectId":1,"predicate":"p","objectId":2,"provenance":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSnapshot(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}

	_, err := NewView(nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}
