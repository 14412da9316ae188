package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/graph3d/pkg/loader"
)

// =============================================================================
// ParseNodes / ParseEdges
// =============================================================================

func collect(warnings *[]string) loader.Options {
	return loader.Options{WarningHandler: func(msg string) { *warnings = append(*warnings, msg) }}
}

func TestParseNodesDefaults(t *testing.T) {
	var warnings []string
	nodes, err := loader.ParseNodes(strings.NewReader(`[
		{"id": "a", "name": "Alpha", "type": "Primary ", "tags": ["x"]},
		{"id": "b"},
		{"id": 7, "name": "Seven", "currentValue": 12.5}
	]`), collect(&warnings))
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Empty(t, warnings)

	assert.Equal(t, "primary", string(nodes[0].Type))
	assert.Equal(t, "b", nodes[1].Name, "name defaults to id")
	assert.Equal(t, "default", string(nodes[1].Type))
	assert.Equal(t, []string{}, nodes[1].Tags)
	assert.Nil(t, nodes[1].CurrentValue)
	assert.Equal(t, "7", nodes[2].ID)
	require.NotNil(t, nodes[2].CurrentValue)
	assert.Equal(t, 12.5, *nodes[2].CurrentValue)
}

func TestParseNodesSkipsBadEntries(t *testing.T) {
	var warnings []string
	nodes, err := loader.ParseNodes(strings.NewReader(`[
		{"name": "no id"},
		{"id": "a"},
		{"id": "a", "name": "dupe"},
		"not an object",
		{"id": "b", "currentValue": "lots"}
	]`), collect(&warnings))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Name, "first duplicate wins")
	assert.Nil(t, nodes[1].CurrentValue)
	assert.Len(t, warnings, 4)
}

func TestParseRejectsInfiniteNumbers(t *testing.T) {
	var warnings []string
	nodes, err := loader.ParseNodes(strings.NewReader(`[
		{"id": "a", "currentValue": "Inf"},
		{"id": "b", "currentValue": "-infinity"},
		{"id": "c", "currentValue": "NaN"},
		{"id": "d", "currentValue": "1e3"}
	]`), collect(&warnings))
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	for _, n := range nodes[:3] {
		assert.Nil(t, n.CurrentValue, n.ID)
	}
	require.NotNil(t, nodes[3].CurrentValue)
	assert.Equal(t, 1000.0, *nodes[3].CurrentValue)
	assert.Len(t, warnings, 3)

	warnings = nil
	edges, err := loader.ParseEdges(strings.NewReader(`[{"source": "a", "target": "b", "weight": "+Inf"}]`), collect(&warnings))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.0, edges[0].Weight)
	assert.Len(t, warnings, 1)
}

func TestParseEdgesRenamesAndDefaults(t *testing.T) {
	var warnings []string
	edges, err := loader.ParseEdges(strings.NewReader(`[
		{"source": "a", "target": "b"},
		{"source": "b", "target": "c", "weight": 50, "type": "rent", "dayOfMonth": 1, "tags": ["home"], "notes": "monthly"}
	]`), collect(&warnings))
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Empty(t, warnings)

	e := edges[0]
	assert.Equal(t, "a", e.From)
	assert.Equal(t, "b", e.To)
	assert.Equal(t, 0.0, e.Weight)
	assert.Equal(t, "default", e.Type)
	assert.Nil(t, e.DayOfMonth)
	assert.Equal(t, []string{}, e.Tags)
	assert.Equal(t, "", e.Notes)

	e = edges[1]
	assert.Equal(t, 50.0, e.Weight)
	assert.Equal(t, "rent", e.Type)
	require.NotNil(t, e.DayOfMonth)
	assert.Equal(t, 1, *e.DayOfMonth)
	assert.Equal(t, "monthly", e.Notes)
}

func TestParseEdgesMalformedNumbersUseDefaults(t *testing.T) {
	var warnings []string
	edges, err := loader.ParseEdges(strings.NewReader(`[
		{"source": "a", "target": "b", "weight": "12.5", "dayOfMonth": "3"},
		{"source": "a", "target": "b", "weight": "lots", "dayOfMonth": 42},
		{"source": "a", "target": "b", "weight": -5, "dayOfMonth": 2.5},
		{"source": "a", "target": "b", "weight": null, "dayOfMonth": null},
		{"target": "b"}
	]`), collect(&warnings))
	require.NoError(t, err)
	require.Len(t, edges, 4)

	assert.Equal(t, 12.5, edges[0].Weight, "numeric strings are accepted")
	require.NotNil(t, edges[0].DayOfMonth)
	assert.Equal(t, 3, *edges[0].DayOfMonth)

	assert.Equal(t, 0.0, edges[1].Weight)
	assert.Nil(t, edges[1].DayOfMonth)
	assert.Equal(t, 0.0, edges[2].Weight)
	assert.Nil(t, edges[2].DayOfMonth)
	assert.Equal(t, 0.0, edges[3].Weight)
	assert.Nil(t, edges[3].DayOfMonth)

	assert.Len(t, warnings, 5)
}

func TestParseRejectsNonArray(t *testing.T) {
	_, err := loader.ParseEdges(strings.NewReader(`{"source": "a"}`), loader.Options{})
	assert.Error(t, err)
	_, err = loader.ParseNodes(strings.NewReader(""), loader.Options{})
	assert.Error(t, err)
}

func TestParseStripsBOM(t *testing.T) {
	nodes, err := loader.ParseNodes(strings.NewReader("\xEF\xBB\xBF[{\"id\":\"a\"}]"), loader.Options{})
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

// =============================================================================
// LoadGraph / LoadJSON
// =============================================================================

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.json"),
		[]byte(`[{"id":"A"},{"id":"B"},{"id":"C"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.json"),
		[]byte(`[{"source":"A","target":"B","weight":100,"dayOfMonth":15},{"source":"B","target":"C","weight":50,"dayOfMonth":15}]`), 0o644))
}

func TestLoadGraphFromFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	g, err := loader.LoadGraph(context.Background(), "nodes.json", "file://"+filepath.Join(dir, "edges.json"),
		loader.Options{BaseDir: dir})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
}

func TestLoadExampleDataset(t *testing.T) {
	var warnings []string
	g, err := loader.LoadGraph(context.Background(), "nodes.example.json", "edges.example.json", loader.Options{
		BaseDir:        filepath.Join("..", "..", "testdata"),
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, g.Nodes, 9)
	assert.Len(t, g.Edges, 8)

	idx := g.NodeIndex()
	require.Contains(t, idx, "checking")
	assert.InDelta(t, 1200, g.Nodes[idx["checking"]].Balance(), 1e-9)
	assert.Nil(t, g.Edges[7].DayOfMonth, "ad hoc transfer has no schedule")
}

func TestLoadGraphOverHTTP(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	g, err := loader.LoadGraph(context.Background(), srv.URL+"/nodes.json", srv.URL+"/edges.json", loader.Options{})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Equal(t, 100.0, g.Edges[0].Weight)
}

func TestFetchRejectsOversizedDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	nodes := `[{"id":"A"},{"id":"B"},{"id":"C"}]`
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	for _, location := range []string{"nodes.json", srv.URL + "/nodes.json"} {
		opts := loader.Options{BaseDir: dir, MaxDocumentSize: int64(len(nodes))}
		data, err := loader.Fetch(context.Background(), location, opts)
		require.NoError(t, err, "a document at the limit loads")
		assert.Equal(t, nodes, string(data))

		opts.MaxDocumentSize--
		_, err = loader.Fetch(context.Background(), location, opts)
		require.Error(t, err, location)
		assert.ErrorIs(t, err, loader.ErrLoad)
		assert.ErrorIs(t, err, loader.ErrTooLarge)
		assert.Contains(t, err.Error(), "exceeds size limit")
	}

	_, err := loader.LoadGraph(context.Background(), "nodes.json", "edges.json", loader.Options{BaseDir: dir, MaxDocumentSize: 40})
	assert.ErrorIs(t, err, loader.ErrTooLarge, "edges.json is over the limit, not malformed")
}

func TestLoadGraphHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := loader.LoadGraph(context.Background(), srv.URL+"/nodes.json", srv.URL+"/edges.json", loader.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrLoad))

	var le *loader.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "404 Not Found", le.Status)
	assert.Contains(t, err.Error(), "Failed to load "+srv.URL)
	assert.Contains(t, err.Error(), ": 404 Not Found")
}

func TestLoadGraphMissingFile(t *testing.T) {
	_, err := loader.LoadGraph(context.Background(), "/nonexistent/nodes.json", "/nonexistent/edges.json", loader.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadGraphMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.json"), []byte(`{oops`), 0o644))

	_, err := loader.LoadGraph(context.Background(), "nodes.json", "edges.json", loader.Options{BaseDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to load edges.json")
}

func TestLoadGraphCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.LoadGraph(ctx, srv.URL+"/n", srv.URL+"/e", loader.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadJSONDecodesInto(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"answer": 42}`), 0o644))

	var v struct{ Answer int }
	require.NoError(t, loader.LoadJSON(context.Background(), path, &v, loader.Options{}))
	assert.Equal(t, 42, v.Answer)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, loader.IsRemote("https://example.com/nodes.json"))
	assert.False(t, loader.IsRemote("../nodes.json"))
	assert.False(t, loader.IsRemote("file:///tmp/nodes.json"))
}
