package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/config"
	"github.com/vanderheijden86/graph3d/pkg/model"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Playback.StartDate = "2025-01-14"
	return cfg
}

func memoryLoader(g model.Graph) GraphLoader {
	return func(ctx context.Context, ds config.Dataset, warn func(string)) (model.Graph, error) {
		warn("loaded from memory")
		return g.Clone(), nil
	}
}

func chain() model.Graph {
	return model.Graph{
		Nodes: []model.Node{
			{ID: "A", Name: "Payroll", Type: model.TypePrimary},
			{ID: "B", Name: "Checking", Type: model.TypeSecondary},
			{ID: "C", Name: "Rent", Type: model.TypeTertiary},
		},
		Edges: []model.Edge{
			{From: "A", To: "B", Weight: 100, Type: "default", DayOfMonth: model.Day(15)},
			{From: "B", To: "C", Weight: 50, Type: "default", DayOfMonth: model.Day(15)},
		},
	}
}

type sceneBody struct {
	Dataset  string `json:"dataset"`
	Date     string `json:"date"`
	Selected string `json:"selected"`
	Nodes    []struct {
		ID           string   `json:"id"`
		Value        float64  `json:"value"`
		Balance      *float64 `json:"current_value"`
		Visible      bool     `json:"visible"`
		LabelVisible bool     `json:"label_visible"`
	} `json:"nodes"`
	Edges []struct {
		From    string `json:"from"`
		Visible bool   `json:"visible"`
	} `json:"edges"`
	Summary struct {
		TopHub string `json:"top_hub"`
	} `json:"summary"`
	Warnings []string `json:"warnings"`
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeScene(t *testing.T, rec *httptest.ResponseRecorder) sceneBody {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body sceneBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDatasets(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	rec := get(t, s, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []datasetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 3)
	assert.Equal(t, "default", out[0].Name)
	assert.True(t, out[0].Default)
	assert.Equal(t, "json", out[1].Kind)
}

func TestSceneDefaultDate(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	body := decodeScene(t, get(t, s, "/api/scene?dataset=example&labels=true"))

	assert.Equal(t, "example", body.Dataset)
	assert.Equal(t, "January 14, 2025", body.Date)
	assert.Equal(t, "B", body.Summary.TopHub)
	assert.Equal(t, []string{"loaded from memory"}, body.Warnings)
	require.Len(t, body.Nodes, 3)
	for _, n := range body.Nodes {
		assert.True(t, n.Visible)
		assert.True(t, n.LabelVisible)
	}
}

func TestSceneUnknownDatasetFallsBack(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	body := decodeScene(t, get(t, s, "/api/scene?dataset=nope"))
	assert.Equal(t, "default", body.Dataset)
}

func TestSceneReplaysToDate(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	body := decodeScene(t, get(t, s, "/api/scene?date=2025-01-15"))

	assert.Equal(t, "January 15, 2025", body.Date)
	for _, n := range body.Nodes {
		if n.ID == "B" {
			require.NotNil(t, n.Balance)
			assert.InDelta(t, 50, *n.Balance, 1e-9)
			assert.InDelta(t, 50, n.Value, 1e-9)
		}
	}
}

func TestSceneSelection(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	body := decodeScene(t, get(t, s, "/api/scene?selected=A"))

	assert.Equal(t, "A", body.Selected)
	visible := map[string]bool{}
	for _, n := range body.Nodes {
		visible[n.ID] = n.Visible
		assert.False(t, n.LabelVisible, "labels default off")
	}
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": false}, visible)
	for _, e := range body.Edges {
		assert.Equal(t, e.From == "A", e.Visible)
	}
}

func TestSceneBadRequests(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/scene?date=15/01/2025").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/scene?selected=zzz").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/scene?labels=maybe").Code)
}

func TestSceneLoadFailure(t *testing.T) {
	failing := func(ctx context.Context, ds config.Dataset, warn func(string)) (model.Graph, error) {
		return model.Graph{}, errors.New("Failed to load nodes.json: 404 Not Found")
	}
	s := New(testConfig(), WithLoader(failing))
	rec := get(t, s, "/api/scene")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "404 Not Found")
}

func TestSceneNoDataset(t *testing.T) {
	cfg := testConfig()
	cfg.Datasets = map[string]config.Dataset{}
	s := New(cfg, WithLoader(memoryLoader(chain())))
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/scene").Code)
}

func TestSceneFromJSONFiles(t *testing.T) {
	dir := t.TempDir()
	nodes := `[{"id":"A","name":"Payroll","type":"Primary"},{"id":"B","name":"Checking"}]`
	edges := `[{"source":"A","target":"B","weight":"12.5","dayOfMonth":40}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.json"), []byte(nodes), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.json"), []byte(edges), 0o644))

	cfg := testConfig()
	cfg.DataDir = dir
	s := New(cfg, WithClock(func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local) }))
	body := decodeScene(t, get(t, s, "/api/scene"))

	require.Len(t, body.Nodes, 2)
	assert.NotEmpty(t, body.Warnings, "out-of-range dayOfMonth should warn")
	for _, n := range body.Nodes {
		assert.InDelta(t, 12.5, n.Value, 1e-9)
	}
}

func TestGraphFormats(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))

	rec := get(t, s, "/api/graph?format=dot")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"A" -> "B"`)

	rec = get(t, s, "/api/graph?format=mermaid&root=B")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "B -->|50 (day 15)| C")
	assert.NotContains(t, rec.Body.String(), "Payroll")

	rec = get(t, s, "/api/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Format string `json:"format"`
		Nodes  int    `json:"nodes"`
		Edges  int    `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "json", body.Format)
	assert.Equal(t, 3, body.Nodes)
	assert.Equal(t, 2, body.Edges)
}

func TestGraphBadRequests(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/graph?format=png").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/graph?root=zzz").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/graph?depth=many").Code)
}

func TestCORSHeader(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CORS = true
	s := New(cfg, WithLoader(memoryLoader(chain())))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(testConfig(), WithLoader(memoryLoader(chain())))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
