package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/vanderheijden86/graph3d/pkg/analysis"
	"github.com/vanderheijden86/graph3d/pkg/config"
	"github.com/vanderheijden86/graph3d/pkg/datestate"
	"github.com/vanderheijden86/graph3d/pkg/export"
	"github.com/vanderheijden86/graph3d/pkg/simulation"

	"github.com/labstack/echo/v4"
)

type datasetInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

func (s *Server) getDatasets(c echo.Context) error {
	names := s.cfg.DatasetNames()
	out := make([]datasetInfo, 0, len(names))
	for _, name := range names {
		out = append(out, datasetInfo{
			Name:    name,
			Kind:    s.cfg.Datasets[name].EffectiveKind(),
			Default: name == config.DefaultDatasetName,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type sceneParams struct {
	Dataset  string `query:"dataset"`
	Selected string `query:"selected"`
	Labels   bool   `query:"labels"`
	Date     string `query:"date"`
}

type sceneResponse struct {
	export.Scene
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) getScene(c echo.Context) error {
	params := new(sceneParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	name, ds, err := s.cfg.Resolve(params.Dataset)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	// Node and edge documents are parsed concurrently.
	var (
		mu       sync.Mutex
		warnings []string
	)
	warn := func(msg string) {
		mu.Lock()
		warnings = append(warnings, msg)
		mu.Unlock()
	}
	g, err := s.load(c.Request().Context(), ds, warn)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	start, ok := s.cfg.StartDate()
	if !ok {
		start = datestate.Today(s.clock)
	}
	sess := simulation.New(g, params.Labels,
		datestate.WithStartDate(start),
		datestate.WithClock(s.clock),
		datestate.WithScheduler(datestate.NewManualScheduler()),
	)
	defer sess.Close()

	if d := strings.TrimSpace(params.Date); d != "" {
		target, err := config.ParseDate(d)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		}
		sess.Machine().SetDate(target)
	}

	if params.Selected != "" {
		if _, found := g.NodeIndex()[params.Selected]; !found {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown node " + params.Selected})
		}
		sess.Click(params.Selected)
	}

	stats := analysis.GetGlobalCache().Analyze(g)

	scene := export.BuildScene(sess.Snapshot(), export.SceneOptions{
		Dataset: name,
		Edges:   g.Edges,
		Stats:   &stats,
	})
	return c.JSON(http.StatusOK, sceneResponse{Scene: scene, Warnings: warnings})
}

type graphParams struct {
	Dataset string `query:"dataset"`
	Format  string `query:"format"`
	Root    string `query:"root"`
	Depth   int    `query:"depth"`
	Tag     string `query:"tag"`
}

func (s *Server) getGraph(c echo.Context) error {
	params := new(graphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	_, ds, err := s.cfg.Resolve(params.Dataset)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	g, err := s.load(c.Request().Context(), ds, func(string) {})
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if params.Root != "" {
		if _, found := g.NodeIndex()[params.Root]; !found {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown node " + params.Root})
		}
	}

	stats := analysis.GetGlobalCache().Analyze(g)
	res, err := export.ExportGraph(g, &stats, export.GraphExportConfig{
		Format: export.GraphExportFormat(strings.ToLower(params.Format)),
		Root:   params.Root,
		Depth:  params.Depth,
		Tag:    params.Tag,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if res.Graph != "" {
		return c.String(http.StatusOK, res.Graph)
	}
	return c.JSON(http.StatusOK, res)
}
