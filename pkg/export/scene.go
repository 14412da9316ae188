package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/graph3d/pkg/analysis"
	"github.com/vanderheijden86/graph3d/pkg/layout"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/selection"
	"github.com/vanderheijden86/graph3d/pkg/simulation"

	json "github.com/goccy/go-json"
)

// Scene is the renderer-neutral JSON document for one frame.
type Scene struct {
	Dataset       string       `json:"dataset,omitempty"`
	Date          string       `json:"date"`
	ISODate       string       `json:"iso_date"`
	IsPlaying     bool         `json:"is_playing"`
	Speed         int          `json:"speed_multiplier"`
	Selected      string       `json:"selected,omitempty"`
	LabelsEnabled bool         `json:"labels_enabled"`
	Nodes         []SceneNode  `json:"nodes"`
	Edges         []SceneEdge  `json:"edges"`
	Summary       SceneSummary `json:"summary"`
}

// SceneNode is a positioned node plus its visibility.
type SceneNode struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         model.NodeType `json:"type"`
	Tags         []string       `json:"tags"`
	Role         model.Role     `json:"role"`
	Value        float64        `json:"value"`
	Degree       int            `json:"degree"`
	Position     model.Vec3     `json:"position"`
	Radius       float64        `json:"radius"`
	Color        string         `json:"color"`
	RGB          model.RGB      `json:"rgb"`
	Mesh         string         `json:"mesh"`
	Label        string         `json:"label"`
	Visible      bool           `json:"visible"`
	LabelVisible bool           `json:"label_visible"`
	Layer        int            `json:"layer"`
	Balance      *float64       `json:"current_value,omitempty"`
}

// SceneEdge carries arrow geometry for edges that have both endpoints.
type SceneEdge struct {
	Index       int        `json:"index"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Weight      float64    `json:"weight"`
	Type        string     `json:"type"`
	DayOfMonth  *int       `json:"day_of_month"`
	Visible     bool       `json:"visible"`
	Start       model.Vec3 `json:"start"`
	End         model.Vec3 `json:"end"`
	Direction   model.Vec3 `json:"direction"`
	ShaftCenter model.Vec3 `json:"shaft_center"`
	ShaftLength float64    `json:"shaft_length"`
	HeadCenter  model.Vec3 `json:"head_center"`
}

// SceneSummary is the short header shown by exporters and the API.
type SceneSummary struct {
	NodeCount    int        `json:"node_count"`
	EdgeCount    int        `json:"edge_count"`
	Rendered     int        `json:"rendered_edges"`
	VisibleNodes int        `json:"visible_nodes"`
	TopHub       string     `json:"top_hub,omitempty"`
	TopHubs      []string   `json:"top_hubs,omitempty"`
	Components   int        `json:"components"`
	Largest      int        `json:"largest_component"`
	Cycles       int        `json:"cycles"`
	Density      float64    `json:"density"`
	Roles        RoleCounts `json:"roles"`
}

// RoleCounts tallies nodes per role.
type RoleCounts struct {
	Sources       int `json:"sources"`
	Sinks         int `json:"sinks"`
	Intermediates int `json:"intermediates"`
	Disconnected  int `json:"disconnected"`
}

func (r *RoleCounts) add(role model.Role) {
	switch role {
	case model.RoleSource:
		r.Sources++
	case model.RoleSink:
		r.Sinks++
	case model.RoleIntermediate:
		r.Intermediates++
	default:
		r.Disconnected++
	}
}

// SceneOptions controls BuildScene.
type SceneOptions struct {
	Dataset string
	Edges   []model.Edge         // full edge list; arrows reference it by index
	Stats   *analysis.GraphStats // optional; fills the hub/component summary
	TopN    int                  // hubs listed in the summary (default 5)
}

// BuildScene flattens a session snapshot into a Scene.
func BuildScene(snap simulation.Snapshot, opts SceneOptions) Scene {
	defer metrics.Timer(metrics.Export)()

	vis := snap.Visibility
	scene := Scene{
		Dataset:       opts.Dataset,
		Date:          snap.State.FormattedDate(),
		ISODate:       snap.State.Date.Format("2006-01-02"),
		IsPlaying:     snap.State.IsPlaying,
		Speed:         snap.State.SpeedMultiplier,
		LabelsEnabled: snap.LabelsEnabled,
		Nodes:         make([]SceneNode, 0, len(snap.Nodes)),
		Edges:         make([]SceneEdge, 0, len(snap.Arrows)),
	}
	if snap.HasSelection {
		scene.Selected = snap.Selected
	}

	for i, pn := range snap.Nodes {
		tags := pn.Tags
		if tags == nil {
			tags = []string{}
		}
		scene.Nodes = append(scene.Nodes, SceneNode{
			ID:           pn.ID,
			Name:         pn.Name,
			Type:         pn.Type,
			Tags:         tags,
			Role:         pn.Role,
			Value:        pn.Value,
			Degree:       pn.Degree,
			Position:     pn.Position,
			Radius:       pn.Radius,
			Color:        pn.Color.Hex(),
			RGB:          pn.Color,
			Mesh:         selection.MeshName(pn.ID),
			Label:        pn.Label(),
			Visible:      vis.NodeVisible(pn.ID),
			LabelVisible: vis.LabelVisible(pn.ID),
			Layer:        layerOf(i),
			Balance:      pn.CurrentValue,
		})
		scene.Summary.Roles.add(pn.Role)
	}
	scene.Summary.NodeCount = len(snap.Nodes)
	scene.Summary.VisibleNodes = vis.VisibleNodeCount()

	for _, a := range snap.Arrows {
		se := arrowEdge(a)
		if a.EdgeIndex < len(opts.Edges) {
			e := opts.Edges[a.EdgeIndex]
			se.Type = e.Type
			se.DayOfMonth = e.DayOfMonth
		}
		se.Visible = vis.EdgeVisible(a.EdgeIndex)
		scene.Edges = append(scene.Edges, se)
	}
	scene.Summary.EdgeCount = len(opts.Edges)
	if opts.Edges == nil {
		scene.Summary.EdgeCount = len(snap.Arrows)
	}
	scene.Summary.Rendered = len(snap.Arrows)

	if opts.Stats != nil {
		fillStats(&scene.Summary, opts.Stats, opts.TopN)
	}
	return scene
}

func arrowEdge(a layout.Arrow) SceneEdge {
	return SceneEdge{
		Index:       a.EdgeIndex,
		From:        a.From,
		To:          a.To,
		Weight:      a.Weight,
		Type:        "default",
		Start:       a.Start,
		End:         a.End,
		Direction:   a.Direction,
		ShaftCenter: a.ShaftCenter,
		ShaftLength: a.ShaftLength,
		HeadCenter:  a.HeadCenter,
	}
}

func fillStats(s *SceneSummary, stats *analysis.GraphStats, topN int) {
	if topN <= 0 {
		topN = 5
	}
	s.TopHubs = stats.TopHubs(topN)
	if len(s.TopHubs) > 0 {
		s.TopHub = s.TopHubs[0]
	}
	s.Components = len(stats.Components)
	if len(stats.Components) > 0 {
		s.Largest = len(stats.Components[0])
	}
	s.Cycles = len(stats.Cycles)
	s.Density = stats.Density
}

// layerOf returns the shell index of the i-th node in layout order.
func layerOf(i int) int {
	for layer := 0; ; layer++ {
		c := layout.LayerCapacity(layer)
		if i < c {
			return layer
		}
		i -= c
	}
}

// WriteScene encodes scene as indented JSON.
func WriteScene(w io.Writer, scene Scene) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scene); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	return nil
}

// SaveScene writes scene to path, creating parent directories.
func SaveScene(path string, scene Scene) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteScene(f, scene)
}
