package export

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graph3d/pkg/analysis"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/valuation"
)

// GraphExportFormat specifies the output format for graph export.
type GraphExportFormat string

const (
	GraphFormatJSON    GraphExportFormat = "json"
	GraphFormatDOT     GraphExportFormat = "dot"
	GraphFormatMermaid GraphExportFormat = "mermaid"
)

// GraphExportConfig configures graph export behavior.
type GraphExportConfig struct {
	Format GraphExportFormat
	Tag    string // keep only nodes carrying this tag
	Root   string // keep only nodes reachable from Root along money flow
	Depth  int    // max hops from Root (0 = unlimited)
}

// GraphExportResult contains the exported graph and metadata.
type GraphExportResult struct {
	Format         string            `json:"format"`
	Graph          string            `json:"graph,omitempty"`
	Nodes          int               `json:"nodes"`
	Edges          int               `json:"edges"`
	FiltersApplied map[string]string `json:"filtersApplied,omitempty"`
	DataHash       string            `json:"dataHash"`
	Adjacency      *AdjacencyGraph   `json:"adjacency,omitempty"`
}

// AdjacencyGraph is the JSON adjacency list representation.
type AdjacencyGraph struct {
	Nodes []AdjacencyNode `json:"nodes"`
	Edges []AdjacencyEdge `json:"edges"`
}

// AdjacencyNode is one node of the adjacency export.
type AdjacencyNode struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Role     string   `json:"role"`
	Value    float64  `json:"value"`
	Tags     []string `json:"tags,omitempty"`
	PageRank float64  `json:"pagerank,omitempty"`
}

// AdjacencyEdge is one transfer of the adjacency export.
type AdjacencyEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
	Type   string  `json:"type"`
	Day    *int    `json:"dayOfMonth,omitempty"`
}

// ExportGraph renders the money-flow graph in the configured format. Edges
// whose endpoints were filtered out are dropped.
func ExportGraph(g model.Graph, stats *analysis.GraphStats, config GraphExportConfig) (*GraphExportResult, error) {
	sub := filterGraph(g, config)

	filtersApplied := make(map[string]string)
	if config.Tag != "" {
		filtersApplied["tag"] = config.Tag
	}
	if config.Root != "" {
		filtersApplied["root"] = config.Root
	}
	if config.Depth > 0 {
		filtersApplied["depth"] = fmt.Sprintf("%d", config.Depth)
	}

	result := &GraphExportResult{
		Format:         string(config.Format),
		Nodes:          len(sub.Nodes),
		Edges:          len(sub.Edges),
		FiltersApplied: filtersApplied,
		DataHash:       analysis.ComputeDataHash(g),
	}

	// Roles and values come from the full graph so a filtered view keeps
	// each node's real position in the flow.
	roles := valuation.Roles(g.Nodes, g.Edges)
	values := valuation.ComputeNodeValues(g.Nodes, g.Edges)

	switch config.Format {
	case GraphFormatDOT:
		result.Graph = generateDOT(sub, roles, values, stats)
	case GraphFormatMermaid:
		result.Graph = generateMermaid(sub, roles, values)
	case GraphFormatJSON, "":
		result.Format = string(GraphFormatJSON)
		result.Adjacency = generateAdjacency(sub, roles, values, stats)
	default:
		return nil, fmt.Errorf("unknown graph format %q (want json, dot or mermaid)", config.Format)
	}
	return result, nil
}

// SaveGraph writes the export to path. DOT and Mermaid are written as plain
// text, JSON as the full result.
func SaveGraph(path string, result *GraphExportResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	var data []byte
	if result.Graph != "" {
		data = []byte(result.Graph)
	} else {
		var err error
		data, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}
		data = append(data, '\n')
	}
	return os.WriteFile(path, data, 0o644)
}

// filterGraph applies the tag and root filters.
func filterGraph(g model.Graph, config GraphExportConfig) model.Graph {
	keep := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if config.Tag == "" || hasTag(n.Tags, config.Tag) {
			keep[n.ID] = true
		}
	}
	if config.Root != "" {
		keep = reachable(g, keep, config.Root, config.Depth)
	}

	var out model.Graph
	for _, n := range g.Nodes {
		if keep[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if keep[e.From] && keep[e.To] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// reachable runs a BFS from root along outgoing edges, limited to allowed
// nodes.
func reachable(g model.Graph, allowed map[string]bool, root string, maxDepth int) map[string]bool {
	out := make(map[string][]string)
	for _, e := range g.Edges {
		out[e.From] = append(out[e.From], e.To)
	}

	visited := make(map[string]bool)
	type item struct {
		id    string
		depth int
	}
	queue := []item{{root, 0}}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if visited[curr.id] || !allowed[curr.id] {
			continue
		}
		if maxDepth > 0 && curr.depth > maxDepth {
			continue
		}
		visited[curr.id] = true
		for _, next := range out[curr.id] {
			if !visited[next] {
				queue = append(queue, item{next, curr.depth + 1})
			}
		}
	}
	return visited
}

func sortedNodes(g model.Graph) []model.Node {
	nodes := append([]model.Node(nil), g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

func sortedEdges(g model.Graph) []model.Edge {
	edges := append([]model.Edge(nil), g.Edges...)
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func edgeLabel(e model.Edge) string {
	label := model.FormatValue(e.Weight)
	if e.DayOfMonth != nil {
		label += fmt.Sprintf(" (day %d)", *e.DayOfMonth)
	}
	return label
}

// generateDOT creates a Graphviz DOT graph. Fill color follows node type and
// PageRank widens the border.
func generateDOT(g model.Graph, roles map[string]model.Role, values map[string]float64, stats *analysis.GraphStats) string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=8];\n")
	sb.WriteString("\n")

	for _, n := range sortedNodes(g) {
		name := escapeDOTString(truncateRunes(n.Name, 30))
		label := fmt.Sprintf("%s\\n%s %s", name, roles[n.ID], model.FormatValue(values[n.ID]))

		penwidth := 1.0
		if stats != nil {
			if pr, ok := stats.PageRank[n.ID]; ok && pr > 0 {
				penwidth = 1.0 + pr*3.0
			}
		}

		fmt.Fprintf(&sb, "    \"%s\" [label=\"%s\", fillcolor=\"%s\", style=filled, penwidth=%.1f];\n",
			escapeDOTString(n.ID), label, valuation.ColorForType(n.Type).Hex(), penwidth)
	}

	sb.WriteString("\n")

	for _, e := range sortedEdges(g) {
		style := "solid"
		if e.DayOfMonth == nil {
			style = "dashed"
		}
		fmt.Fprintf(&sb, "    \"%s\" -> \"%s\" [label=\"%s\", style=%s];\n",
			escapeDOTString(e.From), escapeDOTString(e.To), escapeDOTString(edgeLabel(e)), style)
	}

	sb.WriteString("}\n")
	return sb.String()
}

// generateMermaid creates a Mermaid flowchart with one class per role.
// Scheduled transfers are solid links, unscheduled ones dashed.
func generateMermaid(g model.Graph, roles map[string]model.Role, values map[string]float64) string {
	var sb strings.Builder

	sb.WriteString("graph LR\n")
	sb.WriteString("    classDef source fill:#50FA7B,stroke:#333,color:#000\n")
	sb.WriteString("    classDef sink fill:#FF5555,stroke:#333,color:#000\n")
	sb.WriteString("    classDef intermediate fill:#8BE9FD,stroke:#333,color:#000\n")
	sb.WriteString("    classDef disconnected fill:#6272A4,stroke:#333,color:#fff\n")
	sb.WriteString("\n")

	nodes := sortedNodes(g)

	// Deterministic, collision-free Mermaid IDs
	safeIDMap := make(map[string]string, len(nodes))
	usedSafe := make(map[string]bool, len(nodes))
	getSafeID := func(orig string) string {
		if safe, ok := safeIDMap[orig]; ok {
			return safe
		}
		base := sanitizeMermaidID(orig)
		safe := base
		if usedSafe[safe] {
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		usedSafe[safe] = true
		safeIDMap[orig] = safe
		return safe
	}

	for _, n := range nodes {
		safeID := getSafeID(n.ID)
		fmt.Fprintf(&sb, "    %s[\"%s<br/>%s\"]\n", safeID,
			sanitizeMermaidText(n.Name), sanitizeMermaidText(model.FormatValue(values[n.ID])))
		if role := roles[n.ID]; role != "" {
			fmt.Fprintf(&sb, "    class %s %s\n", safeID, role)
		}
	}

	sb.WriteString("\n")

	for _, e := range sortedEdges(g) {
		link := "-->"
		if e.DayOfMonth == nil {
			link = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s|%s| %s\n", getSafeID(e.From), link, sanitizeMermaidText(edgeLabel(e)), getSafeID(e.To))
	}

	return sb.String()
}

func generateAdjacency(g model.Graph, roles map[string]model.Role, values map[string]float64, stats *analysis.GraphStats) *AdjacencyGraph {
	adj := &AdjacencyGraph{
		Nodes: make([]AdjacencyNode, 0, len(g.Nodes)),
		Edges: make([]AdjacencyEdge, 0, len(g.Edges)),
	}
	for _, n := range sortedNodes(g) {
		an := AdjacencyNode{
			ID:    n.ID,
			Name:  n.Name,
			Type:  string(n.Type),
			Role:  string(roles[n.ID]),
			Value: values[n.ID],
			Tags:  n.Tags,
		}
		if stats != nil {
			an.PageRank = stats.PageRank[n.ID]
		}
		adj.Nodes = append(adj.Nodes, an)
	}
	for _, e := range sortedEdges(g) {
		adj.Edges = append(adj.Edges, AdjacencyEdge{From: e.From, To: e.To, Weight: e.Weight, Type: e.Type, Day: e.DayOfMonth})
	}
	return adj
}

func escapeDOTString(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", " ",
		"\r", " ",
	)
	return replacer.Replace(s)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// sanitizeMermaidID keeps letters, digits, hyphens and underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

// sanitizeMermaidText replaces characters that break Mermaid labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
	)
	return strings.TrimSpace(replacer.Replace(text))
}
