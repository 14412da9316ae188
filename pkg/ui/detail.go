package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/simulation"

	"github.com/charmbracelet/glamour"
)

type flow struct {
	peer   string
	weight float64
	typ    string
	day    string
}

// nodeMarkdown describes one node and its incoming and outgoing transfers.
func nodeMarkdown(n model.PositionedNode, g model.Graph, st simulation.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Name)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| **ID** | `%s` |\n", n.ID)
	fmt.Fprintf(&b, "| **Type** | %s |\n", n.Type.Normalize())
	fmt.Fprintf(&b, "| **Role** | %s |\n", n.Role)
	fmt.Fprintf(&b, "| **Value** | %s |\n", model.FormatValue(n.Value))
	if n.CurrentValue != nil {
		fmt.Fprintf(&b, "| **Balance** | %s |\n", model.FormatValue(*n.CurrentValue))
	}
	fmt.Fprintf(&b, "| **Degree** | %d |\n", n.Degree)
	fmt.Fprintf(&b, "| **As of** | %s |\n", st.State.FormattedDate())
	if len(n.Tags) > 0 {
		fmt.Fprintf(&b, "\n**Tags:** %s\n", strings.Join(n.Tags, ", "))
	}

	names := make(map[string]string, len(g.Nodes))
	for _, gn := range g.Nodes {
		names[gn.ID] = gn.Name
	}
	display := func(id string) string {
		if name, ok := names[id]; ok && name != "" {
			return name
		}
		return id
	}

	var in, out []flow
	for _, e := range g.Edges {
		day := "any day"
		if e.DayOfMonth != nil {
			day = fmt.Sprintf("day %d", *e.DayOfMonth)
		}
		if e.From == n.ID {
			out = append(out, flow{peer: display(e.To), weight: e.Weight, typ: e.Type, day: day})
		}
		if e.To == n.ID {
			in = append(in, flow{peer: display(e.From), weight: e.Weight, typ: e.Type, day: day})
		}
	}
	writeFlows(&b, "Outgoing", out)
	writeFlows(&b, "Incoming", in)
	return b.String()
}

func writeFlows(b *strings.Builder, title string, flows []flow) {
	if len(flows) == 0 {
		return
	}
	sort.SliceStable(flows, func(i, j int) bool { return flows[i].weight > flows[j].weight })
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, f := range flows {
		typ := ""
		if f.typ != "" {
			typ = " · " + f.typ
		}
		fmt.Fprintf(b, "- **%s** %s (%s%s)\n", f.peer, model.FormatValue(f.weight), f.day, typ)
	}
}

// newMarkdownRenderer mirrors the style choice in the config: "dark" and
// "light" are fixed, anything else follows the terminal.
func newMarkdownRenderer(style string, width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 20
	}
	switch style {
	case "dark", "light":
		return glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(width))
	default:
		return glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	}
}

func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
