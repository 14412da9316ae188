package loader_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/graph3d/pkg/loader"
)

// Run with: go test -fuzz=FuzzParseNodes -fuzztime=1m ./pkg/loader/...

func quiet() loader.Options {
	return loader.Options{WarningHandler: func(string) {}}
}

// FuzzParseNodes should never panic, and every accepted node must carry an
// id, a name and a type.
func FuzzParseNodes(f *testing.F) {
	seeds := []string{
		`[{"id":"A","name":"Payroll","type":"primary"}]`,
		`[{"id":1,"type":"secondary","currentValue":"12.5"}]`,
		`[{"id":"A"},{"id":"A"}]`,
		`[{"name":"no id"}]`,
		`[{"id":"B","currentValue":"abc"}]`,
		`[{"id":"C","tags":null}]`,
		`[null, 3, "x"]`,
		`{"id":"A"}`,
		"\ufeff[]",
		`[`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, doc string) {
		nodes, err := loader.ParseNodes(strings.NewReader(doc), quiet())
		if err != nil {
			return
		}
		seen := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			if n.ID == "" || n.Name == "" {
				t.Fatalf("accepted node without id or name: %+v", n)
			}
			if seen[n.ID] {
				t.Fatalf("duplicate id %q accepted", n.ID)
			}
			seen[n.ID] = true
			if n.Type == "" {
				t.Fatalf("node %q has no type", n.ID)
			}
			if n.Tags == nil {
				t.Fatalf("node %q has nil tags", n.ID)
			}
		}
	})
}

// FuzzParseEdges checks that defaults hold for any edge the parser keeps.
func FuzzParseEdges(f *testing.F) {
	seeds := []string{
		`[{"source":"A","target":"B","weight":100,"dayOfMonth":15}]`,
		`[{"source":"A","target":"B","weight":"100","dayOfMonth":"15"}]`,
		`[{"source":"A","target":"B","weight":-5}]`,
		`[{"source":"A","target":"B","dayOfMonth":32}]`,
		`[{"source":"A","target":"B","dayOfMonth":1.5}]`,
		`[{"source":"A","target":"A"}]`,
		`[{"source":"A"}]`,
		`[{"source":1,"target":2,"type":"  "}]`,
		`[{"source":"A","target":"B","weight":1e400}]`,
		`[]`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, doc string) {
		edges, err := loader.ParseEdges(strings.NewReader(doc), quiet())
		if err != nil {
			return
		}
		for _, e := range edges {
			if e.From == "" || e.To == "" {
				t.Fatalf("accepted edge without endpoints: %+v", e)
			}
			if e.Weight < 0 {
				t.Fatalf("negative weight kept: %+v", e)
			}
			if e.Type == "" {
				t.Fatalf("edge type not defaulted: %+v", e)
			}
			if d := e.DayOfMonth; d != nil && (*d < 1 || *d > 31) {
				t.Fatalf("day out of range kept: %d", *d)
			}
		}
	})
}
