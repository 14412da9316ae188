//go:build ignore

// generate_testdata.go creates the benchmark datasets.
// Usage: go run scripts/generate_testdata.go [outdir]
//
// Creates, under outdir (default testdata/benchmark):
//
//	small.nodes.json  / small.edges.json   (100 accounts)
//	medium.nodes.json / medium.edges.json  (1000 accounts)
//	large.nodes.json  / large.edges.json   (5000 accounts)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
}

var datasets = []datasetSpec{
	{"small", 100},
	{"medium", 1000},
	{"large", 5000},
}

func main() {
	outputDir := filepath.Join("testdata", "benchmark")
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d accounts)...\n", ds.name, ds.size)

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(ds.size) // reproducible per size
		cfg.IDPrefix = "acct-"
		cfg.ScheduleRatio = 0.8

		gen := testutil.New(cfg)
		g := gen.ToGraph(gen.Random(ds.size, density(ds.size), false))
		addNames(g)

		nodes, edges, err := testutil.MarshalDocuments(g)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}
		for suffix, data := range map[string][]byte{"nodes": nodes, "edges": edges} {
			path := filepath.Join(outputDir, ds.name+"."+suffix+".json")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
				os.Exit(1)
			}
		}
		fmt.Printf("  %d nodes, %d edges\n", len(g.Nodes), len(g.Edges))
	}

	fmt.Println("\nDone! Datasets created in", outputDir)
}

// density keeps the average out-degree around five.
func density(size int) float64 {
	return min(1, 5/float64(size))
}

func addNames(g model.Graph) {
	kinds := []string{"Salary", "Checking", "Savings", "Rent", "Groceries", "Utilities", "Brokerage", "Insurance"}
	for i := range g.Nodes {
		g.Nodes[i].Name = fmt.Sprintf("%s %d", kinds[i%len(kinds)], i)
	}
}
