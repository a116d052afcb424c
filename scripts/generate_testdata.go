//go:build ignore

// generate_testdata.go creates mind map datasets for benchmarking and manual
// testing of the viewer.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/maps/small.json   (3 maps, ~100 nodes each)
//	testdata/maps/medium.json  (3 maps, ~1000 nodes each)
//	testdata/maps/large.yaml   (1 map, 5000 nodes)
//	testdata/maps/deep.json    (chain of 200 plus a 4x5 complete tree)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/testutil"
)

type datasetSpec struct {
	file  string
	build func(g *testutil.Generator) []hierarchy.Record
}

var datasets = []datasetSpec{
	{"small.json", func(g *testutil.Generator) []hierarchy.Record {
		return []hierarchy.Record{g.Random(100), g.Star(40), g.Tree(3, 4)}
	}},
	{"medium.json", func(g *testutil.Generator) []hierarchy.Record {
		return []hierarchy.Record{g.Random(1000), g.Star(300), g.Tree(5, 4)}
	}},
	{"large.yaml", func(g *testutil.Generator) []hierarchy.Record {
		return []hierarchy.Record{g.Random(5000)}
	}},
	{"deep.json", func(g *testutil.Generator) []hierarchy.Record {
		return []hierarchy.Record{g.Chain(200), g.Tree(4, 5)}
	}},
}

func main() {
	outputDir := "testdata/maps"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		gen := testutil.New(testutil.GeneratorConfig{
			Seed:         int64(i + 1), // Reproducible per dataset
			NamePrefix:   "topic-",
			IncludeAttrs: true,
		})
		records := ds.build(gen)
		maps := gen.Maps(records...)

		nodes := 0
		for _, r := range records {
			nodes += testutil.CountNodes(r)
		}
		fmt.Printf("Generating %s (%d maps, %d nodes)...\n", ds.file, len(maps), nodes)

		var data []byte
		if filepath.Ext(ds.file) == ".yaml" {
			var err error
			if data, err = yaml.Marshal(maps); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.file, err)
				os.Exit(1)
			}
		} else {
			data = []byte(testutil.ToJSON(maps))
		}

		outputPath := filepath.Join(outputDir, ds.file)
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d bytes)\n", outputPath, len(data))
	}

	fmt.Println("\nDone! Datasets created in", outputDir)
}
