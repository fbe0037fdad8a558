// kgate-import loads materials, edges and provenance mappings from a JSON
// manifest into the knowledge store.
//
// Usage: go run ./cmd/kgate-import --manifest materials.json [--dry-run]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/portal-dtwins/knowledge-gate/internal/config"
	"github.com/portal-dtwins/knowledge-gate/internal/store"
)

// Manifest is the import file layout. Materials insert before edges and
// mappings so references resolve.
type Manifest struct {
	Materials []store.Material          `json:"materials"`
	Edges     []store.Edge              `json:"edges"`
	Mappings  []store.SourceNodeMapping `json:"mappings"`
}

func main() {
	manifestPath := flag.String("manifest", "", "path to the JSON manifest")
	dryRun := flag.Bool("dry-run", false, "parse and report without writing")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "usage: kgate-import --manifest <file> [--dry-run]")
		os.Exit(1)
	}

	godotenv.Load()
	cfg := config.FromEnv()

	data, err := os.ReadFile(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read manifest: %v\n", err)
		os.Exit(1)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		fmt.Fprintf(os.Stderr, "parse manifest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("manifest: %d materials, %d edges, %d mappings\n",
		len(manifest.Materials), len(manifest.Edges), len(manifest.Mappings))
	if *dryRun {
		fmt.Println("dry run, nothing written")
		return
	}

	s := store.Open(cfg.DBPath, cfg.EmbeddingDim)
	defer s.Close()

	var materials, edges, mappings, skipped int
	for i := range manifest.Materials {
		if err := s.AddMaterial(&manifest.Materials[i]); err != nil {
			fmt.Fprintf(os.Stderr, "skip material %s: %v\n", manifest.Materials[i].MaterialID, err)
			skipped++
			continue
		}
		materials++
	}
	for i := range manifest.Edges {
		if err := s.AddEdge(&manifest.Edges[i]); err != nil {
			fmt.Fprintf(os.Stderr, "skip edge %s -> %s: %v\n",
				manifest.Edges[i].SourceMaterialID, manifest.Edges[i].TargetMaterialID, err)
			skipped++
			continue
		}
		edges++
	}
	for i := range manifest.Mappings {
		if err := s.AddMapping(&manifest.Mappings[i]); err != nil {
			fmt.Fprintf(os.Stderr, "skip mapping %s -> %s: %v\n",
				manifest.Mappings[i].SourceID, manifest.Mappings[i].NodeID, err)
			skipped++
			continue
		}
		mappings++
	}

	fmt.Printf("imported %d materials, %d edges, %d mappings (%d skipped)\n",
		materials, edges, mappings, skipped)
}
