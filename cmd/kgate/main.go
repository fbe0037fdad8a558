// Package main provides the kgate CLI, a thin terminal consumer of the
// knowledge gate operations.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/portal-dtwins/knowledge-gate/internal/config"
	"github.com/portal-dtwins/knowledge-gate/internal/gate"
	"github.com/portal-dtwins/knowledge-gate/internal/goldindex"
	"github.com/portal-dtwins/knowledge-gate/internal/store"
)

var (
	// configFile is set by the --config flag
	configFile string

	kg *gate.Gate
	db *store.Store
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kgate",
	Short: "kgate queries the knowledge graph store",
	Long: `kgate is a terminal front end for the knowledge base: materials,
their graph of typed edges, source-to-node provenance chains and the
precomputed gold index. All commands print the operation envelope as JSON.`,
	PersistentPreRunE: initGate,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML, overlays environment)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(keywordCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(layerCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(edgesCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(infoCmd)
}

func initGate(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	gold, err := goldindex.Load(cfg.GoldIndexPath)
	if err != nil {
		return fmt.Errorf("load gold index: %w", err)
	}

	db = store.Open(cfg.DBPath, cfg.EmbeddingDim)
	kg = gate.New(db, gold, cfg.AgentID)
	return nil
}

// printResult writes the envelope as indented JSON and maps non-success
// statuses to the exit code.
func printResult(res gate.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if res.Status == gate.StatusError {
		return fmt.Errorf("operation %s failed: %s", res.Operation, res.Error)
	}
	return nil
}
