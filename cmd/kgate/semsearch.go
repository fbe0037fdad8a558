package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portal-dtwins/knowledge-gate/internal/config"
	"github.com/portal-dtwins/knowledge-gate/internal/embedding"
)

var (
	semCategory string
	semLimit    int
)

var semsearchCmd = &cobra.Command{
	Use:   "semsearch <query...>",
	Short: "Semantic search over stored embeddings",
	Long: `Embed the query text via Ollama and rank materials by vector
similarity. Requires a running Ollama server whose embedding model matches
the store's embedding dimension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		emb := embedding.NewClient(cfg.OllamaURL, cfg.EmbedModel)
		vector, err := emb.Embed(strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		return printResult(kg.SemanticSearch(vector, semCategory, semLimit))
	},
}

func init() {
	semsearchCmd.Flags().StringVar(&semCategory, "category", "", "restrict to one category")
	semsearchCmd.Flags().IntVar(&semLimit, "limit", 10, "maximum results")
	rootCmd.AddCommand(semsearchCmd)
}
