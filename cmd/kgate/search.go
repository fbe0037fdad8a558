package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchCategory string
	searchLexical  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search materials",
	Long: `Search the knowledge base. By default the curated keyword index is
consulted first and full-text ranking answers anything it misses; --lexical
skips the keyword index entirely.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if searchLexical || searchCategory != "" {
			return printResult(kg.Search(query, searchCategory))
		}
		return printResult(kg.SmartSearch(query))
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict full-text search to one category")
	searchCmd.Flags().BoolVar(&searchLexical, "lexical", false, "skip the keyword index")
}

var keywordCmd = &cobra.Command{
	Use:   "keyword <keyword>",
	Short: "Resolve a keyword against the gold index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.SearchByKeyword(strings.Join(args, " ")))
	},
	Args: cobra.MinimumNArgs(1),
}
