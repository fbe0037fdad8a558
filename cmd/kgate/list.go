package main

import (
	"github.com/spf13/cobra"
)

var (
	listCategory string
	listStatus   string
	listLayer    string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List materials with optional filters",
	Long:  `List materials, newest first. Filters combine conjunctively; layer accepts the L1/L2/L3 shorthand.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.ListMaterials(listCategory, listStatus, listLayer, listLimit))
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "filter by category (e.g. ANALYTICAL_NODES, RAW_SOURCES)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (e.g. production, draft)")
	listCmd.Flags().StringVar(&listLayer, "layer", "", "filter by layer (L1, L2, L3 or full label)")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum results")
}

var layerCmd = &cobra.Command{
	Use:   "layer <layer>",
	Short: "List the gold-index nodes of one layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.LayerNodes(args[0]))
	},
}
