package main

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <material-id>",
	Short: "Fetch one material by id",
	Long:  `Fetch a material by its id (NODE-*, SRC-*, GRAPH-*, SCHEMA-*, GOLD-*), including graph counters for analytical nodes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.GetMaterial(args[0]))
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <material-id>",
	Short: "Resolve a material id to its file path via the gold index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.QuickLookup(args[0]))
	},
}
