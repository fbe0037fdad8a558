package main

import (
	"github.com/spf13/cobra"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the knowledge base overview",
	Long:  `Compose store statistics, graph counters and the gold-index annotations into one report.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.GetOverview())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-category material statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.GetStatistics())
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show gate identity and capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.Info())
	},
}
