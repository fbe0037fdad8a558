package main

import (
	"github.com/spf13/cobra"
)

var edgesDirection string

var traceCmd = &cobra.Command{
	Use:   "trace <source-id>",
	Short: "Show the derivation chain of a raw source",
	Long:  `Show every analytical node derived from one raw source, with live backlink counters.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.GetSourceChain(args[0]))
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources <node-id>",
	Short: "Show the evidence behind an analytical node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.GetNodeSources(args[0]))
	},
}

var edgesCmd = &cobra.Command{
	Use:   "edges <node-id>",
	Short: "Show the edges around a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(kg.GetNodeEdges(args[0], edgesDirection))
	},
}

func init() {
	edgesCmd.Flags().StringVar(&edgesDirection, "direction", "both", "incoming, outgoing or both")
}
