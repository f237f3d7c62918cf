// Package cmd wires the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern answers questions about indexed course materials",
	Long: `Lectern ingests course documents into a vector index and answers
questions about them through a tool-using model. Run "lectern serve" to
start the HTTP API, "lectern ingest" to index documents, or "lectern ask"
for a one-shot question.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
