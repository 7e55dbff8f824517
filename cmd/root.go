package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "socratic",
	Short: "Socratic tutoring session engine",
	Long:  "Socratic runs guided question-and-answer dialogues over a concept graph, served over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("concepts", "", "Path to a concepts JSON file (overrides SOCRATIC_CONCEPTS; default embedded seed)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(conceptsCmd)
	rootCmd.AddCommand(versionCmd)
}
