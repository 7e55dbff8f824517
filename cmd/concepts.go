package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List the concepts in the seed graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("concepts")
		graph, err := loadGraph(path)
		if err != nil {
			return err
		}
		for _, ref := range graph.ListAll() {
			fmt.Printf("class %d  %-12s %s\n", ref.ClassGrade, ref.Subject, ref.Title)
		}
		return nil
	},
}
