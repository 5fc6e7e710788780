package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match <hub-id>",
	Short: "Run one category matching job synchronously",
	Long: `Assign every crawled product of a hub to its closest category by
embedding similarity.`,
	Example: `  crawler-service match 7`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	hubID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid hub id %q: %w", args[0], err)
	}

	return newProcessor().ProcessCategoryMatch(cmd.Context(), hubID)
}
