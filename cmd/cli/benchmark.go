package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// benchmarkCmd represents the benchmark command
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <id>",
	Short: "Run one benchmark matching job synchronously",
	Long: `Match a benchmark's reference products against the crawled catalog
of its hub and store the resulting candidate offers.`,
	Example: `  crawler-service benchmark 42`,
	Args:    cobra.ExactArgs(1),
	RunE:    runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid benchmark id %q: %w", args[0], err)
	}

	return newProcessor().ProcessBenchmark(cmd.Context(), id)
}
