package main

import (
	"github.com/spf13/cobra"
)

var crawlURLs []string

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl <selector>",
	Short: "Run one crawl job synchronously",
	Long: `Run a crawl of the named store and wait for it to finish. Without
--url the crawler's whole catalog is replaced; with one or more --url flags
only those product pages are refreshed.`,
	Example: `  crawler-service crawl rusteaco
  crawler-service crawl tea101 --url https://101tea.ru/catalog/tea/assam/`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringArrayVar(&crawlURLs, "url", nil, "Product page URL to patch (repeatable)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	return newProcessor().ProcessCrawl(cmd.Context(), args[0], crawlURLs)
}
