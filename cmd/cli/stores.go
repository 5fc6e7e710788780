package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pushkind/crawler-service/internal/stores"
)

// storesCmd represents the stores command
var storesCmd = &cobra.Command{
	Use:     "stores",
	Short:   "List the built-in store profiles",
	Example: `  crawler-service stores`,
	Args:    cobra.NoArgs,
	RunE:    runStores,
}

func init() {
	rootCmd.AddCommand(storesCmd)
}

func runStores(cmd *cobra.Command, args []string) error {
	selectors := stores.DefaultRegistry.List()
	sort.Strings(selectors)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SELECTOR\tBASE URL\tVARIANTS")
	fmt.Fprintln(w, "--------\t--------\t--------")

	for _, selector := range selectors {
		profile, ok := stores.DefaultRegistry.Get(selector)
		if !ok {
			continue
		}

		variants := "no"
		if profile.HasVariants() {
			variants = "yes"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", profile.Selector, profile.BaseURL, variants)
	}

	return w.Flush()
}
