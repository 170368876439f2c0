// Command lpgctl prices LPG forms and checks catalog files offline, using the
// same quoting and gates as the till.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lpgpos/internal/catalog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lpgctl",
		Short:        "Offline tools for the LPG point of sale",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("catalog", "c", "", "TOML catalog file (built-in catalog when empty)")

	rootCmd.AddCommand(newQuoteCmd())
	rootCmd.AddCommand(newCatalogCmd())
	return rootCmd
}

func loadCatalog(cmd *cobra.Command) (catalog.Catalog, error) {
	path, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return catalog.Catalog{}, err
	}
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
