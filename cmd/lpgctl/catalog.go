package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"lpgpos/internal/catalog"
)

type catalogSummary struct {
	File      string   `json:"file"`
	Products  int      `json:"products"`
	Cylinders []string `json:"cylinders"`
}

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect catalog files",
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a TOML catalog for overlapping tiers and bad products",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogValidate,
	}

	catalogCmd.AddCommand(validateCmd)
	return catalogCmd
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(args[0])
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	summary := catalogSummary{File: args[0], Products: len(cat.Products)}
	for size := range cat.Tariff.Cylinders {
		summary.Cylinders = append(summary.Cylinders, size)
	}
	sort.Strings(summary.Cylinders)
	return printJSON(cmd.OutOrStdout(), summary)
}
