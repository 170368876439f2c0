package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lpgpos/internal/catalog"
	"lpgpos/internal/domain"
	"lpgpos/internal/pos"
	"lpgpos/internal/pricing"
)

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a sale-mode form and report whether it would commit",
		Long: `Price a bulk, exchange, refill or custom-weight form against the catalog
tariff. The quote is printed as JSON. A form the till would refuse exits
non-zero and carries the rejection code.`,
	}

	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Quote a bulk LPG sale",
		Args:  cobra.NoArgs,
		RunE:  runQuoteBulk,
	}
	bulkCmd.Flags().String("product", catalog.BulkLPGProductID, "Bulk product id")
	bulkCmd.Flags().StringP("container", "t", string(domain.ContainerCustomerTank), "Container type (customer_tank, truck, cylinder_bulk)")
	bulkCmd.Flags().StringP("mode", "m", string(pricing.WeighModeDirect), "Weigh mode (weighing or direct)")
	bulkCmd.Flags().String("tare", "", "Tare weight in kg")
	bulkCmd.Flags().String("gross", "", "Gross weight in kg")
	bulkCmd.Flags().StringP("net", "n", "", "Net weight in kg for direct mode")

	exchangeCmd := &cobra.Command{
		Use:   "exchange",
		Short: "Quote a cylinder exchange",
		Args:  cobra.NoArgs,
		RunE:  runQuoteExchange,
	}
	exchangeCmd.Flags().String("returned", "", "Returned cylinder size")
	exchangeCmd.Flags().String("condition", string(domain.ConditionEmpty), "Returned condition (empty, partial, damaged)")
	exchangeCmd.Flags().String("new", "", "New cylinder size")
	exchangeCmd.Flags().IntP("quantity", "q", 1, "Number of cylinders")

	refillCmd := &cobra.Command{
		Use:   "refill",
		Short: "Quote a cylinder refill",
		Args:  cobra.NoArgs,
		RunE:  runQuoteRefill,
	}
	refillCmd.Flags().String("cylinder", "", "Cylinder size")
	refillCmd.Flags().String("condition", string(domain.CylinderGood), "Cylinder condition (good, fair, needs_inspection)")
	refillCmd.Flags().String("empty", "", "Empty weight in kg")
	refillCmd.Flags().String("filled", "", "Filled weight in kg")
	refillCmd.Flags().Bool("checks", true, "Safety, valve and leak checks passed")

	customCmd := &cobra.Command{
		Use:   "custom-weight",
		Short: "Quote a custom weight sale",
		Args:  cobra.NoArgs,
		RunE:  runQuoteCustomWeight,
	}
	customCmd.Flags().StringP("weight", "w", "", "Weight in kg")
	customCmd.Flags().String("container", "", "Container option")

	quoteCmd.AddCommand(bulkCmd, exchangeCmd, refillCmd, customCmd)
	return quoteCmd
}

func runQuoteBulk(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	productID, _ := cmd.Flags().GetString("product")
	product, ok := cat.Product(productID)
	if !ok {
		return fmt.Errorf("product %q not in catalog", productID)
	}

	container, _ := cmd.Flags().GetString("container")
	mode, _ := cmd.Flags().GetString("mode")
	tare, _ := cmd.Flags().GetString("tare")
	gross, _ := cmd.Flags().GetString("gross")
	net, _ := cmd.Flags().GetString("net")

	quote := pos.PreviewBulkSale(product, cat.Tariff, pos.BulkSaleForm{
		ProductID:     productID,
		ContainerType: domain.ContainerType(container),
		Mode:          pricing.WeighMode(mode),
		TareWeight:    tare,
		GrossWeight:   gross,
		NetWeight:     net,
	})
	return reportQuote(cmd, quote)
}

func runQuoteExchange(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	returned, _ := cmd.Flags().GetString("returned")
	condition, _ := cmd.Flags().GetString("condition")
	newSize, _ := cmd.Flags().GetString("new")
	quantity, _ := cmd.Flags().GetInt("quantity")

	quote := pos.PreviewExchange(cat.Tariff, pos.ExchangeForm{
		ReturnedSize:      returned,
		ReturnedCondition: domain.ExchangeCondition(condition),
		NewSize:           newSize,
		Quantity:          quantity,
	})
	return reportQuote(cmd, quote)
}

func runQuoteRefill(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	cylinder, _ := cmd.Flags().GetString("cylinder")
	condition, _ := cmd.Flags().GetString("condition")
	empty, _ := cmd.Flags().GetString("empty")
	filled, _ := cmd.Flags().GetString("filled")
	checks, _ := cmd.Flags().GetBool("checks")

	quote := pos.PreviewRefill(cat.Tariff, pos.RefillForm{
		CylinderType:      cylinder,
		CylinderCondition: domain.CylinderCondition(condition),
		EmptyWeight:       empty,
		FilledWeight:      filled,
		SafetyCheck:       checks,
		ValveCheck:        checks,
		LeakTest:          checks,
	})
	return reportQuote(cmd, quote)
}

func runQuoteCustomWeight(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	weight, _ := cmd.Flags().GetString("weight")
	container, _ := cmd.Flags().GetString("container")

	quote := pos.PreviewCustomWeight(cat.Tariff, pos.CustomWeightForm{Weight: weight, ContainerOption: container})
	return reportQuote(cmd, quote)
}

// reportQuote prints the quote and turns a refused form into a command error
// so scripts can branch on the exit status.
func reportQuote(cmd *cobra.Command, quote pos.Quote) error {
	if err := printJSON(cmd.OutOrStdout(), quote); err != nil {
		return err
	}
	if quote.Rejection != nil {
		return quote.Rejection
	}
	return nil
}
