package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/eo-engine/internal/inventory"
	"github.com/pdiddy/eo-engine/pkg/types"
)

var productsCmd = &cobra.Command{
	Use:   "products [id]",
	Short: "List or show products in the local inventory",
	Long: `Products queries the local inventory of fetched products. Without
arguments it lists recent products with their conversion status; with a
product identifier it shows the full record.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProducts,
}

func init() {
	productsCmd.Flags().Int("max-results", 20, "maximum number of products to list")
	productsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	jsonOut, _ := cmd.Flags().GetBool("json")

	store, err := inventory.NewStore(types.InventoryConfig{DataDir: dataDir, MaxResults: maxResults})
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		p, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(p)
		}
		printProduct(p)
		return nil
	}

	products, err := store.List(cmd.Context(), maxResults)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(products)
	}
	printProductTable(products)
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProduct(p types.Product) {
	fmt.Printf("ID:         %s\n", p.ID)
	fmt.Printf("Collection: %s\n", p.Collection)
	if !p.Datetime.IsZero() {
		fmt.Printf("Sensed:     %s\n", p.Datetime.Format("2006-01-02 15:04:05 MST"))
	}
	if p.CloudCover >= 0 {
		fmt.Printf("Cloud:      %.1f%%\n", p.CloudCover)
	}
	fmt.Printf("Source:     %s\n", p.SourceURI)
	fmt.Printf("SAFE:       %s\n", p.SafePath)
	fmt.Printf("Zarr:       %s\n", p.ZarrPath)
	fmt.Printf("Status:     %s\n", p.ConversionStatus)
}

func printProductTable(products []types.Product) {
	if len(products) == 0 {
		fmt.Println("No products in inventory.")
		return
	}

	fmt.Printf("%-44s  %-16s  %-6s  %s\n", "Product", "Sensed", "Cloud", "Status")
	fmt.Println(strings.Repeat("-", 80))
	for _, p := range products {
		id := p.ID
		if len(id) > 44 {
			id = id[:41] + "..."
		}
		sensed := ""
		if !p.Datetime.IsZero() {
			sensed = p.Datetime.Format("2006-01-02 15:04")
		}
		cloud := "-"
		if p.CloudCover >= 0 {
			cloud = fmt.Sprintf("%.1f%%", p.CloudCover)
		}
		fmt.Printf("%-44s  %-16s  %-6s  %s\n", id, sensed, cloud, p.ConversionStatus)
	}
	fmt.Printf("\n%d products\n", len(products))
}
