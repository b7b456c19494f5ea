package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/eo-engine/internal/convert"
	"github.com/pdiddy/eo-engine/internal/zarr"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <product or Zarr path>",
	Short: "Inspect a converted Zarr store",
	Long: `Inspect prints the group and array tree of a converted Zarr store:
shapes, chunk layouts, data types, and compressors. The argument is a product
identifier resolved under <data-dir>/zarr, or a path to a store directory.

With --quicklook, a 2D array is rendered as a grayscale PNG instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("quicklook", "", "render this array as a grayscale PNG (e.g. measurements/b02)")
	inspectCmd.Flags().String("out", "", "quicklook output path (default <store>.png)")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")

	storeDir := args[0]
	if info, err := os.Stat(storeDir); err != nil || !info.IsDir() {
		storeDir = convert.ZarrPath(dataDir, args[0])
	}

	arrayPath, _ := cmd.Flags().GetString("quicklook")
	if arrayPath != "" {
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = filepath.Base(storeDir) + ".png"
		}
		if err := zarr.Quicklook(storeDir, arrayPath, outPath); err != nil {
			return err
		}
		fmt.Printf("quicklook: %s -> %s\n", arrayPath, outPath)
		return nil
	}

	store, err := zarr.Read(storeDir)
	if err != nil {
		return err
	}
	zarr.FormatTree(store, os.Stdout)
	return nil
}
