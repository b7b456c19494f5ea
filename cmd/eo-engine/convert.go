package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/eo-engine/internal/container"
	"github.com/pdiddy/eo-engine/internal/convert"
	"github.com/pdiddy/eo-engine/internal/inventory"
	"github.com/pdiddy/eo-engine/pkg/types"
)

const defaultImage = "eopf-converter:latest"

var convertCmd = &cobra.Command{
	Use:   "convert [products or SAFE paths...]",
	Short: "Convert SAFE archives to Zarr stores",
	Long: `Convert transforms downloaded SAFE archives into cloud-optimized Zarr
stores by running the converter container (docker or podman). Arguments are
product identifiers from the inventory or paths to SAFE directories; --batch
processes every archive under <data-dir>/safe instead.

Existing Zarr stores are skipped. Conversion results are recorded in the
inventory.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("image", "", "converter container image (default "+defaultImage+")")
	convertCmd.Flags().Bool("batch", false, "convert all SAFE archives in the data directory")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetBool("batch")
	if len(args) == 0 && !batch {
		return fmt.Errorf("provide product identifiers or SAFE paths, or use --batch")
	}

	image := stringSetting(cmd, "image", "conversion.image")
	if image == "" {
		image = defaultImage
	}
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")

	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Using container runtime: %s\n", rt.Name())

	conv, err := convert.NewEOPFConverter(rt, image, os.Stdout)
	if err != nil {
		return err
	}

	store, err := inventory.NewStore(types.InventoryConfig{DataDir: dataDir})
	if err != nil {
		return err
	}
	defer store.Close()

	var result convert.BatchResult
	var products []types.Product
	if batch {
		paths, err := scanSafeDirs(dataDir)
		if err != nil {
			return err
		}
		result = convert.ConvertPaths(conv, paths, dataDir, os.Stdout)
		for _, p := range paths {
			products = append(products, types.Product{
				ID:         strings.TrimSuffix(filepath.Base(p), ".SAFE"),
				SafePath:   p,
				CloudCover: -1,
			})
		}
	} else {
		products = resolveProducts(cmd.Context(), store, args, dataDir)
		result = convert.ConvertBatch(conv, products, dataDir, os.Stdout)
	}

	if err := recordResults(cmd.Context(), store, products, dataDir); err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d product(s) failed conversion", result.Failed)
	}
	return nil
}

// scanSafeDirs lists the SAFE archive directories under <data-dir>/safe.
func scanSafeDirs(dataDir string) ([]string, error) {
	safeRoot := filepath.Join(dataDir, safeSubdir)
	entries, err := os.ReadDir(safeRoot)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", safeRoot, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), ".SAFE") {
			paths = append(paths, filepath.Join(safeRoot, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no SAFE archives found under %s", safeRoot)
	}
	return paths, nil
}

// resolveProducts maps arguments to product records. A path to an existing
// directory is used as-is; anything else is looked up in the inventory and
// falls back to a bare identifier.
func resolveProducts(ctx context.Context, store *inventory.Store, args []string, dataDir string) []types.Product {
	products := make([]types.Product, 0, len(args))
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			products = append(products, types.Product{
				ID:         strings.TrimSuffix(filepath.Base(arg), ".SAFE"),
				SafePath:   arg,
				CloudCover: -1,
			})
			continue
		}
		if p, err := store.Get(ctx, arg); err == nil {
			products = append(products, p)
			continue
		}
		products = append(products, types.Product{ID: arg, CloudCover: -1})
	}
	return products
}

// recordResults updates the inventory after a conversion run. A product whose
// Zarr store exists on disk is recorded as converted, whether this run built
// it or an earlier one did.
func recordResults(ctx context.Context, store *inventory.Store, products []types.Product, dataDir string) error {
	for _, p := range products {
		if err := store.Upsert(ctx, p); err != nil {
			return err
		}

		zarrPath := convert.ZarrPath(dataDir, p.ID)
		status, path := types.ConversionFailed, ""
		if _, err := os.Stat(zarrPath); err == nil {
			status, path = types.ConversionDone, zarrPath
		}
		if err := store.SetConversion(ctx, p.ID, status, path); err != nil {
			return err
		}
	}
	return nil
}
