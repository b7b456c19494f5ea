// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert transforms SAFE product archives into Zarr stores by
// driving an external converter. See docs/ARCHITECTURE § Conversion.
package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/eo-engine/pkg/types"
)

const (
	// safeDir is the subdirectory under the data base for SAFE archives.
	safeDir = "safe"
	// zarrDir is the subdirectory under the data base for Zarr stores.
	zarrDir = "zarr"
)

// Converter transforms a SAFE archive directory into a Zarr store. The
// conversion algorithm itself belongs to the external tool; implementations
// only arrange its invocation.
type Converter interface {
	// Convert reads the SAFE archive at safePath and writes a Zarr store
	// to zarrPath.
	Convert(safePath, zarrPath string) error
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of products processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any products failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ZarrPath returns the Zarr store location for a product under dataDir.
func ZarrPath(dataDir, productID string) string {
	return filepath.Join(dataDir, zarrDir, productID+".zarr")
}

// SafePath returns the SAFE archive location for a product under dataDir.
func SafePath(dataDir, productID string) string {
	return filepath.Join(dataDir, safeDir, productID+".SAFE")
}

// ConvertProduct converts a single SAFE archive to a Zarr store. If the
// store already exists, it skips conversion and returns ConversionNone.
func ConvertProduct(c Converter, product types.Product, dataDir string, w io.Writer) types.ConversionStatus {
	safePath := product.SafePath
	if safePath == "" {
		safePath = SafePath(dataDir, product.ID)
	}
	zarrPath := ZarrPath(dataDir, product.ID)

	if _, err := os.Stat(zarrPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", product.ID)
		return types.ConversionNone
	}

	if _, err := os.Stat(safePath); err != nil {
		fmt.Fprintf(w, "failed:  %s (SAFE archive not found at %s)\n", product.ID, safePath)
		return types.ConversionFailed
	}

	if err := c.Convert(safePath, zarrPath); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", product.ID, err)
		// Do not leave a half-written store behind under the final name.
		os.RemoveAll(zarrPath)
		return types.ConversionFailed
	}

	fmt.Fprintf(w, "converted: %s\n", product.ID)
	return types.ConversionDone
}

// ConvertBatch processes a list of products through the converter, printing
// per-product status to w and returning a summary. It continues after
// individual failures.
func ConvertBatch(c Converter, products []types.Product, dataDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range products {
		switch ConvertProduct(c, p, dataDir, w) {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionNone:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// ConvertPaths builds Product records from SAFE directory paths and delegates
// to ConvertBatch. Each path becomes a minimal Product with ID derived from
// the directory name.
func ConvertPaths(c Converter, safePaths []string, dataDir string, w io.Writer) BatchResult {
	products := make([]types.Product, len(safePaths))
	for i, p := range safePaths {
		products[i] = types.Product{
			ID:       strings.TrimSuffix(filepath.Base(p), ".SAFE"),
			SafePath: p,
		}
	}
	return ConvertBatch(c, products, dataDir, w)
}
