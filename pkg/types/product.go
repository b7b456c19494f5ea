// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the eo-engine pipeline.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

import "time"

// ConversionStatus indicates the state of SAFE-to-Zarr conversion for a product.
type ConversionStatus string

const (
	ConversionNone   ConversionStatus = "none"
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// Product holds metadata and file paths for a satellite product discovered in
// the catalog or downloaded from the object store.
type Product struct {
	// ID is the product identifier without the .SAFE suffix
	// (e.g. "S2B_MSIL2A_20230810T095549_N0509_R122_T33TUM_20230810T124513").
	ID string `json:"id" yaml:"id"`

	// Collection is the STAC collection the product belongs to
	// (e.g. "sentinel-2-l2a").
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`

	// Datetime is the product sensing time.
	Datetime time.Time `json:"datetime" yaml:"datetime"`

	// CloudCover is the eo:cloud_cover percentage, or a negative value when
	// the catalog did not report one.
	CloudCover float64 `json:"cloud_cover" yaml:"cloud_cover"`

	// BBox is the product footprint as [west, south, east, north], when known.
	BBox []float64 `json:"bbox,omitempty" yaml:"bbox,omitempty,flow"`

	// SourceURI is the storage URI of the product archive
	// (e.g. "s3://eodata/Sentinel-2/MSI/L2A/.../S2B_...SAFE").
	SourceURI string `json:"source_uri" yaml:"source_uri"`

	// SafePath is the local filesystem path of the downloaded SAFE directory.
	SafePath string `json:"safe_path,omitempty" yaml:"safe_path,omitempty"`

	// ZarrPath is the local filesystem path of the converted Zarr store.
	ZarrPath string `json:"zarr_path,omitempty" yaml:"zarr_path,omitempty"`

	// ConversionStatus tracks whether the SAFE archive has been converted.
	ConversionStatus ConversionStatus `json:"conversion_status" yaml:"conversion_status"`
}
