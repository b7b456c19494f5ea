// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "eo-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CatalogConfig holds settings for the STAC catalog search stage.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIRoot is the STAC API root URL
	// (e.g. "https://catalogue.dataspace.copernicus.eu/stac").
	APIRoot string `json:"api_root" yaml:"api_root"`

	// Token is an optional bearer token for catalogs that require one.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// MaxResults is the maximum number of items to return (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxRetries is the number of retry attempts on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StorageConfig holds connection settings for the S3-compatible object store
// that serves the product archives.
type StorageConfig struct {
	// Endpoint is the object store endpoint URL
	// (e.g. "https://eodata.dataspace.copernicus.eu").
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// AccessKey and SecretKey authenticate against the store. When empty the
	// SDK falls back to its default credential chain (env vars, shared config).
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`

	// Region is the region name sent in signed requests. Many S3-compatible
	// stores accept any non-empty value; "default" works for CDSE.
	Region string `json:"region" yaml:"region"`

	// Bucket is the bucket holding the product archives (e.g. "eodata").
	Bucket string `json:"bucket" yaml:"bucket"`

	// UsePathStyle forces path-style addressing, required by most
	// non-AWS S3-compatible endpoints.
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// FetchConfig holds settings for the fetch (download) stage.
type FetchConfig struct {
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// DataDir is the base directory for local data
	// (contains safe/, zarr/, metadata/, index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ConversionConfig holds settings for the SAFE-to-Zarr conversion stage.
type ConversionConfig struct {
	// Image is the converter container image.
	Image string `json:"image" yaml:"image"`

	// DataDir is the base directory for local data
	// (contains safe/, zarr/, metadata/, index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// InventoryConfig holds settings for the product inventory.
type InventoryConfig struct {
	// DataDir is the base directory for local data; the inventory database
	// lives at DataDir/index/products.db.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of listing results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Inventory  InventoryConfig  `json:"inventory" yaml:"inventory"`
}
