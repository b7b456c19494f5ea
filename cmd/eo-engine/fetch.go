package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/eo-engine/internal/inventory"
	"github.com/pdiddy/eo-engine/internal/objstore"
	"github.com/pdiddy/eo-engine/pkg/types"
)

const (
	safeSubdir     = "safe"
	metadataSubdir = "metadata"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [storage URIs or prefixes...]",
	Short: "Download SAFE product archives from the object store",
	Long: `Fetch mirrors SAFE product archives from the S3-compatible object store
into the local data directory. Arguments are storage URIs (s3://bucket/prefix)
as reported by search, or bare prefixes resolved against the configured bucket.

Each archive lands under <data-dir>/safe/<product>.SAFE with its internal
layout preserved. A metadata record is written next to it and the product is
registered in the local inventory.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("endpoint", "", "object store endpoint URL (overrides config)")
	fetchCmd.Flags().String("access-key", "", "access key (default: s3-access-key secret)")
	fetchCmd.Flags().String("secret-key", "", "secret key (default: s3-secret-key secret)")
	fetchCmd.Flags().String("region", "", "region name for signed requests")
	fetchCmd.Flags().String("bucket", "", "default bucket for bare prefixes")
	fetchCmd.Flags().Bool("path-style", true, "use path-style addressing")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more storage URIs or prefixes")
	}

	pathStyle, _ := cmd.Flags().GetBool("path-style")
	storage := types.StorageConfig{
		Endpoint:     stringSetting(cmd, "endpoint", "storage.endpoint"),
		AccessKey:    secretDefault("s3-access-key", mustString(cmd, "access-key")),
		SecretKey:    secretDefault("s3-secret-key", mustString(cmd, "secret-key")),
		Region:       stringSetting(cmd, "region", "storage.region"),
		Bucket:       stringSetting(cmd, "bucket", "storage.bucket"),
		UsePathStyle: pathStyle,
	}
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")

	connector, err := objstore.NewConnector(storage)
	if err != nil {
		return err
	}
	client, err := connector.Client(cmd.Context())
	if err != nil {
		return err
	}

	store, err := inventory.NewStore(types.InventoryConfig{DataDir: dataDir})
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, arg := range args {
		bucket, prefix, err := resolveTarget(connector.Bucket(), arg)
		if err == nil {
			err = fetchProduct(cmd.Context(), client, store, bucket, prefix, dataDir)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed: %s (%v)\n", arg, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d product(s) failed to download", failed)
	}
	return nil
}

// resolveTarget maps an argument to a bucket and object prefix. Storage URIs
// carry their own bucket; bare prefixes use the configured default.
func resolveTarget(defaultBucket, arg string) (string, string, error) {
	if strings.HasPrefix(arg, "s3://") {
		return objstore.SplitURI(arg)
	}
	if defaultBucket == "" {
		return "", "", fmt.Errorf("no bucket configured for bare prefix %q", arg)
	}
	return defaultBucket, objstore.ToKey(arg), nil
}

func fetchProduct(ctx context.Context, client objstore.API, store *inventory.Store, bucket, prefix, dataDir string) error {
	fmt.Printf("Fetching s3://%s/%s\n", bucket, prefix)

	destDir := filepath.Join(dataDir, safeSubdir)
	productDir, err := objstore.DownloadPrefix(ctx, client, bucket, prefix, destDir, os.Stdout)
	if err != nil {
		return err
	}

	p := types.Product{
		ID:               strings.TrimSuffix(path.Base(strings.Trim(prefix, "/")), ".SAFE"),
		SourceURI:        "s3://" + bucket + "/" + strings.Trim(prefix, "/"),
		SafePath:         productDir,
		CloudCover:       -1,
		ConversionStatus: types.ConversionNone,
	}

	if err := writeMetadata(dataDir, p); err != nil {
		return err
	}
	if err := store.Upsert(ctx, p); err != nil {
		return err
	}

	fmt.Printf("fetched: %s -> %s\n", p.ID, productDir)
	return nil
}

// writeMetadata stores the product record as YAML under <data-dir>/metadata/.
func writeMetadata(dataDir string, p types.Product) error {
	dir := filepath.Join(dataDir, metadataSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", p.ID, err)
	}
	metaPath := filepath.Join(dir, p.ID+".yaml")
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata for %s: %w", p.ID, err)
	}
	return nil
}

func mustString(cmd *cobra.Command, flag string) string {
	v, _ := cmd.Flags().GetString(flag)
	return v
}
