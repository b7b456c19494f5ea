// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package objstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// safeSuffix is the directory-name convention for SAFE product archives.
const safeSuffix = ".SAFE"

// API is the subset of the S3 client used by the download routine. The
// production implementation is *s3.Client; tests substitute a fake.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DownloadPrefix mirrors every object under bucket/prefix into destDir,
// preserving the archive's internal layout. The last path element of the
// prefix names the product and must carry the .SAFE suffix; the local copy
// lands at destDir/<name>. Returns the local product directory.
//
// Objects are copied sequentially; the first failure aborts the download.
// Keys ending in "/" are directory placeholders and are skipped.
func DownloadPrefix(ctx context.Context, client API, bucket, prefix, destDir string, w io.Writer) (string, error) {
	prefix = strings.Trim(prefix, "/")

	keys, err := listKeys(ctx, client, bucket, prefix)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no objects found under s3://%s/%s", bucket, prefix)
	}

	name := path.Base(prefix)
	if !strings.HasSuffix(name, safeSuffix) {
		return "", fmt.Errorf("product name %q does not end in %s", name, safeSuffix)
	}

	productDir := filepath.Join(destDir, name)
	for _, key := range keys {
		rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
		if rel == "" {
			continue
		}
		local := filepath.Join(productDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return "", fmt.Errorf("creating directory for %s: %w", rel, err)
		}
		if err := downloadObject(ctx, client, bucket, key, local); err != nil {
			return "", fmt.Errorf("downloading %s: %w", key, err)
		}
		fmt.Fprintf(w, "  %s\n", rel)
	}

	return productDir, nil
}

// listKeys collects all non-directory object keys under prefix.
func listKeys(ctx context.Context, client API, bucket, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// downloadObject fetches one object to destPath via a temporary file that is
// renamed on success, so an interrupted copy never leaves a partial file
// under the final name.
func downloadObject(ctx context.Context, client API, bucket, key, destPath string) error {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("GetObject: %w", err)
	}
	defer out.Body.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, out.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing object: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
