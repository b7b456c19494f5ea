// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package objstore

import (
	"fmt"
	"strings"
)

// scheme is the storage URI scheme used in catalog asset hrefs.
const scheme = "s3://"

// ToKey converts a storage URI to an object key by stripping the scheme and
// any leading slashes. Anything that does not carry the scheme is returned
// unchanged, so callers can pass bare keys through.
func ToKey(uri string) string {
	if !strings.HasPrefix(uri, scheme) {
		return uri
	}
	return strings.TrimLeft(strings.TrimPrefix(uri, scheme), "/")
}

// SplitURI splits a storage URI into bucket and object key. The bucket is
// the first path segment after the scheme; the key is the remainder.
func SplitURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("not a storage URI: %q", uri)
	}
	bucket, key, _ = strings.Cut(ToKey(uri), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("storage URI %q has no bucket", uri)
	}
	return bucket, key, nil
}
