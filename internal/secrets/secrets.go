// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each supported key is one file: the filename is the key name and the file
// contents (trimmed) are the value. Files under other names are ignored, so
// a stray editor backup or README in the directory never leaks into the
// credential map.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// knownKeys lists the key files the pipeline understands.
var knownKeys = []string{
	"s3-access-key",
	"s3-secret-key",
	"stac-api-token",
}

// Load reads the supported key files from dir and returns a map of key name
// to trimmed contents. A missing directory or missing key files are not
// errors; Load returns an empty map. Unreadable files produce a warning on
// stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)
	for _, name := range knownKeys {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}
