// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/eo-engine/internal/container"
)

const (
	containerInput  = "/input"
	containerOutput = "/output"
)

// EOPFConverter converts SAFE archives by running the EOPF converter
// container image with the archive and output directories bind-mounted.
// It depends on a container.Runtime (docker or podman) injected at
// construction time.
type EOPFConverter struct {
	runtime container.Runtime
	image   string
	out     io.Writer
}

// NewEOPFConverter creates a converter that uses the given container runtime
// to run the converter image. Container output is streamed to out. It
// verifies that the image exists locally before returning.
func NewEOPFConverter(rt container.Runtime, image string, out io.Writer) (*EOPFConverter, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("converter image not available in %s: %w", rt.Name(), err)
	}
	return &EOPFConverter{runtime: rt, image: image, out: out}, nil
}

// Convert runs the converter container against the SAFE archive at safePath,
// producing a Zarr store at zarrPath.
func (e *EOPFConverter) Convert(safePath, zarrPath string) error {
	absSafe, err := filepath.Abs(safePath)
	if err != nil {
		return fmt.Errorf("resolving SAFE path %s: %w", safePath, err)
	}
	absZarr, err := filepath.Abs(zarrPath)
	if err != nil {
		return fmt.Errorf("resolving output path %s: %w", zarrPath, err)
	}

	if err := os.MkdirAll(absZarr, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", absZarr, err)
	}

	mounts := []container.Mount{
		{Host: absSafe, Container: containerInput, ReadOnly: true},
		{Host: absZarr, Container: containerOutput},
	}
	args := []string{"convert", containerInput, containerOutput}

	if err := e.runtime.RunMounted(e.image, args, mounts, e.out); err != nil {
		return fmt.Errorf("converting %s: %w", filepath.Base(safePath), err)
	}

	entries, err := os.ReadDir(absZarr)
	if err != nil {
		return fmt.Errorf("reading converter output: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("converter produced empty output for %s", filepath.Base(safePath))
	}
	return nil
}
