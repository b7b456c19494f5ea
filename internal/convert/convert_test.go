// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/eo-engine/internal/container"
	"github.com/pdiddy/eo-engine/pkg/types"
)

// markerConverter writes a single metadata file into the output store.
type markerConverter struct {
	err   error
	calls int
}

func (m *markerConverter) Convert(safePath, zarrPath string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if err := os.MkdirAll(zarrPath, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(zarrPath, ".zgroup"), []byte(`{"zarr_format": 2}`), 0o644)
}

func mkSafeDir(t *testing.T, dataDir, id string) string {
	t.Helper()
	p := SafePath(dataDir, id)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConvertProduct(t *testing.T) {
	dataDir := t.TempDir()
	mkSafeDir(t, dataDir, "S2B_TEST")
	conv := &markerConverter{}
	var out bytes.Buffer

	status := ConvertProduct(conv, types.Product{ID: "S2B_TEST"}, dataDir, &out)
	if status != types.ConversionDone {
		t.Fatalf("status = %v, want %v", status, types.ConversionDone)
	}
	if _, err := os.Stat(filepath.Join(ZarrPath(dataDir, "S2B_TEST"), ".zgroup")); err != nil {
		t.Errorf("zarr store missing: %v", err)
	}
	if !strings.Contains(out.String(), "converted: S2B_TEST") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConvertProduct_SkipsExisting(t *testing.T) {
	dataDir := t.TempDir()
	mkSafeDir(t, dataDir, "S2B_TEST")
	if err := os.MkdirAll(ZarrPath(dataDir, "S2B_TEST"), 0o755); err != nil {
		t.Fatal(err)
	}
	conv := &markerConverter{}
	var out bytes.Buffer

	status := ConvertProduct(conv, types.Product{ID: "S2B_TEST"}, dataDir, &out)
	if status != types.ConversionNone {
		t.Fatalf("status = %v, want %v", status, types.ConversionNone)
	}
	if conv.calls != 0 {
		t.Errorf("converter called %d times for existing store", conv.calls)
	}
}

func TestConvertProduct_MissingArchive(t *testing.T) {
	conv := &markerConverter{}
	var out bytes.Buffer

	status := ConvertProduct(conv, types.Product{ID: "S2B_NOPE"}, t.TempDir(), &out)
	if status != types.ConversionFailed {
		t.Fatalf("status = %v, want %v", status, types.ConversionFailed)
	}
	if !strings.Contains(out.String(), "not found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConvertProduct_FailureRemovesPartialStore(t *testing.T) {
	dataDir := t.TempDir()
	mkSafeDir(t, dataDir, "S2B_TEST")
	conv := &markerConverter{err: errors.New("converter crashed")}

	status := ConvertProduct(conv, types.Product{ID: "S2B_TEST"}, dataDir, io.Discard)
	if status != types.ConversionFailed {
		t.Fatalf("status = %v, want %v", status, types.ConversionFailed)
	}
	if _, err := os.Stat(ZarrPath(dataDir, "S2B_TEST")); !os.IsNotExist(err) {
		t.Error("partial store should be removed after failure")
	}
}

func TestConvertBatch_ContinuesAfterFailure(t *testing.T) {
	dataDir := t.TempDir()
	mkSafeDir(t, dataDir, "S2B_ONE")
	mkSafeDir(t, dataDir, "S2B_TWO")
	conv := &markerConverter{}
	var out bytes.Buffer

	products := []types.Product{
		{ID: "S2B_ONE"},
		{ID: "S2B_MISSING"}, // no SAFE archive on disk
		{ID: "S2B_TWO"},
	}
	result := ConvertBatch(conv, products, dataDir, &out)

	if result.Converted != 2 || result.Failed != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if !strings.Contains(out.String(), "Batch summary: 2 converted, 0 skipped, 1 failed (total: 3)") {
		t.Errorf("summary missing from output: %q", out.String())
	}
}

func TestConvertPaths(t *testing.T) {
	dataDir := t.TempDir()
	safePath := mkSafeDir(t, dataDir, "S2B_BYPATH")
	conv := &markerConverter{}

	result := ConvertPaths(conv, []string{safePath}, dataDir, io.Discard)
	if result.Converted != 1 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(ZarrPath(dataDir, "S2B_BYPATH")); err != nil {
		t.Errorf("store not written under ID derived from path: %v", err)
	}
}

// fakeRuntime implements container.Runtime for converter tests.
type fakeRuntime struct {
	imageErr   error
	runErr     error
	gotImage   string
	gotArgs    []string
	gotMounts  []container.Mount
	writeFiles bool
}

func (f *fakeRuntime) Name() string    { return "fake" }
func (f *fakeRuntime) Available() bool { return true }

func (f *fakeRuntime) ImageExists(image string) error { return f.imageErr }

func (f *fakeRuntime) RunMounted(image string, args []string, mounts []container.Mount, stdout io.Writer) error {
	f.gotImage = image
	f.gotArgs = args
	f.gotMounts = mounts
	if f.runErr != nil {
		return f.runErr
	}
	if f.writeFiles {
		// Write into the host side of the output mount like a real container.
		for _, m := range mounts {
			if m.Container == containerOutput {
				if err := os.WriteFile(filepath.Join(m.Host, ".zgroup"), []byte("{}"), 0o644); err != nil {
					return err
				}
			}
		}
	}
	fmt.Fprintln(stdout, "conversion log line")
	return nil
}

func TestEOPFConverter_Convert(t *testing.T) {
	rt := &fakeRuntime{writeFiles: true}
	var log bytes.Buffer
	conv, err := NewEOPFConverter(rt, "eopf-converter:latest", &log)
	if err != nil {
		t.Fatalf("NewEOPFConverter: %v", err)
	}

	dataDir := t.TempDir()
	safePath := mkSafeDir(t, dataDir, "S2B_TEST")
	zarrPath := ZarrPath(dataDir, "S2B_TEST")

	if err := conv.Convert(safePath, zarrPath); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if rt.gotImage != "eopf-converter:latest" {
		t.Errorf("image = %q", rt.gotImage)
	}
	if strings.Join(rt.gotArgs, " ") != "convert /input /output" {
		t.Errorf("args = %v", rt.gotArgs)
	}
	if len(rt.gotMounts) != 2 || !rt.gotMounts[0].ReadOnly || rt.gotMounts[1].ReadOnly {
		t.Errorf("mounts = %+v", rt.gotMounts)
	}
	if !strings.Contains(log.String(), "conversion log line") {
		t.Errorf("container output not streamed: %q", log.String())
	}
}

func TestEOPFConverter_EmptyOutput(t *testing.T) {
	rt := &fakeRuntime{} // runs fine but writes nothing
	conv, err := NewEOPFConverter(rt, "eopf-converter:latest", io.Discard)
	if err != nil {
		t.Fatalf("NewEOPFConverter: %v", err)
	}

	dataDir := t.TempDir()
	safePath := mkSafeDir(t, dataDir, "S2B_TEST")

	err = conv.Convert(safePath, ZarrPath(dataDir, "S2B_TEST"))
	if err == nil {
		t.Fatal("expected error for empty converter output")
	}
	if !strings.Contains(err.Error(), "empty output") {
		t.Errorf("error = %v", err)
	}
}

func TestNewEOPFConverter_MissingImage(t *testing.T) {
	rt := &fakeRuntime{imageErr: errors.New("no such image")}
	_, err := NewEOPFConverter(rt, "eopf-converter:latest", io.Discard)
	if err == nil {
		t.Fatal("expected error for missing image")
	}
	if !strings.Contains(err.Error(), "not available") {
		t.Errorf("error = %v", err)
	}
}
