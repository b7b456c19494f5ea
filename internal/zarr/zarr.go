// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zarr reads Zarr v2 store metadata for inspection and renders
// grayscale quicklooks from 2D arrays. It deliberately implements only the
// reading surface the inspect stage needs; writing stores is the external
// converter's job. See docs/ARCHITECTURE § Inspection.
package zarr

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	consolidatedFile = ".zmetadata"
	groupFile        = ".zgroup"
	arrayFile        = ".zarray"
)

// Array describes one array in a store.
type Array struct {
	// Path is the array's location within the store, "/"-separated,
	// without a leading slash.
	Path string

	Shape  []int
	Chunks []int

	// DType is the NumPy-style type string from the metadata (e.g. "<u2").
	DType string

	// Compressor is the compressor id ("zstd", "zlib", ...), or "" when the
	// array is stored raw.
	Compressor string

	// DimSeparator is the chunk-key separator, "." unless the metadata says
	// otherwise.
	DimSeparator string

	// HasFilters reports whether the array declares a filter chain.
	HasFilters bool
}

// Store holds the metadata tree of a Zarr store.
type Store struct {
	// Dir is the store's root directory.
	Dir string

	// Groups lists group paths, "" being the root group.
	Groups []string

	// Arrays lists the store's arrays sorted by path.
	Arrays []Array
}

// Find returns the array at the given store path.
func (s *Store) Find(arrayPath string) (Array, error) {
	arrayPath = strings.Trim(arrayPath, "/")
	for _, a := range s.Arrays {
		if a.Path == arrayPath {
			return a, nil
		}
	}
	return Array{}, fmt.Errorf("no array %q in store %s", arrayPath, s.Dir)
}

// zarrayMeta mirrors the .zarray JSON document.
type zarrayMeta struct {
	Shape              []int           `json:"shape"`
	Chunks             []int           `json:"chunks"`
	DType              string          `json:"dtype"`
	Compressor         *compressorMeta `json:"compressor"`
	Order              string          `json:"order"`
	DimensionSeparator string          `json:"dimension_separator"`
	Filters            json.RawMessage `json:"filters"`
}

type compressorMeta struct {
	ID string `json:"id"`
}

// Read loads the metadata of the store at dir. It prefers consolidated
// metadata (.zmetadata) and falls back to walking the directory tree for
// .zgroup and .zarray documents.
func Read(dir string) (*Store, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dir, err)
	}

	store, err := readConsolidated(dir)
	if err == nil {
		return store, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return readWalk(dir)
}

// consolidatedDoc mirrors the .zmetadata JSON document.
type consolidatedDoc struct {
	Format   int                        `json:"zarr_consolidated_format"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

func readConsolidated(dir string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, consolidatedFile))
	if err != nil {
		return nil, err
	}

	var doc consolidatedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", consolidatedFile, err)
	}

	store := &Store{Dir: dir}
	for key, raw := range doc.Metadata {
		switch {
		case key == groupFile || strings.HasSuffix(key, "/"+groupFile):
			store.Groups = append(store.Groups, strings.TrimSuffix(strings.TrimSuffix(key, groupFile), "/"))
		case key == arrayFile || strings.HasSuffix(key, "/"+arrayFile):
			arrPath := strings.TrimSuffix(strings.TrimSuffix(key, arrayFile), "/")
			arr, err := parseArray(arrPath, raw)
			if err != nil {
				return nil, err
			}
			store.Arrays = append(store.Arrays, arr)
		}
	}
	sortStore(store)
	return store, nil
}

func readWalk(dir string) (*Store, error) {
	store := &Store{Dir: dir}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		parent := strings.TrimSuffix(strings.TrimSuffix(rel, path.Base(rel)), "/")

		switch path.Base(rel) {
		case groupFile:
			store.Groups = append(store.Groups, parent)
		case arrayFile:
			raw, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			arr, err := parseArray(parent, raw)
			if err != nil {
				return err
			}
			store.Arrays = append(store.Arrays, arr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking store %s: %w", dir, err)
	}
	if len(store.Groups) == 0 && len(store.Arrays) == 0 {
		return nil, fmt.Errorf("no Zarr metadata found in %s", dir)
	}
	sortStore(store)
	return store, nil
}

func parseArray(arrPath string, raw json.RawMessage) (Array, error) {
	var meta zarrayMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Array{}, fmt.Errorf("parsing array metadata at %q: %w", arrPath, err)
	}

	arr := Array{
		Path:         arrPath,
		Shape:        meta.Shape,
		Chunks:       meta.Chunks,
		DType:        meta.DType,
		DimSeparator: meta.DimensionSeparator,
		HasFilters:   len(meta.Filters) > 0 && string(meta.Filters) != "null",
	}
	if meta.Compressor != nil {
		arr.Compressor = meta.Compressor.ID
	}
	if arr.DimSeparator == "" {
		arr.DimSeparator = "."
	}
	if meta.Order != "" && meta.Order != "C" {
		return Array{}, fmt.Errorf("array %q uses unsupported order %q", arrPath, meta.Order)
	}
	return arr, nil
}

func sortStore(s *Store) {
	sort.Strings(s.Groups)
	sort.Slice(s.Arrays, func(i, j int) bool { return s.Arrays[i].Path < s.Arrays[j].Path })
}

// FormatTree writes a human-readable summary of the store to w.
func FormatTree(s *Store, w io.Writer) {
	fmt.Fprintf(w, "%s\n", s.Dir)

	type node struct {
		path  string
		array *Array
	}
	nodes := make([]node, 0, len(s.Groups)+len(s.Arrays))
	for _, g := range s.Groups {
		if g != "" {
			nodes = append(nodes, node{path: g})
		}
	}
	for i := range s.Arrays {
		nodes = append(nodes, node{path: s.Arrays[i].Path, array: &s.Arrays[i]})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].path < nodes[j].path })

	for _, n := range nodes {
		indent := strings.Repeat("  ", strings.Count(n.path, "/")+1)
		name := path.Base(n.path)
		if n.array == nil {
			fmt.Fprintf(w, "%s%s/\n", indent, name)
			continue
		}
		comp := n.array.Compressor
		if comp == "" {
			comp = "raw"
		}
		fmt.Fprintf(w, "%s%s  %s  shape %v  chunks %v  %s\n",
			indent, name, dtypeName(n.array.DType), n.array.Shape, n.array.Chunks, comp)
	}

	fmt.Fprintf(w, "\n%d groups, %d arrays\n", len(s.Groups), len(s.Arrays))
}

// dtypeName maps a NumPy-style dtype string to a friendlier name.
func dtypeName(dtype string) string {
	switch dtype {
	case "|u1":
		return "uint8"
	case "<u2", ">u2":
		return "uint16"
	case "<u4", ">u4":
		return "uint32"
	case "<i2", ">i2":
		return "int16"
	case "<i4", ">i4":
		return "int32"
	case "<f4", ">f4":
		return "float32"
	case "<f8", ">f8":
		return "float64"
	}
	return dtype
}
