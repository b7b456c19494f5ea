// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zarr

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"
)

// Quicklook renders a 2D array from the store at dir as a grayscale PNG at
// outPath. Pixel values are min-max stretched to 8 bits. Supported dtypes
// are uint8 and uint16; supported compressors are none, zlib, gzip, and
// zstd. Arrays with filter chains are rejected.
func Quicklook(dir, arrayPath, outPath string) error {
	store, err := Read(dir)
	if err != nil {
		return err
	}
	arr, err := store.Find(arrayPath)
	if err != nil {
		return err
	}

	if len(arr.Shape) != 2 || len(arr.Chunks) != 2 {
		return fmt.Errorf("array %q is %d-dimensional; quicklook needs a 2D array", arr.Path, len(arr.Shape))
	}
	if arr.Shape[0] <= 0 || arr.Shape[1] <= 0 {
		return fmt.Errorf("array %q has empty shape %v", arr.Path, arr.Shape)
	}
	if arr.Chunks[0] <= 0 || arr.Chunks[1] <= 0 {
		return fmt.Errorf("array %q has invalid chunk shape %v", arr.Path, arr.Chunks)
	}
	if arr.HasFilters {
		return fmt.Errorf("array %q uses a filter chain, which is not supported", arr.Path)
	}

	itemSize, order, err := dtypeLayout(arr.DType)
	if err != nil {
		return fmt.Errorf("array %q: %w", arr.Path, err)
	}

	rows, cols := arr.Shape[0], arr.Shape[1]
	data := make([]uint16, rows*cols)

	chunkRows, chunkCols := arr.Chunks[0], arr.Chunks[1]
	gridRows := (rows + chunkRows - 1) / chunkRows
	gridCols := (cols + chunkCols - 1) / chunkCols

	arrDir := filepath.Join(dir, filepath.FromSlash(arr.Path))
	for ci := 0; ci < gridRows; ci++ {
		for cj := 0; cj < gridCols; cj++ {
			raw, err := readChunk(arrDir, arr, ci, cj)
			if err != nil {
				return err
			}
			if raw == nil {
				continue // missing chunk: leave fill value (zero)
			}
			if want := chunkRows * chunkCols * itemSize; len(raw) != want {
				return fmt.Errorf("chunk %d.%d of %q has %d bytes, want %d", ci, cj, arr.Path, len(raw), want)
			}
			copyChunk(data, raw, arr, ci, cj, itemSize, order)
		}
	}

	img := renderGray(data, cols, rows)
	return writePNG(img, outPath)
}

// dtypeLayout returns the element size and byte order for a dtype.
func dtypeLayout(dtype string) (int, binary.ByteOrder, error) {
	switch dtype {
	case "|u1":
		return 1, nil, nil
	case "<u2":
		return 2, binary.LittleEndian, nil
	case ">u2":
		return 2, binary.BigEndian, nil
	}
	return 0, nil, fmt.Errorf("unsupported dtype %q (quicklook handles uint8 and uint16)", dtype)
}

// readChunk loads and decompresses one chunk. A nil result with nil error
// means the chunk file does not exist and the fill value applies.
func readChunk(arrDir string, arr Array, ci, cj int) ([]byte, error) {
	var chunkPath string
	if arr.DimSeparator == "/" {
		chunkPath = filepath.Join(arrDir, strconv.Itoa(ci), strconv.Itoa(cj))
	} else {
		chunkPath = filepath.Join(arrDir, strconv.Itoa(ci)+arr.DimSeparator+strconv.Itoa(cj))
	}

	compressed, err := os.ReadFile(chunkPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", chunkPath, err)
	}

	raw, err := decompress(arr.Compressor, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing chunk %s: %w", chunkPath, err)
	}
	return raw, nil
}

func decompress(compressor string, data []byte) ([]byte, error) {
	switch compressor {
	case "":
		return data, nil
	case "zstd":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("unsupported compressor %q", compressor)
}

// copyChunk copies the in-bounds region of a decoded chunk into the full
// array buffer. Edge chunks are stored at full chunk shape; the out-of-bounds
// remainder is padding.
func copyChunk(data []uint16, raw []byte, arr Array, ci, cj, itemSize int, order binary.ByteOrder) {
	rows, cols := arr.Shape[0], arr.Shape[1]
	chunkRows, chunkCols := arr.Chunks[0], arr.Chunks[1]

	for r := 0; r < chunkRows; r++ {
		gi := ci*chunkRows + r
		if gi >= rows {
			break
		}
		for c := 0; c < chunkCols; c++ {
			gj := cj*chunkCols + c
			if gj >= cols {
				break
			}
			off := (r*chunkCols + c) * itemSize
			var v uint16
			if itemSize == 1 {
				v = uint16(raw[off])
			} else {
				v = order.Uint16(raw[off:])
			}
			data[gi*cols+gj] = v
		}
	}
}

// renderGray min-max stretches the values into an 8-bit grayscale image.
func renderGray(data []uint16, width, height int) *image.Gray {
	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	if hi == lo {
		return img
	}
	span := float64(hi - lo)
	for i, v := range data {
		img.Pix[i] = uint8(float64(v-lo) / span * 255)
	}
	return img
}

func writePNG(img image.Image, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return f.Close()
}
