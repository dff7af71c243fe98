package cmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// openInput opens path, or stdin for "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(strings.TrimPrefix(path, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// writeOutput writes data to path, or stdout for "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// fileFormat names the container of path from its extension unless
// format is set explicitly.
func fileFormat(path, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".tif", ".tiff":
		return "tiff"
	case ".raw", ".bin":
		return "raw"
	case ".jls":
		return "jls"
	}
	return ""
}

func readImage(r io.Reader, format string) (image.Image, error) {
	switch format {
	case "png":
		return png.Decode(r)
	case "tiff":
		return tiff.Decode(r)
	}
	return nil, fmt.Errorf("unsupported image format %q", format)
}

func writeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return buf.Bytes(), err
}

// rawSamples reads (H,W,C) samples: one byte each up to 8 bits, little
// endian 16 bit words above.
func rawSamples(data []byte, bits, count int) ([]uint16, error) {
	width := 1
	if bits > 8 {
		width = 2
	}
	if len(data) != count*width {
		return nil, fmt.Errorf("raw input holds %d bytes, expected %d", len(data), count*width)
	}
	out := make([]uint16, count)
	for i := range out {
		if width == 1 {
			out[i] = uint16(data[i])
		} else {
			out[i] = binary.LittleEndian.Uint16(data[2*i:])
		}
	}
	return out, nil
}

// rawBytes is the inverse of rawSamples.
func rawBytes(samples []uint16, bits int) []byte {
	if bits <= 8 {
		out := make([]byte, len(samples))
		for i, v := range samples {
			out[i] = byte(v)
		}
		return out
	}
	out := make([]byte, 0, 2*len(samples))
	for _, v := range samples {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}
