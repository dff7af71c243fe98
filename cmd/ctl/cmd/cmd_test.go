package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(context.Background(), "test-sha")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), "jlsctl %v: %s", args, out.String())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "test-sha\n", run(t, "version"))
}

func TestEncodeDecode_Raw(t *testing.T) {
	dir := t.TempDir()
	raw := make([]byte, 0, 2*40*30*3)
	for i := range 40 * 30 * 3 {
		raw = append(raw, byte(i), byte(i>>8)&0x0F) // 12 bit little endian
	}
	in := filepath.Join(dir, "in.raw")
	require.NoError(t, os.WriteFile(in, raw, 0644))
	jls := filepath.Join(dir, "out.jls")
	back := filepath.Join(dir, "back.raw")

	run(t, "encode", "-i", in, "-o", jls, "--width", "40", "--height", "30", "--bits", "12",
		"--components", "3", "--interleave", "sample", "--comment", "raw test")
	run(t, "decode", "-i", jls, "-o", back)

	got, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	var rep infoReport
	require.NoError(t, json.Unmarshal([]byte(run(t, "info", jls, "--decode")), &rep))
	assert.Equal(t, 40, rep.Width)
	assert.Equal(t, 30, rep.Height)
	assert.Equal(t, 12, rep.Depth)
	assert.Equal(t, 3, rep.Components)
	assert.Equal(t, "sample", rep.Interleave)
	assert.Equal(t, []string{"raw test"}, rep.Comments)
	assert.NotEmpty(t, rep.Fingerprint)
	require.NotNil(t, rep.Decoded)
	assert.Equal(t, uint16(0), rep.Decoded.Min)
}

func TestEncodeDecode_Images(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray16(image.Rect(0, 0, 25, 19))
	for y := range 19 {
		for x := range 25 {
			img.SetGray16(x, y, color.Gray16{Y: uint16(x*2500 + y*17)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	in := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0644))

	jls := filepath.Join(dir, "out.jls")
	out := filepath.Join(dir, "out.tiff")
	run(t, "encode", in, "-o", jls, "--near", "0")
	run(t, "decode", jls, "-o", out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := tiff.Decode(f)
	require.NoError(t, err)
	for y := range 19 {
		for x := range 25 {
			require.Equal(t, color.Gray16Model.Convert(img.At(x, y)), color.Gray16Model.Convert(decoded.At(x, y)), "(%d, %d)", x, y)
		}
	}

	text := run(t, "info", jls, "--format", "text")
	assert.Contains(t, text, "Size: 25x19")
	assert.Contains(t, text, "BitsPerSample: 16")
}

func TestEncode_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.raw")
	require.NoError(t, os.WriteFile(in, make([]byte, 10), 0644))

	root := NewRoot(context.Background(), "x")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"encode", "-i", in, "-o", filepath.Join(dir, "o.jls"), "--width", "4", "--height", "4"})
	assert.Error(t, root.Execute(), "short raw input")

	root.SetArgs([]string{"encode", "-i", in, "--interleave", "planar"})
	assert.Error(t, root.Execute())
}
