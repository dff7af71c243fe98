package jpegls_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jpegls "github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
)

func encodedScene(t *testing.T, info jpegls.FrameInfo, opts *jpegls.Options) ([]uint16, []byte) {
	t.Helper()
	samples := scene(info, 9)
	data, err := jpegls.EncodeFrame(context.Background(), samples, info, opts)
	require.NoError(t, err)
	return samples, data
}

// insertAfterSOI splices raw segments in front of the frame header.
func insertAfterSOI(data []byte, segs ...[]byte) []byte {
	out := append([]byte(nil), data[:2]...)
	for _, s := range segs {
		out = append(out, s...)
	}
	return append(out, data[2:]...)
}

func TestDecode_MissingSOI(t *testing.T) {
	for _, data := range [][]byte{
		{0x00, 0x01, 0x02},
		{0xFF, 0xD9},
		{0xFF, 0xF7, 0x00, 0x0B},
	} {
		_, err := jpegls.DecodeFrame(context.Background(), data, nil)
		assert.ErrorIs(t, err, jpegls.ErrFormat, "% X", data)
	}
	_, err := jpegls.DecodeFrame(context.Background(), nil, nil)
	assert.ErrorIs(t, err, jpegls.ErrFormat)
}

func TestDecode_Truncated(t *testing.T) {
	info := jpegls.FrameInfo{Width: 32, Height: 32, BitsPerSample: 8, Components: 1}
	_, data := encodedScene(t, info, nil)
	for _, n := range []int{3, 10, len(data) / 2} {
		_, err := jpegls.DecodeFrame(context.Background(), data[:n], nil)
		assert.ErrorIs(t, err, jpegls.ErrFormat, "cut at %d", n)
	}
}

func TestDecode_MissingEOI(t *testing.T) {
	info := jpegls.FrameInfo{Width: 16, Height: 16, BitsPerSample: 8, Components: 3}
	samples, data := encodedScene(t, info, &jpegls.Options{Interleave: jpegls.InterleaveNone})
	require.Equal(t, []byte{0xFF, 0xD9}, data[len(data)-2:])
	cut := data[:len(data)-2]

	_, err := jpegls.DecodeFrame(context.Background(), cut, nil)
	assert.ErrorIs(t, err, jpegls.ErrMissingEOI)
	assert.ErrorIs(t, err, jpegls.ErrFormat)

	frame, err := jpegls.DecodeFrame(context.Background(), cut, &jpegls.DecodeOptions{AllowMissingEOI: true})
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples)
	require.Len(t, frame.Warnings, 1)
	assert.ErrorIs(t, frame.Warnings[0], jpegls.ErrMissingEOI)
}

func TestDecode_Canceled(t *testing.T) {
	info := jpegls.FrameInfo{Width: 16, Height: 16, BitsPerSample: 8, Components: 1}
	_, data := encodedScene(t, info, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frame, err := jpegls.DecodeFrame(ctx, data, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, frame)
}

func TestDecode_SkipsApplicationSegments(t *testing.T) {
	info := jpegls.FrameInfo{Width: 16, Height: 8, BitsPerSample: 8, Components: 1}
	samples, data := encodedScene(t, info, nil)
	app := []byte{0xFF, 0xE8, 0x00, 0x06, 'S', 'P', 'I', 'F'}
	dri := []byte{0xFF, 0xDD, 0x00, 0x04, 0x00, 0x00}
	frame, err := jpegls.DecodeFrame(context.Background(), insertAfterSOI(data, app, dri), nil)
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples)

	dri32 := []byte{0xFF, 0xDD, 0x00, 0x06, 0x00, 0x00, 0x00, 0x00}
	frame, err = jpegls.DecodeFrame(context.Background(), insertAfterSOI(data, dri32), nil)
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples)
}

func TestDecode_OversizeOverflow(t *testing.T) {
	data := []byte{
		0xFF, 0xD8,
		0xFF, 0xF7, 0x00, 0x0B, 0x08, 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0x11, 0x00,
		0xFF, 0xF8, 0x00, 0x0C, 0x04, 0x04, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00,
		0xFF, 0xD9,
	}
	_, err := jpegls.DecodeFrame(context.Background(), data, nil)
	assert.ErrorIs(t, err, jpegls.ErrFormat)
}

func TestDecode_MaxSamples(t *testing.T) {
	// a header-only stream announcing 65535x65535x255 samples
	sof := []byte{0xFF, 0xF7, 0x03, 0x05, 0x08, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	for id := 1; id <= 255; id++ {
		sof = append(sof, byte(id), 0x11, 0x00)
	}
	data := append([]byte{0xFF, 0xD8}, sof...)
	data = append(data, 0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xD9)
	_, err := jpegls.DecodeFrame(context.Background(), data, nil)
	assert.ErrorIs(t, err, jpegls.ErrFormat)

	info := jpegls.FrameInfo{Width: 16, Height: 16, BitsPerSample: 8, Components: 1}
	samples, enc := encodedScene(t, info, nil)
	_, err = jpegls.DecodeFrame(context.Background(), enc, &jpegls.DecodeOptions{MaxSamples: 255})
	assert.ErrorIs(t, err, jpegls.ErrFormat)
	frame, err := jpegls.DecodeFrame(context.Background(), enc, &jpegls.DecodeOptions{MaxSamples: 256})
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples)
}

func TestDecode_RejectsUnsupported(t *testing.T) {
	info := jpegls.FrameInfo{Width: 16, Height: 8, BitsPerSample: 8, Components: 1}
	_, data := encodedScene(t, info, nil)
	tests := map[string][]byte{
		"restart interval": {0xFF, 0xDD, 0x00, 0x04, 0x00, 0x10},
		"baseline SOF":     {0xFF, 0xC0, 0x00, 0x0B, 8, 0, 8, 0, 16, 1, 1, 0x11, 0},
		"unknown LSE":      {0xFF, 0xF8, 0x00, 0x03, 9},
		"DNL":              {0xFF, 0xDC, 0x00, 0x04, 0x00, 0x08},
		"empty DRI":        {0xFF, 0xDD, 0x00, 0x02},
		"long DRI":         {0xFF, 0xDD, 0x00, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00},
	}
	for name, seg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := jpegls.DecodeFrame(context.Background(), insertAfterSOI(data, seg), nil)
			assert.ErrorIs(t, err, jpegls.ErrFormat)
		})
	}
}

func TestDecode_MappingTables(t *testing.T) {
	info := jpegls.FrameInfo{Width: 4, Height: 4, BitsPerSample: 8, Components: 1}
	samples, data := encodedScene(t, info, nil)
	table := []byte{0xFF, 0xF8, 0x00, 0x08, 2, 5, 1, 10, 20, 30}
	cont := []byte{0xFF, 0xF8, 0x00, 0x06, 3, 5, 1, 40}
	frame, err := jpegls.DecodeFrame(context.Background(), insertAfterSOI(data, table, cont), nil)
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples, "tables are not applied")
	require.Len(t, frame.MappingTables, 1)
	assert.Equal(t, jpegls.MappingTable{ID: 5, EntryBytes: 1, Data: []byte{10, 20, 30, 40}}, frame.MappingTables[0])
}

func TestReadHeader(t *testing.T) {
	info := jpegls.FrameInfo{Width: 21, Height: 13, BitsPerSample: 12, Components: 3}
	_, data := encodedScene(t, info, &jpegls.Options{Near: 2, Interleave: jpegls.InterleaveSample, Comment: "hdr"})
	meta, err := jpegls.ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, info, meta.FrameInfo)
	assert.Equal(t, 2, meta.Near)
	assert.Equal(t, jpegls.InterleaveSample, meta.Interleave)
	assert.Equal(t, []int{1, 2, 3}, meta.ComponentIDs)
	assert.Equal(t, []string{"hdr"}, meta.Comments)
}

func TestParseInterleaveMode(t *testing.T) {
	for _, m := range []jpegls.InterleaveMode{jpegls.InterleaveNone, jpegls.InterleaveLine, jpegls.InterleaveSample} {
		got, err := jpegls.ParseInterleaveMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := jpegls.ParseInterleaveMode("planar")
	assert.ErrorIs(t, err, jpegls.ErrValidation)
}
