package jpegls

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader_ReadBits(t *testing.T) {
	data := []byte{0b10110010, 0b11000011}
	br := NewBitReader(bytes.NewReader(data))

	// 101 = 5
	val, err := br.ReadBits(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), val)

	// 10010 = 18
	val, err = br.ReadBits(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(18), val)

	// 1100 = 12
	val, err = br.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), val)

	_, err = br.ReadBits(8)
	assert.ErrorIs(t, err, ErrFormat, "only 4 bits remain")
}

func TestBitWriter_StuffsAfterFF(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	require.NoError(t, bw.WriteBits(0xFF, 8))
	require.NoError(t, bw.WriteBits(0x7F, 7))
	require.NoError(t, bw.Flush())
	assert.Equal(t, []byte{0xFF, 0x7F}, buf.Bytes())

	br := NewBitReader(bytes.NewReader(buf.Bytes()))
	v, err := br.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFF), v)
	v, err = br.ReadBits(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7F), v)
}

func TestBitWriter_EndScanAfterFF(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	require.NoError(t, bw.WriteBits(0xFF, 8))
	require.NoError(t, bw.Flush())
	assert.Equal(t, []byte{0xFF, 0x00}, buf.Bytes())
	assert.Equal(t, int64(2), bw.Written())
}

func TestBitWriter_PadsWithZeros(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	require.NoError(t, bw.WriteBits(0b101, 3))
	require.NoError(t, bw.Flush())
	assert.Equal(t, []byte{0b10100000}, buf.Bytes())
}

func TestBitstream_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type field struct {
		val uint32
		n   int
	}
	var fields []field
	for range 5000 {
		n := 1 + rng.Intn(32)
		v := rng.Uint32()
		if rng.Intn(3) == 0 {
			v = 0xFFFFFFFF // runs of ones force stuffing
		}
		fields = append(fields, field{v & uint32(1<<n-1), n})
	}

	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	for _, f := range fields {
		require.NoError(t, bw.WriteBits(f.val, f.n))
	}
	require.NoError(t, bw.Flush())
	data := buf.Bytes()

	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF {
			require.Less(t, data[i+1], byte(0x80), "byte after 0xFF at %d", i)
		}
	}

	data = append(data, 0xFF, 0xD9)
	br := NewBitReader(bytes.NewReader(data))
	for i, f := range fields {
		v, err := br.ReadBits(f.n)
		require.NoError(t, err, "field %d", i)
		require.Equal(t, f.val, v, "field %d", i)
	}
	require.NoError(t, br.EndScan())
	next, err := br.r.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD9}, next)
}

func TestBitReader_StopsAtMarker(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0xAA, 0xFF, 0xD9}))
	v, err := br.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAA), v)
	_, err = br.ReadBit()
	assert.ErrorIs(t, err, ErrFormat)
}

func TestBitReader_ReadZeros(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0b00010000, 0x00, 0x00}))
	n, err := br.ReadZeros(10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = br.ReadZeros(10)
	assert.ErrorIs(t, err, ErrFormat)
}
