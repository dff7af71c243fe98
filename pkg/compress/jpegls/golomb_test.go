package jpegls

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorValue(t *testing.T) {
	for i, e := range []int{0, -1, 1, -2, 2, -3, 3} {
		assert.Equal(t, i, MapErrorValue(e), "error %d", e)
	}
	for e := -70000; e <= 70000; e++ {
		m := MapErrorValue(e)
		require.GreaterOrEqual(t, m, 0)
		require.Equal(t, e, UnmapErrorValue(m))
	}
}

func TestReadGolomb(t *testing.T) {
	// k=2, m=7: prefix 1 zero then a one, suffix 11 -> 0111
	// k=0, m=2: 001
	br := NewBitReader(bytes.NewReader([]byte{0b01110010}))
	m, err := br.ReadGolomb(2, 32, 8)
	require.NoError(t, err)
	assert.Equal(t, 7, m)
	m, err = br.ReadGolomb(0, 32, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, m)
}

func TestGolomb_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		qbpp  int
		maxM  int
	}{
		{"8-bit lossless", 32, 8, 256},
		{"16-bit lossless", 64, 16, 1 << 16},
		{"8-bit near 3", 32, 5, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			type code struct{ k, m int }
			var codes []code
			for k := 0; k <= 16; k++ {
				for m := 0; m <= tt.maxM; m += 1 + m/64 {
					codes = append(codes, code{k, m})
				}
			}

			var buf bytes.Buffer
			bw := NewBitWriter(&buf)
			for _, c := range codes {
				require.NoError(t, bw.WriteGolomb(c.k, c.m, tt.limit, tt.qbpp), "k=%d m=%d", c.k, c.m)
			}
			require.NoError(t, bw.Flush())

			br := NewBitReader(bytes.NewReader(buf.Bytes()))
			for _, c := range codes {
				m, err := br.ReadGolomb(c.k, tt.limit, tt.qbpp)
				require.NoError(t, err, "k=%d m=%d", c.k, c.m)
				require.Equal(t, c.m, m, "k=%d", c.k)
			}
		})
	}
}

func TestGolomb_EscapeLength(t *testing.T) {
	// k=0 and m=200 escape to limit-qbpp-1 zeros, a one and 8 bits: 32 bits
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	require.NoError(t, bw.WriteGolomb(0, 200, 32, 8))
	require.NoError(t, bw.Flush())
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 199}, buf.Bytes())
}

func TestGolomb_Errors(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	assert.ErrorIs(t, bw.WriteGolomb(0, -1, 32, 8), ErrRange)
	assert.ErrorIs(t, bw.WriteGolomb(0, 1000, 32, 8), ErrRange)

	br := NewBitReader(bytes.NewReader([]byte{0, 0, 0, 0}))
	_, err := br.ReadGolomb(0, 32, 8)
	assert.ErrorIs(t, err, ErrFormat)
}
