package util

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMd5ThenHex(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Md5ThenHex(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Md5ThenHex([]byte("abc")))
}

func TestSamplesMd5(t *testing.T) {
	assert.Equal(t, Md5ThenHex([]byte{0x01, 0x02, 0x00, 0xFF}), SamplesMd5([]uint16{0x0102, 0x00FF}))
	assert.NotEqual(t, SamplesMd5([]uint16{1, 2}), SamplesMd5([]uint16{2, 1}))
}

func TestHashUUID(t *testing.T) {
	type meta struct {
		Width, Height int
	}
	a := HashUUID(meta{512, 512})
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, a, HashUUID(meta{512, 512}), "stable")
	assert.NotEqual(t, a, HashUUID(meta{512, 511}))
	assert.Empty(t, HashUUID(make(chan int)))
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
