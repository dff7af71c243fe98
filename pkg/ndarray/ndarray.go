// Package ndarray adapts host sample arrays of shape (H,W) or (H,W,C) and
// an 8 or 16 bit element type to the JPEG-LS codec.
package ndarray

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
)

var (
	// ErrValue reports an unsupported element type, shape or precision.
	ErrValue = errors.New("ndarray: unsupported value")
	// ErrEncode reports a codec failure while encoding.
	ErrEncode = errors.New("ndarray: encode failed")
	// ErrDecode reports malformed input while decoding.
	ErrDecode = errors.New("ndarray: decode failed")
)

// DType is the element type of an Array.
type DType int

const (
	Uint8 DType = iota + 1
	Uint16
)

// Bits returns the element width.
func (d DType) Bits() int {
	switch d {
	case Uint8:
		return 8
	case Uint16:
		return 16
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// Array is a C-contiguous (H,W[,C]) sample buffer. Data holds the samples
// widened to uint16 whatever the element type.
type Array struct {
	Shape []int
	DType DType
	Data  []uint16
}

// New copies data into an Array of the given shape. Only uint8 and uint16
// elements are accepted.
func New[T constraints.Integer](data []T, shape ...int) (*Array, error) {
	var dt DType
	switch any(data).(type) {
	case []uint8:
		dt = Uint8
	case []uint16:
		dt = Uint16
	default:
		return nil, fmt.Errorf("%w: dtype %T", ErrValue, data)
	}
	a := &Array{Shape: append([]int(nil), shape...), DType: dt, Data: widen(data)}
	if _, err := a.frameInfo(); err != nil {
		return nil, err
	}
	return a, nil
}

func widen[T constraints.Integer](src []T) []uint16 {
	out := make([]uint16, len(src))
	for i, v := range src {
		out[i] = uint16(v)
	}
	return out
}

func narrow[T constraints.Integer](src []uint16) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = T(v)
	}
	return out
}

// Uint8 returns a copy of the samples as bytes; it fails for Uint16 arrays.
func (a *Array) Uint8() ([]uint8, error) {
	if a.DType != Uint8 {
		return nil, fmt.Errorf("%w: array is %s", ErrValue, a.DType)
	}
	return narrow[uint8](a.Data), nil
}

// Uint16 returns a copy of the samples.
func (a *Array) Uint16() []uint16 {
	return narrow[uint16](a.Data)
}

// frameInfo checks the shape and element type against the codec limits.
func (a *Array) frameInfo() (jpegls.FrameInfo, error) {
	if a == nil {
		return jpegls.FrameInfo{}, fmt.Errorf("%w: nil array", ErrValue)
	}
	if a.DType.Bits() == 0 {
		return jpegls.FrameInfo{}, fmt.Errorf("%w: dtype %s", ErrValue, a.DType)
	}
	fi := jpegls.FrameInfo{BitsPerSample: a.DType.Bits(), Components: 1}
	switch len(a.Shape) {
	case 3:
		fi.Components = a.Shape[2]
		fallthrough
	case 2:
		fi.Height, fi.Width = a.Shape[0], a.Shape[1]
	default:
		return fi, fmt.Errorf("%w: shape %v is not (H,W) or (H,W,C)", ErrValue, a.Shape)
	}
	if fi.Width < 1 || fi.Height < 1 || fi.Components < 1 || fi.Components > 255 {
		return fi, fmt.Errorf("%w: shape %v", ErrValue, a.Shape)
	}
	if len(a.Data) != fi.SampleCount() {
		return fi, fmt.Errorf("%w: %d samples for shape %v", ErrValue, len(a.Data), a.Shape)
	}
	return fi, nil
}

// Metadata describes a decoded stream.
type Metadata struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Depth      int    `json:"depth"`
	Components int    `json:"components"`
	Interleave string `json:"interleave"`
	Near       int    `json:"near"`
}

// MetadataOf summarizes the header of a JPEG-LS stream.
func MetadataOf(m *jpegls.Metadata) Metadata {
	return Metadata{
		Width:      m.Width,
		Height:     m.Height,
		Depth:      m.BitsPerSample,
		Components: m.Components,
		Interleave: m.Interleave.String(),
		Near:       m.Near,
	}
}

// Encode compresses a. Shape and element type problems fail with ErrValue
// before the codec runs; anything the codec rejects fails with ErrEncode.
func Encode(ctx context.Context, a *Array, ilv jpegls.InterleaveMode, near int) ([]byte, error) {
	fi, err := a.frameInfo()
	if err != nil {
		return nil, err
	}
	data, err := jpegls.EncodeFrame(ctx, a.Data, fi, &jpegls.Options{Near: near, Interleave: ilv})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

// Decode decompresses data into an Array of shape (H,W) for one component
// and (H,W,C) otherwise. Precisions up to 8 bits decode to Uint8.
func Decode(ctx context.Context, data []byte) (*Array, Metadata, error) {
	f, err := jpegls.DecodeFrame(ctx, data, nil)
	switch {
	case errors.Is(err, jpegls.ErrValidation):
		return nil, Metadata{}, fmt.Errorf("%w: %w", ErrValue, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, Metadata{}, err
	case err != nil:
		return nil, Metadata{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	a := &Array{Shape: []int{f.Height, f.Width}, DType: Uint16, Data: f.Samples}
	if f.Components > 1 {
		a.Shape = append(a.Shape, f.Components)
	}
	if f.BitsPerSample <= 8 {
		a.DType = Uint8
	}
	return a, MetadataOf(&f.Metadata), nil
}
