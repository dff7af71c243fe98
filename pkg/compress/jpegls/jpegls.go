// Package jpegls implements the JPEG-LS (ITU-T T.87 / ISO/IEC 14495-1)
// lossless and near-lossless still image codec.
//
// Frames are coded from and to a flat sample buffer laid out as (H,W,C):
//
//	data, err := jpegls.EncodeFrame(ctx, samples, jpegls.FrameInfo{
//	    Width: 512, Height: 512, BitsPerSample: 12, Components: 1,
//	}, nil)
//
//	frame, err := jpegls.DecodeFrame(ctx, data, nil)
//
// Encode and Decode adapt the frame API to image.Image, and the package
// registers itself with the image package under the name "jpeg-ls":
//
//	import _ "github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
//	img, _, err := image.Decode(reader)
//
// Errors wrap one of ErrValidation, ErrFormat or ErrRange.
package jpegls

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
)

func init() {
	image.RegisterFormat("jpeg-ls", "\xff\xd8\xff\xf7", Decode, DecodeConfig)
}

// Encode writes JPEG-LS data to w for the given image. Gray and Gray16
// images are coded as one component; any other image is coded as RGB, or
// RGBA when it is not opaque, at 8 or 16 bits.
func Encode(w io.Writer, img image.Image, opts *Options) error {
	samples, info, err := imageSamples(img)
	if err != nil {
		return err
	}
	return encodeTo(context.Background(), w, samples, info, opts)
}

// imageSamples flattens img into an (H,W,C) buffer.
func imageSamples(img image.Image) ([]uint16, FrameInfo, error) {
	b := img.Bounds()
	info := FrameInfo{Width: b.Dx(), Height: b.Dy()}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, info, validationErrorf("invalid image dimensions %dx%d", info.Width, info.Height)
	}

	switch m := img.(type) {
	case *image.Gray:
		info.BitsPerSample, info.Components = 8, 1
		samples := make([]uint16, 0, info.SampleCount())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := m.PixOffset(b.Min.X, y)
			for _, v := range m.Pix[off : off+info.Width] {
				samples = append(samples, uint16(v))
			}
		}
		return samples, info, nil
	case *image.Gray16:
		info.BitsPerSample, info.Components = 16, 1
		samples := make([]uint16, 0, info.SampleCount())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				samples = append(samples, m.Gray16At(x, y).Y)
			}
		}
		return samples, info, nil
	}

	info.Components = 3
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		info.Components = 4
	}
	samples := make([]uint16, 0, info.Width*info.Height*info.Components)

	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		info.BitsPerSample = 16
		n := image.NewNRGBA64(image.Rect(0, 0, info.Width, info.Height))
		draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
		for y := range info.Height {
			for x := range info.Width {
				c := n.NRGBA64At(x, y)
				samples = append(samples, c.R, c.G, c.B)
				if info.Components == 4 {
					samples = append(samples, c.A)
				}
			}
		}
	default:
		info.BitsPerSample = 8
		n := image.NewNRGBA(image.Rect(0, 0, info.Width, info.Height))
		draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
		for i := 0; i < len(n.Pix); i += 4 {
			samples = append(samples, uint16(n.Pix[i]), uint16(n.Pix[i+1]), uint16(n.Pix[i+2]))
			if info.Components == 4 {
				samples = append(samples, uint16(n.Pix[i+3]))
			}
		}
	}
	return samples, info, nil
}

// Decode reads a JPEG-LS image from r.
func Decode(r io.Reader) (image.Image, error) {
	f, err := NewDecoder(r, nil).Decode(context.Background())
	if err != nil {
		return nil, err
	}
	return f.Image()
}

// DecodeConfig returns the color model and dimensions of a JPEG-LS image
// without decoding the scans.
func DecodeConfig(r io.Reader) (image.Config, error) {
	meta, err := ReadHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	cm, err := colorModel(meta.FrameInfo)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: cm, Width: meta.Width, Height: meta.Height}, nil
}

func colorModel(fi FrameInfo) (color.Model, error) {
	wide := fi.BitsPerSample > 8
	switch {
	case fi.Components == 1 && wide:
		return color.Gray16Model, nil
	case fi.Components == 1:
		return color.GrayModel, nil
	case (fi.Components == 3 || fi.Components == 4) && wide:
		return color.NRGBA64Model, nil
	case fi.Components == 3 || fi.Components == 4:
		return color.NRGBAModel, nil
	}
	return nil, validationErrorf("%d components have no image representation", fi.Components)
}

// Image converts the frame to an image.Image. Samples are copied without
// rescaling: a 12 bit frame yields a Gray16 holding values up to 4095.
// A fourth component becomes alpha, scaled so that MAXVAL is opaque.
func (f *Frame) Image() (image.Image, error) {
	if _, err := colorModel(f.FrameInfo); err != nil {
		return nil, err
	}
	w, h, nc := f.Width, f.Height, f.Components
	rect := image.Rect(0, 0, w, h)
	wide := f.BitsPerSample > 8

	if nc == 1 {
		if wide {
			img := image.NewGray16(rect)
			for i, v := range f.Samples {
				img.Pix[2*i] = uint8(v >> 8)
				img.Pix[2*i+1] = uint8(v)
			}
			return img, nil
		}
		img := image.NewGray(rect)
		for i, v := range f.Samples {
			img.Pix[i] = uint8(v)
		}
		return img, nil
	}

	maxVal := f.Preset.MaxVal
	if maxVal == 0 {
		maxVal = 1<<f.BitsPerSample - 1
	}
	// alpha spans the full 16 bits whatever the precision
	alpha := func(i int) uint16 {
		if nc == 4 {
			return uint16(min(uint32(f.Samples[i*nc+3]), uint32(maxVal)) * 0xFFFF / uint32(maxVal))
		}
		return 0xFFFF
	}
	if wide {
		img := image.NewNRGBA64(rect)
		for i := range w * h {
			s := f.Samples[i*nc:]
			img.SetNRGBA64(i%w, i/w, color.NRGBA64{R: s[0], G: s[1], B: s[2], A: alpha(i)})
		}
		return img, nil
	}
	img := image.NewNRGBA(rect)
	for i := range w * h {
		s := f.Samples[i*nc:]
		img.Pix[4*i] = uint8(s[0])
		img.Pix[4*i+1] = uint8(s[1])
		img.Pix[4*i+2] = uint8(s[2])
		img.Pix[4*i+3] = uint8(alpha(i) >> 8)
	}
	return img, nil
}
