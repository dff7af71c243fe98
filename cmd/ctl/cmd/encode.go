package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
	"github.com/spf13/cobra"
)

// NewEncodeCmd compresses a PNG, TIFF or raw sample file to JPEG-LS.
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "encode PNG/TIFF/raw to JPEG-LS",
		Long:  "Encode a PNG, TIFF or raw (H,W,C) sample file to JPEG-LS. Raw input needs --width, --height, --bits and --components.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")
			near, _ := cmd.Flags().GetInt("near")
			ilvName, _ := cmd.Flags().GetString("interleave")
			comment, _ := cmd.Flags().GetString("comment")

			if in == "" && len(args) > 0 {
				in = args[0]
			}
			if in == "" {
				return fmt.Errorf("input path is required. Use --in flag or provide as argument")
			}
			ilv, err := jpegls.ParseInterleaveMode(ilvName)
			if err != nil {
				return err
			}
			opts := &jpegls.Options{Near: near, Interleave: ilv, Comment: comment}

			r, err := openInput(in)
			if err != nil {
				return err
			}
			defer r.Close()

			start := time.Now()
			var buf bytes.Buffer
			switch f := fileFormat(in, format); f {
			case "raw":
				info := jpegls.FrameInfo{}
				info.Width, _ = cmd.Flags().GetInt("width")
				info.Height, _ = cmd.Flags().GetInt("height")
				info.BitsPerSample, _ = cmd.Flags().GetInt("bits")
				info.Components, _ = cmd.Flags().GetInt("components")
				data, err := io.ReadAll(r)
				if err != nil {
					return err
				}
				samples, err := rawSamples(data, info.BitsPerSample, info.SampleCount())
				if err != nil {
					return err
				}
				encoded, err := jpegls.EncodeFrame(ctx, samples, info, opts)
				if err != nil {
					return err
				}
				buf.Write(encoded)
			default:
				img, err := readImage(r, f)
				if err != nil {
					return err
				}
				if err := jpegls.Encode(&buf, img, opts); err != nil {
					return err
				}
			}

			slog.InfoContext(ctx, "encoded",
				slog.String("in", in),
				slog.Int("bytes", buf.Len()),
				slog.Int("near", near),
				slog.String("interleave", ilv.String()),
				slog.Duration("took", time.Since(start)),
			)
			return writeOutput(out, buf.Bytes())
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "input file (- for stdin)")
	pf.StringP("out", "o", "-", "output JPEG-LS file (- for stdout)")
	pf.StringP("format", "f", "", "input format (png|tiff|raw), default from extension")
	pf.Int("near", 0, "near-lossless error bound (0 = lossless)")
	pf.String("interleave", "line", "interleave mode for multi-component input (none|line|sample)")
	pf.String("comment", "", "COM segment text")
	pf.Int("width", 0, "raw input width")
	pf.Int("height", 0, "raw input height")
	pf.Int("bits", 8, "raw input bits per sample (2-16)")
	pf.Int("components", 1, "raw input components")
	return cmd
}
