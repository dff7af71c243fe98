package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
	"github.com/jpfielding/jpegls.go/pkg/util"
	"github.com/spf13/cobra"
)

// NewDecodeCmd decompresses JPEG-LS to PNG, TIFF or raw samples.
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode JPEG-LS to PNG/TIFF/raw",
		Long:  "Decode a JPEG-LS file to PNG, TIFF (16 bit capable) or raw (H,W,C) samples.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")
			allowMissingEOI, _ := cmd.Flags().GetBool("allow-missing-eoi")

			if in == "" && len(args) > 0 {
				in = args[0]
			}
			if in == "" {
				return fmt.Errorf("input path is required. Use --in flag or provide as argument")
			}
			f := fileFormat(out, format)
			if f == "" {
				f = "raw"
			}

			r, err := openInput(in)
			if err != nil {
				return err
			}
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}

			start := time.Now()
			frame, err := jpegls.DecodeFrame(ctx, data, &jpegls.DecodeOptions{AllowMissingEOI: allowMissingEOI})
			if err != nil {
				return err
			}
			for _, w := range frame.Warnings {
				slog.WarnContext(ctx, "decode warning", slog.String("in", in), slog.Any("error", w))
			}
			slog.InfoContext(ctx, "decoded",
				slog.String("in", in),
				slog.Int("width", frame.Width),
				slog.Int("height", frame.Height),
				slog.Int("components", frame.Components),
				slog.String("md5", util.SamplesMd5(frame.Samples)),
				slog.Duration("took", time.Since(start)),
			)

			var encoded []byte
			switch f {
			case "raw":
				encoded = rawBytes(frame.Samples, frame.BitsPerSample)
			default:
				img, err := frame.Image()
				if err != nil {
					return err
				}
				if encoded, err = writeImage(img, f); err != nil {
					return err
				}
			}
			return writeOutput(out, encoded)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "input JPEG-LS file (- for stdin)")
	pf.StringP("out", "o", "-", "output file (- for stdout)")
	pf.StringP("format", "f", "", "output format (png|tiff|raw), default from extension")
	pf.Bool("allow-missing-eoi", false, "accept streams that end without an EOI marker")
	return cmd
}
