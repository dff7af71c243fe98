package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
	"github.com/jpfielding/jpegls.go/pkg/ndarray"
	"github.com/jpfielding/jpegls.go/pkg/util"
	"github.com/spf13/cobra"
)

// infoReport is the info command output.
type infoReport struct {
	ndarray.Metadata
	Fingerprint   string              `json:"fingerprint"`
	Preset        jpegls.PresetParams `json:"preset"`
	ComponentIDs  []int               `json:"componentIds"`
	Comments      []string            `json:"comments,omitempty"`
	MappingTables int                 `json:"mappingTables"`
	Bytes         int                 `json:"bytes"`
	Decoded       *decodeReport       `json:"decoded,omitempty"`
}

type decodeReport struct {
	Min      uint16   `json:"min"`
	Max      uint16   `json:"max"`
	Md5      string   `json:"md5"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewInfoCmd reports the header of a JPEG-LS file and optionally decodes it.
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "inspect a JPEG-LS file",
		Long:  "Parses and displays the frame and scan parameters of a JPEG-LS file. With --decode the scans are decoded and the sample range and digest reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			format, _ := cmd.Flags().GetString("format")
			decode, _ := cmd.Flags().GetBool("decode")

			if in == "" && len(args) > 0 {
				in = args[0]
			}
			if in == "" {
				return fmt.Errorf("file path is required. Use --in flag or provide as argument")
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
			rep, err := inspect(ctx, data, decode)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case "text":
				printReport(w, rep)
			default:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "JPEG-LS file (- for stdin)")
	pf.StringP("format", "f", "json", "output format (text|json)")
	pf.Bool("decode", false, "decode the scans and report the sample range")
	return cmd
}

func inspect(ctx context.Context, data []byte, decode bool) (*infoReport, error) {
	var meta *jpegls.Metadata
	var frame *jpegls.Frame
	if decode {
		f, err := jpegls.DecodeFrame(ctx, data, &jpegls.DecodeOptions{AllowMissingEOI: true})
		if err != nil {
			return nil, err
		}
		frame, meta = f, &f.Metadata
	} else {
		m, err := jpegls.ReadHeader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		meta = m
	}

	rep := &infoReport{
		Metadata:      ndarray.MetadataOf(meta),
		Preset:        meta.Preset,
		ComponentIDs:  meta.ComponentIDs,
		Comments:      meta.Comments,
		MappingTables: len(meta.MappingTables),
		Bytes:         len(data),
	}
	rep.Fingerprint = util.HashUUID(rep.Metadata)
	if frame != nil && len(frame.Samples) > 0 {
		dr := &decodeReport{
			Min: slices.Min(frame.Samples),
			Max: slices.Max(frame.Samples),
			Md5: util.SamplesMd5(frame.Samples),
		}
		for _, w := range frame.Warnings {
			dr.Warnings = append(dr.Warnings, w.Error())
		}
		rep.Decoded = dr
	}
	return rep, nil
}

func printReport(w io.Writer, rep *infoReport) {
	fmt.Fprintln(w, "=== Frame ===")
	fmt.Fprintf(w, "Size: %dx%d\n", rep.Width, rep.Height)
	fmt.Fprintf(w, "BitsPerSample: %d\n", rep.Depth)
	fmt.Fprintf(w, "Components: %d %v\n", rep.Components, rep.ComponentIDs)
	fmt.Fprintf(w, "Interleave: %s\n", rep.Interleave)
	fmt.Fprintf(w, "Near: %d\n", rep.Near)
	if !rep.Preset.IsZero() {
		p := rep.Preset
		fmt.Fprintf(w, "Preset: MAXVAL=%d T1=%d T2=%d T3=%d RESET=%d\n", p.MaxVal, p.T1, p.T2, p.T3, p.Reset)
	}
	for _, c := range rep.Comments {
		fmt.Fprintf(w, "Comment: %q\n", c)
	}
	fmt.Fprintf(w, "MappingTables: %d\n", rep.MappingTables)
	fmt.Fprintf(w, "Bytes: %d\n", rep.Bytes)
	fmt.Fprintf(w, "Fingerprint: %s\n", rep.Fingerprint)
	if d := rep.Decoded; d != nil {
		fmt.Fprintln(w, "\n=== Decode ===")
		fmt.Fprintf(w, "Sample range: min=%d, max=%d\n", d.Min, d.Max)
		fmt.Fprintf(w, "MD5: %s\n", d.Md5)
		for _, warn := range d.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warn)
		}
	}
}
