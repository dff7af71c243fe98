package jpegls

import "fmt"

// Markers (ITU-T T.87 Table C.1 plus the JPEG markers a JPEG-LS stream may carry)
const (
	MarkerSOI   = 0xFFD8 // Start of Image
	MarkerEOI   = 0xFFD9 // End of Image
	MarkerSOS   = 0xFFDA // Start of Scan
	MarkerDNL   = 0xFFDC // Define Number of Lines
	MarkerDRI   = 0xFFDD // Define Restart Interval
	MarkerAPP0  = 0xFFE0
	MarkerAPP15 = 0xFFEF
	MarkerSOF55 = 0xFFF7 // Start of Frame (JPEG-LS)
	MarkerLSE   = 0xFFF8 // JPEG-LS Extension (Parameters)
	MarkerCOM   = 0xFFFE // Comment
)

// LSE ids (T.87 C.2.4.1)
const (
	lsePresetParams      = 1
	lseMappingTable      = 2
	lseMappingTableCont  = 3
	lseOversizeDimension = 4
)

// InterleaveMode is the ILV field of the scan header.
type InterleaveMode int

const (
	InterleaveNone   InterleaveMode = 0
	InterleaveLine   InterleaveMode = 1
	InterleaveSample InterleaveMode = 2
)

// String returns the interleave mode name
func (m InterleaveMode) String() string {
	switch m {
	case InterleaveNone:
		return "none"
	case InterleaveLine:
		return "line"
	case InterleaveSample:
		return "sample"
	default:
		return fmt.Sprintf("InterleaveMode(%d)", int(m))
	}
}

// ParseInterleaveMode maps a name (none|line|sample) to its mode.
func ParseInterleaveMode(s string) (InterleaveMode, error) {
	switch s {
	case "none", "":
		return InterleaveNone, nil
	case "line":
		return InterleaveLine, nil
	case "sample":
		return InterleaveSample, nil
	}
	return 0, validationErrorf("unknown interleave mode %q", s)
}

// FrameInfo describes the image carried by a frame. It is fixed once the
// frame header is written or parsed.
type FrameInfo struct {
	Width         int
	Height        int
	BitsPerSample int
	Components    int
}

// SampleCount returns Width*Height*Components.
func (fi FrameInfo) SampleCount() int {
	return fi.Width * fi.Height * fi.Components
}

// PresetParams are the preset coding parameters of an LSE id 1 segment.
// Zero fields select the default for the frame's MAXVAL and the scan's NEAR.
type PresetParams struct {
	MaxVal int
	T1     int
	T2     int
	T3     int
	Reset  int
}

// IsZero reports whether no parameter is set.
func (p PresetParams) IsZero() bool {
	return p == PresetParams{}
}

// MappingTable is an LSE id 2 table (with its id 3 continuations appended).
// Tables are carried through to the caller and never applied to samples.
type MappingTable struct {
	ID         int
	EntryBytes int
	Data       []byte
}

// ScanHeader holds the fields of one SOS segment.
type ScanHeader struct {
	ComponentIDs []int
	TableIDs     []int // mapping table selector per component
	Near         int   // Near-lossless parameter (0 = lossless)
	ILV          InterleaveMode
	PointXform   int
}
