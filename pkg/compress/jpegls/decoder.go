package jpegls

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
)

// DefaultMaxSamples bounds the output buffer when DecodeOptions.MaxSamples
// is zero.
const DefaultMaxSamples = 1 << 28

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// AllowMissingEOI accepts a stream that ends after its last scan
	// without an EOI marker, recording ErrMissingEOI in Metadata.Warnings.
	AllowMissingEOI bool
	// MaxSamples rejects frames whose Width*Height*Components exceeds it.
	// Zero selects DefaultMaxSamples.
	MaxSamples int
}

// Metadata describes a decoded or inspected stream.
type Metadata struct {
	FrameInfo
	Interleave    InterleaveMode
	Near          int
	Preset        PresetParams
	ComponentIDs  []int
	MappingTables []MappingTable
	Comments      []string
	Warnings      []error
}

// Frame is a decoded image: Samples are laid out as (H,W,C).
type Frame struct {
	Metadata
	Samples []uint16
}

// Decoder decodes JPEG-LS data.
type Decoder struct {
	hr      headerReader
	opts    DecodeOptions
	meta    Metadata
	preset  PresetParams
	frame   bool
	scans   int
	decoded []bool
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader, opts *DecodeOptions) *Decoder {
	d := &Decoder{}
	if opts != nil {
		d.opts = *opts
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d.hr = headerReader{r: br}
	return d
}

// DecodeFrame decodes a complete JPEG-LS stream.
func DecodeFrame(ctx context.Context, data []byte, opts *DecodeOptions) (*Frame, error) {
	return NewDecoder(bytes.NewReader(data), opts).Decode(ctx)
}

// ReadHeader parses the stream up to its first scan header.
func ReadHeader(r io.Reader) (*Metadata, error) {
	d := NewDecoder(r, nil)
	sh, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	if err := d.checkScan(sh); err != nil {
		return nil, err
	}
	return &d.meta, nil
}

// Decode reads the whole stream. Headers are validated before the output
// buffer is allocated; no partial output is returned on error.
func (d *Decoder) Decode(ctx context.Context) (*Frame, error) {
	sh, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	if err := d.checkScan(sh); err != nil {
		return nil, err
	}
	limit := d.opts.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}
	if n := d.meta.SampleCount(); n > limit {
		return nil, formatErrorf("frame of %d samples exceeds limit %d", n, limit)
	}
	f := &Frame{Samples: make([]uint16, d.meta.SampleCount())}
	for {
		if err := d.decodeScan(ctx, sh, f.Samples); err != nil {
			return nil, err
		}
		next, done, err := d.readBetweenScans()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		if err := d.checkScan(next); err != nil {
			return nil, err
		}
		sh = next
	}
	for i, ok := range d.decoded {
		if !ok {
			return nil, formatErrorf("component %d has no scan", d.meta.ComponentIDs[i])
		}
	}
	f.Metadata = d.meta
	return f, nil
}

// readHeader consumes SOI and the segments before the first SOS.
func (d *Decoder) readHeader() (ScanHeader, error) {
	m, err := d.hr.readMarker()
	if err != nil {
		if errors.Is(err, ErrFormat) {
			return ScanHeader{}, formatErrorf("missing SOI marker")
		}
		return ScanHeader{}, truncated(err)
	}
	if m != MarkerSOI {
		return ScanHeader{}, formatErrorf("missing SOI marker, found %04X", m)
	}
	for {
		m, err := d.hr.readMarker()
		if err != nil {
			return ScanHeader{}, truncated(err)
		}
		switch m {
		case MarkerSOS:
			if !d.frame {
				return ScanHeader{}, formatErrorf("SOS before SOF")
			}
			p, err := d.hr.readPayload(m)
			if err != nil {
				return ScanHeader{}, err
			}
			return parseSOS(p)
		case MarkerEOI:
			return ScanHeader{}, formatErrorf("EOI before first scan")
		default:
			if err := d.readSegment(m); err != nil {
				return ScanHeader{}, err
			}
		}
	}
}

// readBetweenScans consumes segments after a scan until the next SOS or
// EOI. done is true at EOI (or a tolerated end of stream).
func (d *Decoder) readBetweenScans() (ScanHeader, bool, error) {
	for {
		m, err := d.hr.readMarker()
		if err != nil {
			if errors.Is(err, io.EOF) && d.opts.AllowMissingEOI {
				d.meta.Warnings = append(d.meta.Warnings, ErrMissingEOI)
				slog.Warn("jpegls stream ends without EOI")
				return ScanHeader{}, true, nil
			}
			if errors.Is(err, io.EOF) {
				return ScanHeader{}, false, ErrMissingEOI
			}
			return ScanHeader{}, false, truncated(err)
		}
		switch m {
		case MarkerEOI:
			return ScanHeader{}, true, nil
		case MarkerSOS:
			p, err := d.hr.readPayload(m)
			if err != nil {
				return ScanHeader{}, false, err
			}
			sh, err := parseSOS(p)
			return sh, false, err
		case MarkerSOF55:
			return ScanHeader{}, false, formatErrorf("second frame header")
		default:
			if err := d.readSegment(m); err != nil {
				return ScanHeader{}, false, err
			}
		}
	}
}

// readSegment handles every non-scan segment.
func (d *Decoder) readSegment(m int) error {
	switch {
	case m == MarkerSOF55:
		if d.frame {
			return formatErrorf("duplicate SOF")
		}
		p, err := d.hr.readPayload(m)
		if err != nil {
			return err
		}
		fi, ids, err := parseSOF(p)
		if err != nil {
			return err
		}
		d.frame = true
		d.meta.FrameInfo = fi
		d.meta.ComponentIDs = ids
		d.decoded = make([]bool, fi.Components)
		return nil
	case m == MarkerLSE:
		p, err := d.hr.readPayload(m)
		if err != nil {
			return err
		}
		return d.readLSE(p)
	case m == MarkerCOM:
		p, err := d.hr.readPayload(m)
		if err != nil {
			return err
		}
		d.meta.Comments = append(d.meta.Comments, string(p))
		return nil
	case m >= MarkerAPP0 && m <= MarkerAPP15:
		_, err := d.hr.readPayload(m)
		return err
	case m == MarkerDRI:
		p, err := d.hr.readPayload(m)
		if err != nil {
			return err
		}
		// Ri is 16 bits, or 24 and 32 bits in JPEG-LS
		if len(p) < 2 || len(p) > 4 {
			return formatErrorf("DRI segment of %d bytes", len(p))
		}
		for _, b := range p {
			if b != 0 {
				return formatErrorf("restart intervals are not supported")
			}
		}
		return nil
	case m == MarkerDNL:
		return formatErrorf("DNL marker is not supported")
	case m >= 0xFFC0 && m <= 0xFFCF:
		return formatErrorf("frame type %04X is not JPEG-LS", m)
	}
	return formatErrorf("unexpected marker %04X", m)
}

func (d *Decoder) readLSE(p []byte) error {
	if len(p) < 1 {
		return formatErrorf("empty LSE segment")
	}
	switch p[0] {
	case lsePresetParams:
		pp, err := parsePreset(p)
		if err != nil {
			return err
		}
		d.preset = pp
		if d.scans == 0 {
			d.meta.Preset = pp
		}
	case lseMappingTable:
		mt, err := parseMappingTable(p)
		if err != nil {
			return err
		}
		d.meta.MappingTables = append(d.meta.MappingTables, mt)
	case lseMappingTableCont:
		mt, err := parseMappingTable(p)
		if err != nil {
			return err
		}
		for i := range d.meta.MappingTables {
			if d.meta.MappingTables[i].ID == mt.ID {
				d.meta.MappingTables[i].Data = append(d.meta.MappingTables[i].Data, mt.Data...)
				return nil
			}
		}
		return formatErrorf("continuation of unknown mapping table %d", mt.ID)
	case lseOversizeDimension:
		if !d.frame {
			return formatErrorf("oversize dimensions before SOF")
		}
		h, w, err := parseOversize(p)
		if err != nil {
			return err
		}
		d.meta.Height, d.meta.Width = h, w
	default:
		return formatErrorf("unknown LSE id %d", p[0])
	}
	return nil
}

// checkScan validates sh against the frame. The first scan also completes
// the frame checks.
func (d *Decoder) checkScan(sh ScanHeader) error {
	fi := d.meta.FrameInfo
	if d.scans == 0 {
		if fi.BitsPerSample < 2 || fi.BitsPerSample > 16 {
			return validationErrorf("unsupported precision %d", fi.BitsPerSample)
		}
		if fi.Width <= 0 || fi.Height <= 0 || fi.Components <= 0 {
			return formatErrorf("frame dimensions %dx%dx%d", fi.Width, fi.Height, fi.Components)
		}
		// the uint16 buffer must stay addressable
		if fi.Width > math.MaxInt/2/fi.Height/fi.Components {
			return formatErrorf("frame dimensions %dx%dx%d overflow", fi.Width, fi.Height, fi.Components)
		}
		d.meta.Near = sh.Near
		d.meta.Interleave = sh.ILV
		if len(sh.ComponentIDs) == 1 {
			d.meta.Interleave = InterleaveNone
		}
	}
	if sh.ILV > InterleaveSample {
		return formatErrorf("interleave mode %d", sh.ILV)
	}
	if sh.ILV == InterleaveNone && len(sh.ComponentIDs) != 1 {
		return formatErrorf("non-interleaved scan with %d components", len(sh.ComponentIDs))
	}
	if len(sh.ComponentIDs) > fi.Components {
		return formatErrorf("scan has %d components, frame has %d", len(sh.ComponentIDs), fi.Components)
	}
	if sh.PointXform != 0 {
		return formatErrorf("point transform %d is not supported", sh.PointXform)
	}
	for _, id := range sh.ComponentIDs {
		c := d.componentIndex(id)
		if c < 0 {
			return formatErrorf("scan component %d not in frame", id)
		}
		if d.decoded[c] {
			return formatErrorf("component %d scanned twice", id)
		}
	}
	if _, err := NewTraits(fi.BitsPerSample, sh.Near, d.preset); err != nil {
		return formatErrorf("scan parameters: %v", err)
	}
	return nil
}

func (d *Decoder) componentIndex(id int) int {
	for i, v := range d.meta.ComponentIDs {
		if v == id {
			return i
		}
	}
	return -1
}

func (d *Decoder) decodeScan(ctx context.Context, sh ScanHeader, dst []uint16) error {
	t, err := NewTraits(d.meta.BitsPerSample, sh.Near, d.preset)
	if err != nil {
		return formatErrorf("scan parameters: %v", err)
	}
	comps := make([]int, len(sh.ComponentIDs))
	for i, id := range sh.ComponentIDs {
		comps[i] = d.componentIndex(id)
	}
	m := newScanModel(&t, d.meta.FrameInfo, comps, sh.ILV)
	br := NewBitReader(d.hr.r)
	st, err := driveScan(ctx, &scanDecoder{scanModel: m, br: br, dst: dst}, m.width, m.lines())
	if err != nil {
		return err
	}
	if err := br.EndScan(); err != nil {
		return err
	}
	for _, c := range comps {
		d.decoded[c] = true
	}
	d.scans++
	slog.DebugContext(ctx, "jpegls scan decoded",
		slog.Any("components", sh.ComponentIDs),
		slog.String("interleave", sh.ILV.String()),
		slog.Int("near", sh.Near),
		slog.Int("regular", st.Regular),
		slog.Int("run", st.Run),
		slog.Int("interruptions", st.Interruptions),
	)
	return nil
}

// scanDecoder is the decoding lineCoder.
type scanDecoder struct {
	*scanModel
	br  *BitReader
	dst []uint16
}

func (d *scanDecoder) startLine(line int) error {
	d.beginLine(line)
	return nil
}

func (d *scanDecoder) endLine(line int) error {
	cur := d.cur[d.g]
	for x := range d.width {
		for c := range d.vec {
			d.dst[d.frameIndex(line, x, c)] = uint16(cur[d.idx(x, c)])
		}
	}
	d.finishLine()
	return nil
}

func (d *scanDecoder) regular(x int) error {
	t := d.traits
	cur := d.cur[d.g]
	for c := range d.vec {
		px, q, s := d.regularPrediction(x, c)
		corr, k, err := d.cm.Get(q)
		if err != nil {
			return err
		}
		px = t.CorrectPrediction(px + s*corr)
		mapped, err := d.br.ReadGolomb(k, t.Limit, t.Qbpp)
		if err != nil {
			return err
		}
		errVal := UnmapErrorValue(mapped)
		if abs(errVal) > 65535 {
			return formatErrorf("error value %d", errVal)
		}
		errVal ^= d.cm.ErrorCorrection(q, k)
		d.cm.Update(q, errVal)
		cur[d.idx(x, c)] = t.Reconstruct(px, s*errVal)
	}
	return nil
}

func (d *scanDecoder) run(x int) (int, bool, error) {
	remain := d.width - x
	n, err := d.readRunLength(remain)
	if err != nil {
		return 0, false, err
	}
	d.fillRun(x, n)
	if n == remain {
		return n, false, nil
	}
	if err := d.interruption(x+n, x-1); err != nil {
		return 0, false, err
	}
	d.runs[d.g].decrement()
	return n + 1, true, nil
}

// readRunLength decodes a run of at most remain pixels (A.7.1.2).
func (d *scanDecoder) readRunLength(remain int) (int, error) {
	rs := &d.runs[d.g]
	n := 0
	for n < remain {
		bit, err := d.br.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			if j := J[rs.index]; j > 0 {
				v, err := d.br.ReadBits(j)
				if err != nil {
					return 0, err
				}
				n += int(v)
			}
			if n >= remain {
				return 0, formatErrorf("run of %d pixels exceeds %d remaining", n, remain)
			}
			return n, nil
		}
		count := min(rs.length(), remain-n)
		n += count
		if count == rs.length() {
			rs.increment()
		}
	}
	return n, nil
}

func (d *scanDecoder) interruption(x, left int) error {
	t := d.traits
	prev, cur := d.prev[d.g], d.cur[d.g]
	if d.vec == 1 {
		i := d.idx(x, 0)
		ra, rb := cur[d.idx(left, 0)], prev[i]
		if t.IsNear(ra, rb) {
			errVal, err := d.readInterruption(d.cm.Run(1))
			if err != nil {
				return err
			}
			cur[i] = t.Reconstruct(ra, errVal)
			return nil
		}
		errVal, err := d.readInterruption(d.cm.Run(0))
		if err != nil {
			return err
		}
		cur[i] = t.Reconstruct(rb, errVal*sign(rb-ra))
		return nil
	}
	for c := range d.vec {
		i := d.idx(x, c)
		ra, rb := cur[d.idx(left, c)], prev[i]
		errVal, err := d.readInterruption(d.cm.Run(0))
		if err != nil {
			return err
		}
		cur[i] = t.Reconstruct(rb, errVal*sign(rb-ra))
	}
	return nil
}

func (d *scanDecoder) readInterruption(rc *RunContext) (int, error) {
	k := rc.GolombK()
	mapped, err := d.br.ReadGolomb(k, d.interruptionLimit(), d.traits.Qbpp)
	if err != nil {
		return 0, err
	}
	errVal := rc.ErrorValue(mapped+rc.RIType, k)
	rc.Update(errVal, mapped, d.traits.Reset)
	return errVal, nil
}
