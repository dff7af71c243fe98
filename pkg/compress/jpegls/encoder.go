package jpegls

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
)

const maxDimension = 1<<31 - 1

// Options for encoding
type Options struct {
	Near       int            // Near-lossless parameter (0 = lossless)
	Interleave InterleaveMode // ignored for single component frames
	Preset     PresetParams   // written as an LSE segment when non-zero
	Comment    string         // written as a COM segment when non-empty
}

// DefaultOptions returns lossless, non-interleaved options.
func DefaultOptions() *Options {
	return &Options{Near: 0, Interleave: InterleaveNone}
}

// EncodeFrame compresses samples laid out as (H,W,C) into a JPEG-LS stream.
// All parameters are validated before anything is written.
func EncodeFrame(ctx context.Context, samples []uint16, info FrameInfo, opts *Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(ctx, &buf, samples, info, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encoder encodes JPEG-LS data.
type Encoder struct {
	w      *bufio.Writer
	info   FrameInfo
	opts   Options
	traits Traits
}

func encodeTo(ctx context.Context, w io.Writer, samples []uint16, info FrameInfo, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	e := &Encoder{w: bufio.NewWriter(w), info: info, opts: *opts}
	if err := e.validate(samples); err != nil {
		return err
	}
	if err := e.encode(ctx, samples); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e *Encoder) validate(samples []uint16) error {
	fi := e.info
	if fi.Width <= 0 || fi.Height <= 0 || fi.Width > maxDimension || fi.Height > maxDimension {
		return validationErrorf("invalid dimensions %dx%d", fi.Width, fi.Height)
	}
	if fi.BitsPerSample < 2 || fi.BitsPerSample > 16 {
		return validationErrorf("unsupported bit depth %d (must be 2-16)", fi.BitsPerSample)
	}
	if fi.Components < 1 || fi.Components > 255 {
		return validationErrorf("invalid component count %d", fi.Components)
	}
	if len(samples) != fi.SampleCount() {
		return validationErrorf("buffer holds %d samples, frame needs %d", len(samples), fi.SampleCount())
	}
	switch e.opts.Interleave {
	case InterleaveNone, InterleaveLine:
	case InterleaveSample:
		if fi.Components > 4 {
			return validationErrorf("sample interleave supports at most 4 components, got %d", fi.Components)
		}
	default:
		return validationErrorf("invalid interleave mode %d", e.opts.Interleave)
	}
	if fi.Components == 1 {
		e.opts.Interleave = InterleaveNone
	}
	t, err := NewTraits(fi.BitsPerSample, e.opts.Near, e.opts.Preset)
	if err != nil {
		return err
	}
	e.traits = t
	for i, s := range samples {
		if int(s) > t.MaxVal {
			return validationErrorf("sample %d value %d exceeds MAXVAL %d", i, s, t.MaxVal)
		}
	}
	return nil
}

func (e *Encoder) encode(ctx context.Context, samples []uint16) error {
	if err := writeMarker(e.w, MarkerSOI); err != nil {
		return err
	}
	if err := writeSOF(e.w, e.info); err != nil {
		return err
	}
	if !e.opts.Preset.IsZero() {
		if err := writePreset(e.w, PresetParams{
			MaxVal: e.traits.MaxVal,
			T1:     e.traits.T1,
			T2:     e.traits.T2,
			T3:     e.traits.T3,
			Reset:  e.traits.Reset,
		}); err != nil {
			return err
		}
	}
	// COM follows the frame header so the stream still opens with SOI SOF55
	if e.opts.Comment != "" {
		if err := writeSegment(e.w, MarkerCOM, []byte(e.opts.Comment)); err != nil {
			return err
		}
	}

	var scans [][]int
	if e.opts.Interleave == InterleaveNone {
		for c := range e.info.Components {
			scans = append(scans, []int{c})
		}
	} else {
		// a scan holds at most four components
		for first := 0; first < e.info.Components; first += 4 {
			var comps []int
			for c := first; c < min(first+4, e.info.Components); c++ {
				comps = append(comps, c)
			}
			scans = append(scans, comps)
		}
	}

	for _, comps := range scans {
		sh := ScanHeader{Near: e.opts.Near, ILV: e.opts.Interleave}
		for _, c := range comps {
			sh.ComponentIDs = append(sh.ComponentIDs, c+1)
			sh.TableIDs = append(sh.TableIDs, 0)
		}
		if err := writeSOS(e.w, sh); err != nil {
			return err
		}
		if err := e.encodeScan(ctx, samples, comps); err != nil {
			return err
		}
	}
	return writeMarker(e.w, MarkerEOI)
}

func (e *Encoder) encodeScan(ctx context.Context, samples []uint16, comps []int) error {
	m := newScanModel(&e.traits, e.info, comps, e.opts.Interleave)
	var st scanStats
	n, err := withBitWriter(e.w, func(bw *BitWriter) error {
		var err error
		st, err = driveScan(ctx, &scanEncoder{scanModel: m, bw: bw, src: samples}, m.width, m.lines())
		return err
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "jpegls scan encoded",
		slog.Any("components", comps),
		slog.String("interleave", e.opts.Interleave.String()),
		slog.Int("near", e.traits.Near),
		slog.Int("regular", st.Regular),
		slog.Int("run", st.Run),
		slog.Int("interruptions", st.Interruptions),
		slog.Int64("bytes", n),
	)
	return nil
}

// scanEncoder is the encoding lineCoder.
type scanEncoder struct {
	*scanModel
	bw  *BitWriter
	src []uint16
}

func (e *scanEncoder) startLine(line int) error {
	e.beginLine(line)
	cur := e.cur[e.g]
	for x := range e.width {
		for c := range e.vec {
			cur[e.idx(x, c)] = int(e.src[e.frameIndex(line, x, c)])
		}
	}
	return nil
}

func (e *scanEncoder) endLine(int) error {
	e.finishLine()
	return nil
}

func (e *scanEncoder) regular(x int) error {
	t := e.traits
	cur := e.cur[e.g]
	for c := range e.vec {
		px, q, s := e.regularPrediction(x, c)
		corr, k, err := e.cm.Get(q)
		if err != nil {
			return err
		}
		px = t.CorrectPrediction(px + s*corr)
		i := e.idx(x, c)
		errVal := t.ErrorValue(s * (cur[i] - px))
		mapped := MapErrorValue(e.cm.ErrorCorrection(q, k) ^ errVal)
		if err := e.bw.WriteGolomb(k, mapped, t.Limit, t.Qbpp); err != nil {
			return err
		}
		e.cm.Update(q, errVal)
		cur[i] = t.Reconstruct(px, s*errVal)
	}
	return nil
}

func (e *scanEncoder) run(x int) (int, bool, error) {
	remain := e.width - x
	n := 0
	for n < remain && e.nearLeft(x+n, x) {
		n++
	}
	e.fillRun(x, n)
	if err := e.writeRunLength(n, n == remain); err != nil {
		return 0, false, err
	}
	if n == remain {
		return n, false, nil
	}
	if err := e.interruption(x+n, x-1); err != nil {
		return 0, false, err
	}
	e.runs[e.g].decrement()
	return n + 1, true, nil
}

// writeRunLength codes a run of n pixels (A.7.1.2).
func (e *scanEncoder) writeRunLength(n int, endOfLine bool) error {
	rs := &e.runs[e.g]
	for n >= rs.length() {
		if err := e.bw.WriteBit(1); err != nil {
			return err
		}
		n -= rs.length()
		rs.increment()
	}
	if endOfLine {
		if n != 0 {
			return e.bw.WriteBit(1)
		}
		return nil
	}
	// leading zero followed by the remainder in J[RUNindex] bits
	return e.bw.WriteBits(uint32(n), J[rs.index]+1)
}

// interruption codes the sample at x that ended a run whose pixels equal
// the sample at left (A.7.2).
func (e *scanEncoder) interruption(x, left int) error {
	t := e.traits
	prev, cur := e.prev[e.g], e.cur[e.g]
	if e.vec == 1 {
		i := e.idx(x, 0)
		ra, rb := cur[e.idx(left, 0)], prev[i]
		if t.IsNear(ra, rb) {
			errVal := t.ErrorValue(cur[i] - ra)
			if err := e.writeInterruption(e.cm.Run(1), errVal); err != nil {
				return err
			}
			cur[i] = t.Reconstruct(ra, errVal)
			return nil
		}
		s := sign(rb - ra)
		errVal := t.ErrorValue(s * (cur[i] - rb))
		if err := e.writeInterruption(e.cm.Run(0), errVal); err != nil {
			return err
		}
		cur[i] = t.Reconstruct(rb, errVal*s)
		return nil
	}
	for c := range e.vec {
		i := e.idx(x, c)
		ra, rb := cur[e.idx(left, c)], prev[i]
		s := sign(rb - ra)
		errVal := t.ErrorValue(s * (cur[i] - rb))
		if err := e.writeInterruption(e.cm.Run(0), errVal); err != nil {
			return err
		}
		cur[i] = t.Reconstruct(rb, errVal*s)
	}
	return nil
}

func (e *scanEncoder) writeInterruption(rc *RunContext, errVal int) error {
	k := rc.GolombK()
	mapped := 2*abs(errVal) - rc.RIType
	if rc.ComputeMap(errVal, k) {
		mapped--
	}
	if err := e.bw.WriteGolomb(k, mapped, e.interruptionLimit(), e.traits.Qbpp); err != nil {
		return err
	}
	rc.Update(errVal, mapped, e.traits.Reset)
	return nil
}
