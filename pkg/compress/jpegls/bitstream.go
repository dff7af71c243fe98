package jpegls

import (
	"bufio"
	"errors"
	"io"
)

// BitReader reads MSB-first entropy coded bits from a scan, removing the
// JPEG-LS stuffing (a zero bit after every 0xFF byte). It stops at the
// first marker and never consumes it.
type BitReader struct {
	r      *bufio.Reader
	bits   uint64
	nBits  int
	ffRead bool // the last data byte was 0xFF
	marker bool // positioned on a marker
	eof    bool
}

// NewBitReader creates a new BitReader.
func NewBitReader(r io.Reader) *BitReader {
	var br *bufio.Reader
	if b, ok := r.(*bufio.Reader); ok {
		br = b
	} else {
		br = bufio.NewReader(r)
	}
	return &BitReader{r: br}
}

// fill tops the cache up to at least 57 bits or until a marker/EOF.
func (br *BitReader) fill() {
	for br.nBits <= 56 && !br.marker && !br.eof {
		p, err := br.r.Peek(1)
		if err != nil {
			br.eof = true
			return
		}
		if p[0] == 0xFF {
			p, err = br.r.Peek(2)
			if err != nil {
				// a trailing lone 0xFF can only be a cut marker
				br.eof = true
				return
			}
			if p[1]&0x80 != 0 {
				br.marker = true
				return
			}
		}
		b, _ := br.r.ReadByte()
		if br.ffRead {
			br.bits = br.bits<<7 | uint64(b&0x7F)
			br.nBits += 7
		} else {
			br.bits = br.bits<<8 | uint64(b)
			br.nBits += 8
		}
		br.ffRead = b == 0xFF
	}
}

func (br *BitReader) need(n int) error {
	if br.nBits >= n {
		return nil
	}
	br.fill()
	if br.nBits >= n {
		return nil
	}
	if br.marker {
		return formatErrorf("marker encountered inside scan data")
	}
	return formatErrorf("truncated scan data")
}

// ReadBits reads n bits (up to 32).
func (br *BitReader) ReadBits(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := br.need(n); err != nil {
		return 0, err
	}
	br.nBits -= n
	return uint32(br.bits>>br.nBits) & (1<<n - 1), nil
}

// ReadBit reads a single bit.
func (br *BitReader) ReadBit() (uint32, error) {
	return br.ReadBits(1)
}

// ReadZeros counts zero bits up to and including the terminating one bit.
// More than maxZeros zeros is a format error.
func (br *BitReader) ReadZeros(maxZeros int) (int, error) {
	n := 0
	for {
		if err := br.need(1); err != nil {
			return 0, err
		}
		br.nBits--
		if (br.bits>>br.nBits)&1 == 1 {
			return n, nil
		}
		n++
		if n > maxZeros {
			return 0, formatErrorf("unary prefix exceeds %d bits", maxZeros)
		}
	}
}

// EndScan drops the padding bits of the scan and leaves the underlying
// reader positioned on the marker that ends it, or at the end of the
// stream when the marker is missing.
func (br *BitReader) EndScan() error {
	br.bits, br.nBits = 0, 0
	for {
		p, err := br.r.Peek(2)
		if len(p) < 2 {
			if errors.Is(err, io.EOF) {
				br.eof = true
				_, err = br.r.Discard(len(p))
				return err
			}
			return err
		}
		if p[0] == 0xFF && p[1]&0x80 != 0 {
			br.marker = true
			return nil
		}
		if _, err := br.r.Discard(1); err != nil {
			return err
		}
	}
}

// BitWriter handles writing bits to an underlying io.Writer.
type BitWriter struct {
	w       *bufio.Writer
	bits    uint64
	nBits   int
	ffWrote bool // the last byte written was 0xFF
	written int64
}

// NewBitWriter creates a new BitWriter.
func NewBitWriter(w io.Writer) *BitWriter {
	var bw *bufio.Writer
	if b, ok := w.(*bufio.Writer); ok {
		bw = b
	} else {
		bw = bufio.NewWriter(w)
	}
	return &BitWriter{w: bw}
}

// WriteBits writes the low n bits (up to 32) of val, MSB first.
func (bw *BitWriter) WriteBits(val uint32, n int) error {
	if n == 0 {
		return nil
	}
	bw.bits = bw.bits<<n | uint64(val)&(1<<n-1)
	bw.nBits += n
	return bw.drain()
}

// WriteBit writes a single bit.
func (bw *BitWriter) WriteBit(bit uint32) error {
	return bw.WriteBits(bit, 1)
}

// WriteZeros writes n zero bits.
func (bw *BitWriter) WriteZeros(n int) error {
	for n > 0 {
		c := min(n, 32)
		if err := bw.WriteBits(0, c); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

// drain emits whole bytes; a byte following 0xFF carries only 7 bits.
func (bw *BitWriter) drain() error {
	for {
		width := 8
		if bw.ffWrote {
			width = 7
		}
		if bw.nBits < width {
			return nil
		}
		bw.nBits -= width
		b := byte(bw.bits>>bw.nBits) & byte(1<<width-1)
		if err := bw.w.WriteByte(b); err != nil {
			return err
		}
		bw.written++
		bw.ffWrote = b == 0xFF
	}
}

// EndScan pads the last byte with zero bits and appends a zero byte after
// a trailing 0xFF so the following marker is unambiguous.
func (bw *BitWriter) EndScan() error {
	width := 8
	if bw.ffWrote {
		width = 7
	}
	if bw.nBits > 0 {
		if err := bw.WriteBits(0, width-bw.nBits); err != nil {
			return err
		}
	}
	if bw.ffWrote {
		if err := bw.WriteBits(0, 7); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes remaining bits and flushes the writer.
func (bw *BitWriter) Flush() error {
	if err := bw.EndScan(); err != nil {
		return err
	}
	return bw.w.Flush()
}

// Written returns the number of scan bytes emitted so far.
func (bw *BitWriter) Written() int64 {
	return bw.written
}

// withBitWriter runs fn with a writer whose pending bits are emitted on
// every return path.
func withBitWriter(w *bufio.Writer, fn func(bw *BitWriter) error) (n int64, err error) {
	bw := NewBitWriter(w)
	defer func() {
		err = errors.Join(err, bw.EndScan())
		n = bw.written
	}()
	return 0, fn(bw)
}
