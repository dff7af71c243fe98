package jpegls

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

func writeMarker(w *bufio.Writer, marker int) error {
	if err := w.WriteByte(0xFF); err != nil {
		return err
	}
	return w.WriteByte(byte(marker & 0xFF))
}

// writeSegment writes marker, the 2-byte length (payload + 2) and payload.
func writeSegment(w *bufio.Writer, marker int, payload []byte) error {
	if len(payload)+2 > 0xFFFF {
		return validationErrorf("segment %04X payload of %d bytes too long", marker, len(payload))
	}
	if err := writeMarker(w, marker); err != nil {
		return err
	}
	if _, err := w.Write(binary.BigEndian.AppendUint16(nil, uint16(len(payload)+2))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// writeSOF writes the frame header. Dimensions above 65535 are written as
// zero and carried by a following LSE id 4 segment.
func writeSOF(w *bufio.Writer, fi FrameInfo) error {
	oversize := fi.Width > 0xFFFF || fi.Height > 0xFFFF
	h, wd := fi.Height, fi.Width
	if oversize {
		h, wd = 0, 0
	}
	p := []byte{byte(fi.BitsPerSample)}
	p = binary.BigEndian.AppendUint16(p, uint16(h))
	p = binary.BigEndian.AppendUint16(p, uint16(wd))
	p = append(p, byte(fi.Components))
	for i := range fi.Components {
		p = append(p, byte(i+1), 0x11, 0x00) // ID, H=1 V=1, Tq
	}
	if err := writeSegment(w, MarkerSOF55, p); err != nil {
		return err
	}
	if !oversize {
		return nil
	}
	p = []byte{lseOversizeDimension, 4}
	p = binary.BigEndian.AppendUint32(p, uint32(fi.Height))
	p = binary.BigEndian.AppendUint32(p, uint32(fi.Width))
	return writeSegment(w, MarkerLSE, p)
}

func writePreset(w *bufio.Writer, pp PresetParams) error {
	p := []byte{lsePresetParams}
	for _, v := range []int{pp.MaxVal, pp.T1, pp.T2, pp.T3, pp.Reset} {
		p = binary.BigEndian.AppendUint16(p, uint16(v))
	}
	return writeSegment(w, MarkerLSE, p)
}

func writeSOS(w *bufio.Writer, sh ScanHeader) error {
	p := []byte{byte(len(sh.ComponentIDs))}
	for i, id := range sh.ComponentIDs {
		p = append(p, byte(id), byte(sh.TableIDs[i]))
	}
	p = append(p, byte(sh.Near), byte(sh.ILV), byte(sh.PointXform))
	return writeSegment(w, MarkerSOS, p)
}

// headerReader parses marker segments from a buffered stream.
type headerReader struct {
	r *bufio.Reader
}

// readMarker reads the next marker, skipping fill bytes.
func (hr *headerReader) readMarker() (int, error) {
	b, err := hr.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, formatErrorf("expected marker, got %02X", b)
	}
	for b == 0xFF {
		if b, err = hr.r.ReadByte(); err != nil {
			return 0, truncated(err)
		}
	}
	if b == 0x00 {
		return 0, formatErrorf("stuffed byte where a marker was expected")
	}
	return 0xFF00 | int(b), nil
}

// readPayload reads a length-prefixed segment body.
func (hr *headerReader) readPayload(marker int) ([]byte, error) {
	var l [2]byte
	if _, err := io.ReadFull(hr.r, l[:]); err != nil {
		return nil, truncated(err)
	}
	n := int(binary.BigEndian.Uint16(l[:]))
	if n < 2 {
		return nil, formatErrorf("segment %04X length %d", marker, n)
	}
	p := make([]byte, n-2)
	if _, err := io.ReadFull(hr.r, p); err != nil {
		return nil, truncated(err)
	}
	return p, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return formatErrorf("truncated stream")
	}
	return err
}

func parseSOF(p []byte) (FrameInfo, []int, error) {
	if len(p) < 6 {
		return FrameInfo{}, nil, formatErrorf("SOF segment of %d bytes", len(p))
	}
	fi := FrameInfo{
		BitsPerSample: int(p[0]),
		Height:        int(binary.BigEndian.Uint16(p[1:])),
		Width:         int(binary.BigEndian.Uint16(p[3:])),
		Components:    int(p[5]),
	}
	if fi.Components < 1 {
		return fi, nil, formatErrorf("frame declares no components")
	}
	if len(p) != 6+3*fi.Components {
		return fi, nil, formatErrorf("SOF segment of %d bytes for %d components", len(p), fi.Components)
	}
	ids := make([]int, fi.Components)
	for i := range ids {
		ids[i] = int(p[6+3*i])
		for _, prior := range ids[:i] {
			if prior == ids[i] {
				return fi, nil, formatErrorf("duplicate component id %d", ids[i])
			}
		}
	}
	return fi, ids, nil
}

func parseSOS(p []byte) (ScanHeader, error) {
	if len(p) < 1 {
		return ScanHeader{}, formatErrorf("empty SOS segment")
	}
	ns := int(p[0])
	if ns < 1 || ns > 4 || len(p) != 4+2*ns {
		return ScanHeader{}, formatErrorf("SOS segment of %d bytes for %d components", len(p), ns)
	}
	sh := ScanHeader{}
	for i := range ns {
		sh.ComponentIDs = append(sh.ComponentIDs, int(p[1+2*i]))
		sh.TableIDs = append(sh.TableIDs, int(p[2+2*i]))
	}
	tail := p[1+2*ns:]
	sh.Near = int(tail[0])
	sh.ILV = InterleaveMode(tail[1])
	sh.PointXform = int(tail[2])
	return sh, nil
}

func parsePreset(p []byte) (PresetParams, error) {
	if len(p) != 11 {
		return PresetParams{}, formatErrorf("preset parameters segment of %d bytes", len(p))
	}
	u := func(i int) int { return int(binary.BigEndian.Uint16(p[1+2*i:])) }
	return PresetParams{MaxVal: u(0), T1: u(1), T2: u(2), T3: u(3), Reset: u(4)}, nil
}

// parseOversize returns height and width of an LSE id 4 segment.
func parseOversize(p []byte) (int, int, error) {
	if len(p) < 2 {
		return 0, 0, formatErrorf("oversize dimension segment of %d bytes", len(p))
	}
	wxy := int(p[1])
	if wxy < 2 || wxy > 4 || len(p) != 2+2*wxy {
		return 0, 0, formatErrorf("oversize dimension segment with Wxy=%d", wxy)
	}
	read := func(b []byte) int {
		v := 0
		for _, c := range b {
			v = v<<8 | int(c)
		}
		return v
	}
	return read(p[2 : 2+wxy]), read(p[2+wxy:]), nil
}

// parseMappingTable decodes an LSE id 2 or 3 segment.
func parseMappingTable(p []byte) (MappingTable, error) {
	if len(p) < 3 {
		return MappingTable{}, formatErrorf("mapping table segment of %d bytes", len(p))
	}
	mt := MappingTable{ID: int(p[1]), EntryBytes: int(p[2]), Data: append([]byte(nil), p[3:]...)}
	if mt.ID == 0 || mt.EntryBytes < 1 || mt.EntryBytes > 255 {
		return mt, formatErrorf("mapping table id %d with %d byte entries", mt.ID, mt.EntryBytes)
	}
	return mt, nil
}
