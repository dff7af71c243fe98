package jpegls

// MapErrorValue maps a signed error to a non-negative integer for Golomb
// coding: 0,-1,1,-2,2,... becomes 0,1,2,3,4,...
func MapErrorValue(e int) int {
	if e >= 0 {
		return 2 * e
	}
	return -2*e - 1
}

// UnmapErrorValue reverses MapErrorValue.
func UnmapErrorValue(m int) int {
	if m&1 == 0 {
		return m >> 1
	}
	return -((m + 1) >> 1)
}

// WriteGolomb writes mapped value m with parameter k. A unary prefix that
// would reach limit-qbpp-1 is replaced by the escape code: limit-qbpp-1
// zeros, a one, and m-1 in qbpp bits (A.5.3).
func (bw *BitWriter) WriteGolomb(k, m, limit, qbpp int) error {
	if m < 0 || k < 0 || k > 32 {
		return rangeErrorf("golomb value %d with k=%d", m, k)
	}
	high := m >> k
	if high < limit-qbpp-1 {
		if err := bw.WriteZeros(high); err != nil {
			return err
		}
		if err := bw.WriteBit(1); err != nil {
			return err
		}
		return bw.WriteBits(uint32(m)&(1<<k-1), k)
	}
	if m-1 >= 1<<qbpp {
		return rangeErrorf("escaped golomb value %d exceeds %d bits", m, qbpp)
	}
	if err := bw.WriteZeros(limit - qbpp - 1); err != nil {
		return err
	}
	if err := bw.WriteBit(1); err != nil {
		return err
	}
	return bw.WriteBits(uint32(m-1), qbpp)
}

// ReadGolomb reads a Golomb-Rice code with parameter k, including the
// escape form written by WriteGolomb, and returns the mapped value.
func (br *BitReader) ReadGolomb(k, limit, qbpp int) (int, error) {
	high, err := br.ReadZeros(limit - qbpp - 1)
	if err != nil {
		return 0, err
	}
	if high >= limit-qbpp-1 {
		v, err := br.ReadBits(qbpp)
		if err != nil {
			return 0, err
		}
		return int(v) + 1, nil
	}
	if k == 0 {
		return high, nil
	}
	low, err := br.ReadBits(k)
	if err != nil {
		return 0, err
	}
	return high<<k | int(low), nil
}
