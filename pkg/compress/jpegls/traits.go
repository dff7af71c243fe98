package jpegls

// Default threshold basis (T.87 Table C.3) and RESET
const (
	basicT1      = 3
	basicT2      = 7
	basicT3      = 21
	DefaultReset = 64
)

// Traits holds the coding parameters derived from MAXVAL, NEAR and the
// preset parameters of a scan (T.87 A.2.1).
type Traits struct {
	MaxVal int
	Near   int
	Range  int
	Qbpp   int // bits needed for a value in [0, Range)
	Bpp    int
	Limit  int
	Reset  int
	T1     int
	T2     int
	T3     int
}

// DefaultPreset computes the default coding parameters (T.87 C.2.4.1.1).
func DefaultPreset(maxVal, near int) PresetParams {
	p := PresetParams{MaxVal: maxVal, Reset: DefaultReset}
	if maxVal >= 128 {
		factor := (min(maxVal, 4095) + 128) / 256
		p.T1 = clampThreshold(factor*(basicT1-2)+2+3*near, near+1, maxVal)
		p.T2 = clampThreshold(factor*(basicT2-3)+3+5*near, p.T1, maxVal)
		p.T3 = clampThreshold(factor*(basicT3-4)+4+7*near, p.T2, maxVal)
		return p
	}
	factor := 256 / (maxVal + 1)
	p.T1 = clampThreshold(max(2, basicT1/factor+3*near), near+1, maxVal)
	p.T2 = clampThreshold(max(3, basicT2/factor+5*near), p.T1, maxVal)
	p.T3 = clampThreshold(max(4, basicT3/factor+7*near), p.T2, maxVal)
	return p
}

// clampThreshold falls back to lo when v leaves [lo, maxVal]
func clampThreshold(v, lo, maxVal int) int {
	if v > maxVal || v < lo {
		return lo
	}
	return v
}

// NewTraits resolves preset (zero fields take defaults) against bits per
// sample and near and derives the remaining parameters.
func NewTraits(bitsPerSample, near int, preset PresetParams) (Traits, error) {
	maxVal := preset.MaxVal
	if maxVal == 0 {
		maxVal = 1<<bitsPerSample - 1
	}
	if maxVal < 1 || maxVal > 1<<bitsPerSample-1 {
		return Traits{}, validationErrorf("MAXVAL %d outside [1,%d]", maxVal, 1<<bitsPerSample-1)
	}
	if near < 0 || near > min(255, maxVal/2) {
		return Traits{}, validationErrorf("NEAR %d outside [0,%d]", near, min(255, maxVal/2))
	}
	def := DefaultPreset(maxVal, near)
	t := Traits{
		MaxVal: maxVal,
		Near:   near,
		T1:     orDefault(preset.T1, def.T1),
		T2:     orDefault(preset.T2, def.T2),
		T3:     orDefault(preset.T3, def.T3),
		Reset:  orDefault(preset.Reset, def.Reset),
	}
	if t.T1 < near+1 || t.T1 > maxVal {
		return Traits{}, validationErrorf("T1 %d outside [%d,%d]", t.T1, near+1, maxVal)
	}
	if t.T2 < t.T1 || t.T2 > maxVal {
		return Traits{}, validationErrorf("T2 %d outside [%d,%d]", t.T2, t.T1, maxVal)
	}
	if t.T3 < t.T2 || t.T3 > maxVal {
		return Traits{}, validationErrorf("T3 %d outside [%d,%d]", t.T3, t.T2, maxVal)
	}
	if t.Reset < 3 || t.Reset > max(255, maxVal) {
		return Traits{}, validationErrorf("RESET %d outside [3,%d]", t.Reset, max(255, maxVal))
	}
	t.Range = (maxVal+2*near)/(2*near+1) + 1
	t.Qbpp = log2Ceil(t.Range)
	t.Bpp = max(2, log2Ceil(maxVal+1))
	t.Limit = 2 * (t.Bpp + max(8, t.Bpp))
	return t, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// log2Ceil returns the smallest n with 1<<n >= v
func log2Ceil(v int) int {
	n := 0
	for 1<<n < v {
		n++
	}
	return n
}

// QuantizeGradient calculates quantization region Q based on difference D.
func (t *Traits) QuantizeGradient(d int) int {
	switch {
	case d <= -t.T3:
		return -4
	case d <= -t.T2:
		return -3
	case d <= -t.T1:
		return -2
	case d < -t.Near:
		return -1
	case d <= t.Near:
		return 0
	case d < t.T1:
		return 1
	case d < t.T2:
		return 2
	case d < t.T3:
		return 3
	}
	return 4
}

// CorrectPrediction clamps a bias-corrected prediction to [0, MaxVal].
func (t *Traits) CorrectPrediction(px int) int {
	return clip(px, 0, t.MaxVal)
}

// quantizeError maps a prediction error onto the NEAR quantization grid (A.4.4).
func (t *Traits) quantizeError(e int) int {
	if t.Near == 0 {
		return e
	}
	if e > 0 {
		return (e + t.Near) / (2*t.Near + 1)
	}
	return -(t.Near - e) / (2*t.Near + 1)
}

// ModuloRange folds an error into [-RANGE/2, (RANGE+1)/2-1] (A.4.5).
func (t *Traits) ModuloRange(e int) int {
	if e < 0 {
		e += t.Range
	}
	if e >= (t.Range+1)/2 {
		e -= t.Range
	}
	return e
}

// ErrorValue quantizes and folds a raw prediction error.
func (t *Traits) ErrorValue(e int) int {
	return t.ModuloRange(t.quantizeError(e))
}

// Reconstruct returns the sample a decoder rebuilds from prediction px and
// folded error e; the encoder feeds the same value back as a neighbor.
func (t *Traits) Reconstruct(px, e int) int {
	v := px + e*(2*t.Near+1)
	if v < -t.Near {
		v += t.Range * (2*t.Near + 1)
	} else if v > t.MaxVal+t.Near {
		v -= t.Range * (2*t.Near + 1)
	}
	return t.CorrectPrediction(v)
}

// IsNear reports whether two samples are equal within NEAR.
func (t *Traits) IsNear(a, b int) bool {
	return abs(a-b) <= t.Near
}
