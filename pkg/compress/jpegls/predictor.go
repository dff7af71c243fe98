package jpegls

// PredictMED implements Median Edge Detection predictor.
// Ra: Left
// Rb: Above
// Rc: Above-Left
func PredictMED(Ra, Rb, Rc int) int {
	if Rc >= max(Ra, Rb) {
		return min(Ra, Rb)
	}
	if Rc <= min(Ra, Rb) {
		return max(Ra, Rb)
	}
	return Ra + Rb - Rc
}

// ContextID combines three quantized gradients into a signed context
// number in [-364, 364]. Zero selects run mode.
func ContextID(q1, q2, q3 int) int {
	return (q1*9+q2)*9 + q3
}

// SplitContext folds a signed context id onto [0, 364] and returns the
// sign (-1 or 1) that was removed.
func SplitContext(qs int) (int, int) {
	if qs < 0 {
		return -qs, -1
	}
	return qs, 1
}

// neighborhood holds the causal template of the sample at x.
type neighborhood struct {
	Ra, Rb, Rc, Rd int
}

// gradients returns D1, D2, D3
func (n neighborhood) gradients() (int, int, int) {
	return n.Rd - n.Rb, n.Rb - n.Rc, n.Rc - n.Ra
}

// contextOf quantizes the gradients of n with t.
func (t *Traits) contextOf(n neighborhood) int {
	d1, d2, d3 := n.gradients()
	return ContextID(t.QuantizeGradient(d1), t.QuantizeGradient(d2), t.QuantizeGradient(d3))
}

// Clip clamps value to range [min, max]
func clip(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Abs returns absolute value
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sign returns -1 for negative n and 1 otherwise
func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
