package jpegls

const (
	// RegularContexts is the number of regular mode contexts. Index 0 is only
	// coded for components of a sample interleaved pixel whose own gradients are flat.
	RegularContexts = 365

	maxK = 16
	minC = -128
	maxC = 127
)

// J is the run length order table (T.87 Table A.2).
var J = [32]int{
	0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// Context is the adaptive state of one regular mode context.
type Context struct {
	A int // Sum of absolute errors
	B int // Sum of errors (bias)
	C int // Prediction correction
	N int // Occurrences
}

// RunContext is the adaptive state of a run interruption context.
type RunContext struct {
	RIType int // 1 when Ra and Rb are equal within NEAR
	A      int
	N      int
	Nn     int // Negative error count
}

// ContextModel maintains the state for context modeling (gradients and bias).
// One model is owned by one scan.
type ContextModel struct {
	traits  *Traits
	regular [RegularContexts]Context
	run     [2]RunContext
}

// NewContextModel initializes all contexts (A.2.1).
func NewContextModel(t *Traits) *ContextModel {
	cm := &ContextModel{traits: t}
	aInit := max(2, (t.Range+32)/64)
	for i := range cm.regular {
		cm.regular[i] = Context{A: aInit, N: 1}
	}
	cm.run[0] = RunContext{RIType: 0, A: aInit, N: 1}
	cm.run[1] = RunContext{RIType: 1, A: aInit, N: 1}
	return cm
}

// Get returns the prediction correction C[Q] and the Golomb parameter k for Q.
func (cm *ContextModel) Get(q int) (int, int, error) {
	if q < 0 || q >= RegularContexts {
		return 0, 0, rangeErrorf("context %d", q)
	}
	ctx := &cm.regular[q]
	return ctx.C, ctx.golombK(), nil
}

// golombK finds the smallest k with N<<k >= A (A.10).
func (ctx *Context) golombK() int {
	k := 0
	for k < maxK && ctx.N<<k < ctx.A {
		k++
	}
	return k
}

// ErrorCorrection returns the value XORed onto the error before mapping
// when k is zero in lossless coding (A.5.2).
func (cm *ContextModel) ErrorCorrection(q, k int) int {
	if k != 0 || cm.traits.Near != 0 {
		return 0
	}
	ctx := &cm.regular[q]
	if 2*ctx.B+ctx.N-1 < 0 {
		return -1
	}
	return 0
}

// Update updates context Q with the folded error value (A.12, A.13).
func (cm *ContextModel) Update(q, errVal int) {
	ctx := &cm.regular[q]
	near := cm.traits.Near
	ctx.A += abs(errVal)
	ctx.B += errVal * (2*near + 1)
	if ctx.N == cm.traits.Reset {
		ctx.A >>= 1
		ctx.B >>= 1
		ctx.N >>= 1
	}
	ctx.N++

	if ctx.B+ctx.N <= 0 {
		ctx.B += ctx.N
		if ctx.B <= -ctx.N {
			ctx.B = -ctx.N + 1
		}
		if ctx.C > minC {
			ctx.C--
		}
	} else if ctx.B > 0 {
		ctx.B -= ctx.N
		if ctx.B > 0 {
			ctx.B = 0
		}
		if ctx.C < maxC {
			ctx.C++
		}
	}
}

// Run returns the run interruption context for type ri.
func (cm *ContextModel) Run(ri int) *RunContext {
	return &cm.run[ri]
}

// GolombK computes k for the interruption sample (A.20 with TEMP).
func (rc *RunContext) GolombK() int {
	temp := rc.A + (rc.N>>1)*rc.RIType
	k := 0
	for n := rc.N; n < temp && k < 32; n <<= 1 {
		k++
	}
	return k
}

// ComputeMap returns the map bit for errVal (A.21).
func (rc *RunContext) ComputeMap(errVal, k int) bool {
	switch {
	case k == 0 && errVal > 0 && 2*rc.Nn < rc.N:
		return true
	case errVal < 0 && 2*rc.Nn >= rc.N:
		return true
	case errVal < 0 && k != 0:
		return true
	}
	return false
}

// ErrorValue recovers the error from temp = EMErrval + RItype (decoder side).
func (rc *RunContext) ErrorValue(temp, k int) int {
	mapBit := temp & 1
	errAbs := (temp + mapBit) / 2
	if (k != 0 || 2*rc.Nn >= rc.N) == (mapBit != 0) {
		return -errAbs
	}
	return errAbs
}

// Update updates the interruption context (A.23).
func (rc *RunContext) Update(errVal, mapped, reset int) {
	if errVal < 0 {
		rc.Nn++
	}
	rc.A += (mapped + 1 - rc.RIType) >> 1
	if rc.N == reset {
		rc.A >>= 1
		rc.N >>= 1
		rc.Nn >>= 1
	}
	rc.N++
}

// runState is the RUNindex bookkeeping of one component.
type runState struct {
	index int
}

// length returns the current run segment length 2^J[RUNindex]
func (rs *runState) length() int {
	return 1 << J[rs.index]
}

func (rs *runState) increment() {
	if rs.index < 31 {
		rs.index++
	}
}

func (rs *runState) decrement() {
	if rs.index > 0 {
		rs.index--
	}
}
