package jpegls

import (
	"context"
	"fmt"
)

// scanState is the position of the scan controller within a line.
type scanState int

const (
	stateLineStart scanState = iota
	stateRegular
	stateRun
	stateLineEnd
	stateScanEnd
)

func (s scanState) String() string {
	switch s {
	case stateLineStart:
		return "LineStart"
	case stateRegular:
		return "Regular"
	case stateRun:
		return "Run"
	case stateLineEnd:
		return "LineEnd"
	case stateScanEnd:
		return "ScanEnd"
	}
	return fmt.Sprintf("scanState(%d)", int(s))
}

// scanPos is the controller cursor: x is the next sample of the line.
type scanPos struct {
	x, width    int
	line, lines int
}

// next is the transition function of the scan controller. flat reports a
// zero context at x and is ignored once the line is exhausted.
func (s scanState) next(p scanPos, flat bool) scanState {
	switch s {
	case stateLineStart, stateRegular, stateRun:
		switch {
		case p.x >= p.width:
			return stateLineEnd
		case flat:
			return stateRun
		default:
			return stateRegular
		}
	case stateLineEnd:
		if p.line+1 < p.lines {
			return stateLineStart
		}
		return stateScanEnd
	}
	return stateScanEnd
}

// lineCoder is the per-direction half of a scan. The encoder and decoder
// implement it over the same scanModel.
type lineCoder interface {
	startLine(line int) error
	flat(x int) bool
	regular(x int) error
	// run codes a run starting at x plus its interruption sample when the
	// run stops before the end of the line.
	run(x int) (n int, interrupted bool, err error)
	endLine(line int) error
}

// scanStats counts how the samples of a scan were coded.
type scanStats struct {
	Regular       int // pixels coded in regular mode
	Run           int // pixels covered by runs
	Interruptions int
	Lines         int
}

// driveScan runs the state machine over lines lines of width pixels.
func driveScan(ctx context.Context, lc lineCoder, width, lines int) (scanStats, error) {
	var st scanStats
	state := stateLineStart
	line, x := 0, 0
	for state != stateScanEnd {
		switch state {
		case stateLineStart:
			if err := ctx.Err(); err != nil {
				return st, err
			}
			if err := lc.startLine(line); err != nil {
				return st, err
			}
			x = 0
		case stateRegular:
			if err := lc.regular(x); err != nil {
				return st, fmt.Errorf("regular sample x=%d line=%d: %w", x, line, err)
			}
			x++
			st.Regular++
		case stateRun:
			n, interrupted, err := lc.run(x)
			if err != nil {
				return st, fmt.Errorf("run x=%d line=%d: %w", x, line, err)
			}
			x += n
			if interrupted {
				st.Interruptions++
				n--
			}
			st.Run += n
		case stateLineEnd:
			if err := lc.endLine(line); err != nil {
				return st, err
			}
			st.Lines++
		}

		p := scanPos{x: x, width: width, line: line, lines: lines}
		flat := state != stateLineEnd && x < width && lc.flat(x)
		next := state.next(p, flat)
		if state == stateLineEnd {
			line++
		}
		state = next
	}
	return st, nil
}

// scanModel holds the state shared by both directions of a scan: traits,
// contexts, line buffers and run indices. A line belongs to one group: a
// component for line interleave, the pixel vector otherwise.
type scanModel struct {
	traits *Traits
	cm     *ContextModel
	info   FrameInfo
	width  int
	groups int
	vec    int
	comps  []int // frame component index for each scan component
	prev   [][]int
	cur    [][]int
	runs   []runState
	g      int // active group
}

func newScanModel(t *Traits, info FrameInfo, comps []int, ilv InterleaveMode) *scanModel {
	m := &scanModel{
		traits: t,
		cm:     NewContextModel(t),
		info:   info,
		width:  info.Width,
		groups: 1,
		vec:    1,
		comps:  comps,
	}
	switch {
	case len(comps) > 1 && ilv == InterleaveLine:
		m.groups = len(comps)
	case len(comps) > 1 && ilv == InterleaveSample:
		m.vec = len(comps)
	}
	size := (m.width + 2) * m.vec
	m.prev = make([][]int, m.groups)
	m.cur = make([][]int, m.groups)
	for g := range m.groups {
		m.prev[g] = make([]int, size)
		m.cur[g] = make([]int, size)
	}
	m.runs = make([]runState, m.groups)
	return m
}

// lines is the number of lines the controller visits.
func (m *scanModel) lines() int {
	return m.info.Height * m.groups
}

// idx addresses sample c of pixel x in a line buffer; x may be -1 or width.
func (m *scanModel) idx(x, c int) int {
	return (x+1)*m.vec + c
}

// frameIndex addresses sample c of pixel x of the current line in a
// pixel interleaved (H,W,C) buffer.
func (m *scanModel) frameIndex(line, x, c int) int {
	row := line / m.groups
	comp := m.comps[m.g*m.vec+c]
	return (row*m.width+x)*m.info.Components + comp
}

// beginLine selects the group of line and sets the edge samples.
func (m *scanModel) beginLine(line int) {
	m.g = line % m.groups
	prev, cur := m.prev[m.g], m.cur[m.g]
	for c := range m.vec {
		prev[m.idx(m.width, c)] = prev[m.idx(m.width-1, c)]
		cur[m.idx(-1, c)] = prev[m.idx(0, c)]
	}
}

// finishLine makes the current line the previous one of its group.
func (m *scanModel) finishLine() {
	m.prev[m.g], m.cur[m.g] = m.cur[m.g], m.prev[m.g]
}

func (m *scanModel) neighbors(x, c int) neighborhood {
	prev, cur := m.prev[m.g], m.cur[m.g]
	return neighborhood{
		Ra: cur[m.idx(x-1, c)],
		Rb: prev[m.idx(x, c)],
		Rc: prev[m.idx(x-1, c)],
		Rd: prev[m.idx(x+1, c)],
	}
}

func (m *scanModel) flat(x int) bool {
	for c := range m.vec {
		if m.traits.contextOf(m.neighbors(x, c)) != 0 {
			return false
		}
	}
	return true
}

// nearLeft reports whether pixel x matches the pixel left of start within NEAR.
func (m *scanModel) nearLeft(x, start int) bool {
	cur := m.cur[m.g]
	for c := range m.vec {
		if !m.traits.IsNear(cur[m.idx(x, c)], cur[m.idx(start-1, c)]) {
			return false
		}
	}
	return true
}

// fillRun sets n pixels from start to the pixel left of start.
func (m *scanModel) fillRun(start, n int) {
	cur := m.cur[m.g]
	for x := start; x < start+n; x++ {
		for c := range m.vec {
			cur[m.idx(x, c)] = cur[m.idx(start-1, c)]
		}
	}
}

// regularPrediction returns the bias corrected prediction, folded context
// and its sign for sample c of pixel x.
func (m *scanModel) regularPrediction(x, c int) (px, q, s int) {
	nb := m.neighbors(x, c)
	q, s = SplitContext(m.traits.contextOf(nb))
	px = PredictMED(nb.Ra, nb.Rb, nb.Rc)
	return px, q, s
}

// interruptionLimit is LIMIT reduced by the current run order (A.7.2.1).
func (m *scanModel) interruptionLimit() int {
	return m.traits.Limit - J[m.runs[m.g].index] - 1
}
