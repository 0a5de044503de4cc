package temporal

import (
	"math/rand"
	"sort"

	"tmregion/internal/fault"
)

// engine carries the state shared by the basic and extended memories.
// Basal presynaptic indices below numCells are internal cells; external
// cells are offset by numCells.
type engine struct {
	params     Params
	numColumns int
	numCells   int
	extended   bool
	rng        *rand.Rand

	basal  *connections
	apical *connections

	iteration    int
	activeCells  []int
	winnerCells  []int
	predictive   []int
	basalInput   []int
	basalGrowth  []int
	apicalInput  []int
	basalState   activity
	apicalState  activity
	chosenWinner map[int]int
}

type stepInput struct {
	columns      []int
	external     []int
	apical       []int
	formInternal bool
	learn        bool
}

func newEngine(p Params, extended bool) (*engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	numColumns := p.NumColumns()
	numCells := numColumns * p.CellsPerColumn
	return &engine{
		params:       p,
		numColumns:   numColumns,
		numCells:     numCells,
		extended:     extended,
		rng:          rand.New(rand.NewSource(p.Seed)),
		basal:        newConnections(numCells),
		apical:       newConnections(numCells),
		chosenWinner: make(map[int]int),
	}, nil
}

func (e *engine) compute(in stepInput) error {
	columns, err := normalizeIndices(in.columns, e.numColumns, "active column")
	if err != nil {
		return err
	}
	external, err := normalizeIndices(in.external, -1, "external cell")
	if err != nil {
		return err
	}
	apical, err := normalizeIndices(in.apical, -1, "apical cell")
	if err != nil {
		return err
	}

	prevActive := toSet(e.basalInput)
	prevGrowth := e.basalGrowth
	prevApical := e.apicalInput
	prevApicalSet := toSet(prevApical)

	activeByColumn := e.groupByColumn(e.basal, e.basalState.active)
	matchingByColumn := e.groupByColumn(e.basal, e.basalState.matching)
	apicalActiveCells := e.cellsOf(e.apical, e.apicalState.active)

	active := make([]int, 0, len(columns)*e.params.CellsPerColumn)
	winners := make([]int, 0, len(columns))
	activeColumns := make(map[int]struct{}, len(columns))
	learning := make([]*segment, 0)

	for _, col := range columns {
		activeColumns[col] = struct{}{}
		if segs := activeByColumn[col]; len(segs) > 0 {
			segs = e.selectApicallySupported(segs, apicalActiveCells)
			cells := e.cellsOf(e.basal, segs)
			for _, cell := range sortedKeys(cells) {
				active = append(active, cell)
				winners = append(winners, cell)
				if in.learn {
					e.learnApical(cell, prevApical, prevApicalSet)
				}
			}
			if in.learn {
				for _, id := range segs {
					if seg, ok := e.basal.segment(id); ok {
						learning = append(learning, seg)
					}
				}
			}
			continue
		}

		start := col * e.params.CellsPerColumn
		for cell := start; cell < start+e.params.CellsPerColumn; cell++ {
			active = append(active, cell)
		}
		winner, best := e.burstWinner(col, matchingByColumn[col])
		winners = append(winners, winner)
		if !in.learn {
			continue
		}
		switch {
		case best != nil:
			learning = append(learning, best)
		case len(prevGrowth) > 0:
			seg := e.basal.createSegment(winner, e.iteration, e.params.MaxSegmentsPerCell)
			e.basal.growSynapses(seg, prevGrowth, e.params.MaxNewSynapseCount, e.params.InitialPermanence, e.params.MaxSynapsesPerSegment, e.rng)
		}
		e.learnApical(winner, prevApical, prevApicalSet)
	}

	for _, seg := range learning {
		e.reinforce(seg, prevActive, prevGrowth)
	}
	if in.learn && e.params.PredictedSegmentDecrement > 0 {
		e.punishPredictedInactive(activeColumns, prevActive)
	}

	sort.Ints(active)
	sort.Ints(winners)
	e.activeCells = active
	e.winnerCells = winners
	e.iteration++

	e.basalInput = append(append([]int(nil), active...), e.offsetExternal(external)...)
	e.basalGrowth = e.offsetExternal(external)
	if !e.extended || in.formInternal {
		e.basalGrowth = append(append([]int(nil), winners...), e.basalGrowth...)
	}
	e.apicalInput = apical

	e.basalState = e.basal.computeActivity(toSet(e.basalInput), e.params.ConnectedPermanence, e.params.ActivationThreshold, e.params.MinThreshold)
	e.apicalState = e.apical.computeActivity(toSet(e.apicalInput), e.params.ConnectedPermanence, e.params.ActivationThreshold, e.params.MinThreshold)
	e.predictive = sortedKeys(e.cellsOf(e.basal, e.basalState.active))
	return nil
}

// reinforce adapts a learning segment toward the previous inputs, then tops
// it up to MaxNewSynapseCount active potential synapses.
func (e *engine) reinforce(seg *segment, prevActive map[int]struct{}, prevGrowth []int) {
	if _, ok := e.basal.segment(seg.id); !ok {
		return
	}
	seg.lastUsed = e.iteration
	potential := e.basalState.potential[seg.id]
	e.basal.adaptSegment(seg, prevActive, e.params.PermanenceIncrement, e.params.PermanenceDecrement)
	if _, ok := e.basal.segment(seg.id); !ok {
		return
	}
	e.basal.growSynapses(seg, prevGrowth, e.params.MaxNewSynapseCount-potential, e.params.InitialPermanence, e.params.MaxSynapsesPerSegment, e.rng)
}

func (e *engine) punishPredictedInactive(activeColumns map[int]struct{}, prevActive map[int]struct{}) {
	for _, id := range e.basalState.matching {
		seg, ok := e.basal.segment(id)
		if !ok {
			continue
		}
		if _, active := activeColumns[seg.cell/e.params.CellsPerColumn]; active {
			continue
		}
		e.basal.adaptSegment(seg, prevActive, -e.params.PredictedSegmentDecrement, 0)
	}
}

// burstWinner picks the learning cell of a bursting column: the cell of the
// best matching segment, else the pinned cell under LearnOnOneCell, else a
// random least-used cell.
func (e *engine) burstWinner(col int, matching []int) (int, *segment) {
	var best *segment
	bestPotential := -1
	for _, id := range matching {
		seg, ok := e.basal.segment(id)
		if !ok {
			continue
		}
		if p := e.basalState.potential[id]; p > bestPotential {
			best, bestPotential = seg, p
		}
	}

	var winner int
	switch {
	case best != nil:
		winner = best.cell
	default:
		if cell, ok := e.chosenWinner[col]; ok && e.params.LearnOnOneCell {
			winner = cell
		} else {
			winner = e.leastUsedCell(col)
		}
	}
	if e.params.LearnOnOneCell {
		e.chosenWinner[col] = winner
	}
	return winner, best
}

func (e *engine) leastUsedCell(col int) int {
	start := col * e.params.CellsPerColumn
	fewest := -1
	candidates := make([]int, 0, e.params.CellsPerColumn)
	for cell := start; cell < start+e.params.CellsPerColumn; cell++ {
		n := e.basal.numSegmentsOnCell(cell)
		switch {
		case fewest < 0 || n < fewest:
			fewest = n
			candidates = append(candidates[:0], cell)
		case n == fewest:
			candidates = append(candidates, cell)
		}
	}
	return candidates[e.rng.Intn(len(candidates))]
}

// selectApicallySupported keeps only segments on cells with apical support
// when any cell in the column has it.
func (e *engine) selectApicallySupported(segs []int, apicalCells map[int]struct{}) []int {
	if !e.extended || len(apicalCells) == 0 {
		return segs
	}
	supported := make([]int, 0, len(segs))
	for _, id := range segs {
		seg, ok := e.basal.segment(id)
		if !ok {
			continue
		}
		if _, ok := apicalCells[seg.cell]; ok {
			supported = append(supported, id)
		}
	}
	if len(supported) == 0 {
		return segs
	}
	return supported
}

func (e *engine) learnApical(cell int, prevApical []int, prevApicalSet map[int]struct{}) {
	if !e.extended || len(prevApical) == 0 {
		return
	}
	var best *segment
	bestPotential := -1
	for _, id := range e.apical.cellSegments[cell] {
		p, ok := e.apicalState.potential[id]
		if !ok || p <= bestPotential {
			continue
		}
		best, bestPotential = e.apical.segments[id], p
	}
	if best == nil {
		seg := e.apical.createSegment(cell, e.iteration, e.params.MaxSegmentsPerCell)
		e.apical.growSynapses(seg, prevApical, e.params.MaxNewSynapseCount, e.params.InitialPermanence, e.params.MaxSynapsesPerSegment, e.rng)
		return
	}
	best.lastUsed = e.iteration
	e.apical.adaptSegment(best, prevApicalSet, e.params.PermanenceIncrement, e.params.PermanenceDecrement)
	if _, ok := e.apical.segment(best.id); ok {
		e.apical.growSynapses(best, prevApical, e.params.MaxNewSynapseCount-bestPotential, e.params.InitialPermanence, e.params.MaxSynapsesPerSegment, e.rng)
	}
}

func (e *engine) reset() {
	e.activeCells = nil
	e.winnerCells = nil
	e.predictive = nil
	e.basalInput = nil
	e.basalGrowth = nil
	e.apicalInput = nil
	e.basalState = activity{}
	e.apicalState = activity{}
	e.chosenWinner = make(map[int]int)
}

func (e *engine) groupByColumn(c *connections, ids []int) map[int][]int {
	out := make(map[int][]int)
	for _, id := range ids {
		seg, ok := c.segment(id)
		if !ok {
			continue
		}
		col := seg.cell / e.params.CellsPerColumn
		out[col] = append(out[col], id)
	}
	return out
}

func (e *engine) cellsOf(c *connections, ids []int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if seg, ok := c.segment(id); ok {
			out[seg.cell] = struct{}{}
		}
	}
	return out
}

func (e *engine) offsetExternal(external []int) []int {
	if len(external) == 0 {
		return nil
	}
	out := make([]int, len(external))
	for i, idx := range external {
		out[i] = idx + e.numCells
	}
	return out
}

func (e *engine) numSegments() int {
	return e.basal.numSegments() + e.apical.numSegments()
}

func (e *engine) numSynapses() int {
	return e.basal.numSynapses() + e.apical.numSynapses()
}

// normalizeIndices sorts and de-duplicates indices, rejecting negatives and,
// when limit >= 0, values at or beyond limit.
func normalizeIndices(indices []int, limit int, what string) ([]int, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || (limit >= 0 && idx >= limit) {
			return nil, fault.Precondition("%s %d out of range", what, idx)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

func toSet(xs []int) map[int]struct{} {
	out := make(map[int]struct{}, len(xs))
	for _, x := range xs {
		out[x] = struct{}{}
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func copyInts(xs []int) []int {
	return append([]int(nil), xs...)
}
