package temporal

import (
	"math/rand"
	"sort"
)

// permanences at or below this are treated as zero and the synapse removed.
const epsilon = 0.00001

type synapse struct {
	presynaptic int
	permanence  float64
}

type segment struct {
	id       int
	cell     int
	synapses []synapse
	lastUsed int
}

type connections struct {
	segments     map[int]*segment
	cellSegments [][]int
	nextID       int
}

func newConnections(numCells int) *connections {
	return &connections{
		segments:     make(map[int]*segment),
		cellSegments: make([][]int, numCells),
	}
}

func (c *connections) segment(id int) (*segment, bool) {
	seg, ok := c.segments[id]
	return seg, ok
}

// createSegment adds a segment to cell, evicting the least recently used
// segment of that cell when the cap is reached.
func (c *connections) createSegment(cell, iteration, maxPerCell int) *segment {
	if maxPerCell > 0 {
		for len(c.cellSegments[cell]) >= maxPerCell {
			c.destroySegment(c.leastRecentlyUsed(cell))
		}
	}
	seg := &segment{id: c.nextID, cell: cell, lastUsed: iteration}
	c.nextID++
	c.segments[seg.id] = seg
	c.cellSegments[cell] = append(c.cellSegments[cell], seg.id)
	return seg
}

func (c *connections) leastRecentlyUsed(cell int) int {
	ids := c.cellSegments[cell]
	best := ids[0]
	for _, id := range ids[1:] {
		if c.segments[id].lastUsed < c.segments[best].lastUsed {
			best = id
		}
	}
	return best
}

func (c *connections) destroySegment(id int) {
	seg, ok := c.segments[id]
	if !ok {
		return
	}
	delete(c.segments, id)
	ids := c.cellSegments[seg.cell]
	for i, candidate := range ids {
		if candidate == id {
			c.cellSegments[seg.cell] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func (c *connections) numSegmentsOnCell(cell int) int {
	return len(c.cellSegments[cell])
}

func (c *connections) numSegments() int {
	return len(c.segments)
}

func (c *connections) numSynapses() int {
	total := 0
	for _, seg := range c.segments {
		total += len(seg.synapses)
	}
	return total
}

// activity is the dendritic state computed against one set of inputs.
type activity struct {
	active    []int
	matching  []int
	potential map[int]int
}

// computeActivity counts, per segment, the connected and potential synapses
// whose presynaptic input is active. Segment ids come back ordered by cell,
// then id.
func (c *connections) computeActivity(inputs map[int]struct{}, connected float64, activationThreshold, minThreshold int) activity {
	act := activity{potential: make(map[int]int)}
	if len(inputs) == 0 {
		return act
	}
	for id, seg := range c.segments {
		numConnected, numPotential := 0, 0
		for _, syn := range seg.synapses {
			if _, ok := inputs[syn.presynaptic]; !ok {
				continue
			}
			numPotential++
			if syn.permanence >= connected-epsilon {
				numConnected++
			}
		}
		if numConnected >= activationThreshold && numConnected > 0 {
			act.active = append(act.active, id)
		}
		if numPotential >= minThreshold && numPotential > 0 {
			act.matching = append(act.matching, id)
			act.potential[id] = numPotential
		}
	}
	c.sortByCell(act.active)
	c.sortByCell(act.matching)
	return act
}

func (c *connections) sortByCell(ids []int) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := c.segments[ids[i]], c.segments[ids[j]]
		if a.cell != b.cell {
			return a.cell < b.cell
		}
		return a.id < b.id
	})
}

// adaptSegment reinforces synapses from previously active inputs and
// weakens the rest. Synapses that decay to zero are removed, and a segment
// left with no synapses is destroyed.
func (c *connections) adaptSegment(seg *segment, prevActive map[int]struct{}, increment, decrement float64) {
	kept := seg.synapses[:0]
	for _, syn := range seg.synapses {
		if _, ok := prevActive[syn.presynaptic]; ok {
			syn.permanence += increment
		} else {
			syn.permanence -= decrement
		}
		if syn.permanence > 1 {
			syn.permanence = 1
		}
		if syn.permanence < epsilon {
			continue
		}
		kept = append(kept, syn)
	}
	seg.synapses = kept
	if len(seg.synapses) == 0 {
		c.destroySegment(seg.id)
	}
}

// growSynapses connects seg to up to n candidates it is not yet connected
// to, chosen at random. Growth stops at maxPerSegment synapses.
func (c *connections) growSynapses(seg *segment, candidates []int, n int, initial float64, maxPerSegment int, rng *rand.Rand) {
	if n <= 0 || len(candidates) == 0 {
		return
	}
	existing := make(map[int]struct{}, len(seg.synapses))
	for _, syn := range seg.synapses {
		existing[syn.presynaptic] = struct{}{}
	}
	pool := make([]int, 0, len(candidates))
	for _, cand := range candidates {
		if _, ok := existing[cand]; !ok {
			pool = append(pool, cand)
		}
	}
	if room := maxPerSegment - len(seg.synapses); maxPerSegment > 0 && n > room {
		n = room
	}
	if n > len(pool) {
		n = len(pool)
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		seg.synapses = append(seg.synapses, synapse{presynaptic: pool[i], permanence: initial})
	}
}
