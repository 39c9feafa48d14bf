package neat

import (
	"fmt"
	"sync"
)

// Pair identifies a directed connection by its endpoints, independent
// of which genome (if any) currently carries it.
type Pair struct {
	In, Out int
}

// Coefficients are the speciation distance weights shared process-wide.
type Coefficients struct {
	Disjoint  float64 `ini:"c_disjoint"`
	Excess    float64 `ini:"c_excess"`
	AvgWeight float64 `ini:"c_avg_weight"`
}

// Consultor is the innovation registry: a monotonic, process-wide
// assignment of innovation numbers to (in,out) pairs. Every genome in
// a run shares one Consultor instance; it also carries the
// speciation coefficients and mutation parameters that apply
// uniformly across the run.
//
// Mutation (Acquire allocating a new innovation) may only happen
// during the reproduction phase of a generation; reads are safe
// concurrently with evaluation.
type Consultor struct {
	mu    sync.RWMutex
	pairs []Pair
	index map[Pair]int

	Coefficients
	DeltaThreshold float64
	Mutation       MutationParams
}

// NewConsultor creates a registry primed with every (input, output)
// pair, inputs including the trailing bias, assigned innovations
// 0..numInputs*numOutputs-1 in input-major, output-minor order.
func NewConsultor(numInputs, numOutputs int, coeffs Coefficients, deltaThreshold float64, mp MutationParams) *Consultor {
	c := &Consultor{
		pairs:          make([]Pair, 0, numInputs*numOutputs),
		index:          make(map[Pair]int, numInputs*numOutputs),
		Coefficients:   coeffs,
		DeltaThreshold: deltaThreshold,
		Mutation:       mp,
	}
	for in := 0; in < numInputs; in++ {
		for out := 0; out < numOutputs; out++ {
			c.Acquire(in, numInputs+out)
		}
	}
	return c
}

// Acquire returns the innovation number for (in,out), assigning a new
// one if the pair has never been seen in this run.
func (c *Consultor) Acquire(in, out int) int {
	p := Pair{In: in, Out: out}

	c.mu.RLock()
	if innov, ok := c.index[p]; ok {
		c.mu.RUnlock()
		return innov
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if innov, ok := c.index[p]; ok {
		return innov
	}
	innov := len(c.pairs)
	c.pairs = append(c.pairs, p)
	c.index[p] = innov
	return innov
}

// Lookup returns the (in,out) pair for a previously assigned
// innovation number, used when reconstructing a genome from a
// persisted packet.
func (c *Consultor) Lookup(innovation int) (Pair, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if innovation < 0 || innovation >= len(c.pairs) {
		return Pair{}, fmt.Errorf("consultor: innovation %d out of range [0,%d)", innovation, len(c.pairs))
	}
	return c.pairs[innovation], nil
}

// Count returns the number of distinct (in,out) pairs assigned so far.
func (c *Consultor) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pairs)
}
