// Package nn builds the sparse feed-forward evaluator derived from a
// neat.Genome and runs its single-pass forward activation.
package nn

import (
	"fmt"
	"math"
	"sort"

	"github.com/briarwood/neatcore/neat"
)

// neuron is a built activation slot: a cached, immutable, ascending-
// by-in-id array of the active genes that feed it.
type neuron struct {
	value    float64
	isBias   bool
	incoming []*neat.Gene
}

// Evaluator is the built view of a genome used for forward
// activation. It assumes a single feed-forward pass: hidden and
// output neurons read only the snapshot taken at the start of Fire,
// never each other's freshly computed values (see package doc and
// spec.md §4.3/§9 for why recurrence is out of scope).
type Evaluator struct {
	neurons    []neuron
	numInputs  int
	numOutputs int
}

// Build derives an Evaluator from a genome: it sizes the neuron array
// to max(node id)+1, buckets each active gene onto its out-node's
// incoming list, and freezes each list sorted ascending by in-id.
func Build(g *neat.Genome) *Evaluator {
	h := 0
	for _, gene := range g.Genes {
		if gene.InNode+1 > h {
			h = gene.InNode + 1
		}
		if gene.OutNode+1 > h {
			h = gene.OutNode + 1
		}
	}
	if len(g.Nodes) > h {
		h = len(g.Nodes)
	}

	e := &Evaluator{
		neurons:    make([]neuron, h),
		numInputs:  g.NumInputs,
		numOutputs: g.NumOutputs,
	}
	for _, node := range g.Nodes {
		if node.ID < h {
			e.neurons[node.ID].isBias = node.Kind == neat.InputBias
		}
	}

	for _, gene := range g.Genes {
		if !gene.Active {
			continue
		}
		e.neurons[gene.OutNode].incoming = append(e.neurons[gene.OutNode].incoming, gene)
	}
	for i := range e.neurons {
		incoming := e.neurons[i].incoming
		sort.Slice(incoming, func(a, b int) bool { return incoming[a].InNode < incoming[b].InNode })
	}

	return e
}

// Fire runs a single forward pass. It assigns inputs (forcing the
// bias neuron to 1.0), snapshots every neuron value, then computes
// each neuron's tanh(weighted-sum) activation purely from that
// snapshot, and returns the output neurons' resulting values.
func (e *Evaluator) Fire(inputs []float64) ([]float64, error) {
	if len(inputs) != e.numInputs {
		return nil, fmt.Errorf("nn: expected %d inputs, got %d", e.numInputs, len(inputs))
	}

	for i := 0; i < e.numInputs; i++ {
		e.neurons[i].value = inputs[i]
	}
	e.neurons[e.numInputs-1].value = 1.0 // bias, forced regardless of isBias bookkeeping

	snapshot := make([]float64, len(e.neurons))
	for i, n := range e.neurons {
		snapshot[i] = n.value
	}

	for i := range e.neurons {
		n := &e.neurons[i]
		if len(n.incoming) == 0 {
			continue
		}
		var sum float64
		for _, gene := range n.incoming {
			sum += float64(gene.Weight) * snapshot[gene.InNode]
		}
		n.value = math.Tanh(sum)
	}

	outputs := make([]float64, e.numOutputs)
	for i := 0; i < e.numOutputs; i++ {
		outputs[i] = e.neurons[e.numInputs+i].value
	}
	return outputs, nil
}
