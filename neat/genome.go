package neat

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// LifetimeFunc reports the elapsed duration of the current
// evaluation window for the genome carrying it. It is installed by a
// runner at activation time and cleared when the generation ends.
// The genome never holds a back-reference to the runner itself.
type LifetimeFunc func() (elapsed float64, ok bool)

// Genome is a network phenotype specification: a registry reference,
// the input/output node counts, an ordered node list, an ordered
// gene list (ascending by innovation), and per-generation fitness.
type Genome struct {
	Registry   *Consultor
	NumInputs  int
	NumOutputs int
	Nodes      []Node
	Genes      []*Gene
	Fitness    float64
	ID         string

	lifetime LifetimeFunc
}

// NewGenomeID returns a short, human-legible identifier for a new
// genome or population member.
func NewGenomeID() string {
	return uuid.New().String()[:8]
}

// NewPrimitiveGenome builds the fully-connected input->output wiring
// spec.md describes as the starting point for a fresh population:
// numInputs input nodes (the last is the bias), numOutputs output
// nodes, and one gene per (input,output) pair with a random weight in
// [-1,1].
func NewPrimitiveGenome(registry *Consultor, numInputs, numOutputs int, rng *rand.Rand) *Genome {
	g := &Genome{
		Registry:   registry,
		NumInputs:  numInputs,
		NumOutputs: numOutputs,
		Nodes:      make([]Node, numInputs+numOutputs),
		ID:         NewGenomeID(),
	}
	for i := 0; i < numInputs; i++ {
		kind := Input
		if i == numInputs-1 {
			kind = InputBias
		}
		g.Nodes[i] = Node{ID: i, Kind: kind}
	}
	for o := 0; o < numOutputs; o++ {
		g.Nodes[numInputs+o] = Node{ID: numInputs + o, Kind: Output}
	}

	for in := 0; in < numInputs; in++ {
		for out := 0; out < numOutputs; out++ {
			outID := numInputs + out
			innov := registry.Acquire(in, outID)
			gene := &Gene{
				Innovation: innov,
				InNode:     in,
				OutNode:    outID,
				Weight:     float32(rng.Float64()*2 - 1),
				Active:     true,
			}
			g.orderedInsert(gene)
		}
	}
	return g
}

// orderedInsert places a gene into Genes keeping strictly ascending
// innovation order, via binary search. Because the registry hands out
// a unique innovation per (in,out) pair, duplicates cannot occur.
func (g *Genome) orderedInsert(gene *Gene) {
	i := sort.Search(len(g.Genes), func(i int) bool {
		return g.Genes[i].Innovation >= gene.Innovation
	})
	g.Genes = append(g.Genes, nil)
	copy(g.Genes[i+1:], g.Genes[i:])
	g.Genes[i] = gene
}

// HasEdge reports whether a gene already exists for (in,out),
// including inactive genes. An inactive edge still blocks re-adding
// the same connection rather than being eligible for reactivation.
func (g *Genome) HasEdge(in, out int) bool {
	for _, gene := range g.Genes {
		if gene.InNode == in && gene.OutNode == out {
			return true
		}
	}
	return false
}

// SetLifetime installs the elapsed-evaluation-time capability used by
// agents during activation; ClearLifetime removes it at generation end.
func (g *Genome) SetLifetime(fn LifetimeFunc) { g.lifetime = fn }
func (g *Genome) ClearLifetime()              { g.lifetime = nil }

// Lifetime reports elapsed evaluation time if a capability is
// currently installed.
func (g *Genome) Lifetime() (float64, bool) {
	if g.lifetime == nil {
		return 0, false
	}
	return g.lifetime()
}

// Clone returns a deep copy of the genome, including its own copies
// of every node and gene. The registry reference is shared, never
// copied.
func (g *Genome) Clone() *Genome {
	cp := &Genome{
		Registry:   g.Registry,
		NumInputs:  g.NumInputs,
		NumOutputs: g.NumOutputs,
		Nodes:      make([]Node, len(g.Nodes)),
		Genes:      make([]*Gene, len(g.Genes)),
		Fitness:    g.Fitness,
		ID:         NewGenomeID(),
	}
	copy(cp.Nodes, g.Nodes)
	for i, gene := range g.Genes {
		cp.Genes[i] = gene.Copy()
	}
	return cp
}

// Mutate applies, in order, the add-connection structural mutation
// (falling through to add-node when no free pair is found) and the
// add-node structural mutation, each attempted once, independently,
// per topologyMutateChance, and then weight mutation over every gene.
func (g *Genome) Mutate(rng *rand.Rand) {
	mp := g.Registry.Mutation
	if rng.Float64() < mp.TopologyMutateChance {
		if !g.addConnection(rng) {
			g.addNode(rng)
		}
	}
	if rng.Float64() < mp.TopologyMutateChance {
		g.addNode(rng)
	}
	g.MutateWeights(rng)
}

// MutateWeights applies the per-gene weight/state mutation
// independently to every gene, at geneMutateChance.
func (g *Genome) MutateWeights(rng *rand.Rand) {
	mp := g.Registry.Mutation
	for _, gene := range g.Genes {
		if rng.Float64() < mp.GeneMutateChance {
			applyWeightMutation(gene, mp, rng)
		}
	}
}

// addConnection implements spec.md §4.2's AddConnection: up to
// |nodes|^2 attempts to find an unconnected (a,b) pair, with the
// reverse-direction fallback when a is not an input. Returns false if
// no valid connection was found, signalling the caller to fall
// through to AddNode.
func (g *Genome) addConnection(rng *rand.Rand) bool {
	n := len(g.Nodes)
	if n == 0 {
		return false
	}
	maxAttempts := n * n
	for attempt := 0; attempt < maxAttempts; attempt++ {
		a := g.Nodes[rng.Intn(n)]
		b := g.nonInputNode(rng)
		if b == nil {
			return false
		}

		if !g.HasEdge(a.ID, b.ID) {
			g.insertNewConnection(a.ID, b.ID, 1.0)
			return true
		}
		if a.Kind != Input && a.Kind != InputBias && !g.HasEdge(b.ID, a.ID) {
			g.insertNewConnection(b.ID, a.ID, 1.0)
			return true
		}
	}
	return false
}

// nonInputNode returns a uniformly random node that is not an input
// (i.e. a legal connection target), or nil if none exists.
func (g *Genome) nonInputNode(rng *rand.Rand) *Node {
	candidates := make([]int, 0, len(g.Nodes))
	for i, node := range g.Nodes {
		if node.Kind != Input && node.Kind != InputBias {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return &g.Nodes[candidates[rng.Intn(len(candidates))]]
}

func (g *Genome) insertNewConnection(in, out int, weight float32) {
	innov := g.Registry.Acquire(in, out)
	g.orderedInsert(&Gene{Innovation: innov, InNode: in, OutNode: out, Weight: weight, Active: true})
}

// addNode implements spec.md §4.2's AddNode: disable a random active
// gene, splice in a new hidden node, and connect old-in->new
// (weight 1.0) and new->old-out (the disabled gene's old weight).
func (g *Genome) addNode(rng *rand.Rand) {
	active := make([]*Gene, 0, len(g.Genes))
	for _, gene := range g.Genes {
		if gene.Active {
			active = append(active, gene)
		}
	}
	if len(active) == 0 {
		return
	}
	split := active[rng.Intn(len(active))]
	split.Active = false

	newID := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: newID, Kind: Hidden})

	g.insertNewConnection(split.InNode, newID, 1.0)
	g.insertNewConnection(newID, split.OutNode, split.Weight)
}

// String renders a short diagnostic summary of the genome.
func (g *Genome) String() string {
	return fmt.Sprintf("Genome(%s, nodes=%d, genes=%d, fitness=%.4f)", g.ID, len(g.Nodes), len(g.Genes), g.Fitness)
}
