package neat

import (
	"math/rand"
	"sort"
)

// GeneComparison classifies how a chosen gene relates to its parents
// during crossover, driving the state-perturbation table in §4.4.
type GeneComparison int

const (
	None GeneComparison = iota
	BothActive
	BothInactive
	Inversed
	DominantActive
	DominantInactive
)

// AlignmentEntry holds, for one innovation number, the gene each
// parent contributes (either may be nil).
type AlignmentEntry struct {
	Innovation int
	A, B       *Gene
}

// BuildAlignment maps every innovation present in either parent to
// the pair of genes (possibly one nil) that carry it.
func BuildAlignment(a, b *Genome) map[int]*AlignmentEntry {
	table := make(map[int]*AlignmentEntry, len(a.Genes)+len(b.Genes))
	for _, gene := range a.Genes {
		table[gene.Innovation] = &AlignmentEntry{Innovation: gene.Innovation, A: gene}
	}
	for _, gene := range b.Genes {
		entry, ok := table[gene.Innovation]
		if !ok {
			entry = &AlignmentEntry{Innovation: gene.Innovation}
			table[gene.Innovation] = entry
		}
		entry.B = gene
	}
	return table
}

// sortedEntries returns the alignment entries sorted by innovation
// descending, as required by the excess/disjoint classification pass.
func sortedEntries(table map[int]*AlignmentEntry) []*AlignmentEntry {
	entries := make([]*AlignmentEntry, 0, len(table))
	for _, e := range table {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Innovation > entries[j].Innovation
	})
	return entries
}

// Distance computes the genomic distance between two genomes per
// spec.md §4.4: excess genes are the leading run of single-parent
// entries (sorted by innovation descending) that all come from the
// owning parent identified by the highest-innovation entry; the rest
// of the single-parent entries are disjoint; matching entries
// contribute to the average weight-difference term.
func Distance(a, b *Genome, c *Consultor) float64 {
	entries := sortedEntries(BuildAlignment(a, b))
	if len(entries) == 0 {
		return 0
	}

	n := len(a.Genes)
	if len(b.Genes) > n {
		n = len(b.Genes)
	}
	if n == 0 {
		n = 1
	}

	// Determine which parent owns the leading (excess) run, from the
	// single highest-innovation entry.
	ownerIsA := entries[0].A != nil

	excess, disjoint, equal := 0, 0, 0
	var weightDiffSum float64
	inExcessRun := true

	for _, e := range entries {
		if e.A != nil && e.B != nil {
			equal++
			weightDiffSum += absFloat32(e.A.Weight - e.B.Weight)
			inExcessRun = false
			continue
		}
		fromA := e.A != nil
		if inExcessRun && fromA == ownerIsA {
			excess++
		} else {
			inExcessRun = false
			disjoint++
		}
	}

	var avgWeightTerm float64
	if equal > 0 {
		avgWeightTerm = c.AvgWeight * (weightDiffSum / float64(equal))
	}

	return avgWeightTerm + c.Disjoint*float64(disjoint)/float64(n) + c.Excess*float64(excess)/float64(n)
}

func absFloat32(v float32) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}

// Crossover produces an offspring genome from two parents by walking
// the alignment table in ascending innovation order, per spec.md
// §4.4. The offspring's node list is copied from whichever parent has
// more nodes; NumInputs/NumOutputs/Registry come from parent A.
func Crossover(a, b *Genome, rng *rand.Rand) *Genome {
	table := BuildAlignment(a, b)
	innovations := make([]int, 0, len(table))
	for innov := range table {
		innovations = append(innovations, innov)
	}
	sort.Ints(innovations)

	child := &Genome{
		Registry:   a.Registry,
		NumInputs:  a.NumInputs,
		NumOutputs: a.NumOutputs,
		ID:         NewGenomeID(),
	}
	if len(b.Nodes) > len(a.Nodes) {
		child.Nodes = make([]Node, len(b.Nodes))
		copy(child.Nodes, b.Nodes)
	} else {
		child.Nodes = make([]Node, len(a.Nodes))
		copy(child.Nodes, a.Nodes)
	}

	mp := a.Registry.Mutation
	for _, innov := range innovations {
		entry := table[innov]
		chosen, comparison := chooseGene(entry, a, b, rng)
		if chosen == nil {
			continue
		}
		gene := chosen.Copy()
		perturbGeneState(gene, comparison, mp, rng)
		child.Genes = append(child.Genes, gene)
	}

	return child
}

// chooseGene selects which parent's gene an offspring inherits for a
// single alignment entry, and classifies the comparison for the
// state-perturbation table.
func chooseGene(e *AlignmentEntry, a, b *Genome, rng *rand.Rand) (*Gene, GeneComparison) {
	if e.A != nil && e.B != nil {
		var comparison GeneComparison
		switch {
		case e.A.Active && e.B.Active:
			comparison = BothActive
		case !e.A.Active && !e.B.Active:
			comparison = BothInactive
		default:
			comparison = Inversed
		}
		if rng.Float64() < 0.5 {
			return e.A, comparison
		}
		return e.B, comparison
	}

	// Single-parent gene: inherited only when the fitter parent (A on
	// a tie) is the one carrying it; otherwise it is dropped.
	fitterIsA := a.Fitness >= b.Fitness
	var chosen *Gene
	if fitterIsA {
		chosen = e.A
	} else {
		chosen = e.B
	}
	if chosen == nil {
		return nil, None
	}
	if chosen.Active {
		return chosen, DominantActive
	}
	return chosen, DominantInactive
}

// perturbGeneState applies the comparison-keyed state-perturbation
// table from spec.md §4.4 to a freshly copied gene, in place.
func perturbGeneState(gene *Gene, comparison GeneComparison, mp MutationParams, rng *rand.Rand) {
	chance, ok := mp.ParentGeneCrossChanceLookup[comparison]
	if !ok {
		chance = mp.ParentGeneCrossChanceDefault
	}
	if rng.Float64() >= chance {
		return
	}
	switch comparison {
	case BothInactive:
		gene.Active = false
	case Inversed:
		gene.Active = true
	case BothActive, DominantActive, DominantInactive:
		gene.Active = !gene.Active
	}
}
