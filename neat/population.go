package neat

import (
	"math/rand"
	"sort"
)

// Population is a labeled cluster of genomes judged same-species
// under the distance metric. Its id is a short human-readable string
// (see NewGenomeID/NewPopulationID).
type Population struct {
	ID      string
	Genomes []*Genome
}

// NewPopulationID mints a fresh population id.
func NewPopulationID() string {
	return NewGenomeID()
}

// NewPopulation creates an empty, freshly-identified population.
func NewPopulation() *Population {
	return &Population{ID: NewPopulationID()}
}

// SortByFitnessAscending orders the population's genomes from worst
// to best fitness, in place.
func (p *Population) SortByFitnessAscending() {
	sort.Slice(p.Genomes, func(i, j int) bool {
		return p.Genomes[i].Fitness < p.Genomes[j].Fitness
	})
}

// Best returns the highest-fitness genome, assuming the population
// has already been sorted ascending; nil if empty.
func (p *Population) Best() *Genome {
	if len(p.Genomes) == 0 {
		return nil
	}
	return p.Genomes[len(p.Genomes)-1]
}

// AddIfMatch accepts g into the population if it is empty or a
// randomly sampled existing member is same-species with g under
// threshold. Returns whether g was accepted.
func (p *Population) AddIfMatch(g *Genome, registry *Consultor, threshold float64, rng *rand.Rand) bool {
	if len(p.Genomes) == 0 {
		p.Genomes = append(p.Genomes, g)
		return true
	}
	sample := p.Genomes[rng.Intn(len(p.Genomes))]
	if Distance(sample, g, registry) <= threshold {
		p.Genomes = append(p.Genomes, g)
		return true
	}
	return false
}

// Fitnesses returns the fitness of every member, in member order.
func (p *Population) Fitnesses() []float64 {
	out := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		out[i] = g.Fitness
	}
	return out
}
