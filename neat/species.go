package neat

import (
	"fmt"
	"math"
	"math/rand"
)

// SelectionMode selects how the second reproduction parent is picked
// once the first has been drawn uniformly at random.
type SelectionMode int

const (
	Random SelectionMode = iota
	LogarithmicRankedPick
)

// LSESParams is the generation-level parameter block: population
// sizing, timing, elitism/removal fractions, and the shared-fitness
// exponent.
type LSESParams struct {
	SelectionMode             SelectionMode
	PopulationSize            int     `ini:"population_size"`
	GenerationTestTime        float64 `ini:"generation_test_time"`
	NumberOfInputPerceptrons  int     `ini:"number_of_input_perceptrons"`
	NumberOfOutputPerceptrons int     `ini:"number_of_output_perceptrons"`
	Elite                     float64 `ini:"elite"`
	Beta                      float64 `ini:"beta"`
	RemoveWorst               float64 `ini:"remove_worst"`
}

// Origin identifies a genome by its position in a Species: which
// population, and which index within that population's member list.
type Origin struct {
	PopulationIndex int
	GenomeIndex     int
}

// Species is the population-of-populations manager: it speciates
// genomes via add-if-match, computes shared-fitness reproduction
// quotas per population, and assembles the next generation (worst
// removal, elitism, crossover). It folds what the teacher split
// across Reproduction and Stagnation into one manager.
type Species struct {
	Populations []*Population
	Registry    *Consultor
	rng         *rand.Rand
}

// NewSpecies creates an empty species manager bound to a registry and
// PRNG source.
func NewSpecies(registry *Consultor, rng *rand.Rand) *Species {
	return &Species{Registry: registry, rng: rng}
}

// Speciate assigns every genome to the closest matching population,
// or a new one, and reports the mean/stdev of the sampled distances,
// the same coarse diagnostic the teacher's species.go prints after
// speciation.
func (s *Species) Speciate(genomes []*Genome) {
	distances := make([]float64, 0, len(genomes))
	for _, g := range genomes {
		if len(s.Populations) > 0 {
			sample := s.Populations[s.rng.Intn(len(s.Populations))]
			if len(sample.Genomes) > 0 {
				distances = append(distances, Distance(sample.Genomes[0], g, s.Registry))
			}
		}
		s.AssignClosestOrNew(g)
	}
	if len(distances) > 0 {
		fmt.Printf("neat: mean genetic distance %.3f, stdev %.3f\n", Mean(distances), Stdev(distances))
	}
}

// AssignClosestOrNew places g into whichever existing population is
// closest under the distance metric, or starts a fresh population if
// none exists yet. This is the seeding rule Reset() uses.
func (s *Species) AssignClosestOrNew(g *Genome) {
	best := s.closestPopulation(g)
	if best != nil {
		best.Genomes = append(best.Genomes, g)
		return
	}
	np := NewPopulation()
	np.Genomes = append(np.Genomes, g)
	s.Populations = append(s.Populations, np)
}

// readmit re-speciates an offspring: try add-if-match against every
// existing population in order, and start a new population when none
// of them accepts it under the delta threshold. This is the rule
// generation assembly uses against the newly-forming species list.
func (s *Species) readmit(g *Genome) {
	threshold := s.Registry.DeltaThreshold
	for _, pop := range s.Populations {
		if pop.AddIfMatch(g, s.Registry, threshold, s.rng) {
			return
		}
	}
	np := NewPopulation()
	np.Genomes = append(np.Genomes, g)
	s.Populations = append(s.Populations, np)
}

func (s *Species) closestPopulation(g *Genome) *Population {
	var best *Population
	minDist := math.Inf(1)
	for _, pop := range s.Populations {
		if len(pop.Genomes) == 0 {
			continue
		}
		sample := pop.Genomes[s.rng.Intn(len(pop.Genomes))]
		d := Distance(sample, g, s.Registry)
		if d < minDist {
			minDist = d
			best = pop
		}
	}
	return best
}

// removeWorst sorts each population ascending by fitness and keeps
// only the top ceil(count*(1-removeWorst)) members, with the
// documented exception for exactly two members.
func (s *Species) removeWorst(removeWorst float64) {
	for _, pop := range s.Populations {
		n := len(pop.Genomes)
		if n == 0 {
			continue
		}
		pop.SortByFitnessAscending()

		if n == 2 && removeWorst > 0 {
			pop.Genomes = pop.Genomes[1:]
			continue
		}

		keep := int(math.Ceil(float64(n) * (1 - removeWorst)))
		if keep < 1 {
			keep = 1
		}
		if keep > n {
			keep = n
		}
		pop.Genomes = pop.Genomes[n-keep:]
	}
}

// sharedFitnessDistribution sums each member's shared fitness within
// its own population: max(0,fitness)^beta / max(1, peer count).
func sharedFitnessDistribution(pop *Population, beta float64) float64 {
	n := len(pop.Genomes)
	if n == 0 {
		return 0
	}
	peers := math.Max(1, float64(n-1))
	var sum float64
	for _, g := range pop.Genomes {
		sum += math.Pow(math.Max(0, g.Fitness), beta) / peers
	}
	return sum
}

// computeQuotas allocates maxCap offspring slots across populations
// proportional to their shared-fitness distribution, rounding down
// and then correcting the rounding error per spec.md §4.5.
func (s *Species) computeQuotas(maxCap int, beta float64) []int {
	distributions := make([]float64, len(s.Populations))
	var total float64
	for i, pop := range s.Populations {
		distributions[i] = sharedFitnessDistribution(pop, beta)
		total += distributions[i]
	}

	quotas := make([]int, len(s.Populations))
	if total > 0 {
		for i, d := range distributions {
			quotas[i] = int(math.Floor(d / total * float64(maxCap)))
		}
	}
	s.correctRounding(quotas, maxCap)
	return quotas
}

// correctRounding nudges quotas to sum exactly to maxCap: shortfalls
// are resolved by incrementing a random index in the upper half of
// the population list; surpluses by decrementing a random index that
// still has quota left. Preserved as specified; the upper-half bias
// is not fixed here.
func (s *Species) correctRounding(quotas []int, maxCap int) {
	if len(quotas) == 0 {
		return
	}
	sum := 0
	for _, q := range quotas {
		sum += q
	}

	upperHalf := len(quotas) / 2
	for sum < maxCap {
		span := len(quotas) - upperHalf
		if span <= 0 {
			span = len(quotas)
			upperHalf = 0
		}
		idx := upperHalf + s.rng.Intn(span)
		quotas[idx]++
		sum++
	}
	for sum > maxCap {
		candidates := make([]int, 0, len(quotas))
		for i, q := range quotas {
			if q > 0 {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			break
		}
		idx := candidates[s.rng.Intn(len(candidates))]
		quotas[idx]--
		sum--
	}
}

// biasedIndex implements the LogarithmicRankedPick index for an
// ascending-sorted n-member list: |n-1 - r^log100(n-1)| with r drawn
// uniformly from [1,100). The result never exceeds n-2, and because r
// is uniform rather than log-uniform it falls in the lower
// (lower-fitness) half more often than in the upper half.
func biasedIndex(n int, rng *rand.Rand) int {
	if n <= 1 {
		return 0
	}
	r := 1 + rng.Float64()*99
	exp := math.Log(float64(n-1)) / math.Log(100)
	idx := int(math.Abs(float64(n-1) - math.Pow(r, exp)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// selectParents draws two parents from an ascending-fitness-sorted
// population under the given selection mode.
func (s *Species) selectParents(pop *Population, mode SelectionMode) (*Genome, *Genome) {
	n := len(pop.Genomes)
	a := pop.Genomes[s.rng.Intn(n)]
	if mode == LogarithmicRankedPick {
		return a, pop.Genomes[biasedIndex(n, s.rng)]
	}
	return a, pop.Genomes[s.rng.Intn(n)]
}

// GenerateNewGeneration assembles the next generation in place:
// reproductive quota computation against the pre-trim populations,
// worst removal, then per-population elite-copy and crossover
// offspring drawn from the survivors, each re-speciated into a
// freshly-built species list (spec.md §4.5).
func (s *Species) GenerateNewGeneration(populationSize int, lp LSESParams) {
	quotas := s.computeQuotas(populationSize, lp.Beta)
	s.removeWorst(lp.RemoveWorst)

	next := NewSpecies(s.Registry, s.rng)
	for i, pop := range s.Populations {
		q := quotas[i]
		if q <= 0 || len(pop.Genomes) == 0 {
			fmt.Printf("neat: population %s produced no offspring (quota=%d, members=%d)\n", pop.ID, q, len(pop.Genomes))
			continue
		}
		pop.SortByFitnessAscending()
		eliteCutoff := float64(q) * lp.Elite

		for j := 0; j < q; j++ {
			var child *Genome
			if float64(j) <= eliteCutoff {
				best := pop.Best()
				child = best.Clone()
				child.Fitness = best.Fitness
			} else {
				a, b := s.selectParents(pop, lp.SelectionMode)
				child = Crossover(a, b, s.rng)
				child.Mutate(s.rng)
			}
			next.readmit(child)
		}
	}
	s.Populations = next.Populations
}

// BestGenome returns the highest-fitness genome across every
// population, or nil if the species manager is empty.
func (s *Species) BestGenome() *Genome {
	var best *Genome
	for _, pop := range s.Populations {
		for _, g := range pop.Genomes {
			if best == nil || g.Fitness > best.Fitness {
				best = g
			}
		}
	}
	return best
}

// AllOrigins enumerates every genome currently held, in
// population-list order then per-population member order.
func (s *Species) AllOrigins() []Origin {
	origins := make([]Origin, 0)
	for pi, pop := range s.Populations {
		for gi := range pop.Genomes {
			origins = append(origins, Origin{PopulationIndex: pi, GenomeIndex: gi})
		}
	}
	return origins
}

// GenomeAt resolves an Origin back to its genome.
func (s *Species) GenomeAt(o Origin) *Genome {
	return s.Populations[o.PopulationIndex].Genomes[o.GenomeIndex]
}

// GetSpeciesInfo reports each population's id and current member
// count, in list order. This is the Runner surface's introspection hook.
func (s *Species) GetSpeciesInfo() ([]string, []int) {
	ids := make([]string, len(s.Populations))
	counts := make([]int, len(s.Populations))
	for i, pop := range s.Populations {
		ids[i] = pop.ID
		counts[i] = len(pop.Genomes)
	}
	return ids, counts
}
