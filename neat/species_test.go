package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLSES() LSESParams {
	return LSESParams{
		SelectionMode:             Random,
		PopulationSize:            10,
		GenerationTestTime:        1,
		NumberOfInputPerceptrons:  3,
		NumberOfOutputPerceptrons: 1,
		Elite:                     0.1,
		Beta:                      1,
		RemoveWorst:               0.2,
	}
}

func TestSpeciesAssignClosestOrNewStartsFirstPopulation(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(1))
	s := NewSpecies(c, rng)
	g := NewPrimitiveGenome(c, 3, 1, rng)

	s.AssignClosestOrNew(g)
	require.Len(t, s.Populations, 1)
	require.Len(t, s.Populations[0].Genomes, 1)
}

func TestSpeciesReadmitFallsBackToNewPopulation(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(2))
	c.DeltaThreshold = 0
	s := NewSpecies(c, rng)
	base := NewPrimitiveGenome(c, 3, 1, rng)
	s.AssignClosestOrNew(base)

	divergent := base.Clone()
	divergent.addNode(rng)
	divergent.addNode(rng)
	divergent.addNode(rng)

	s.readmit(divergent)
	require.Len(t, s.Populations, 2, "a genome beyond delta threshold must start its own population")
}

func TestSpeciesRemoveWorstKeepsBestMember(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(3))
	s := NewSpecies(c, rng)
	pop := NewPopulation()
	pop.Genomes = []*Genome{
		{ID: "low", Fitness: 1},
		{ID: "mid", Fitness: 2},
		{ID: "high", Fitness: 3},
	}
	s.Populations = []*Population{pop}

	s.removeWorst(0.5)
	ids := make([]string, 0)
	for _, g := range pop.Genomes {
		ids = append(ids, g.ID)
	}
	require.Contains(t, ids, "high")
}

func TestSpeciesRemoveWorstTwoMemberException(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(4))
	s := NewSpecies(c, rng)
	pop := NewPopulation()
	pop.Genomes = []*Genome{
		{ID: "low", Fitness: 1},
		{ID: "high", Fitness: 2},
	}
	s.Populations = []*Population{pop}

	s.removeWorst(0.2)
	require.Len(t, pop.Genomes, 1)
	require.Equal(t, "high", pop.Genomes[0].ID)
}

func TestComputeQuotasSumsToCapacity(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(5))
	s := NewSpecies(c, rng)
	for i := 0; i < 3; i++ {
		pop := NewPopulation()
		pop.Genomes = []*Genome{{Fitness: float64(i + 1)}, {Fitness: float64(i + 2)}}
		s.Populations = append(s.Populations, pop)
	}

	quotas := s.computeQuotas(37, 1)
	sum := 0
	for _, q := range quotas {
		sum += q
	}
	require.Equal(t, 37, sum)
}

func TestComputeQuotasWithNoFitnessStillSumsToCapacity(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(6))
	s := NewSpecies(c, rng)
	for i := 0; i < 2; i++ {
		pop := NewPopulation()
		pop.Genomes = []*Genome{{Fitness: 0}}
		s.Populations = append(s.Populations, pop)
	}

	quotas := s.computeQuotas(10, 1)
	sum := 0
	for _, q := range quotas {
		sum += q
	}
	require.Equal(t, 10, sum)
}

func TestBiasedIndexStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		idx := biasedIndex(25, rng)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 25)
	}
}

func TestBiasedIndexDegenerateSize(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	require.Equal(t, 0, biasedIndex(0, rng))
	require.Equal(t, 0, biasedIndex(1, rng))
}

func TestGenerateNewGenerationProducesFullPopulation(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(9))
	lp := newTestLSES()
	s := NewSpecies(c, rng)

	for i := 0; i < lp.PopulationSize; i++ {
		g := NewPrimitiveGenome(c, lp.NumberOfInputPerceptrons, lp.NumberOfOutputPerceptrons, rng)
		g.Fitness = rng.Float64() * 10
		s.AssignClosestOrNew(g)
	}

	s.GenerateNewGeneration(lp.PopulationSize, lp)

	total := 0
	for _, pop := range s.Populations {
		total += len(pop.Genomes)
	}
	require.Equal(t, lp.PopulationSize, total)
}

func TestBestGenomeAcrossPopulations(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(10))
	s := NewSpecies(c, rng)
	popA := NewPopulation()
	popA.Genomes = []*Genome{{ID: "a", Fitness: 5}}
	popB := NewPopulation()
	popB.Genomes = []*Genome{{ID: "b", Fitness: 9}}
	s.Populations = []*Population{popA, popB}

	require.Equal(t, "b", s.BestGenome().ID)
}

func TestAllOriginsAndGenomeAt(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(11))
	s := NewSpecies(c, rng)
	popA := NewPopulation()
	popA.Genomes = []*Genome{{ID: "a0"}, {ID: "a1"}}
	s.Populations = []*Population{popA}

	origins := s.AllOrigins()
	require.Len(t, origins, 2)
	require.Equal(t, "a0", s.GenomeAt(origins[0]).ID)
	require.Equal(t, "a1", s.GenomeAt(origins[1]).ID)
}

func TestGetSpeciesInfoReportsCounts(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(12))
	s := NewSpecies(c, rng)
	pop := NewPopulation()
	pop.Genomes = []*Genome{{}, {}, {}}
	s.Populations = []*Population{pop}

	ids, counts := s.GetSpeciesInfo()
	require.Equal(t, []string{pop.ID}, ids)
	require.Equal(t, []int{3}, counts)
}
