package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPopulationAddIfMatchAcceptsFirstGenomeUnconditionally(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(1))
	p := NewPopulation()
	g := NewPrimitiveGenome(c, 3, 1, rng)

	require.True(t, p.AddIfMatch(g, c, 0, rng))
	require.Len(t, p.Genomes, 1)
}

func TestPopulationAddIfMatchRejectsBeyondThreshold(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(2))
	p := NewPopulation()
	first := NewPrimitiveGenome(c, 3, 1, rng)
	p.Genomes = append(p.Genomes, first)

	other := first.Clone()
	other.addNode(rng)
	other.addNode(rng)
	other.addNode(rng)

	accepted := p.AddIfMatch(other, c, 0, rng)
	require.False(t, accepted)
	require.Len(t, p.Genomes, 1)
}

func TestPopulationAddIfMatchAcceptsWithinThreshold(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(3))
	p := NewPopulation()
	first := NewPrimitiveGenome(c, 3, 1, rng)
	p.Genomes = append(p.Genomes, first)

	other := first.Clone()
	require.True(t, p.AddIfMatch(other, c, 100, rng))
	require.Len(t, p.Genomes, 2)
}

func TestPopulationSortByFitnessAscendingAndBest(t *testing.T) {
	p := NewPopulation()
	p.Genomes = []*Genome{
		{ID: "a", Fitness: 3},
		{ID: "b", Fitness: 1},
		{ID: "c", Fitness: 2},
	}
	p.SortByFitnessAscending()

	require.Equal(t, "b", p.Genomes[0].ID)
	require.Equal(t, "c", p.Genomes[1].ID)
	require.Equal(t, "a", p.Genomes[2].ID)
	require.Equal(t, "a", p.Best().ID)
}

func TestPopulationBestOnEmptyPopulation(t *testing.T) {
	p := NewPopulation()
	require.Nil(t, p.Best())
}

func TestPopulationFitnesses(t *testing.T) {
	p := NewPopulation()
	p.Genomes = []*Genome{{Fitness: 1}, {Fitness: 2}}
	require.Equal(t, []float64{1, 2}, p.Fitnesses())
}
