package neat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestConsultor() *Consultor {
	return NewConsultor(3, 1, Coefficients{Disjoint: 1, Excess: 1, AvgWeight: 0.4}, 3.0, MutationParams{
		TopologyMutateChance: 0.5,
		GeneMutateChance:     0.5,
		GeneMutateFlags:      []GeneMutateFlag{FlipSign, SetRandom},
		ParentGeneCrossChanceDefault: 0.5,
		ParentGeneCrossChanceLookup:  map[GeneComparison]float64{},
	})
}

func TestConsultorAcquireIsIdempotent(t *testing.T) {
	c := newTestConsultor()
	first := c.Acquire(0, 3)
	second := c.Acquire(0, 3)
	require.Equal(t, first, second)
}

func TestConsultorAcquireIsMonotonic(t *testing.T) {
	c := newTestConsultor()
	a := c.Acquire(10, 20)
	b := c.Acquire(10, 21)
	require.Greater(t, b, a)
}

func TestConsultorNewConsultorPrimesFullyConnectedPairs(t *testing.T) {
	c := newTestConsultor()
	require.Equal(t, 3, c.Count())
	pair, err := c.Lookup(0)
	require.NoError(t, err)
	require.Equal(t, Pair{In: 0, Out: 3}, pair)
}

func TestConsultorLookupOutOfRange(t *testing.T) {
	c := newTestConsultor()
	_, err := c.Lookup(999)
	require.Error(t, err)
}
