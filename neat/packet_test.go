package neat

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePacketRoundTrip(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(1))
	g := NewPrimitiveGenome(c, 3, 1, rng)
	g.addNode(rng)
	g.Fitness = 4.2

	packet := EncodePacket(g)
	decoded, err := DecodePacket(packet, c.Coefficients, c.DeltaThreshold, c.Mutation)
	require.NoError(t, err)

	require.Equal(t, g.Fitness, decoded.Fitness)
	require.Equal(t, len(g.Nodes), len(decoded.Nodes))
	require.Equal(t, len(g.Genes), len(decoded.Genes))
	for i, gene := range g.Genes {
		require.Equal(t, gene.InNode, decoded.Genes[i].InNode)
		require.Equal(t, gene.OutNode, decoded.Genes[i].OutNode)
		require.Equal(t, gene.Active, decoded.Genes[i].Active)
		require.InDelta(t, gene.Weight, decoded.Genes[i].Weight, 1e-6)
	}
}

func TestDecodePacketRejectsMalformedGenomeTokenCount(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(2))
	g := NewPrimitiveGenome(c, 3, 1, rng)
	packet := EncodePacket(g)
	packet.Genome += "_1" // breaks the 4-token grouping

	_, err := DecodePacket(packet, c.Coefficients, c.DeltaThreshold, c.Mutation)
	require.Error(t, err)
}

func TestDecodePacketRejectsNonNumericToken(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(3))
	g := NewPrimitiveGenome(c, 3, 1, rng)
	packet := EncodePacket(g)
	tokens := strings.Split(packet.Genome, "_")
	tokens[0] = "x"
	packet.Genome = strings.Join(tokens, "_")

	_, err := DecodePacket(packet, c.Coefficients, c.DeltaThreshold, c.Mutation)
	require.Error(t, err)
}

func TestDecodePacketRejectsNonPositivePerceptronCounts(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(4))
	g := NewPrimitiveGenome(c, 3, 1, rng)
	packet := EncodePacket(g)
	packet.InputCount = 0

	_, err := DecodePacket(packet, c.Coefficients, c.DeltaThreshold, c.Mutation)
	require.Error(t, err)
}

func TestDecodePacketRejectsGeneCountMismatch(t *testing.T) {
	c := newTestConsultor()
	rng := rand.New(rand.NewSource(5))
	g := NewPrimitiveGenome(c, 3, 1, rng)
	packet := EncodePacket(g)
	packet.GeneCount = packet.GeneCount + 1

	_, err := DecodePacket(packet, c.Coefficients, c.DeltaThreshold, c.Mutation)
	require.Error(t, err)
}
