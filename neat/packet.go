package neat

import (
	"fmt"
	"strconv"
	"strings"
)

// Packet is the logical persisted-network layout from spec.md §6: a
// genome plus the consultor's full innovation list, flattened to
// plain strings so a network can be reloaded and reassigned
// consistent innovation numbers on a fresh registry.
type Packet struct {
	Fitness            float64
	NodeCount          int
	InputCount         int
	OutputCount        int
	GeneCount          int
	ConsultorGeneCount int
	Genome             string
	ConsultorGenome    string
}

// EncodePacket flattens a genome and its registry into a Packet.
func EncodePacket(g *Genome) *Packet {
	geneTokens := make([]string, 0, len(g.Genes)*4)
	for _, gene := range g.Genes {
		active := 0
		if gene.Active {
			active = 1
		}
		geneTokens = append(geneTokens,
			strconv.Itoa(gene.InNode),
			strconv.Itoa(gene.OutNode),
			strconv.FormatFloat(float64(gene.Weight), 'g', -1, 32),
			strconv.Itoa(active),
		)
	}

	pairTokens := make([]string, 0, g.Registry.Count()*2)
	for i := 0; i < g.Registry.Count(); i++ {
		pair, _ := g.Registry.Lookup(i)
		pairTokens = append(pairTokens, strconv.Itoa(pair.In), strconv.Itoa(pair.Out))
	}

	return &Packet{
		Fitness:            g.Fitness,
		NodeCount:          len(g.Nodes),
		InputCount:         g.NumInputs,
		OutputCount:        g.NumOutputs,
		GeneCount:          len(g.Genes),
		ConsultorGeneCount: g.Registry.Count(),
		Genome:             strings.Join(geneTokens, "_"),
		ConsultorGenome:    strings.Join(pairTokens, "_"),
	}
}

// DecodePacket reconstructs a genome from a Packet, building a fresh
// Consultor primed with the packet's saved innovation list so that
// innovation numbers stay consistent with the reloaded genes.
func DecodePacket(p *Packet, coeffs Coefficients, deltaThreshold float64, mp MutationParams) (*Genome, error) {
	registry := &Consultor{
		Coefficients:   coeffs,
		DeltaThreshold: deltaThreshold,
		Mutation:       mp,
	}
	registry.pairs = make([]Pair, 0, p.ConsultorGeneCount)
	registry.index = make(map[Pair]int, p.ConsultorGeneCount)

	if p.ConsultorGenome != "" {
		tokens := strings.Split(p.ConsultorGenome, "_")
		if len(tokens)%2 != 0 {
			return nil, fmt.Errorf("neat: consultor genome token count %d not divisible by 2", len(tokens))
		}
		for i := 0; i < len(tokens); i += 2 {
			in, err := strconv.Atoi(tokens[i])
			if err != nil {
				return nil, fmt.Errorf("neat: consultor genome token %q not numeric: %w", tokens[i], err)
			}
			out, err := strconv.Atoi(tokens[i+1])
			if err != nil {
				return nil, fmt.Errorf("neat: consultor genome token %q not numeric: %w", tokens[i+1], err)
			}
			registry.Acquire(in, out)
		}
	}
	if registry.Count() != p.ConsultorGeneCount {
		return nil, fmt.Errorf("neat: consultor gene count mismatch: packet says %d, decoded %d", p.ConsultorGeneCount, registry.Count())
	}

	g := &Genome{
		Registry:   registry,
		NumInputs:  p.InputCount,
		NumOutputs: p.OutputCount,
		Fitness:    p.Fitness,
		ID:         NewGenomeID(),
	}
	if p.InputCount <= 0 || p.OutputCount <= 0 {
		return nil, fmt.Errorf("neat: packet has non-positive perceptron counts (%d in, %d out)", p.InputCount, p.OutputCount)
	}

	g.Nodes = make([]Node, p.NodeCount)
	for i := 0; i < p.NodeCount; i++ {
		kind := Hidden
		switch {
		case i < p.InputCount-1:
			kind = Input
		case i == p.InputCount-1:
			kind = InputBias
		case i < p.InputCount+p.OutputCount:
			kind = Output
		}
		g.Nodes[i] = Node{ID: i, Kind: kind}
	}

	if p.Genome != "" {
		tokens := strings.Split(p.Genome, "_")
		if len(tokens)%4 != 0 {
			return nil, fmt.Errorf("neat: genome token count %d not divisible by 4", len(tokens))
		}
		for i := 0; i < len(tokens); i += 4 {
			in, err := strconv.Atoi(tokens[i])
			if err != nil {
				return nil, fmt.Errorf("neat: genome token %q not numeric: %w", tokens[i], err)
			}
			out, err := strconv.Atoi(tokens[i+1])
			if err != nil {
				return nil, fmt.Errorf("neat: genome token %q not numeric: %w", tokens[i+1], err)
			}
			weight, err := strconv.ParseFloat(tokens[i+2], 32)
			if err != nil {
				return nil, fmt.Errorf("neat: genome token %q not numeric: %w", tokens[i+2], err)
			}
			activeTok, err := strconv.Atoi(tokens[i+3])
			if err != nil {
				return nil, fmt.Errorf("neat: genome token %q not numeric: %w", tokens[i+3], err)
			}
			innov := registry.Acquire(in, out)
			g.orderedInsert(&Gene{
				Innovation: innov,
				InNode:     in,
				OutNode:    out,
				Weight:     float32(weight),
				Active:     activeTok != 0,
			})
		}
	}
	if len(g.Genes) != p.GeneCount {
		return nil, fmt.Errorf("neat: gene count mismatch: packet says %d, decoded %d", p.GeneCount, len(g.Genes))
	}

	return g, nil
}
