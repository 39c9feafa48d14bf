package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
)

// checkpointData is the on-disk shape of a whole-run checkpoint: the
// species manager (which carries every population and, transitively,
// every genome), the registry, and the generation counter. This is
// ambient save/restore convenience distinct from the logical Packet
// format in packet.go.
type checkpointData struct {
	Populations []*Population
	Pairs       []Pair
	Coefficients
	DeltaThreshold float64
	Mutation       MutationParams
	Generation     int
}

// SaveCheckpoint writes the current species manager and generation
// counter to a gzip-compressed gob file.
func SaveCheckpoint(filePath string, s *Species, generation int) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	s.Registry.mu.RLock()
	pairs := make([]Pair, len(s.Registry.pairs))
	copy(pairs, s.Registry.pairs)
	s.Registry.mu.RUnlock()

	data := checkpointData{
		Populations:    s.Populations,
		Pairs:          pairs,
		Coefficients:   s.Registry.Coefficients,
		DeltaThreshold: s.Registry.DeltaThreshold,
		Mutation:       s.Registry.Mutation,
		Generation:     generation,
	}

	gob.Register(map[GeneComparison]float64{})
	encoder := gob.NewEncoder(gzWriter)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	fmt.Printf("neat: checkpoint saved to %s\n", filePath)
	return nil
}

// LoadCheckpoint restores a species manager and its generation
// counter from a checkpoint file produced by SaveCheckpoint. The
// PRNG passed in becomes the restored manager's mutation/reproduction
// source; it is not itself persisted.
func LoadCheckpoint(filePath string, rng *rand.Rand) (*Species, int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	gob.Register(map[GeneComparison]float64{})
	var data checkpointData
	if err := gob.NewDecoder(gzReader).Decode(&data); err != nil {
		return nil, 0, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	registry := &Consultor{
		pairs:          data.Pairs,
		index:          make(map[Pair]int, len(data.Pairs)),
		Coefficients:   data.Coefficients,
		DeltaThreshold: data.DeltaThreshold,
		Mutation:       data.Mutation,
	}
	for i, p := range registry.pairs {
		registry.index[p] = i
	}
	for _, pop := range data.Populations {
		for _, g := range pop.Genomes {
			g.Registry = registry
		}
	}

	species := &Species{
		Populations: data.Populations,
		Registry:    registry,
		rng:         rng,
	}
	return species, data.Generation, nil
}
