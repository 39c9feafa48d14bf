package neat

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Config is the full set of run parameters loaded from an INI file:
// speciation coefficients, mutation parameters, and generation
// sizing/timing.
type Config struct {
	Consultor      ConsultorConfig
	Mutation       MutationParams
	LSES           LSESParams
}

// ConsultorConfig holds the speciation distance coefficients and
// threshold that seed a Consultor.
type ConsultorConfig struct {
	Coefficients   `ini:"-"`
	DeltaThreshold float64 `ini:"delta_threshold"`
}

var geneMutateFlagNames = map[string]GeneMutateFlag{
	"flip_sign":     FlipSign,
	"toggle_state":  ToggleState,
	"set_random":    SetRandom,
	"scale_plus_one": ScalePlusOne,
	"scale_unit":    ScaleUnit,
}

var comparisonNames = map[string]GeneComparison{
	"both_active":       BothActive,
	"both_inactive":     BothInactive,
	"inversed":          Inversed,
	"dominant_active":   DominantActive,
	"dominant_inactive": DominantInactive,
}

var selectionModeNames = map[string]SelectionMode{
	"random":                   Random,
	"logarithmic_ranked_pick":  LogarithmicRankedPick,
}

// LoadConfig loads a run's Consultor/Mutation/LSES parameter blocks
// from an INI file, following the teacher's map-then-manually-reload
// pattern for values struct-tag mapping mishandles (bools, lists,
// keyed maps).
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := &Config{}

	consultorSection := cfg.Section("Consultor")
	if err := consultorSection.MapTo(&config.Consultor); err != nil {
		return nil, fmt.Errorf("failed to map [Consultor] section: %w", err)
	}
	config.Consultor.Disjoint = consultorSection.Key("c_disjoint").MustFloat64(1.0)
	config.Consultor.Excess = consultorSection.Key("c_excess").MustFloat64(1.0)
	config.Consultor.AvgWeight = consultorSection.Key("c_avg_weight").MustFloat64(0.4)

	mutationSection := cfg.Section("Mutation")
	if err := mutationSection.MapTo(&config.Mutation); err != nil {
		return nil, fmt.Errorf("failed to map [Mutation] section: %w", err)
	}

	flagsRaw := cleanIniString(mutationSection.Key("gene_mutate_flags").String())
	for _, name := range strings.Fields(flagsRaw) {
		flag, ok := geneMutateFlagNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("config error: unknown gene_mutate_flag '%s'", name)
		}
		config.Mutation.GeneMutateFlags = append(config.Mutation.GeneMutateFlags, flag)
	}

	config.Mutation.ParentGeneCrossChanceLookup = make(map[GeneComparison]float64, len(comparisonNames))
	for name, comparison := range comparisonNames {
		key := "cross_chance_" + name
		if mutationSection.HasKey(key) {
			config.Mutation.ParentGeneCrossChanceLookup[comparison] = mutationSection.Key(key).MustFloat64(0)
		}
	}

	lsesSection := cfg.Section("LSES")
	if err := lsesSection.MapTo(&config.LSES); err != nil {
		return nil, fmt.Errorf("failed to map [LSES] section: %w", err)
	}
	modeRaw := strings.ToLower(cleanIniString(lsesSection.Key("selection_mode").String()))
	mode, ok := selectionModeNames[modeRaw]
	if !ok {
		return nil, fmt.Errorf("config error: invalid selection_mode '%s'", modeRaw)
	}
	config.LSES.SelectionMode = mode

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.LSES.NumberOfInputPerceptrons <= 0 {
		return fmt.Errorf("config error: number_of_input_perceptrons must be positive")
	}
	if config.LSES.NumberOfOutputPerceptrons <= 0 {
		return fmt.Errorf("config error: number_of_output_perceptrons must be positive")
	}
	if config.LSES.PopulationSize <= 0 {
		return fmt.Errorf("config error: population_size must be positive")
	}
	if config.LSES.Elite < 0 || config.LSES.Elite > 1 {
		return fmt.Errorf("config error: elite must be between 0 and 1")
	}
	if config.LSES.RemoveWorst < 0 || config.LSES.RemoveWorst > 1 {
		return fmt.Errorf("config error: remove_worst must be between 0 and 1")
	}
	if config.Consultor.DeltaThreshold < 0 {
		return fmt.Errorf("config error: delta_threshold cannot be negative")
	}
	if config.Consultor.Disjoint < 0 || config.Consultor.Excess < 0 || config.Consultor.AvgWeight < 0 {
		return fmt.Errorf("config error: consultor coefficients cannot be negative")
	}
	if len(config.Mutation.GeneMutateFlags) == 0 {
		return fmt.Errorf("config error: gene_mutate_flags must be specified")
	}
	return nil
}

// cleanIniString removes inline comments and trims whitespace from a
// string read from INI, matching the teacher's comment-tolerant parse.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
