// Holds the unified run configuration, loadable from a YAML file, plus the
// validation shared between config loading and the CLI.

package stacking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StackingBundle holds unified run configuration, loadable from a YAML file.
// Zero values mean "not set" and fall back to CLI flag defaults.
type StackingBundle struct {
	Stacking   StackingConfig   `yaml:"stacking"`
	SubBatches []SubBatchConfig `yaml:"sub_batches"`
	Defaults   []DefaultConfig  `yaml:"defaults"`
	Gun        GunConfig        `yaml:"gun"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
}

// StackingConfig configures the coordinator and its policy.
type StackingConfig struct {
	Policy                 string   `yaml:"policy"`
	EnergyCut              *float64 `yaml:"energy_cut"`
	AdditionalWaitingTiers int      `yaml:"additional_waiting_tiers"`
	PartitionedUrgent      bool     `yaml:"partitioned_urgent"`
}

// SubBatchConfig registers one sub-batch type with its per-batch capacity.
type SubBatchConfig struct {
	Type     int `yaml:"type"`
	Capacity int `yaml:"capacity"`
}

// DefaultConfig is one default-classification override table entry. Exactly
// one of Particle and Status selects the matching tracks.
type DefaultConfig struct {
	Particle       string `yaml:"particle"`
	Status         string `yaml:"status"`
	Classification string `yaml:"classification"`
	Tier           int    `yaml:"tier"`           // for classification "waiting"
	SubBatchType   int    `yaml:"sub_batch_type"` // for classification "subbatch"
	Severity       string `yaml:"severity"`
}

// GunConfig configures synthetic primary generation.
type GunConfig struct {
	ParticlesPerEvent int                `yaml:"particles_per_event"`
	EnergyMean        float64            `yaml:"energy_mean"`
	EnergyStdDev      float64            `yaml:"energy_stddev"`
	EnergyMin         float64            `yaml:"energy_min"`
	EnergyMax         float64            `yaml:"energy_max"`
	Species           map[string]float64 `yaml:"species"` // category -> fraction
}

// DispatchConfig configures the sub-batch dispatch pool.
type DispatchConfig struct {
	Workers int `yaml:"workers"`
}

// LoadStackingBundle reads and parses a YAML run configuration file.
func LoadStackingBundle(path string) (*StackingBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stacking config: %w", err)
	}
	var bundle StackingBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing stacking config: %w", err)
	}
	return &bundle, nil
}

// ValidClassificationNames is the set of recognized classification names in
// default-override entries.
var ValidClassificationNames = map[string]bool{
	"urgent": true, "waiting": true, "postpone": true, "kill": true, "subbatch": true,
}

// ValidCategories is the set of recognized particle category names.
var ValidCategories = map[string]bool{
	string(CategoryOther):    true,
	string(CategoryNeutron):  true,
	string(CategoryElectron): true,
	string(CategoryGamma):    true,
	string(CategoryPositron): true,
}

// ValidStatuses is the set of recognized track status names.
var ValidStatuses = map[string]bool{
	string(StatusAlive):     true,
	string(StatusSuspended): true,
	string(StatusPostpone):  true,
	string(StatusKill):      true,
}

// ToClassification converts the entry's classification fields to a
// Classification value.
func (d DefaultConfig) ToClassification() (Classification, error) {
	switch d.Classification {
	case "urgent":
		return Urgent(), nil
	case "waiting":
		return Waiting(d.Tier), nil
	case "postpone":
		return Postponed(), nil
	case "kill":
		return Killed(), nil
	case "subbatch":
		return SubBatch(d.SubBatchType), nil
	default:
		return Classification{}, fmt.Errorf("unknown classification %q", d.Classification)
	}
}

// Validate checks that all names and parameter ranges in the bundle are valid.
func (b *StackingBundle) Validate() error {
	if !ValidPolicies[b.Stacking.Policy] {
		return fmt.Errorf("unknown stacking policy %q", b.Stacking.Policy)
	}
	if b.Stacking.EnergyCut != nil && *b.Stacking.EnergyCut < 0 {
		return fmt.Errorf("energy_cut must be non-negative, got %f", *b.Stacking.EnergyCut)
	}
	if n := b.Stacking.AdditionalWaitingTiers; n < 0 || n > MaxAdditionalWaitingTiers {
		return fmt.Errorf("additional_waiting_tiers must be in [0,%d], got %d", MaxAdditionalWaitingTiers, n)
	}
	registered := make(map[int]bool, len(b.SubBatches))
	for _, sb := range b.SubBatches {
		if sb.Capacity <= 0 {
			return fmt.Errorf("sub-batch type %d capacity must be positive, got %d", sb.Type, sb.Capacity)
		}
		if registered[sb.Type] {
			return fmt.Errorf("sub-batch type %d registered twice", sb.Type)
		}
		registered[sb.Type] = true
	}
	for i, d := range b.Defaults {
		if (d.Particle == "") == (d.Status == "") {
			return fmt.Errorf("defaults[%d]: exactly one of particle and status must be set", i)
		}
		if d.Particle != "" && !ValidCategories[d.Particle] {
			return fmt.Errorf("defaults[%d]: unknown particle category %q", i, d.Particle)
		}
		if d.Status != "" && !ValidStatuses[d.Status] {
			return fmt.Errorf("defaults[%d]: unknown track status %q", i, d.Status)
		}
		if !ValidClassificationNames[d.Classification] {
			return fmt.Errorf("defaults[%d]: unknown classification %q", i, d.Classification)
		}
		if d.Classification == "waiting" && (d.Tier < 0 || d.Tier > b.Stacking.AdditionalWaitingTiers) {
			return fmt.Errorf("defaults[%d]: waiting tier %d not configured", i, d.Tier)
		}
		if d.Classification == "subbatch" && !registered[d.SubBatchType] {
			return fmt.Errorf("defaults[%d]: sub-batch type %d not registered", i, d.SubBatchType)
		}
		if !ValidSeverities[d.Severity] {
			return fmt.Errorf("defaults[%d]: unknown severity %q", i, d.Severity)
		}
	}
	if b.Gun.ParticlesPerEvent < 0 {
		return fmt.Errorf("particles_per_event must be non-negative, got %d", b.Gun.ParticlesPerEvent)
	}
	if b.Gun.EnergyStdDev < 0 {
		return fmt.Errorf("energy_stddev must be non-negative, got %f", b.Gun.EnergyStdDev)
	}
	if b.Gun.EnergyMin > b.Gun.EnergyMax {
		return fmt.Errorf("energy_min %f exceeds energy_max %f", b.Gun.EnergyMin, b.Gun.EnergyMax)
	}
	for name, frac := range b.Gun.Species {
		if !ValidCategories[name] {
			return fmt.Errorf("unknown species %q in gun config", name)
		}
		if frac < 0 {
			return fmt.Errorf("species %q fraction must be non-negative, got %f", name, frac)
		}
	}
	if b.Dispatch.Workers < 0 {
		return fmt.Errorf("dispatch workers must be non-negative, got %d", b.Dispatch.Workers)
	}
	return nil
}
