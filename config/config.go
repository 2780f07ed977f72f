// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Agent      AgentConfig      `yaml:"agent"`
	Status     StatusConfig     `yaml:"status"`
	Actions    ActionsConfig    `yaml:"actions"`
	Combat     CombatConfig     `yaml:"combat"`
	Effects    EffectsConfig    `yaml:"effects"`
	Neural     NeuralConfig     `yaml:"neural"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Storage    StorageConfig    `yaml:"storage"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds grid dimensions, terrain mix, and resource spawning.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Terrain distribution fractions; must sum to 1.0.
	Plains    float64 `yaml:"plains"`
	Forest    float64 `yaml:"forest"`
	Water     float64 `yaml:"water"`
	Mountains float64 `yaml:"mountains"`

	FoodSpawnChance  float64 `yaml:"food_spawn_chance"`
	WaterSpawnChance float64 `yaml:"water_spawn_chance"`

	// Movement cost multiplier per passable terrain.
	PlainsMoveCost float64 `yaml:"plains_move_cost"`
	ForestMoveCost float64 `yaml:"forest_move_cost"`

	// NoiseScale is the base frequency for the terrain noise field.
	NoiseScale float64 `yaml:"noise_scale"`

	// BlockOnEncounter prevents moves onto occupied cells. When false the
	// move still fails but the event engine receives an encounter callback.
	BlockOnEncounter bool `yaml:"block_on_encounter"`
}

// AgentConfig holds trait ranges and derived stat scaling.
type AgentConfig struct {
	StandardTraitMin int `yaml:"standard_trait_min"`
	StandardTraitMax int `yaml:"standard_trait_max"`
	PrimaryTraitMin  int `yaml:"primary_trait_min"`
	PrimaryTraitMax  int `yaml:"primary_trait_max"`

	BaseHealth         int `yaml:"base_health"`
	HealthPerEndurance int `yaml:"health_per_endurance"`
	BaseEnergy         int `yaml:"base_energy"`
	EnergyPerEndurance int `yaml:"energy_per_endurance"`
}

// StatusConfig holds passive per-tick status dynamics.
type StatusConfig struct {
	HungerDepletion   float64 `yaml:"hunger_depletion"`
	ThirstDepletion   float64 `yaml:"thirst_depletion"`
	StarvationDamage  float64 `yaml:"starvation_damage"`
	DehydrationDamage float64 `yaml:"dehydration_damage"`
	EnergyRegen       float64 `yaml:"energy_regen"`
	EnergyRegenWeak   float64 `yaml:"energy_regen_weak"`
	WeakHealthCutoff  float64 `yaml:"weak_health_cutoff"`
	PoisonDamage      float64 `yaml:"poison_damage"`
	InjuryDamage      float64 `yaml:"injury_damage"`
}

// ActionsConfig holds the action cost/gain table.
type ActionsConfig struct {
	MoveEnergyCost float64 `yaml:"move_energy_cost"`

	RestEnergyGain float64 `yaml:"rest_energy_gain"`
	RestHealthGain float64 `yaml:"rest_health_gain"`

	EatEnergyCost      float64 `yaml:"eat_energy_cost"`
	PlantHungerGain    float64 `yaml:"plant_hunger_gain"`
	PlantOffDietGain   float64 `yaml:"plant_off_diet_gain"`
	MeatHungerGain     float64 `yaml:"meat_hunger_gain"`
	MeatOffDietGain    float64 `yaml:"meat_off_diet_gain"`
	DrinkEnergyCost    float64 `yaml:"drink_energy_cost"`
	DrinkThirstGain    float64 `yaml:"drink_thirst_gain"`
	WaterDepleteChance float64 `yaml:"water_deplete_chance"`

	AttackEnergyCost float64 `yaml:"attack_energy_cost"`
}

// CombatConfig holds attack resolution parameters.
type CombatConfig struct {
	BaseHitChance float64 `yaml:"base_hit_chance"`
	TraitHitScale float64 `yaml:"trait_hit_scale"`
	MinHitChance  float64 `yaml:"min_hit_chance"`
	MaxHitChance  float64 `yaml:"max_hit_chance"`
	MinDamage     int     `yaml:"min_damage"`
	MaxDamage     int     `yaml:"max_damage"`
	StrengthPivot int     `yaml:"strength_pivot"`
}

// EffectsConfig holds timed-effect trigger thresholds and durations.
type EffectsConfig struct {
	WellFedThreshold   float64 `yaml:"well_fed_threshold"`
	WellFedDuration    int     `yaml:"well_fed_duration"`
	ExhaustedThreshold float64 `yaml:"exhausted_threshold"`
	ExhaustedDuration  int     `yaml:"exhausted_duration"`
}

// NeuralConfig holds network topology parameters.
type NeuralConfig struct {
	Hidden1    int `yaml:"hidden1"`
	Hidden2    int `yaml:"hidden2"`
	NumOutputs int `yaml:"num_outputs"`

	// InitScale is the half-width of the uniform weight init range.
	InitScale float64 `yaml:"init_scale"`
}

// FitnessConfig holds the fitness component weight table.
type FitnessConfig struct {
	TimeWeight     float64 `yaml:"time_weight"`
	ResourceWeight float64 `yaml:"resource_weight"`
	KillWeight     float64 `yaml:"kill_weight"`
	DistanceWeight float64 `yaml:"distance_weight"`
	EventWeight    float64 `yaml:"event_weight"`
}

// EvolutionConfig holds selection and variation parameters.
type EvolutionConfig struct {
	PopulationSize    int     `yaml:"population_size"`
	ElitismFraction   float64 `yaml:"elitism_fraction"`
	TournamentSize    int     `yaml:"tournament_size"`
	MutationRate      float64 `yaml:"mutation_rate"`
	MutationMagnitude float64 `yaml:"mutation_magnitude"`
}

// SimulationConfig holds run-level parameters.
type SimulationConfig struct {
	MaxTicks       int   `yaml:"max_ticks"`
	MaxGenerations int   `yaml:"max_generations"`
	Seed           int64 `yaml:"seed"`

	// Rule-based fallback thresholds.
	RestHealthThreshold  float64 `yaml:"rest_health_threshold"`
	EatHungerThreshold   float64 `yaml:"eat_hunger_threshold"`
	DrinkThirstThreshold float64 `yaml:"drink_thirst_threshold"`
	RestEnergyThreshold  float64 `yaml:"rest_energy_threshold"`
}

// TelemetryConfig holds output settings.
type TelemetryConfig struct {
	OutputDir string `yaml:"output_dir"`
	LogRounds bool   `yaml:"log_rounds"`
}

// StorageConfig holds checkpoint store settings.
type StorageConfig struct {
	Path                 string `yaml:"path"`
	CheckpointEveryNGens int    `yaml:"checkpoint_every_n_gens"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumInputs    int // 5 internal + 9 neighborhood tiles * 4 flags
	EliteCount   int // max(1, floor(population_size * elitism_fraction))
	ParamsPerNet int // flattened weight+bias count per network
}

// Sensory vector layout: internal status inputs plus the 3x3 neighborhood flags.
const (
	internalInputs   = 5
	neighborhoodSize = 9
	flagsPerTile     = 4
)

// numActions is the size of the fixed action set the output layer maps to.
// Kept here so the config validator does not import the sim package.
const numActions = 8

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumInputs = internalInputs + neighborhoodSize*flagsPerTile

	elite := int(float64(c.Evolution.PopulationSize) * c.Evolution.ElitismFraction)
	if elite < 1 {
		elite = 1
	}
	c.Derived.EliteCount = elite

	in := c.Derived.NumInputs
	h1 := c.Neural.Hidden1
	h2 := c.Neural.Hidden2
	out := c.Neural.NumOutputs
	c.Derived.ParamsPerNet = h1*in + h1 + h2*h1 + h2 + out*h2 + out
}

// Validate checks cross-cutting invariants that must hold before any
// simulation object is constructed. A failure here halts construction.
func (c *Config) Validate() error {
	terrainSum := c.World.Plains + c.World.Forest + c.World.Water + c.World.Mountains
	if terrainSum < 0.999 || terrainSum > 1.001 {
		return fmt.Errorf("config: terrain distribution must sum to 1.0, got %.3f", terrainSum)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %dx%d", c.World.Width, c.World.Height)
	}
	if c.Neural.Hidden1 <= 0 || c.Neural.Hidden2 <= 0 {
		return fmt.Errorf("config: hidden layer sizes must be positive, got %d/%d", c.Neural.Hidden1, c.Neural.Hidden2)
	}
	if c.Neural.NumOutputs != numActions {
		return fmt.Errorf("config: num_outputs must equal the action set size %d, got %d", numActions, c.Neural.NumOutputs)
	}
	if c.Evolution.PopulationSize < 2 {
		return fmt.Errorf("config: population_size must be at least 2, got %d", c.Evolution.PopulationSize)
	}
	if c.Evolution.ElitismFraction < 0 || c.Evolution.ElitismFraction >= 1 {
		return fmt.Errorf("config: elitism_fraction must be in [0,1), got %.3f", c.Evolution.ElitismFraction)
	}
	if c.Evolution.TournamentSize < 2 {
		return fmt.Errorf("config: tournament_size must be at least 2, got %d", c.Evolution.TournamentSize)
	}
	if c.Evolution.MutationRate < 0 || c.Evolution.MutationRate > 1 {
		return fmt.Errorf("config: mutation_rate must be in [0,1], got %.3f", c.Evolution.MutationRate)
	}
	if c.Simulation.MaxTicks <= 0 {
		return fmt.Errorf("config: max_ticks must be positive, got %d", c.Simulation.MaxTicks)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
