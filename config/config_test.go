package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.World.Width != 25 || cfg.World.Height != 25 {
		t.Errorf("default world %dx%d, want 25x25", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Evolution.PopulationSize != 100 {
		t.Errorf("default population %d, want 100", cfg.Evolution.PopulationSize)
	}
	if cfg.Neural.NumOutputs != 8 {
		t.Errorf("default outputs %d, want 8", cfg.Neural.NumOutputs)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Derived.NumInputs != 41 {
		t.Errorf("derived inputs %d, want 41", cfg.Derived.NumInputs)
	}
	// pop 100, elitism 0.10
	if cfg.Derived.EliteCount != 10 {
		t.Errorf("derived elite count %d, want 10", cfg.Derived.EliteCount)
	}

	want := 16*41 + 16 + 12*16 + 12 + 8*12 + 8
	if cfg.Derived.ParamsPerNet != want {
		t.Errorf("derived params %d, want %d", cfg.Derived.ParamsPerNet, want)
	}
}

func TestEliteCountFloorsAtOne(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Evolution.PopulationSize = 5
	cfg.Evolution.ElitismFraction = 0.1
	cfg.computeDerived()

	if cfg.Derived.EliteCount != 1 {
		t.Errorf("elite count %d, want floor of 1", cfg.Derived.EliteCount)
	}
}

func TestUserFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "evolution:\n  population_size: 30\nsimulation:\n  max_ticks: 7\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Evolution.PopulationSize != 30 {
		t.Errorf("population %d, want override 30", cfg.Evolution.PopulationSize)
	}
	if cfg.Simulation.MaxTicks != 7 {
		t.Errorf("max ticks %d, want override 7", cfg.Simulation.MaxTicks)
	}
	// Untouched sections keep defaults.
	if cfg.World.Width != 25 {
		t.Errorf("world width %d, want default 25", cfg.World.Width)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"terrain sum", func(c *Config) { c.World.Plains = 0.9 }},
		{"zero width", func(c *Config) { c.World.Width = 0 }},
		{"zero hidden", func(c *Config) { c.Neural.Hidden1 = 0 }},
		{"wrong outputs", func(c *Config) { c.Neural.NumOutputs = 5 }},
		{"tiny population", func(c *Config) { c.Evolution.PopulationSize = 1 }},
		{"elitism one", func(c *Config) { c.Evolution.ElitismFraction = 1.0 }},
		{"tournament one", func(c *Config) { c.Evolution.TournamentSize = 1 }},
		{"mutation rate", func(c *Config) { c.Evolution.MutationRate = 1.5 }},
		{"zero ticks", func(c *Config) { c.Simulation.MaxTicks = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	old := global
	global = nil
	defer func() {
		global = old
		if recover() == nil {
			t.Fatal("Cfg before Init should panic")
		}
	}()
	Cfg()
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.World != cfg.World || back.Evolution != cfg.Evolution {
		t.Error("config changed across YAML round trip")
	}
}
