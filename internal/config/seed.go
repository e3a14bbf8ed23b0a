package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedPlace is one pickup point or destination in the seed file.
// Fares are written in cedis (e.g. 40 or 42.50).
type SeedPlace struct {
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price,omitempty"`
}

// PriceCents converts Price to minor units.
func (p SeedPlace) PriceCents() int64 { return int64(math.Round(p.Price * 100)) }

// Seed lists the places inserted at startup when missing.
type Seed struct {
	PickupPoints []SeedPlace `yaml:"pickup_points"`
	Destinations []SeedPlace `yaml:"destinations"`
}

// DefaultSeed is used when no seed file is configured.
func DefaultSeed() Seed {
	return Seed{
		PickupPoints: []SeedPlace{
			{Name: "Apowa"},
			{Name: "Kwesimintsim"},
			{Name: "Apolo"},
			{Name: "Fijai"},
		},
		Destinations: []SeedPlace{
			{Name: "Madina/Adenta", Price: 30},
			{Name: "Accra", Price: 40},
			{Name: "Tema", Price: 50},
			{Name: "Kasoa", Price: 70},
			{Name: "Cape Coast", Price: 80},
			{Name: "Takoradi", Price: 60},
		},
	}
}

// LoadSeed reads a YAML seed file, or returns DefaultSeed when path is
// empty.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for _, d := range s.Destinations {
		if d.PriceCents() <= 0 {
			return Seed{}, fmt.Errorf("seed %s: destination %q needs a positive price", path, d.Name)
		}
	}
	return s, nil
}
