package config

import "sort"

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]*Config{
	// prototype uses the seed (112, 229, 83) and the 22x15 grid on a synthetic
	// volume large enough to hold the 40-voxel sphere under both flips.
	"prototype": preset(func(c *Config) {
		c.Seed = []float64{112, 229, 83}
		c.Radius = 40
		c.RingCount = 22
		c.PointsPerRing = 15
		c.AxialMode = "slice-stack"
		c.Gradient.Mode = "slice"
		c.Phantom = PhantomConfig{
			Width: 168, Height: 272, Depth: 100,
			Center:     []float64{112, 229, 83},
			Radius:     30,
			Foreground: 1,
			Noise:      0.02,
			Seed:       1,
		}
	}),
	"sphere": preset(func(c *Config) {
		c.PolePolicy = "capped"
	}),
	"compliant": preset(func(c *Config) {
		c.Stiffness = 0.05
		c.ExternalWeight = 4
		c.SpringLaw = "saturating"
	}),
	// rigid springs hold the sphere rounder and stop it short of the edge.
	"rigid": preset(func(c *Config) {
		c.Stiffness = 2
		c.ExternalWeight = 1
		c.Damping = 0.6
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
