package config

import (
	"fmt"
	"math"
	"sort"
)

// tunables maps the numeric keys a sweep may vary to their fields.
var tunables = map[string]func(c *Config) *float64{
	"radius":              func(c *Config) *float64 { return &c.Radius },
	"stiffness":           func(c *Config) *float64 { return &c.Stiffness },
	"external_weight":     func(c *Config) *float64 { return &c.ExternalWeight },
	"mass":                func(c *Config) *float64 { return &c.Mass },
	"timestep":            func(c *Config) *float64 { return &c.Timestep },
	"damping":             func(c *Config) *float64 { return &c.Damping },
	"convergence_epsilon": func(c *Config) *float64 { return &c.ConvergenceEpsilon },
	"gradient.sigma":      func(c *Config) *float64 { return &c.Gradient.Sigma },
}

// Set assigns a numeric option by its YAML key. max_iterations accepts
// whole numbers only.
func (c *Config) Set(key string, v float64) error {
	if key == "max_iterations" {
		if v != math.Trunc(v) {
			return invalid("max_iterations must be a whole number, got %g", v)
		}
		c.MaxIterations = int(v)
		return nil
	}
	field, ok := tunables[key]
	if !ok {
		return invalid("unknown numeric option %q", key)
	}
	*field(c) = v
	return nil
}

// Tunables lists the keys Set accepts.
func Tunables() []string {
	keys := make([]string, 0, len(tunables)+1)
	for k := range tunables {
		keys = append(keys, k)
	}
	keys = append(keys, "max_iterations")
	sort.Strings(keys)
	return keys
}

func (c *Config) Get(key string) (float64, error) {
	if key == "max_iterations" {
		return float64(c.MaxIterations), nil
	}
	field, ok := tunables[key]
	if !ok {
		return 0, fmt.Errorf("config: unknown numeric option %q", key)
	}
	return *field(c), nil
}
