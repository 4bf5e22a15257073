// Package seed populates a database with demo issue clusters. Every report
// and vote goes through the real resolver and scoring engine.
package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes the clusters to create.
type Scenario struct {
	Seed     int64     `yaml:"seed"`
	Clusters []Cluster `yaml:"clusters"`
}

// Cluster is a group of reports around one point.
type Cluster struct {
	Name         string  `yaml:"name"`
	Lat          float64 `yaml:"lat"`
	Lng          float64 `yaml:"lng"`
	SpreadMeters float64 `yaml:"spread_meters"`
	Reports      int     `yaml:"reports"`
	Upvotes      int     `yaml:"upvotes"`
	Downvotes    int     `yaml:"downvotes"`
	Addressed    bool    `yaml:"addressed"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if len(sc.Clusters) == 0 {
		return nil, errors.New("scenario has no clusters")
	}
	for i, c := range sc.Clusters {
		if c.Name == "" {
			return nil, fmt.Errorf("cluster %d: name is required", i)
		}
		if c.Reports < 1 {
			return nil, fmt.Errorf("cluster %q: reports must be at least 1", c.Name)
		}
		if c.SpreadMeters < 0 || c.Upvotes < 0 || c.Downvotes < 0 {
			return nil, fmt.Errorf("cluster %q: counts and spread must not be negative", c.Name)
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return nil, fmt.Errorf("cluster %q: center is out of range", c.Name)
		}
	}
	return &sc, nil
}
