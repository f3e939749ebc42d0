package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoothProfile is one named external voting-server configuration.
type BoothProfile struct {
	URL       string `yaml:"url"`
	SharedKey string `yaml:"shared_key"`
}

// BoothServers is the immutable map of booth server profiles, loaded once at
// startup and passed explicitly into the authorization layer. Elections select
// a profile by name; an empty name selects Default.
type BoothServers struct {
	Default  string                  `yaml:"default"`
	Profiles map[string]BoothProfile `yaml:"servers"`
}

// Profile resolves a named profile, falling back to the default. A missing
// profile or field degrades to empty strings: signing with an empty secret
// still yields syntactically valid output, and health checks catch the
// misconfiguration instead of request-time failures.
func (b BoothServers) Profile(name string) BoothProfile {
	if name == "" {
		name = b.Default
	}
	return b.Profiles[name]
}

// LoadBoothServers reads the booth server profiles from a YAML file.
// An empty path yields an empty configuration, not an error.
func LoadBoothServers(path string) (BoothServers, error) {
	if path == "" {
		return BoothServers{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return BoothServers{}, fmt.Errorf("read booth servers file: %w", err)
	}
	var servers BoothServers
	if err := yaml.Unmarshal(raw, &servers); err != nil {
		return BoothServers{}, fmt.Errorf("parse booth servers file: %w", err)
	}
	return servers, nil
}
