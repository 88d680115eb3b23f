// Package config loads the router's startup contract (spec.md §6): an
// AS number and a list of (port, neighbor address, relation) link
// descriptors. A YAML file (if given) is the base, overlaid by
// ASROUTER_-prefixed environment variables, following the teacher's
// koanf-based config convention.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/route-beacon/as-router/internal/addr"
	"github.com/route-beacon/as-router/internal/neighbor"
)

// LinkConfig is one connection descriptor (spec.md §6).
type LinkConfig struct {
	Port     uint16 `koanf:"port"`
	Neighbor string `koanf:"neighbor"`
	Relation string `koanf:"relation"`
}

// ServiceConfig carries the ambient, non-RIB settings.
type ServiceConfig struct {
	LogLevel   string `koanf:"log_level"`
	HTTPListen string `koanf:"http_listen"`
}

// Config is the fully-resolved startup contract.
type Config struct {
	ASN     uint32        `koanf:"asn"`
	Service ServiceConfig `koanf:"service"`
	Links   []LinkConfig  `koanf:"links"`
}

// Load reads an optional YAML file, overlays ASROUTER_-prefixed
// environment variables, and appends any links given on the command
// line via linksFlag (comma-separated "port=addr=relation" triples, the
// course-style config form — see SPEC_FULL.md §4.H).
func Load(path string, linksFlag string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ASROUTER_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "ASROUTER_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading env: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			LogLevel:   "info",
			HTTPListen: ":8080",
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if linksFlag != "" {
		extra, err := parseLinksFlag(linksFlag)
		if err != nil {
			return nil, err
		}
		cfg.Links = append(cfg.Links, extra...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseLinksFlag parses the "--links" CLI form: one triple per
// comma-separated entry, each "port=address=relation".
func parseLinksFlag(flag string) ([]LinkConfig, error) {
	var out []LinkConfig
	for _, entry := range strings.Split(flag, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "=")
		if len(parts) != 3 {
			return nil, fmt.Errorf("config: malformed --links entry %q, want port=address=relation", entry)
		}
		port, err := strconv.ParseUint(parts[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("config: invalid port in %q: %w", entry, err)
		}
		out = append(out, LinkConfig{
			Port:     uint16(port),
			Neighbor: parts[1],
			Relation: parts[2],
		})
	}
	return out, nil
}

// Validate rejects a config that cannot start a router: no ASN, no
// links, or a link with an unparseable address/relation.
func (c *Config) Validate() error {
	if c.ASN == 0 {
		return fmt.Errorf("config: asn is required")
	}
	if len(c.Links) == 0 {
		return fmt.Errorf("config: at least one link is required")
	}
	seen := make(map[string]bool, len(c.Links))
	for i, l := range c.Links {
		if l.Port == 0 {
			return fmt.Errorf("config: link %d: port is required", i)
		}
		if _, err := addr.ToInt(l.Neighbor); err != nil {
			return fmt.Errorf("config: link %d: %w", i, err)
		}
		if _, err := neighbor.ParseRelation(l.Relation); err != nil {
			return fmt.Errorf("config: link %d: %w", i, err)
		}
		if seen[l.Neighbor] {
			return fmt.Errorf("config: link %d: duplicate neighbor %s", i, l.Neighbor)
		}
		seen[l.Neighbor] = true
	}
	return nil
}
