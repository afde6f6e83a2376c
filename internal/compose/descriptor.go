// Package compose models the deployment descriptor wiring the middleware,
// the vector-engine nodes and the tracing collector, and validates it before
// anything is started.
package compose

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Descriptor is the docker-compose service topology.
type Descriptor struct {
	Version  string             `yaml:"version"`
	Services map[string]Service `yaml:"services"`
	Volumes  map[string]Volume  `yaml:"volumes,omitempty"`
}

// Service is one container definition.
type Service struct {
	Image       string      `yaml:"image,omitempty"`
	Restart     string      `yaml:"restart,omitempty"`
	Ports       []string    `yaml:"ports,omitempty"`
	Environment Environment `yaml:"environment,omitempty"`
	Volumes     []string    `yaml:"volumes,omitempty"`
	DependsOn   []string    `yaml:"depends_on,omitempty"`
}

// Volume is a named volume definition. The fields are free-form driver
// options, so the model keeps them opaque.
type Volume map[string]any

// Environment holds service environment variables. Compose accepts both the
// list form ("KEY=value") and the map form, so unmarshalling handles both.
type Environment map[string]string

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		raw := make(map[string]string)
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("decode environment map: %w", err)
		}
		*e = raw
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return fmt.Errorf("decode environment list: %w", err)
		}
		env := make(Environment, len(items))
		for _, item := range items {
			key, val, _ := strings.Cut(item, "=")
			if key == "" {
				return fmt.Errorf("environment entry %q has no variable name", item)
			}
			env[key] = val
		}
		*e = env
		return nil
	default:
		return fmt.Errorf("environment must be a map or a list, got yaml kind %d", value.Kind)
	}
}

// MarshalYAML implements yaml.Marshaler. Emits the list form with sorted keys
// so the output is stable.
func (e Environment) MarshalYAML() (any, error) {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, k+"="+e[k])
	}
	return items, nil
}

// Lookup returns the value of an environment variable and whether it is set.
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// PortMapping is one parsed entry of a service ports list.
type PortMapping struct {
	HostIP        string
	HostPort      int // 0 when the runtime picks an ephemeral port
	ContainerPort int
	Protocol      string // tcp or udp
}

// ParsePortMapping parses the short port syntax: "CONTAINER",
// "HOST:CONTAINER" or "IP:HOST:CONTAINER", each with an optional "/protocol"
// suffix.
func ParsePortMapping(s string) (PortMapping, error) {
	m := PortMapping{Protocol: "tcp"}

	spec := s
	if base, proto, ok := strings.Cut(s, "/"); ok {
		if proto != "tcp" && proto != "udp" {
			return PortMapping{}, fmt.Errorf("port %q: unknown protocol %q", s, proto)
		}
		spec = base
		m.Protocol = proto
	}

	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 1:
		c, err := parsePort(parts[0])
		if err != nil {
			return PortMapping{}, fmt.Errorf("port %q: %w", s, err)
		}
		m.ContainerPort = c
	case 2:
		h, err := parsePort(parts[0])
		if err != nil {
			return PortMapping{}, fmt.Errorf("port %q: host part: %w", s, err)
		}
		c, err := parsePort(parts[1])
		if err != nil {
			return PortMapping{}, fmt.Errorf("port %q: container part: %w", s, err)
		}
		m.HostPort, m.ContainerPort = h, c
	case 3:
		m.HostIP = parts[0]
		h, err := parsePort(parts[1])
		if err != nil {
			return PortMapping{}, fmt.Errorf("port %q: host part: %w", s, err)
		}
		c, err := parsePort(parts[2])
		if err != nil {
			return PortMapping{}, fmt.Errorf("port %q: container part: %w", s, err)
		}
		m.HostPort, m.ContainerPort = h, c
	default:
		return PortMapping{}, fmt.Errorf("port %q: too many colon-separated parts", s)
	}

	return m, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", p)
	}
	return p, nil
}

// Load reads and parses a descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return Parse(data)
}

// Parse decodes a descriptor from YAML.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	return &d, nil
}

// Marshal renders the descriptor back to YAML.
func (d *Descriptor) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}
	return data, nil
}
