package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation failure classes.
var (
	ErrUnsupportedVersion = errors.New("unsupported descriptor version")
	ErrNoServices         = errors.New("descriptor declares no services")
	ErrPortCollision      = errors.New("host port collision")
	ErrUnknownDependency  = errors.New("depends_on references unknown service")
	ErrDependencyCycle    = errors.New("depends_on cycle")
	ErrMissingEnv         = errors.New("missing required environment variable")
)

// middlewareRequiredEnv is the launch contract of the middleware image.
var middlewareRequiredEnv = []string{
	"SERVER_PORT",
	"WOSERVER",
	"SD_STATIC_HOSTS",
}

// Validate checks the descriptor: schema version, parseable and non-colliding
// port mappings, and a resolvable startup order.
func (d *Descriptor) Validate() error {
	if err := d.validateVersion(); err != nil {
		return err
	}
	if len(d.Services) == 0 {
		return ErrNoServices
	}
	if err := d.validatePorts(); err != nil {
		return err
	}
	return d.validateDependencies()
}

func (d *Descriptor) validateVersion() error {
	if d.Version == "" {
		// The version key is optional in the current compose schema.
		return nil
	}
	major, _, _ := strings.Cut(d.Version, ".")
	switch major {
	case "2", "3":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedVersion, d.Version)
}

func (d *Descriptor) validatePorts() error {
	type binding struct {
		service string
		port    PortMapping
	}
	seen := make(map[string]binding)

	for _, name := range d.serviceNames() {
		svc := d.Services[name]
		for _, spec := range svc.Ports {
			m, err := ParsePortMapping(spec)
			if err != nil {
				return fmt.Errorf("service %q: %w", name, err)
			}
			if m.HostPort == 0 {
				continue
			}
			key := fmt.Sprintf("%s:%d/%s", m.HostIP, m.HostPort, m.Protocol)
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("%w: host port %d/%s claimed by both %q and %q",
					ErrPortCollision, m.HostPort, m.Protocol, prev.service, name)
			}
			seen[key] = binding{service: name, port: m}
		}
	}
	return nil
}

// validateDependencies checks that every depends_on target exists and that the
// graph is acyclic, so the runtime can produce a startup order.
func (d *Descriptor) validateDependencies() error {
	for _, name := range d.serviceNames() {
		for _, dep := range d.Services[name].DependsOn {
			if _, ok := d.Services[dep]; !ok {
				return fmt.Errorf("%w: service %q depends on %q", ErrUnknownDependency, name, dep)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(d.Services))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: involving service %q", ErrDependencyCycle, name)
		}
		state[name] = visiting
		for _, dep := range d.Services[name].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range d.serviceNames() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// StartupOrder returns the service names in dependency order: every service
// appears after all of its depends_on targets. Validate must pass first.
func (d *Descriptor) StartupOrder() ([]string, error) {
	if err := d.validateDependencies(); err != nil {
		return nil, err
	}

	order := make([]string, 0, len(d.Services))
	done := make(map[string]bool, len(d.Services))

	var visit func(name string)
	visit = func(name string) {
		if done[name] {
			return
		}
		done[name] = true
		for _, dep := range d.Services[name].DependsOn {
			visit(dep)
		}
		order = append(order, name)
	}

	for _, name := range d.serviceNames() {
		visit(name)
	}
	return order, nil
}

// ValidateMiddlewareEnv checks that the named service carries the environment
// the middleware image reads at startup. TRACING_TYPE selects extra
// requirements: jaeger and otlp both need a reporting endpoint.
func (d *Descriptor) ValidateMiddlewareEnv(service string) error {
	svc, ok := d.Services[service]
	if !ok {
		return fmt.Errorf("%w: service %q", ErrUnknownDependency, service)
	}

	var missing []string
	for _, key := range middlewareRequiredEnv {
		if _, ok := svc.Environment.Lookup(key); !ok {
			missing = append(missing, key)
		}
	}

	tracingType, _ := svc.Environment.Lookup("TRACING_TYPE")
	switch tracingType {
	case "", "none":
	case "jaeger", "otlp":
		for _, key := range []string{"TRACING_REPORTING_HOST", "TRACING_REPORTING_PORT"} {
			if _, ok := svc.Environment.Lookup(key); !ok {
				missing = append(missing, key)
			}
		}
	default:
		return fmt.Errorf("service %q: unknown TRACING_TYPE %q", service, tracingType)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: service %q lacks %s",
			ErrMissingEnv, service, strings.Join(missing, ", "))
	}
	return nil
}

func (d *Descriptor) serviceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
