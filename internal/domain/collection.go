// Package domain holds the core types of the sharding middleware: collections,
// points, search requests and results, and the sentinel errors shared across
// layers.
package domain

import (
	"fmt"
	"regexp"
)

// Metric is the distance function a collection is indexed with.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricIP     Metric = "ip"
	MetricCosine Metric = "cosine"
)

// Descending reports whether higher scores rank better under this metric.
// Inner-product and cosine similarities rank descending; L2 distance ascending.
func (m Metric) Descending() bool {
	return m == MetricIP || m == MetricCosine
}

// Valid reports whether the metric is one of the supported values.
func (m Metric) Valid() bool {
	switch m {
	case MetricL2, MetricIP, MetricCosine:
		return true
	}
	return false
}

// ParseMetric converts a string to a Metric, defaulting to L2 when empty.
func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return MetricL2, nil
	}
	m := Metric(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidSchema, s)
	}
	return m, nil
}

var collectionNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,254}$`)

// Collection describes a sharded collection as seen by the middleware.
// The authoritative definition lives in the engine; this is the routing view.
type Collection struct {
	Name   string
	Dim    int
	Metric Metric
	// Points is the total point count reported by the writer, -1 if unknown.
	Points int64
}

// NewCollection validates and builds a collection definition.
func NewCollection(name string, dim int, metric Metric) (Collection, error) {
	if !collectionNameRe.MatchString(name) {
		return Collection{}, fmt.Errorf("%w: invalid collection name %q", ErrInvalidSchema, name)
	}
	if dim <= 0 || dim > 65536 {
		return Collection{}, fmt.Errorf("%w: dimension %d out of range", ErrInvalidSchema, dim)
	}
	if !metric.Valid() {
		return Collection{}, fmt.Errorf("%w: unknown metric %q", ErrInvalidSchema, metric)
	}
	return Collection{Name: name, Dim: dim, Metric: metric, Points: -1}, nil
}
