// SPDX-License-Identifier: MIT

// Package algo models the algorithm steps of a CC4S input file.
//
// A CC4S input is a YAML sequence of steps, each a mapping with the keys
// "name", "in" and "out". Step names must be registered; Decode rejects
// anything else with ErrUnknownAlgorithm. Parameter blocks with a typed
// schema are decoded into structs and validated, while blocks a
// registered algorithm leaves untyped (such as Write's out) round-trip
// as raw YAML.
package algo

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownAlgorithm is returned when a step names an algorithm
	// that is not in the registry.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrSchema is returned when a parameter block violates the
	// registered schema of its algorithm.
	ErrSchema = errors.New("invalid algorithm parameters")
)

// Params is implemented by algorithm parameter blocks, typed or raw.
type Params interface {
	params()
}

// Validator is implemented by typed parameter blocks that enforce
// required fields beyond what YAML decoding can express.
type Validator interface {
	Validate() error
}

// Algo is a single step of a CC4S input file.
type Algo struct {
	Name string
	In   Params
	Out  Params
}

// algoWire fixes the on-disk key names and their order. CC4S spells the
// parameter blocks "in" and "out".
type algoWire struct {
	Name string `yaml:"name"`
	In   Params `yaml:"in"`
	Out  Params `yaml:"out"`
}

// MarshalYAML renders the step as a mapping with name/in/out in that order.
func (a Algo) MarshalYAML() (interface{}, error) {
	in := a.In
	if in == nil {
		in = &Raw{}
	}
	out := a.Out
	if out == nil {
		out = &Raw{}
	}
	return algoWire{Name: a.Name, In: in, Out: out}, nil
}

// Spec describes the parameter schema of a registered algorithm. A nil
// constructor leaves the corresponding block raw.
type Spec struct {
	Name   string
	NewIn  func() Params
	NewOut func() Params
}

var registry = map[string]Spec{}

// Register adds an algorithm schema to the registry. Specs are registered
// from init; late registration is allowed for forward compatibility.
func Register(s Spec) {
	registry[s.Name] = s
}

// Names returns the registered algorithm names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered spec for name.
func Lookup(name string) (Spec, bool) {
	s, ok := registry[name]
	return s, ok
}

// Decode builds an Algo from a YAML mapping node, enforcing the
// registered schema for the named algorithm.
func Decode(node *yaml.Node) (Algo, error) {
	var wire struct {
		Name string    `yaml:"name"`
		In   yaml.Node `yaml:"in"`
		Out  yaml.Node `yaml:"out"`
	}
	if err := node.Decode(&wire); err != nil {
		return Algo{}, fmt.Errorf("decode algorithm step: %w", err)
	}
	if wire.Name == "" {
		return Algo{}, fmt.Errorf("%w: step has no name", ErrSchema)
	}

	spec, ok := registry[wire.Name]
	if !ok {
		return Algo{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, wire.Name)
	}

	in, err := decodeSection(wire.Name, "in", &wire.In, spec.NewIn)
	if err != nil {
		return Algo{}, err
	}
	out, err := decodeSection(wire.Name, "out", &wire.Out, spec.NewOut)
	if err != nil {
		return Algo{}, err
	}

	return Algo{Name: wire.Name, In: in, Out: out}, nil
}

// decodeSection decodes one parameter block, strictly when a schema exists.
func decodeSection(algoName, section string, node *yaml.Node, newParams func() Params) (Params, error) {
	if newParams == nil {
		raw := &Raw{}
		if node.Kind != 0 {
			if err := raw.UnmarshalYAML(node); err != nil {
				return nil, fmt.Errorf("%s %s: %w", algoName, section, err)
			}
		}
		return raw, nil
	}

	p := newParams()
	if node.Kind != 0 {
		if err := decodeStrict(node, p); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrSchema, algoName, section, err)
		}
	}
	if v, ok := p.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrSchema, algoName, section, err)
		}
	}
	return p, nil
}

// decodeStrict decodes a node into out, rejecting unknown fields. The node
// is re-encoded so that yaml.Decoder.KnownFields can do the checking.
func decodeStrict(node *yaml.Node, out interface{}) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Raw holds a parameter block with no registered schema. It round-trips
// the original YAML node, preserving key order and scalar styles.
type Raw struct {
	node yaml.Node
}

func (r *Raw) params() {}

// UnmarshalYAML keeps the raw node.
func (r *Raw) UnmarshalYAML(node *yaml.Node) error {
	r.node = *node
	return nil
}

// MarshalYAML re-emits the stored node, or an empty mapping when unset.
func (r *Raw) MarshalYAML() (interface{}, error) {
	if r == nil || r.node.Kind == 0 {
		return map[string]interface{}{}, nil
	}
	return &r.node, nil
}

// Set replaces the raw content from a plain map. Intended for tests and
// programmatic construction of steps without a schema.
func (r *Raw) Set(v interface{}) error {
	return r.node.Encode(v)
}
