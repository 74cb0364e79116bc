// SPDX-License-Identifier: MIT

// Package object describes the tensor objects CC4S reads and writes.
//
// Every object is stored as a YAML descriptor plus zero or more binary
// element files and sidecar files living next to it. The taxonomy here
// lets input-set staging enumerate every companion file from the bare
// object base name.
package object

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	xglog "github.com/ManuGH/cc4sflow/internal/log"
)

var (
	// ErrUnknownObject is returned when neither the file stem nor an
	// explicit type identifies a known tensor object.
	ErrUnknownObject = errors.New("cannot determine tensor object type")
)

// DescriptorExt is the extension of every object descriptor file.
const DescriptorExt = ".yaml"

// Class describes one kind of tensor object and its file layout.
type Class struct {
	Name         string
	ElementsExts []string // extensions of the binary element files
	Sidecars     []string // additional files living in the object's directory
}

// ElementsFiles returns the element file paths for an object stored at base
// (the descriptor path without extension).
func (c *Class) ElementsFiles(base string) []string {
	files := make([]string, 0, len(c.ElementsExts))
	for _, ext := range c.ElementsExts {
		files = append(files, base+ext)
	}
	return files
}

// SidecarFiles returns the sidecar file paths for an object stored at base.
// Sidecars live next to the descriptor, not under its name.
func (c *Class) SidecarFiles(base string) []string {
	dir := filepath.Dir(base)
	files := make([]string, 0, len(c.Sidecars))
	for _, name := range c.Sidecars {
		files = append(files, filepath.Join(dir, name))
	}
	return files
}

// Object is a named instance of a tensor object class, e.g. the
// EigenEnergies read into a calculation.
type Object struct {
	Class *Class
	Name  string
}

func (o Object) String() string {
	return o.Name
}

// hpCombos builds component suffixes for every hole/particle combination
// of the given arity.
func hpCombos(arity int) []string {
	combos := []string{""}
	for i := 0; i < arity; i++ {
		next := make([]string, 0, len(combos)*2)
		for _, c := range combos {
			next = append(next, c+"h", c+"p")
		}
		combos = next
	}
	exts := make([]string, len(combos))
	for i, c := range combos {
		exts[i] = ".components." + c + ".elements"
	}
	return exts
}

var classes = map[string]*Class{}

// aliases maps alternative object names appearing in CC4S outputs to
// their classes.
var aliases = map[string]string{
	"DeltaIntegralsHH":   "DeltaIntegrals",
	"DeltaIntegralsPPHH": "DeltaIntegrals",
}

func register(c *Class) *Class {
	classes[c.Name] = c
	return c
}

var (
	Amplitudes = register(&Class{
		Name:         "Amplitudes",
		ElementsExts: []string{".components.ph.elements", ".components.pphh.elements"},
	})
	CoulombIntegrals = register(&Class{
		Name:         "CoulombIntegrals",
		ElementsExts: hpCombos(4),
	})
	CoulombPotential = register(&Class{
		Name:         "CoulombPotential",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"Momentum.yaml"},
	})
	CoulombVertex = register(&Class{
		Name:         "CoulombVertex",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"State.yaml", "AuxiliaryField.yaml"},
	})
	CoulombVertexSingularVectors = register(&Class{
		Name:         "CoulombVertexSingularVectors",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"Momentum.yaml", "AuxiliaryField.yaml"},
	})
	DeltaIntegrals = register(&Class{
		Name:         "DeltaIntegrals",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"State.yaml"},
	})
	EigenEnergies = register(&Class{
		Name:         "EigenEnergies",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"State.yaml"},
	})
	GridVectors = register(&Class{
		Name:         "GridVectors",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"Momentum.yaml"},
	})
	Mp2PairEnergies = register(&Class{
		Name:         "Mp2PairEnergies",
		ElementsExts: []string{".elements"},
		Sidecars:     []string{"State.yaml"},
	})
	SlicedCoulombVertex = register(&Class{
		Name:         "SlicedCoulombVertex",
		ElementsExts: hpCombos(2),
	})
	SlicedEigenEnergies = register(&Class{
		Name:         "SlicedEigenEnergies",
		ElementsExts: hpCombos(1),
	})
	StructureFactors = register(&Class{
		Name:         "StructureFactors",
		ElementsExts: []string{".elements"},
	})
	ResultDict = register(&Class{
		Name: "ResultDict",
		// Result dictionaries have no element files.
	})
)

// ClassByName returns the class registered under name, following aliases.
func ClassByName(name string) (*Class, bool) {
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	c, ok := classes[name]
	return c, ok
}

// ClassFromPath infers the object class from the stem of a file path,
// e.g. "out/CoulombVertex.yaml" and "CoulombVertex.elements" both resolve
// to CoulombVertex.
func ClassFromPath(path string) (*Class, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ClassByName(stem)
}

// Resolve builds an Object named destination from a file path or object
// string, optionally constrained to an explicit type name. An explicit
// type wins over the stem; a mismatch between the two is logged.
func Resolve(pathOrName, destination, explicitType string) (Object, error) {
	var explicit *Class
	if explicitType != "" {
		c, ok := ClassByName(explicitType)
		if !ok {
			return Object{}, fmt.Errorf("%w: unknown type %q", ErrUnknownObject, explicitType)
		}
		explicit = c
	}

	fromPath, _ := ClassFromPath(pathOrName)

	switch {
	case explicit == nil && fromPath == nil:
		return Object{}, fmt.Errorf("%w: %q", ErrUnknownObject, pathOrName)
	case explicit == nil:
		return Object{Class: fromPath, Name: destination}, nil
	default:
		if fromPath != nil && fromPath != explicit {
			logger := xglog.WithComponent("object")
			logger.Warn().
				Str("path", pathOrName).
				Str("path_type", fromPath.Name).
				Str("explicit_type", explicit.Name).
				Msg("object type from filename does not match provided type")
		}
		return Object{Class: explicit, Name: destination}, nil
	}
}
