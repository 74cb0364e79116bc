// SPDX-License-Identifier: MIT

package inputset

import (
	"fmt"

	"github.com/ManuGH/cc4sflow/internal/algo"
	"github.com/ManuGH/cc4sflow/internal/input"
	"github.com/ManuGH/cc4sflow/internal/object"
)

// Generator produces input sets for one kind of CC4S calculation.
type Generator interface {
	CalcType() string
}

// CoupledClusterGenerator builds the canonical coupled-cluster input set:
// read the eigen energies and the Coulomb vertex from a previous dump,
// slice them, assemble the integrals and solve the amplitude equations.
type CoupledClusterGenerator struct {
	Options algo.CoupledClusterOptions

	// LinkFiles stages the dumped objects as symlinks instead of copies.
	LinkFiles bool
}

// CalcType implements Generator.
func (CoupledClusterGenerator) CalcType() string { return "coupled_cluster" }

// InputSet wires the six-step pipeline to the dumped object files.
func (g CoupledClusterGenerator) InputSet(eigenEnergiesPath, coulombVertexPath string) (*InputSet, error) {
	if _, _, err := splitBase(eigenEnergiesPath); err != nil {
		return nil, fmt.Errorf("eigen energies: %w", err)
	}
	if _, _, err := splitBase(coulombVertexPath); err != nil {
		return nil, fmt.Errorf("coulomb vertex: %w", err)
	}
	eigen, err := object.Resolve(eigenEnergiesPath, object.EigenEnergies.Name, object.EigenEnergies.Name)
	if err != nil {
		return nil, fmt.Errorf("eigen energies: %w", err)
	}
	vertex, err := object.Resolve(coulombVertexPath, object.CoulombVertex.Name, object.CoulombVertex.Name)
	if err != nil {
		return nil, fmt.Errorf("coulomb vertex: %w", err)
	}

	doc := input.Document{Algos: []algo.Algo{
		algo.NewRead(InDirName + "/" + object.EigenEnergies.Name + object.DescriptorExt),
		algo.NewRead(InDirName + "/" + object.CoulombVertex.Name + object.DescriptorExt),
		algo.NewDefineHolesAndParticles(),
		algo.NewSliceOperator(),
		algo.NewVertexCoulombIntegrals(),
		algo.NewCoupledCluster(g.Options),
	}}

	return &InputSet{
		Doc: doc,
		Objects: []StagedObject{
			{Class: eigen.Class, Src: eigenEnergiesPath, Dest: eigen.Name + object.DescriptorExt},
			{Class: vertex.Class, Src: coulombVertexPath, Dest: vertex.Name + object.DescriptorExt},
		},
		LinkFiles: g.LinkFiles,
	}, nil
}
