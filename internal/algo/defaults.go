// SPDX-License-Identifier: MIT

package algo

import (
	"path"
	"strings"
)

// Canonical object names wired between the coupled-cluster steps.
const (
	objEigenEnergies       = "EigenEnergies"
	objCoulombVertex       = "CoulombVertex"
	objSlicedEigenEnergies = "SlicedEigenEnergies"
	objSlicedCoulombVertex = "SlicedCoulombVertex"
	objCoulombIntegrals    = "CoulombIntegrals"
	objAmplitudes          = "Amplitudes"
)

// NewRead builds a Read step for the object stored at fileName. The
// destination is inferred from the file stem, e.g. "in/EigenEnergies.yaml"
// reads into "EigenEnergies".
func NewRead(fileName string) Algo {
	stem := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	return Algo{
		Name: NameRead,
		In:   &ReadIn{FileName: FName(fileName)},
		Out:  &ReadOut{Destination: stem},
	}
}

// NewWrite builds a Write step dumping source to fileName.
func NewWrite(fileName, source string) Algo {
	return Algo{
		Name: NameWrite,
		In:   &WriteIn{FileName: FName(fileName), Source: source},
		Out:  &Raw{},
	}
}

// NewDefineHolesAndParticles builds the step with its canonical wiring.
func NewDefineHolesAndParticles() Algo {
	return Algo{
		Name: NameDefineHolesAndParticles,
		In:   &DefineHolesAndParticlesIn{EigenEnergies: objEigenEnergies},
		Out:  &DefineHolesAndParticlesOut{SlicedEigenEnergies: objSlicedEigenEnergies},
	}
}

// NewSliceOperator builds the step slicing the Coulomb vertex.
func NewSliceOperator() Algo {
	return Algo{
		Name: NameSliceOperator,
		In: &SliceOperatorIn{
			SlicedEigenEnergies: objSlicedEigenEnergies,
			Operator:            objCoulombVertex,
		},
		Out: &SliceOperatorOut{SlicedOperator: objSlicedCoulombVertex},
	}
}

// NewVertexCoulombIntegrals builds the integrals assembly step.
func NewVertexCoulombIntegrals() Algo {
	return Algo{
		Name: NameVertexCoulombIntegrals,
		In:   &VertexCoulombIntegralsIn{SlicedCoulombVertex: objSlicedCoulombVertex},
		Out:  &VertexCoulombIntegralsOut{CoulombIntegrals: objCoulombIntegrals},
	}
}

// CoupledClusterOptions are the tunable parameters of the CoupledCluster
// step. Zero values fall back to the canonical CCSD setup.
type CoupledClusterOptions struct {
	Method                string
	Linearized            int
	IntegralsSliceSize    int
	MaxIterations         int
	EnergyConvergence     string
	AmplitudesConvergence string
	Mixer                 Mixer
	InitialAmplitudes     string
}

// NewCoupledCluster builds the CoupledCluster step from opts.
func NewCoupledCluster(opts CoupledClusterOptions) Algo {
	if opts.Method == "" {
		opts.Method = "Ccsd"
	}
	if opts.IntegralsSliceSize <= 0 {
		opts.IntegralsSliceSize = 100
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 30
	}
	if opts.EnergyConvergence == "" {
		opts.EnergyConvergence = "1E-7"
	}
	if opts.AmplitudesConvergence == "" {
		opts.AmplitudesConvergence = "1E-6"
	}
	if opts.Mixer.Type == "" {
		opts.Mixer = Mixer{Type: "DiisMixer", MaxResidua: 4, Ratio: 1.0}
	}
	return Algo{
		Name: NameCoupledCluster,
		In: &CoupledClusterIn{
			Method:                opts.Method,
			Linearized:            opts.Linearized,
			IntegralsSliceSize:    opts.IntegralsSliceSize,
			SlicedEigenEnergies:   objSlicedEigenEnergies,
			CoulombIntegrals:      objCoulombIntegrals,
			SlicedCoulombVertex:   objSlicedCoulombVertex,
			MaxIterations:         opts.MaxIterations,
			EnergyConvergence:     opts.EnergyConvergence,
			AmplitudesConvergence: opts.AmplitudesConvergence,
			Mixer:                 opts.Mixer,
			InitialAmplitudes:     opts.InitialAmplitudes,
		},
		Out: &CoupledClusterOut{Amplitudes: objAmplitudes},
	}
}
