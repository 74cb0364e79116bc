// SPDX-License-Identifier: MIT

package algo

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm names understood by this package.
const (
	NameRead                    = "Read"
	NameWrite                   = "Write"
	NameDefineHolesAndParticles = "DefineHolesAndParticles"
	NameSliceOperator           = "SliceOperator"
	NameVertexCoulombIntegrals  = "VertexCoulombIntegrals"
	NameCoupledCluster          = "CoupledCluster"
)

func init() {
	Register(Spec{
		Name:   NameRead,
		NewIn:  func() Params { return &ReadIn{} },
		NewOut: func() Params { return &ReadOut{} },
	})
	Register(Spec{
		Name:  NameWrite,
		NewIn: func() Params { return &WriteIn{} },
		// Write has no typed output block.
	})
	Register(Spec{
		Name:   NameDefineHolesAndParticles,
		NewIn:  func() Params { return &DefineHolesAndParticlesIn{} },
		NewOut: func() Params { return &DefineHolesAndParticlesOut{} },
	})
	Register(Spec{
		Name:   NameSliceOperator,
		NewIn:  func() Params { return &SliceOperatorIn{} },
		NewOut: func() Params { return &SliceOperatorOut{} },
	})
	Register(Spec{
		Name:   NameVertexCoulombIntegrals,
		NewIn:  func() Params { return &VertexCoulombIntegralsIn{} },
		NewOut: func() Params { return &VertexCoulombIntegralsOut{} },
	})
	Register(Spec{
		Name:   NameCoupledCluster,
		NewIn:  func() Params { return &CoupledClusterIn{} },
		NewOut: func() Params { return &CoupledClusterOut{} },
	})
}

// requireFields builds a schema error listing every missing field.
func requireFields(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
}

// ReadIn is the input block of the Read algorithm.
type ReadIn struct {
	FileName FName `yaml:"fileName"`
}

func (*ReadIn) params() {}

func (p *ReadIn) Validate() error {
	if p.FileName == "" {
		return errors.New("missing required field(s): fileName")
	}
	return nil
}

// ReadOut is the output block of the Read algorithm.
type ReadOut struct {
	Destination string `yaml:"destination"`
}

func (*ReadOut) params() {}

func (p *ReadOut) Validate() error {
	if p.Destination == "" {
		return errors.New("missing required field(s): destination")
	}
	return nil
}

// WriteIn is the input block of the Write algorithm.
type WriteIn struct {
	FileName FName  `yaml:"fileName"`
	Source   string `yaml:"source"`
}

func (*WriteIn) params() {}

func (p *WriteIn) Validate() error {
	var missing []string
	if p.FileName == "" {
		missing = append(missing, "fileName")
	}
	if p.Source == "" {
		missing = append(missing, "source")
	}
	return requireFields(missing)
}

// DefineHolesAndParticlesIn is the input block of DefineHolesAndParticles.
type DefineHolesAndParticlesIn struct {
	EigenEnergies string `yaml:"eigenEnergies"`
}

func (*DefineHolesAndParticlesIn) params() {}

func (p *DefineHolesAndParticlesIn) Validate() error {
	if p.EigenEnergies == "" {
		return errors.New("missing required field(s): eigenEnergies")
	}
	return nil
}

// DefineHolesAndParticlesOut is the output block of DefineHolesAndParticles.
type DefineHolesAndParticlesOut struct {
	SlicedEigenEnergies string `yaml:"slicedEigenEnergies"`
}

func (*DefineHolesAndParticlesOut) params() {}

func (p *DefineHolesAndParticlesOut) Validate() error {
	if p.SlicedEigenEnergies == "" {
		return errors.New("missing required field(s): slicedEigenEnergies")
	}
	return nil
}

// SliceOperatorIn is the input block of SliceOperator.
type SliceOperatorIn struct {
	SlicedEigenEnergies string `yaml:"slicedEigenEnergies"`
	Operator            string `yaml:"operator"`
}

func (*SliceOperatorIn) params() {}

func (p *SliceOperatorIn) Validate() error {
	var missing []string
	if p.SlicedEigenEnergies == "" {
		missing = append(missing, "slicedEigenEnergies")
	}
	if p.Operator == "" {
		missing = append(missing, "operator")
	}
	return requireFields(missing)
}

// SliceOperatorOut is the output block of SliceOperator.
type SliceOperatorOut struct {
	SlicedOperator string `yaml:"slicedOperator"`
}

func (*SliceOperatorOut) params() {}

func (p *SliceOperatorOut) Validate() error {
	if p.SlicedOperator == "" {
		return errors.New("missing required field(s): slicedOperator")
	}
	return nil
}

// VertexCoulombIntegralsIn is the input block of VertexCoulombIntegrals.
type VertexCoulombIntegralsIn struct {
	SlicedCoulombVertex string `yaml:"slicedCoulombVertex"`
}

func (*VertexCoulombIntegralsIn) params() {}

func (p *VertexCoulombIntegralsIn) Validate() error {
	if p.SlicedCoulombVertex == "" {
		return errors.New("missing required field(s): slicedCoulombVertex")
	}
	return nil
}

// VertexCoulombIntegralsOut is the output block of VertexCoulombIntegrals.
type VertexCoulombIntegralsOut struct {
	CoulombIntegrals string `yaml:"coulombIntegrals"`
}

func (*VertexCoulombIntegralsOut) params() {}

func (p *VertexCoulombIntegralsOut) Validate() error {
	if p.CoulombIntegrals == "" {
		return errors.New("missing required field(s): coulombIntegrals")
	}
	return nil
}

// Mixer configures the amplitude equation solver of CoupledCluster.
type Mixer struct {
	Type       string  `yaml:"type"`
	MaxResidua int     `yaml:"maxResidua"`
	Ratio      float64 `yaml:"ratio"`
}

// CoupledClusterIn is the input block of CoupledCluster.
type CoupledClusterIn struct {
	Method                string `yaml:"method"`
	Linearized            int    `yaml:"linearized"`
	IntegralsSliceSize    int    `yaml:"integralsSliceSize"`
	SlicedEigenEnergies   string `yaml:"slicedEigenEnergies"`
	CoulombIntegrals      string `yaml:"coulombIntegrals"`
	SlicedCoulombVertex   string `yaml:"slicedCoulombVertex"`
	MaxIterations         int    `yaml:"maxIterations"`
	EnergyConvergence     string `yaml:"energyConvergence"`
	AmplitudesConvergence string `yaml:"amplitudesConvergence"`
	Mixer                 Mixer  `yaml:"mixer"`
	InitialAmplitudes     string `yaml:"initialAmplitudes,omitempty"`
}

func (*CoupledClusterIn) params() {}

func (p *CoupledClusterIn) Validate() error {
	var missing []string
	if p.Method == "" {
		missing = append(missing, "method")
	}
	if p.IntegralsSliceSize <= 0 {
		missing = append(missing, "integralsSliceSize")
	}
	if p.SlicedEigenEnergies == "" {
		missing = append(missing, "slicedEigenEnergies")
	}
	if p.CoulombIntegrals == "" {
		missing = append(missing, "coulombIntegrals")
	}
	if p.SlicedCoulombVertex == "" {
		missing = append(missing, "slicedCoulombVertex")
	}
	if p.MaxIterations <= 0 {
		missing = append(missing, "maxIterations")
	}
	if p.EnergyConvergence == "" {
		missing = append(missing, "energyConvergence")
	}
	if p.AmplitudesConvergence == "" {
		missing = append(missing, "amplitudesConvergence")
	}
	if p.Mixer.Type == "" {
		missing = append(missing, "mixer.type")
	}
	return requireFields(missing)
}

// CoupledClusterOut is the output block of CoupledCluster.
type CoupledClusterOut struct {
	Amplitudes string `yaml:"amplitudes"`
}

func (*CoupledClusterOut) params() {}

func (p *CoupledClusterOut) Validate() error {
	if p.Amplitudes == "" {
		return errors.New("missing required field(s): amplitudes")
	}
	return nil
}
