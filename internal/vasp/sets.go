// SPDX-License-Identifier: MIT

package vasp

import (
	"fmt"
	"math"
)

// SetGenerator produces the INCAR updates for one VASP step of the
// coupled-cluster chain.
type SetGenerator interface {
	// CalcType names the calculation this generator prepares.
	CalcType() string

	// IncarUpdates returns the tags to apply on top of prev. Generators
	// that size NBANDS from a previous run require scan.
	IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error)
}

// diagBands is the NBANDS choice for exact-diagonalization steps: twice
// the largest plane-wave count minus one spans the full basis.
func diagBands(scan *OutcarScan) (int, error) {
	maxpw, err := scan.MaxPlaneWaves()
	if err != nil {
		return 0, err
	}
	return maxpw*2 - 1, nil
}

// StaticGenerator prepares a plain self-consistent DFT static run.
type StaticGenerator struct{}

func (StaticGenerator) CalcType() string { return "static" }

func (StaticGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	u := NewIncar()
	u.Set("NSW", 0)
	u.Set("ISMEAR", -5)
	u.Set("LCHARG", true)
	u.Set("LREAL", false)
	return u, nil
}

// StaticHFGenerator prepares a self-consistent Hartree-Fock static run.
type StaticHFGenerator struct{}

func (StaticHFGenerator) CalcType() string { return "static_hf" }

func (StaticHFGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	u := NewIncar()
	u.Set("NSW", 0)
	u.Set("ISMEAR", -5)
	u.Set("LCHARG", true)
	u.Set("LREAL", false)
	u.Set("LHFCALC", true)
	u.Set("AEXX", 1.0)
	u.Set("ALGO", "C")
	return u, nil
}

// NonSCFHFGenerator prepares the non-self-consistent HF diagonalization
// over the full plane-wave basis.
type NonSCFHFGenerator struct{}

func (NonSCFHFGenerator) CalcType() string { return "nonscf_hf" }

func (NonSCFHFGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	nb, err := diagBands(scan)
	if err != nil {
		return nil, fmt.Errorf("nonscf_hf: %w", err)
	}
	u := NewIncar()
	u.Set("LHFCALC", true)
	u.Set("AEXX", 1.0)
	u.Set("ISYM", -1)
	u.Set("ALGO", "sub")
	u.Set("NELM", 1)
	u.Set("NBANDS", nb)
	return u, nil
}

// NonSCFMP2CBSGenerator prepares the MP2 complete-basis-set extrapolation
// run.
type NonSCFMP2CBSGenerator struct{}

func (NonSCFMP2CBSGenerator) CalcType() string { return "nonscf_mp2_cbs" }

func (NonSCFMP2CBSGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	nb, err := diagBands(scan)
	if err != nil {
		return nil, fmt.Errorf("nonscf_mp2_cbs: %w", err)
	}
	u := NewIncar()
	u.Set("LHFCALC", true)
	u.Set("AEXX", 1.0)
	u.Set("ISYM", -1)
	u.Set("ALGO", "MP2")
	u.Set("LSFACTOR", true)
	u.Set("NBANDS", nb)
	return u, nil
}

// NonSCFMP2NOsGenerator prepares the approximate-MP2 natural-orbital
// generation run.
type NonSCFMP2NOsGenerator struct{}

func (NonSCFMP2NOsGenerator) CalcType() string { return "nonscf_mp2_nos" }

func (NonSCFMP2NOsGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	nb, err := diagBands(scan)
	if err != nil {
		return nil, fmt.Errorf("nonscf_mp2_nos: %w", err)
	}
	u := NewIncar()
	u.Set("LHFCALC", true)
	u.Set("AEXX", 1.0)
	u.Set("ISYM", -1)
	u.Set("ALGO", "MP2NO")
	u.Set("LAPPROX", true)
	u.Set("NBANDS", nb)
	return u, nil
}

// NonSCFHFNOsGenerator prepares the HF run in the truncated natural-
// orbital basis.
type NonSCFHFNOsGenerator struct{}

func (NonSCFHFNOsGenerator) CalcType() string { return "nonscf_hf_nos" }

func (NonSCFHFNOsGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	nb, err := diagBands(scan)
	if err != nil {
		return nil, fmt.Errorf("nonscf_hf_nos: %w", err)
	}
	u := NewIncar()
	u.Set("LHFCALC", true)
	u.Set("AEXX", 1.0)
	u.Set("ISYM", -1)
	u.Set("ALGO", "MP2NO")
	u.Set("LAPPROX", true)
	u.Set("NBANDS", nb)
	return u, nil
}

// DumpCC4SFilesGenerator prepares the ALGO=CC4S run that dumps the
// CoulombVertex and EigenEnergies files.
type DumpCC4SFilesGenerator struct {
	// Bands is the natural-orbital band count for the dump. When zero it
	// is derived from NELECT in the scanned OUTCAR.
	Bands int
}

func (DumpCC4SFilesGenerator) CalcType() string { return "vasp_cc4s_dump" }

func (g DumpCC4SFilesGenerator) IncarUpdates(prev *Incar, scan *OutcarScan) (*Incar, error) {
	nb := g.Bands
	if nb <= 0 {
		if scan == nil || scan.NElect <= 0 {
			return nil, fmt.Errorf("vasp_cc4s_dump: %w: NELECT unavailable", ErrOutcarIncomplete)
		}
		// One band per electron keeps the dump at twice the occupied
		// space, a workable natural-orbital truncation.
		nb = int(math.Round(scan.NElect))
	}
	u := NewIncar()
	u.Set("LHFCALC", true)
	u.Set("AEXX", 1.0)
	u.Set("ISYM", -1)
	u.Set("ALGO", "CC4S")
	u.Set("NBANDS", nb)
	return u, nil
}
