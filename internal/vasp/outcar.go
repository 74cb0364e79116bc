// SPDX-License-Identifier: MIT

package vasp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// OutcarFile is the canonical VASP output file name.
const OutcarFile = "OUTCAR"

// ErrOutcarIncomplete is returned when an OUTCAR lacks the data a
// generator needs.
var ErrOutcarIncomplete = errors.New("incomplete OUTCAR")

// OutcarScan holds the handful of OUTCAR quantities the set generators
// consume. It is not a general OUTCAR parser.
type OutcarScan struct {
	// NElect is the total number of electrons (NELECT).
	NElect float64

	// PlaneWaves is the number of plane waves at each k-point, in file
	// order.
	PlaneWaves []int
}

// MaxPlaneWaves returns the largest per-k-point plane-wave count.
func (s *OutcarScan) MaxPlaneWaves() (int, error) {
	if s == nil || len(s.PlaneWaves) == 0 {
		return 0, fmt.Errorf("%w: no plane-wave counts", ErrOutcarIncomplete)
	}
	max := s.PlaneWaves[0]
	for _, n := range s.PlaneWaves[1:] {
		if n > max {
			max = n
		}
	}
	return max, nil
}

// ScanOutcar extracts NELECT and the per-k-point plane-wave counts from
// an OUTCAR stream.
//
// The relevant lines look like:
//
//	NELECT =      16.0000    total number of electrons
//	k-point     1 :       0.0000    0.0000    0.0000  plane waves:    9111
func ScanOutcar(r io.Reader) (*OutcarScan, error) {
	scan := &OutcarScan{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "NELECT"):
			if v, ok := fieldAfter(line, "="); ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					scan.NElect = f
				}
			}
		case strings.Contains(line, "plane waves:") && strings.Contains(line, "k-point"):
			if v, ok := fieldAfter(line, "plane waves:"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("parse plane-wave count: %q", line)
				}
				scan.PlaneWaves = append(scan.PlaneWaves, n)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read OUTCAR: %w", err)
	}
	return scan, nil
}

// ScanOutcarFile scans the OUTCAR at path.
func ScanOutcarFile(path string) (*OutcarScan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open OUTCAR: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return ScanOutcar(f)
}

// fieldAfter returns the first whitespace-delimited token after sep.
func fieldAfter(line, sep string) (string, bool) {
	_, rest, ok := strings.Cut(line, sep)
	if !ok {
		return "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
