// SPDX-License-Identifier: MIT

// Package vasp generates INCAR parameter sets and scans OUTCAR files for
// the VASP steps that prepare a CC4S calculation.
package vasp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// IncarFile is the canonical parameter file name inside a VASP directory.
const IncarFile = "INCAR"

// Incar is an ordered set of INCAR tags. Keys are upper-cased and keep
// their first-insertion order so rendered files stay diffable.
type Incar struct {
	keys   []string
	values map[string]interface{}
}

// NewIncar returns an empty parameter set.
func NewIncar() *Incar {
	return &Incar{values: map[string]interface{}{}}
}

// Set stores a tag. Setting an existing tag overwrites its value but
// keeps its position.
func (i *Incar) Set(key string, value interface{}) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if _, ok := i.values[key]; !ok {
		i.keys = append(i.keys, key)
	}
	i.values[key] = value
}

// Get returns the value of a tag.
func (i *Incar) Get(key string) (interface{}, bool) {
	v, ok := i.values[strings.ToUpper(strings.TrimSpace(key))]
	return v, ok
}

// Has reports whether a tag is present.
func (i *Incar) Has(key string) bool {
	_, ok := i.Get(key)
	return ok
}

// Keys returns the tags in rendering order.
func (i *Incar) Keys() []string {
	return append([]string{}, i.keys...)
}

// Merge applies every tag of updates on top of the receiver.
func (i *Incar) Merge(updates *Incar) {
	if updates == nil {
		return
	}
	for _, k := range updates.keys {
		i.Set(k, updates.values[k])
	}
}

// Render writes the set in VASP INCAR format, one "TAG = value" per line.
func (i *Incar) Render() string {
	var b strings.Builder
	for _, k := range i.keys {
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(formatValue(i.values[k]))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteFile atomically writes the rendered set to path.
func (i *Incar) WriteFile(path string) error {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create INCAR: %w", err)
	}
	defer f.Cleanup() //nolint:errcheck

	if _, err := f.WriteString(i.Render()); err != nil {
		return fmt.Errorf("write INCAR: %w", err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit INCAR: %w", err)
	}
	return nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case bool:
		if t {
			return ".TRUE."
		}
		return ".FALSE."
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatFloat(t, 'f', 1, 64)
		}
		return strconv.FormatFloat(t, 'G', -1, 64)
	case int:
		return strconv.Itoa(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParseIncar reads a set back from VASP INCAR format. Comments after "#"
// or "!" are dropped, as are trailing semicolons.
func ParseIncar(r io.Reader) (*Incar, error) {
	incar := NewIncar()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexAny(line, "#!"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("INCAR line %d: missing '=': %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("INCAR line %d: empty tag", lineNo)
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
		incar.Set(key, parseValue(strings.TrimSpace(raw)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read INCAR: %w", err)
	}
	return incar, nil
}

// ReadIncarFile parses the INCAR at path.
func ReadIncarFile(path string) (*Incar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open INCAR: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return ParseIncar(f)
}

func parseValue(raw string) interface{} {
	switch strings.ToUpper(raw) {
	case ".TRUE.", "T", "TRUE":
		return true
	case ".FALSE.", "F", "FALSE":
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
