// SPDX-License-Identifier: MIT

// Package input reads and writes CC4S input files (cc4s.in).
//
// On disk an input file is a bare YAML sequence of algorithm steps; there
// is no enclosing document mapping. Step order is the execution order and
// is preserved exactly.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/cc4sflow/internal/algo"
	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/google/renameio/v2"
)

// FileName is the canonical name of a CC4S input file.
const FileName = "cc4s.in"

// ErrNotSequence is returned when the file is valid YAML but not a
// sequence of steps.
var ErrNotSequence = errors.New("cc4s input is not a YAML sequence")

// Document is an ordered CC4S input: the algorithm steps to execute.
type Document struct {
	Algos []algo.Algo
}

// Parse decodes a cc4s.in payload.
func Parse(data []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("parse cc4s input: %w", err)
	}
	if len(root.Content) == 0 {
		return Document{}, nil
	}
	seq := root.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return Document{}, ErrNotSequence
	}

	doc := Document{Algos: make([]algo.Algo, 0, len(seq.Content))}
	for i, item := range seq.Content {
		a, err := algo.Decode(item)
		if err != nil {
			return Document{}, fmt.Errorf("step %d: %w", i, err)
		}
		doc.Algos = append(doc.Algos, a)
	}
	return doc, nil
}

// Load reads and parses the input file at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read cc4s input: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Render emits the document as the bare YAML sequence CC4S expects,
// with the two-space indentation the reference inputs use.
func (d Document) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.Algos); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile atomically writes the rendered document to path.
func (d Document) WriteFile(path string) error {
	data, err := d.Render()
	if err != nil {
		return fmt.Errorf("render cc4s input: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending input file: %w", err)
	}
	defer func() {
		// renameio removes the temp file if not committed
		if err := pendingFile.Cleanup(); err != nil {
			logger := xglog.WithComponent("input")
			logger.Debug().Err(err).Msg("cleanup pending input file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write cc4s input: %w", err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace cc4s input: %w", err)
	}
	return nil
}
