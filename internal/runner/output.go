// SPDX-License-Identifier: MIT

package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/cc4sflow/internal/fsutil"
)

// ParseOutput reads the cc4s.out.yaml a finished run left in dir.
func ParseOutput(dir string) (map[string]interface{}, error) {
	path := filepath.Join(dir, OutputFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cc4s output: %w", err)
	}
	out := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// OutputValidator accepts a run when it produced a parseable output file.
type OutputValidator struct{}

// Name implements Validator.
func (OutputValidator) Name() string { return "output" }

// Validate implements Validator.
func (OutputValidator) Validate(dir string) error {
	if err := fsutil.IsRegularFile(filepath.Join(dir, OutputFile)); err != nil {
		return err
	}
	_, err := ParseOutput(dir)
	return err
}
