// SPDX-License-Identifier: MIT

package algo

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FName is a file name appearing in an algorithm parameter block. CC4S
// input files surround file names with double quotes while other scalars
// stay bare, so FName carries its own marshaling style.
type FName string

// ParseFName strips surrounding double quotes if present and rejects any
// remaining quote character inside the name.
func ParseFName(s string) (FName, error) {
	trimmed := strings.Trim(s, `"`)
	if strings.Contains(trimmed, `"`) {
		return "", fmt.Errorf(`file name cannot contain double-quote (") character: %s`, s)
	}
	return FName(trimmed), nil
}

// MarshalYAML renders the file name as a double-quoted scalar.
func (f FName) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.DoubleQuotedStyle,
		Value: string(f),
	}, nil
}

// UnmarshalYAML accepts a string scalar and normalizes stray quoting.
func (f *FName) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFName(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
