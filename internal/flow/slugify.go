// SPDX-License-Identifier: MIT

package flow

import (
	"strings"
	"unicode"
)

// slugify turns a job name into a filesystem-safe directory component.
// Example: "Coupled Cluster (CC4S)" becomes "coupled-cluster-cc4s".
func slugify(name string) string {
	s := strings.ToLower(name)

	var b strings.Builder
	lastWasDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash {
			b.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	if slug == "" {
		return "job"
	}
	return slug
}
