// Package patterns provides embedded default recognizer definitions.
// YAML files in this directory use the Presidio-compatible recognizer format
// with scrubd extensions (sensitivity, validator).
package patterns

import _ "embed"

//go:embed pii_in.yaml
var piiINYAML []byte

// PIIINYAML returns the embedded default PII recognizer definitions.
func PIIINYAML() []byte { return piiINYAML }
