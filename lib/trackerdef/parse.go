// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trackerdef provides parsing, validation, and construction
// for tracker definition files: the declarative tables wiring
// reference providers to external trackers and to the channels they
// serve.
//
// Definitions are authored on disk as YAML or as JSONC (JSON extended
// with comments and trailing commas); deployment tables tend to carry
// a lot of commentary, so both formats preserve it. The typical flow:
//
//  1. ReadFile: bytes → Definition, format chosen by file extension
//  2. Validate: structural checks (kinds, required fields, patterns)
//  3. Build: Definition → constructed providers plus their channel
//     bindings, ready for dispatch registration
package trackerdef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Definition.
func Parse(data []byte) (*Definition, error) {
	stripped := jsonc.ToJSON(data)

	var def Definition
	if err := json.Unmarshal(stripped, &def); err != nil {
		return nil, fmt.Errorf("parsing tracker definition: %w", err)
	}

	return &def, nil
}

// ParseYAML unmarshals a YAML tracker definition.
func ParseYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing tracker definition: %w", err)
	}

	return &def, nil
}

// ReadFile reads a tracker definition file from disk. Files ending in
// .yaml or .yml are parsed as YAML; everything else is treated as
// JSONC.
func ReadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	default:
		def, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}
