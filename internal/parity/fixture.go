// Package parity checks the BOE engine against reference fixtures and,
// when one is mounted, against the underwriting workbook it replaces.
package parity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/underwriting-cli/internal/boe"
)

// Case is one named reference scenario.
type Case struct {
	Name     string    `json:"name" yaml:"name"`
	Inputs   boe.Input `json:"inputs" yaml:"inputs"`
	Expected *Expected `json:"expected,omitempty" yaml:"expected,omitempty"`

	// File is the path the case was loaded from.
	File string `json:"-" yaml:"-"`
}

// Expected holds the reference results for a Case. Outputs and Tests only
// need to name the keys a fixture cares about.
type Expected struct {
	Outputs           map[string]any    `json:"outputs" yaml:"outputs"`
	Tests             map[string]string `json:"tests" yaml:"tests"`
	Decision          ExpectedDecision  `json:"decision" yaml:"decision"`
	BindingConstraint *string           `json:"binding_constraint" yaml:"binding_constraint"`
}

// ExpectedDecision is the subset of boe.Decision a fixture pins.
type ExpectedDecision struct {
	HardVetoOK bool `json:"hard_veto_ok" yaml:"hard_veto_ok"`
	PassCount  int  `json:"pass_count" yaml:"pass_count"`
	Advance    bool `json:"advance" yaml:"advance"`
}

// LoadCase reads a fixture from a .json, .yaml or .yml file. A case without
// a name is named after its file.
func LoadCase(path string) (Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Case{}, eris.Wrapf(err, "parity: read %s", path)
	}

	var c Case
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return Case{}, eris.Wrapf(err, "parity: decode %s", path)
	}

	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	c.File = path
	return c, nil
}

// ListFixtures returns the fixture files in dir in lexical order.
func ListFixtures(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "parity: read dir %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isFixture(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isFixture(name string) bool {
	name = filepath.Base(name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
