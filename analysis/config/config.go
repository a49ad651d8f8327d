// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the YAML configuration of the analysis and the leveled
// logging used by all the analyses.
package config

import (
	"fmt"
	"os"
	"path"
	"regexp"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename.
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig.
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Options holds the options shared by all the analyses. If a field is not defined in
// the config file, it is zero in the struct.
type Options struct {
	// LogLevel controls the verbosity of the log output (see LogLevel constants).
	LogLevel int `yaml:"log-level"`

	// MaxShapeDepth bounds the depth of the offset paths tracked on structured
	// values. 0 keeps the default.
	MaxShapeDepth int `yaml:"max-shape-depth"`

	// ReportsDir is the directory where report files are created.
	ReportsDir string `yaml:"reports-dir"`

	// ReportPaths enables writing one report file per source-to-sink flow.
	ReportPaths bool `yaml:"report-paths"`

	// PkgFilter restricts the analyzed functions to packages matching this regex.
	PkgFilter string `yaml:"pkg-filter"`
}

// A CodeIdentifier identifies a code element (function, method) in configuration
// files. Empty fields match anything.
type CodeIdentifier struct {
	Package  string `yaml:"package"`
	Method   string `yaml:"method"`
	Receiver string `yaml:"receiver"`
}

// MatchesFunc returns true if the identifier matches the package, receiver and method
// name of a function. Empty identifier fields are wildcards.
func (cid CodeIdentifier) MatchesFunc(pkg string, receiver string, method string) bool {
	return (cid.Package == "" || cid.Package == pkg) &&
		(cid.Receiver == "" || cid.Receiver == receiver) &&
		(cid.Method == "" || cid.Method == method)
}

// A TaintSpec identifies one taint tracking problem: extra sources and sinks beyond
// what the signature catalogs declare.
type TaintSpec struct {
	// Sources is the list of additional taint sources.
	Sources []CodeIdentifier `yaml:"sources"`

	// Sinks is the list of additional sinks.
	Sinks []CodeIdentifier `yaml:"sinks"`
}

// Config is the analysis configuration. Private fields are computed after loading,
// not read from the file.
type Config struct {
	Options `yaml:",inline"`

	// SignatureFiles lists YAML signature catalog files, relative to the config file.
	SignatureFiles []string `yaml:"signature-files"`

	// TaintProblems lists the taint tracking problem specifications.
	TaintProblems []TaintSpec `yaml:"taint-problems"`

	sourceFile     string
	pkgFilterRegex *regexp.Regexp
}

// NewDefault returns an empty default configuration.
func NewDefault() *Config {
	return &Config{Options: Options{LogLevel: int(InfoLevel)}}
}

// Load reads a Config from a YAML file.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", filename, err)
	}
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename
	if cfg.PkgFilter != "" {
		r, err := regexp.Compile(cfg.PkgFilter)
		if err != nil {
			return nil, fmt.Errorf("invalid pkg-filter %q: %w", cfg.PkgFilter, err)
		}
		cfg.pkgFilterRegex = r
	}
	return cfg, nil
}

// RelPath returns a path relative to the directory of the config file. Used to resolve
// the signature catalog files.
func (c *Config) RelPath(filename string) string {
	if path.IsAbs(filename) || c.sourceFile == "" {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchPkgFilter returns true if the package path should be analyzed under the
// configured filter. An empty filter matches everything.
func (c *Config) MatchPkgFilter(pkgPath string) bool {
	if c.pkgFilterRegex == nil {
		return true
	}
	return c.pkgFilterRegex.MatchString(pkgPath)
}

// IsExtraSource returns true if some taint problem designates the function as a
// source.
func (c *Config) IsExtraSource(pkg string, receiver string, method string) bool {
	for _, spec := range c.TaintProblems {
		for _, cid := range spec.Sources {
			if cid.MatchesFunc(pkg, receiver, method) {
				return true
			}
		}
	}
	return false
}

// IsExtraSink returns true if some taint problem designates the function as a sink.
func (c *Config) IsExtraSink(pkg string, receiver string, method string) bool {
	for _, spec := range c.TaintProblems {
		for _, cid := range spec.Sinks {
			if cid.MatchesFunc(pkg, receiver, method) {
				return true
			}
		}
	}
	return false
}
