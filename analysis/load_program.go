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

// Package analysis loads programs into the SSA form consumed by the taint analyses.
package analysis

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode in the analyses. We load all possible
// information.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// A LoadedProgram is a program in SSA form together with the packages it was built
// from.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program

	// Packages is a list of all packages in the program.
	Packages []*packages.Package
}

// LoadProgram loads, type-checks and builds the SSA form of the packages matching
// args. To understand how to specify the args, look at the documentation of
// packages.Load.
func LoadProgram(config *packages.Config, buildmode ssa.BuilderMode, args []string) (LoadedProgram, error) {
	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}

	initialPackages, err := packages.Load(config, args...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}
	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found, exiting")
	}

	program, _ := ssautil.AllPackages(initialPackages, buildmode)
	program.Build()

	return LoadedProgram{Program: program, Packages: initialPackages}, nil
}
