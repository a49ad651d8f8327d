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

// flowsig: a signature-based taint analysis for Go packages.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/tools/go/ssa"

	"github.com/flowsig/flowsig/analysis"
	"github.com/flowsig/flowsig/analysis/config"
	"github.com/flowsig/flowsig/analysis/signatures"
	"github.com/flowsig/flowsig/analysis/taint"
	"github.com/flowsig/flowsig/internal/formatutil"
)

var (
	configPath = flag.String("config", "", "Config file path for taint analysis")
	sarifOut   = flag.String("sarif", "", "Output file for a SARIF report of the findings")
)

func init() {
	flag.Var(&buildmode, "build", ssa.BuilderModeDoc)
}

var (
	buildmode = ssa.BuilderMode(0)
)

const usage = ` Perform signature-based taint analysis on your packages.
Usage:
    flowsig [options] <package path(s)>
Examples:
% flowsig -config config.yaml package...
Run without config to use only the predefined signature catalog.
`

func main() {
	var err error
	flag.Parse()

	if flag.NArg() == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}

	taintConfig := config.NewDefault()
	if *configPath != "" {
		config.SetGlobalConfig(*configPath)
		taintConfig, err = config.LoadGlobal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load config %s: %v\n", *configPath, err)
			os.Exit(1)
		}
	}
	logger := config.NewLogGroup(taintConfig)

	cat := signatures.Predefined()
	for _, sigFile := range taintConfig.SignatureFiles {
		extra, warnings, loadErr := signatures.LoadFile(taintConfig.RelPath(sigFile))
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "could not load signatures %s: %v\n", sigFile, loadErr)
			os.Exit(1)
		}
		for _, w := range warnings {
			logger.Warnf("signature file %s: %s", sigFile, w)
		}
		cat.Merge(extra)
	}

	logger.Infof(formatutil.Faint("Reading sources") + "\n")

	program, err := analysis.LoadProgram(nil, buildmode, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load program: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	result, err := taint.Analyze(logger, taintConfig, program.Program, cat)
	duration := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Analysis took %3.4f s\n", duration.Seconds())

	taint.ReportFindings(logger, taintConfig, result)

	if *sarifOut != "" {
		if err := taint.WriteSarif(result, *sarifOut); err != nil {
			fmt.Fprintf(os.Stderr, "could not write sarif report: %v\n", err)
			os.Exit(1)
		}
		logger.Infof("SARIF report in %s", *sarifOut)
	}

	if len(result.Findings) > 0 {
		os.Exit(1)
	}
}
