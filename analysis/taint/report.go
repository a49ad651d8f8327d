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

package taint

import (
	"fmt"
	"io"
	"os"

	"github.com/flowsig/flowsig/analysis/config"
	"github.com/flowsig/flowsig/internal/formatutil"
)

// ReportFindings logs every finding with its full trace, and writes one report file
// per finding when the configuration requires it.
func ReportFindings(logger *config.LogGroup, cfg *config.Config, result *AnalysisResult) {
	for _, f := range result.Findings {
		logger.Infof("%s: taint from %s reaches sink %s",
			formatutil.Red("taint flow"),
			formatutil.Green(formatutil.Sanitize(f.Taint.Source.String())),
			formatutil.Red(formatutil.Sanitize(f.Sink.String())))
		for _, step := range f.Taint.Trace().Steps() {
			logger.Infof("  via call to %s [%s]", formatutil.Sanitize(step.Callee), step.Pos)
		}
		if cfg.ReportPaths {
			writeFindingReport(logger, cfg, f)
		}
	}
	if len(result.Findings) == 0 {
		logger.Infof("no taint flow found (%d functions analyzed)", result.FunctionsAnalyzed)
	}
}

// writeFindingReport writes one finding to a fresh file in the reports directory.
func writeFindingReport(logger *config.LogGroup, cfg *config.Config, f Finding) {
	tmp, err := os.CreateTemp(cfg.ReportsDir, "flow-*.out")
	if err != nil {
		logger.Warnf("Could not create report file, continuing.")
		logger.Warnf("Error was: %s", err)
		return
	}
	defer tmp.Close()
	logger.Infof("Report in %s", tmp.Name())
	WriteFinding(tmp, f)
}

// WriteFinding writes the plain-text form of one finding.
func WriteFinding(w io.Writer, f Finding) {
	fmt.Fprintf(w, "Source: %s\n", f.Taint.Source.ID)
	fmt.Fprintf(w, "At: %s\n", f.Taint.Source.Pos)
	fmt.Fprintf(w, "Sink: %s\n", f.Sink.ID)
	fmt.Fprintf(w, "At: %s\n", f.Sink.Pos)
	fmt.Fprintf(w, "Trace:\n")
	for _, step := range f.Taint.Trace().Steps() {
		fmt.Fprintf(w, "  %s [%s]\n", step.Callee, step.Pos)
	}
}
