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
	"os"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const toolName = "flowsig"
const toolURI = "https://github.com/flowsig/flowsig"

// ToSarif renders the findings as a SARIF 2.1.0 report with one rule per sink
// identifier and one result per finding.
func ToSarif(result *AnalysisResult) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create sarif report: %w", err)
	}
	run := sarif.NewRunWithInformationURI(toolName, toolURI)

	rules := map[string]bool{}
	for _, f := range result.Findings {
		if !rules[f.Sink.ID] {
			rules[f.Sink.ID] = true
			run.AddRule(f.Sink.ID).
				WithDescription(fmt.Sprintf("tainted data reaches %s", f.Sink.ID))
		}

		locations := []*sarif.Location{location(f.Sink.Pos.Filename, f.Sink.Pos.Line, f.Sink.Pos.Column)}
		res := sarif.NewRuleResult(f.Sink.ID).
			WithMessage(sarif.NewTextMessage(f.String())).
			WithLevel("error").
			WithLocations(locations)
		run.AddResult(res)
	}

	report.AddRun(run)
	return report, nil
}

// WriteSarif writes the findings as a SARIF report to the given file.
func WriteSarif(result *AnalysisResult, filename string) error {
	report, err := ToSarif(result)
	if err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create sarif file %s: %w", filename, err)
	}
	defer file.Close()
	return report.PrettyWrite(file)
}

func location(filename string, line, column int) *sarif.Location {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(filename)).
			WithRegion(sarif.NewRegion().WithStartLine(line).WithStartColumn(column)))
}
