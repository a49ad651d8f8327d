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
	"encoding/json"
	"go/token"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsig/flowsig/analysis/propagation"
)

func sampleResult() *AnalysisResult {
	source := propagation.Source{
		ID:  "os-environ",
		Pos: token.Position{Filename: "main.go", Line: 10, Column: 9},
	}
	sink := propagation.Sink{
		ID:  "command-execution",
		Pos: token.Position{Filename: "main.go", Line: 11, Column: 2},
	}
	taint := propagation.NewTaint(source).
		Through(propagation.TraceStep{Callee: "os/exec.Command", Pos: sink.Pos})
	return &AnalysisResult{
		Findings:          []Finding{{Sink: sink, Taint: taint}},
		FunctionsAnalyzed: 3,
	}
}

func TestToSarif(t *testing.T) {
	report, err := ToSarif(sampleResult())
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	require.Len(t, run.Results, 1)
	require.Len(t, run.Tool.Driver.Rules, 1)
	assert.Equal(t, "command-execution", run.Tool.Driver.Rules[0].ID)

	res := run.Results[0]
	require.NotNil(t, res.RuleID)
	assert.Equal(t, "command-execution", *res.RuleID)
	require.NotNil(t, res.Level)
	assert.Equal(t, "error", *res.Level)
	require.Len(t, res.Locations, 1)

	phys := res.Locations[0].PhysicalLocation
	require.NotNil(t, phys)
	assert.Equal(t, "main.go", *phys.ArtifactLocation.URI)
	assert.Equal(t, 11, *phys.Region.StartLine)
}

func TestToSarifDeduplicatesRules(t *testing.T) {
	result := sampleResult()
	result.Findings = append(result.Findings, result.Findings[0])
	report, err := ToSarif(result)
	require.NoError(t, err)
	assert.Len(t, report.Runs[0].Tool.Driver.Rules, 1)
	assert.Len(t, report.Runs[0].Results, 2)
}

func TestToSarifEmpty(t *testing.T) {
	report, err := ToSarif(&AnalysisResult{})
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Empty(t, report.Runs[0].Results)
}

func TestWriteSarif(t *testing.T) {
	out := path.Join(t.TempDir(), "findings.sarif")
	require.NoError(t, WriteSarif(sampleResult(), out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)

	// the output must be a valid SARIF 2.1.0 document
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "2.1.0", doc["version"])
	assert.Contains(t, string(b), "command-execution")
}
