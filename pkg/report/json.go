package report

import (
	"encoding/json"
	"fmt"

	"github.com/ethpandaops/browsertestoor/pkg/results"
)

type jsonReport struct {
	Summary results.Summary      `json:"summary"`
	Results []results.TestResult `json:"results"`
}

func renderJSON(summary results.Summary, res []results.TestResult) ([]byte, error) {
	data, err := json.MarshalIndent(jsonReport{Summary: summary, Results: res}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}

	return append(data, '\n'), nil
}
