package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spiffcs/stalebot/internal/stale"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// JSONOutcome is an outcome with its error rendered as text.
type JSONOutcome struct {
	stale.Outcome
	Error string `json:"error,omitempty"`
}

// JSONOutput wraps the outcomes with run metadata for JSON output
type JSONOutput struct {
	RunID      string        `json:"runId"`
	Repository string        `json:"repository"`
	Now        time.Time     `json:"now"`
	Policy     stale.Policy  `json:"policy"`
	DryRun     bool          `json:"dryRun"`
	Truncated  bool          `json:"truncated"`
	Ignored    []string      `json:"ignored"`
	Outcomes   []JSONOutcome `json:"outcomes"`
	Errors     []string      `json:"errors,omitempty"`
	Summary    stale.Summary `json:"summary"`
}

// Format outputs the run result as JSON
func (f *JSONFormatter) Format(result *stale.Result, w io.Writer) error {
	out := JSONOutput{
		RunID:      result.RunID,
		Repository: result.Repo.FullName(),
		Now:        result.Now,
		Policy:     result.Policy,
		DryRun:     result.DryRun,
		Truncated:  result.Truncated,
		Ignored:    result.Ignored,
		Outcomes:   make([]JSONOutcome, 0, len(result.Outcomes)),
		Summary:    result.Summary,
	}
	if out.Ignored == nil {
		out.Ignored = []string{}
	}
	for _, o := range result.Outcomes {
		jo := JSONOutcome{Outcome: o}
		if o.Err != nil {
			jo.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, jo)
	}
	for _, err := range result.Errors {
		out.Errors = append(out.Errors, err.Error())
	}

	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(out)
}
