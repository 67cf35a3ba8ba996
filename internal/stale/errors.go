package stale

import "fmt"

// FetchError reports a failed listing page. Source names the listing,
// e.g. "issues" or "column 1234".
type FetchError struct {
	Source string
	Page   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %v", e.Source, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EvaluationError reports a failed timeline lookup for one issue.
type EvaluationError struct {
	Number int
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate #%d: %v", e.Number, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// NotifyError reports a failed comment post for one issue.
type NotifyError struct {
	Number int
	Err    error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify #%d: %v", e.Number, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }
