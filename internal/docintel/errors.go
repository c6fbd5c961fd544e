package docintel

import "errors"

var (
	// ErrMissingOperationLocation is returned when the submit response
	// carries no job handle to poll
	ErrMissingOperationLocation = errors.New("missing Operation-Location header in analyze response")

	// ErrAnalysisFailed is returned when the service reports the job failed
	ErrAnalysisFailed = errors.New("document analysis failed")

	// ErrAnalysisTimeout is returned when the job did not complete
	// within the configured attempt budget
	ErrAnalysisTimeout = errors.New("document analysis timed out")
)
