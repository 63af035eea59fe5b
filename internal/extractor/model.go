package extractor

// ReviewOutput is the structured result a model is asked to produce for
// one analysis dimension
type ReviewOutput struct {
	Summary           string  `json:"summary"`
	Issues            []Issue `json:"issues"`
	OverallAssessment string  `json:"overall_assessment"`
}

// Issue represents a single finding reported by the model. ID is not
// part of the model output; callers assign it when the finding is kept.
type Issue struct {
	ID           string `json:"id,omitempty"`
	Type         string `json:"type"`     // bug, security, style, performance, tests
	Severity     string `json:"severity"` // low, medium, high, critical
	Title        string `json:"title"`
	Description  string `json:"description"`
	LineStart    int    `json:"line_start"`
	LineEnd      int    `json:"line_end"`
	Suggestion   string `json:"suggestion"`
	AffectedCode string `json:"affected_code"`
	CodeSnippet  string `json:"code_snippet"`
}
