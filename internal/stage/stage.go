// Package stage implements the five review analysis stages. Each stage
// sends the formatted change set to an LLM with a specialized prompt and
// normalizes the response into a structured Output, falling back to free
// text when the model does not produce parseable JSON.
package stage

import "fmt"

// Name identifies a review stage
type Name string

const (
	Security    Name = "security"
	Bugs        Name = "bugs"
	Style       Name = "style"
	Performance Name = "performance"
	Tests       Name = "tests"
)

// Names returns all stages in execution order
func Names() []Name {
	return []Name{Security, Bugs, Style, Performance, Tests}
}

// DisplayName returns the human-readable stage name used in status and
// error messages
func (n Name) DisplayName() string {
	switch n {
	case Security:
		return "security review"
	case Bugs:
		return "bug detection"
	case Style:
		return "style review"
	case Performance:
		return "performance analysis"
	case Tests:
		return "test suggestions"
	default:
		return string(n)
	}
}

// Valid reports whether the name is a known stage
func (n Name) Valid() bool {
	switch n {
	case Security, Bugs, Style, Performance, Tests:
		return true
	}
	return false
}

// ParseName converts a string to a stage Name
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown stage: %s", s)
	}
	return n, nil
}

const jsonInstructions = `Respond with a JSON object of the shape:
{
  "summary": "one-paragraph summary of your findings",
  "issues": [
    {
      "type": "issue category",
      "severity": "low|medium|high|critical",
      "title": "short issue title",
      "description": "what the problem is and where",
      "line_start": 0,
      "line_end": 0,
      "suggestion": "how to fix it",
      "affected_code": "the offending snippet"
    }
  ],
  "overall_assessment": "one-sentence verdict"
}
Return an empty issues array when you find nothing noteworthy.`

// systemPrompts holds the per-stage system prompt
var systemPrompts = map[Name]string{
	Security: `You are an expert security analyst reviewing a code change. Look for
injection flaws, authentication and authorization gaps, secrets committed in
code, unsafe deserialization, path traversal, and unvalidated input reaching
sensitive sinks. Only report issues introduced or made reachable by this
change.

` + jsonInstructions,

	Bugs: `You are an expert at finding bugs in code changes. Look for logic errors,
off-by-one mistakes, nil/null dereferences, unhandled error paths, race
conditions, and incorrect edge-case handling. Only report issues introduced
by this change.

` + jsonInstructions,

	Style: `You are an expert code reviewer focused on style and maintainability.
Look for unclear naming, dead code, needless duplication, overly complex
control flow, and deviations from the conventions visible in the surrounding
code. Prefer a small number of high-value findings over nitpicks.

` + jsonInstructions,

	Performance: `You are an expert performance analyst reviewing a code change. Look for
accidental quadratic behavior, unnecessary allocations or copies, queries or
network calls inside loops, missing pagination, and unbounded growth of
in-memory structures. Only report issues the change introduces.

` + jsonInstructions,

	Tests: `You are an expert in software testing. Given a code change, identify the
behaviors that need test coverage and suggest concrete unit tests: what to
set up, what to invoke, and what to assert. Flag changed code paths that the
change leaves untested.

` + jsonInstructions,
}

// userIntros holds the per-stage lead-in placed before the formatted changes
var userIntros = map[Name]string{
	Security:    "Review these code changes for security issues:",
	Bugs:        "Review these code changes for potential bugs:",
	Style:       "Review these code changes for style and optimization opportunities:",
	Performance: "Review these code changes for performance problems:",
	Tests:       "Suggest unit tests for these code changes:",
}
