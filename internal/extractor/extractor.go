// Package extractor provides utilities for extracting JSON from LLM responses
package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tildaslashalef/revline/internal/loggy"
)

// JSONExtractor extracts structured data from LLM responses
type JSONExtractor struct {
	logger *loggy.Logger
}

// NewJSONExtractor creates a new JSONExtractor
func NewJSONExtractor(logger *loggy.Logger) *JSONExtractor {
	return &JSONExtractor{
		logger: logger,
	}
}

// ExtractReviewOutput extracts structured review data from an LLM response.
// Models frequently wrap JSON in markdown fences, prepend commentary, or emit
// slightly malformed JSON; this applies escalating recovery before giving up.
func (e *JSONExtractor) ExtractReviewOutput(content string) (*ReviewOutput, error) {
	// Extract JSON from content
	jsonContent, err := extractJSON(content)
	if err != nil {
		e.logger.Debug("Failed to extract JSON", "error", err)
		return nil, fmt.Errorf("failed to extract JSON: %w", err)
	}
	e.logger.Debug("Successfully extracted JSON", "length", len(jsonContent))

	// Before parsing, replace code blocks with placeholders to avoid JSON parsing issues
	placeholders := make(map[string]string)
	sanitizedJSON := extractAndReplaceCodeBlocks(jsonContent, placeholders)

	// Apply basic fixes to the JSON to handle common issues
	sanitizedJSON = applyBasicFixes(sanitizedJSON)

	// Define intermediate structs for unmarshaling
	type intermediateIssue struct {
		Type         string      `json:"type"`
		Severity     string      `json:"severity"`
		Title        string      `json:"title"`
		Description  string      `json:"description"`
		LineStart    interface{} `json:"line_start"` // Accept either number or string
		LineEnd      interface{} `json:"line_end"`   // Accept either number or string
		Suggestion   string      `json:"suggestion"`
		AffectedCode string      `json:"affected_code"` // Will be a placeholder
		CodeSnippet  string      `json:"code_snippet"`  // Will be a placeholder
	}

	type intermediateOutput struct {
		Summary           string              `json:"summary"`
		Issues            []intermediateIssue `json:"issues"`
		OverallAssessment string              `json:"overall_assessment"`
	}

	// Unmarshal the sanitized JSON
	var intermediate intermediateOutput
	if err := json.Unmarshal([]byte(sanitizedJSON), &intermediate); err != nil {
		e.logger.Debug("Failed to unmarshal JSON", "error", err)

		// Try falling back to manual extraction
		result := manualExtraction(jsonContent, e.logger)
		if result != nil {
			return result, nil
		}

		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Convert to final output structure
	result := &ReviewOutput{
		Summary:           intermediate.Summary,
		Issues:            make([]Issue, 0, len(intermediate.Issues)),
		OverallAssessment: intermediate.OverallAssessment,
	}

	// Set default overall assessment if empty
	if result.OverallAssessment == "" {
		result.OverallAssessment = "Code needs review."
	}

	// Process each issue
	for _, intIssue := range intermediate.Issues {
		issue := Issue{
			Type:         intIssue.Type,
			Severity:     intIssue.Severity,
			Title:        intIssue.Title,
			Description:  intIssue.Description,
			Suggestion:   intIssue.Suggestion,
			AffectedCode: restoreCodeBlock(intIssue.AffectedCode, placeholders),
			CodeSnippet:  restoreCodeBlock(intIssue.CodeSnippet, placeholders),
		}

		// Set defaults for empty fields
		if issue.Type == "" {
			issue.Type = "unknown"
		}
		if issue.Severity == "" {
			issue.Severity = "medium"
		}
		if issue.Title == "" {
			issue.Title = "Unspecified issue"
		}

		// Parse line numbers
		issue.LineStart = parseLineNumber(intIssue.LineStart)
		issue.LineEnd = parseLineNumber(intIssue.LineEnd)

		result.Issues = append(result.Issues, issue)
	}

	e.logger.Debug("Successfully processed review output", "issues_count", len(result.Issues))
	return result, nil
}

// extractJSON finds and extracts JSON from the content
func extractJSON(content string) (string, error) {
	// Try to find JSON in code blocks first
	codeBlockRegex := regexp.MustCompile("```(?:json)?([\\s\\S]*?)```")
	matches := codeBlockRegex.FindAllStringSubmatch(content, -1)
	for _, match := range matches {
		if len(match) > 1 {
			potential := strings.TrimSpace(match[1])
			if strings.HasPrefix(potential, "{") && strings.HasSuffix(potential, "}") {
				return potential, nil
			}
		}
	}

	// Look for complete JSON objects directly in the content
	jsonRegex := regexp.MustCompile(`(?s)\{.*"summary".*"issues".*"overall_assessment".*\}`)
	matches = jsonRegex.FindAllStringSubmatch(content, -1)
	for _, match := range matches {
		if len(match) > 0 {
			return match[0], nil
		}
	}

	// Look for any JSON object with issues array
	jsonWithIssuesRegex := regexp.MustCompile(`(?s)\{[^{]*"issues"\s*:\s*\[.*\].*\}`)
	matches = jsonWithIssuesRegex.FindAllStringSubmatch(content, -1)
	for _, match := range matches {
		if len(match) > 0 {
			return match[0], nil
		}
	}

	// Fallback: scan from the first opening brace and balance braces
	startIdx := strings.Index(content, "{")
	if startIdx >= 0 {
		potentialJSON := content[startIdx:]
		depth := 0
		for i, char := range potentialJSON {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return potentialJSON[:i+1], nil
				}
			}
		}
	}

	return "", fmt.Errorf("no JSON found in content")
}

// extractAndReplaceCodeBlocks replaces code blocks with placeholders to avoid JSON parsing issues
func extractAndReplaceCodeBlocks(json string, placeholders map[string]string) string {
	fields := []string{"affected_code", "code_snippet"}
	result := json

	for _, field := range fields {
		pattern := fmt.Sprintf(`"%s"\s*:\s*"((?:\\.|[^"\\])*)"`, field)
		re := regexp.MustCompile(pattern)

		result = re.ReplaceAllStringFunc(result, func(match string) string {
			submatch := re.FindStringSubmatch(match)
			if len(submatch) < 2 {
				return match
			}

			placeholderID := fmt.Sprintf("%s_PLACEHOLDER_%d", strings.ToUpper(field), len(placeholders))
			placeholders[placeholderID] = submatch[1]

			return fmt.Sprintf(`"%s":"%s"`, field, placeholderID)
		})
	}

	return result
}

// restoreCodeBlock replaces placeholders with original code blocks
func restoreCodeBlock(value string, placeholders map[string]string) string {
	if original, exists := placeholders[value]; exists {
		// Unescape common escape sequences
		result := strings.ReplaceAll(original, "\\n", "\n")
		result = strings.ReplaceAll(result, "\\t", "\t")
		result = strings.ReplaceAll(result, "\\\"", "\"")
		result = strings.ReplaceAll(result, "\\\\", "\\")
		return result
	}
	return value
}

// parseLineNumber attempts to parse a line number from different formats
func parseLineNumber(value interface{}) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if num, err := strconv.Atoi(v); err == nil {
			return num
		}
	}
	return 0
}

// applyBasicFixes applies basic fixes to JSON to handle common issues
func applyBasicFixes(json string) string {
	// Handle null values
	result := strings.ReplaceAll(json, `"issues":null`, `"issues":[]`)

	// Ensure we have an issues array even if missing
	if !strings.Contains(result, `"issues"`) {
		result = strings.Replace(result, `}`, `,"issues":[]}`, 1)
	}

	// Fix trailing commas
	result = regexp.MustCompile(`,\s*\}`).ReplaceAllString(result, "}")
	result = regexp.MustCompile(`,\s*\]`).ReplaceAllString(result, "]")

	// Fix common escaping issues
	result = strings.ReplaceAll(result, "\\\\\"", "\\\"")

	return result
}

// manualExtraction is a fallback method to extract data when JSON parsing fails
func manualExtraction(content string, logger *loggy.Logger) *ReviewOutput {
	logger.Debug("Attempting manual extraction")

	result := &ReviewOutput{
		Summary:           "",
		Issues:            []Issue{},
		OverallAssessment: "",
	}

	// Extract summary
	summaryRe := regexp.MustCompile(`"summary"\s*:\s*"([^"]+)"`)
	if match := summaryRe.FindStringSubmatch(content); len(match) > 1 {
		result.Summary = match[1]
	}

	// Extract overall assessment
	assessmentRe := regexp.MustCompile(`"overall_assessment"\s*:\s*"([^"]+)"`)
	if match := assessmentRe.FindStringSubmatch(content); len(match) > 1 {
		result.OverallAssessment = match[1]
	} else {
		result.OverallAssessment = "Code needs review."
	}

	// Extract the issues array body
	var issuesContent string
	issuesRe := regexp.MustCompile(`(?s)"issues"\s*:\s*\[(.*?)\]`)
	if match := issuesRe.FindStringSubmatch(content); len(match) > 1 {
		issuesContent = match[1]
	}

	// Extract individual issues if we found an issues array
	if issuesContent != "" {
		issueRe := regexp.MustCompile(`\{([^{}]*(?:\{[^{}]*\}[^{}]*)*)\}`)
		for _, issueMatch := range issueRe.FindAllStringSubmatch(issuesContent, -1) {
			if len(issueMatch) > 1 {
				issue := extractIssue("{" + issueMatch[1] + "}")
				result.Issues = append(result.Issues, issue)
			}
		}
	}

	// If no issues found yet, check for a single issue in the content
	if len(result.Issues) == 0 {
		titleRe := regexp.MustCompile(`"title"\s*:\s*"([^"]+)"`)
		if titleRe.MatchString(content) {
			issue := extractIssue(content)
			result.Issues = append(result.Issues, issue)
		}
	}

	if result.Summary == "" && len(result.Issues) == 0 {
		return nil
	}

	logger.Debug("Manual extraction completed", "issues_found", len(result.Issues))
	return result
}

// extractIssue extracts a single issue from a JSON string
func extractIssue(issueJson string) Issue {
	issue := Issue{
		Type:     "unknown",
		Severity: "medium",
		Title:    "Unspecified issue",
	}

	// Extract string fields with quoted field names
	fields := map[string]*string{
		"type":          &issue.Type,
		"severity":      &issue.Severity,
		"title":         &issue.Title,
		"description":   &issue.Description,
		"suggestion":    &issue.Suggestion,
		"affected_code": &issue.AffectedCode,
		"code_snippet":  &issue.CodeSnippet,
	}

	for field, target := range fields {
		re := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"((?:\\.|[^"\\])*)"`, field))
		if match := re.FindStringSubmatch(issueJson); len(match) > 1 {
			*target = strings.ReplaceAll(match[1], "\\n", "\n")
			*target = strings.ReplaceAll(*target, "\\t", "\t")
			*target = strings.ReplaceAll(*target, "\\\"", "\"")
		}
	}

	// Extract line numbers
	lineStartRe := regexp.MustCompile(`"line_start"\s*:\s*"?(\d+)"?`)
	if match := lineStartRe.FindStringSubmatch(issueJson); len(match) > 1 {
		if num, err := strconv.Atoi(match[1]); err == nil {
			issue.LineStart = num
		}
	}

	lineEndRe := regexp.MustCompile(`"line_end"\s*:\s*"?(\d+)"?`)
	if match := lineEndRe.FindStringSubmatch(issueJson); len(match) > 1 {
		if num, err := strconv.Atoi(match[1]); err == nil {
			issue.LineEnd = num
		}
	}

	return issue
}
