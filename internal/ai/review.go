package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Review is the structured feedback returned for a code submission.
type Review struct {
	TimeComplexity          string   `json:"timeComplexity"`
	SpaceComplexity         string   `json:"spaceComplexity"`
	CorrectnessAnalysis     string   `json:"correctnessAnalysis"`
	CodeQualityScore        float64  `json:"codeQualityScore"`
	ReadabilityScore        float64  `json:"readabilityScore"`
	OptimizationSuggestions []string `json:"optimizationSuggestions"`
	BestPracticesIssues     []string `json:"bestPracticesIssues"`
	ImprovedCode            string   `json:"improvedCode,omitempty"`
	Summary                 string   `json:"summary"`
}

// ErrUnparsable means the model answered with something that is not a review.
var ErrUnparsable = errors.New("ai: failed to parse model response")

var (
	fenceRe  = regexp.MustCompile("```(?:json|JSON)?")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

const reviewTemplate = `You are an expert code reviewer and interviewer. Analyze the following %s code provided by a candidate for the following problem:

Problem Description:
%s

Code:
%s

Analyze the code for:
1. Time Complexity (Big-O)
2. Space Complexity (Big-O)
3. Correctness (Does it solve the problem? specific edge case failures?)
4. Code Quality (0-10 score) & Readability (0-10 score)
5. Optimization Suggestions
6. Best Practices Issues (Naming, modularity, etc.)

Return the response in strictly valid JSON format with the following structure (no markdown code blocks):
{
  "timeComplexity": "...",
  "spaceComplexity": "...",
  "correctnessAnalysis": "...",
  "codeQualityScore": 0,
  "readabilityScore": 0,
  "optimizationSuggestions": ["suggestion1", "suggestion2"],
  "bestPracticesIssues": ["issue1", "issue2"],
  "improvedCode": "optional optimized code snippet if applicable",
  "summary": "short summary of feedback"
}
Scores are numbers from 0 to 10.`

const hintTemplate = `You are a supportive technical interviewer. The candidate is working on this problem:

%s

Their current %s code is:
%s

Give ONE short hint (at most three sentences) that nudges them toward the next step.
Do not write code and do not reveal the full solution. Reply with the hint text only.`

// ReviewPrompt builds the review prompt.
func ReviewPrompt(language, problemDescription, code string) string {
	if strings.TrimSpace(problemDescription) == "" {
		problemDescription = "Not provided"
	}
	return fmt.Sprintf(reviewTemplate, language, problemDescription, code)
}

// HintPrompt builds the hint prompt.
func HintPrompt(language, problemDescription, code string) string {
	if strings.TrimSpace(code) == "" {
		code = "(no code yet)"
	}
	if strings.TrimSpace(language) == "" {
		language = "unspecified language"
	}
	return fmt.Sprintf(hintTemplate, problemDescription, language, code)
}

// ParseReview extracts a Review from model output. Markdown fences are stripped
// first; if that still does not parse, the outermost {...} block is tried.
func ParseReview(text string) (*Review, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
	var r Review
	if err := json.Unmarshal([]byte(cleaned), &r); err == nil {
		return &r, nil
	}
	block := objectRe.FindString(text)
	if block == "" {
		return nil, ErrUnparsable
	}
	if err := json.Unmarshal([]byte(block), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return &r, nil
}

// CleanHint trims quotes and fences a model sometimes wraps plain text in.
func CleanHint(text string) string {
	s := strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
	return strings.Trim(s, "\"` \n")
}
