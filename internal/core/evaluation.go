package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// CEFRLevels is the fixed proficiency enumeration the grader must use.
var CEFRLevels = []string{"A1", "A2", "B1", "B2", "C1"}

type EvidenceItem struct {
	MistakeQuote string `json:"mistakeQuote"`
	Correction   string `json:"correction"`
}

// EvaluationResult is the validated form of the grader's JSON output.
type EvaluationResult struct {
	Grammar         int            `json:"grammar"`
	Vocabulary      int            `json:"vocabulary"`
	Fluency         int            `json:"fluency"`
	TaskCompletion  int            `json:"taskCompletion"`
	CEFR            string         `json:"cefr"`
	FeedbackBullets []string       `json:"feedbackBullets"`
	Evidence        []EvidenceItem `json:"evidence"`
	WordBank        []string       `json:"wordBank"`
	NextExercise    string         `json:"nextExercise"`
}

// rawEvaluation uses pointers so missing fields are distinguishable from
// zero values. The model's output is untrusted input.
type rawEvaluation struct {
	Grammar         *float64        `json:"grammar"`
	Vocabulary      *float64        `json:"vocabulary"`
	Fluency         *float64        `json:"fluency"`
	TaskCompletion  *float64        `json:"taskCompletion"`
	CEFR            *string         `json:"cefr"`
	FeedbackBullets *[]string       `json:"feedbackBullets"`
	Evidence        *[]EvidenceItem `json:"evidence"`
	WordBank        *[]string       `json:"wordBank"`
	NextExercise    *string         `json:"nextExercise"`
}

// ParseEvaluation extracts the first top-level JSON object from the grader's
// raw output (tolerating surrounding prose) and validates it against the
// rubric schema. Any violation is a hard failure for the turn.
func ParseEvaluation(raw string) (*EvaluationResult, error) {
	trimmed := strings.TrimSpace(raw)
	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	rawJSON := trimmed
	if first >= 0 && last > first {
		rawJSON = trimmed[first : last+1]
	}

	var parsed rawEvaluation
	if err := json.Unmarshal([]byte(rawJSON), &parsed); err != nil {
		return nil, fmt.Errorf("grader output is not valid JSON: %w", err)
	}

	result := &EvaluationResult{}

	scores := []struct {
		name  string
		value *float64
		dst   *int
	}{
		{"grammar", parsed.Grammar, &result.Grammar},
		{"vocabulary", parsed.Vocabulary, &result.Vocabulary},
		{"fluency", parsed.Fluency, &result.Fluency},
		{"taskCompletion", parsed.TaskCompletion, &result.TaskCompletion},
	}
	for _, s := range scores {
		if s.value == nil {
			return nil, fmt.Errorf("grader output missing score %q", s.name)
		}
		if *s.value != math.Trunc(*s.value) {
			return nil, fmt.Errorf("score %q must be an integer, got %v", s.name, *s.value)
		}
		*s.dst = clampScore(int(*s.value))
	}

	if parsed.CEFR == nil {
		return nil, fmt.Errorf("grader output missing cefr level")
	}
	if !isValidCEFR(*parsed.CEFR) {
		return nil, fmt.Errorf("invalid cefr level %q, must be one of %s", *parsed.CEFR, strings.Join(CEFRLevels, ", "))
	}
	result.CEFR = *parsed.CEFR

	if parsed.FeedbackBullets == nil {
		return nil, fmt.Errorf("grader output missing feedbackBullets")
	}
	if n := len(*parsed.FeedbackBullets); n < 2 || n > 3 {
		return nil, fmt.Errorf("feedbackBullets must contain 2 or 3 entries, got %d", n)
	}
	result.FeedbackBullets = *parsed.FeedbackBullets

	if parsed.Evidence == nil {
		return nil, fmt.Errorf("grader output missing evidence list")
	}
	result.Evidence = *parsed.Evidence

	if parsed.WordBank == nil {
		return nil, fmt.Errorf("grader output missing wordBank list")
	}
	result.WordBank = *parsed.WordBank

	if parsed.NextExercise == nil || strings.TrimSpace(*parsed.NextExercise) == "" {
		return nil, fmt.Errorf("grader output missing nextExercise")
	}
	result.NextExercise = *parsed.NextExercise

	return result, nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

func isValidCEFR(level string) bool {
	for _, l := range CEFRLevels {
		if l == level {
			return true
		}
	}
	return false
}
