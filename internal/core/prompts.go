package core

import (
	"fmt"
	"strings"
)

// TutorSystemPrompt builds the system instruction constraining the tutor
// persona. Rebuilt fresh per call; no state.
func TutorSystemPrompt(topic, skillFocus, language string) string {
	return strings.Join([]string{
		"You are a friendly native Spanish speaker practicing with a learner.",
		fmt.Sprintf("Stay on topic: %s.", topic),
		fmt.Sprintf("Focus on: %s.", skillFocus),
		fmt.Sprintf("Practice language: %s.", language),
		"Do not give long explanations. You are not the lecturer.",
		"Ask a follow-up question every turn.",
		"Keep responses 1-3 sentences.",
		"If user answers in English, gently ask for Spanish.",
	}, "\n")
}

// GraderPrompt builds the instruction to the grading model requesting a
// JSON-only rubric evaluation of the learner's message. The instruction is
// advisory only; the reply must still pass ParseEvaluation.
func GraderPrompt(topic, skillFocus, userMessage string) string {
	return fmt.Sprintf(`You are an evaluator. Return JSON ONLY. No prose.
Evaluate this learner response for Spanish practice.
Topic: %s
Skill focus: %s
Learner message: %s

Output exactly this JSON schema:
{
  "grammar": 0,
  "vocabulary": 0,
  "fluency": 0,
  "taskCompletion": 0,
  "cefr": "A1",
  "feedbackBullets": ["", "", ""],
  "evidence": [
    {
      "mistakeQuote": "",
      "correction": ""
    }
  ],
  "wordBank": [""],
  "nextExercise": ""
}

Rules:
- Scores must be integers 0-5.
- CEFR must be one of: A1, A2, B1, B2, C1.
- feedbackBullets must contain 2 or 3 short bullets.
- evidence must quote mistakes from the learner message when possible.
- wordBank includes words misused or struggled with.
- nextExercise is one targeted prompt for the learner.
- Return valid JSON only.`, topic, skillFocus, userMessage)
}
