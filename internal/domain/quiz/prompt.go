package quiz

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// SystemPrompt is sent ahead of every generation request.
const SystemPrompt = "You are a quiz generator. Output only valid JSON."

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Prompt returns the user prompt for mode.
func Prompt(mode Mode, question, answer string) (string, error) {
	switch mode {
	case ModeMultipleChoice:
		return fmt.Sprintf("Question: %s\nCorrect Answer: %s\n\n"+
			"Task: Generate 3 plausible but incorrect answers (distractors).\n"+
			"Constraints: Matches format/length of correct answer.\n"+
			`Output JSON format: {"distractors": ["wrong1", "wrong2", "wrong3"]}`,
			question, answer), nil
	case ModeFillBlank:
		return fmt.Sprintf("Question: %s\nFull Answer: %s\n\n"+
			"Task: Rewrite 'Full Answer' replacing ONE key concept with '%s'.\n"+
			`Output JSON format: {"masked_text": "The capital is %s.", "missing_word": "Paris"}`,
			question, answer, Blank, Blank), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// ExtractJSON pulls the JSON object out of model output that may be wrapped
// in a markdown code fence or surrounded by prose.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseContent decodes model output into Content.
func ParseContent(text string) (Content, error) {
	var c Content
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &c); err != nil {
		return Content{}, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	return c, nil
}
