package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// It recognises which step is asking by the prompt text and answers in the
// shape that step expects.
type MockLLM struct{}

var mockAreasRe = regexp.MustCompile(`Within these areas: ([^,\n]+)`)

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch {
	case strings.HasPrefix(prompt.User, "Generate ONE specific"):
		area := "mobility"
		if match := mockAreasRe.FindStringSubmatch(prompt.User); match != nil {
			area = match[1]
		}
		return fmt.Sprintf("Five-minute %s wins for desk-bound dads", area), nil
	case strings.HasPrefix(prompt.User, "Generate a unique, specific angle"):
		return "Treat small daily wins as the whole program, not a warm-up for it.", nil
	case strings.HasPrefix(prompt.User, "Create the editorial content"):
		return mockEditorial, nil
	}

	topic := "the topic"
	for _, line := range strings.Split(prompt.User, "\n") {
		if strings.HasPrefix(line, "**Topic:** ") {
			topic = strings.TrimPrefix(line, "**Topic:** ")
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s A practical look at %s\n\n", markerTitle, topic))
	sb.WriteString(fmt.Sprintf("%s What busy dads get wrong about %s, and the fix.\n\n", markerExcerpt, topic))
	sb.WriteString(markerContent + "\n")
	sb.WriteString(fmt.Sprintf("Start with one workout a week and protect your sleep. %s is about consistency, recovery and energy.\n", topic))
	return sb.String(), nil
}

const mockEditorial = `{
  "issueTitle": "Small Wins, Strong Dads",
  "editorsLetter": "This week our experts keep it simple.",
  "quickWins": [
    {"title": "Walk after dinner", "content": "Ten minutes counts.", "category": "lifestyle"},
    {"title": "Protein at breakfast", "content": "Aim for 30 grams.", "category": "nutrition"},
    {"title": "Two-minute breath", "content": "Box breathing before bed.", "category": "mindset"}
  ],
  "gearCorner": {"productName": "Adjustable dumbbells", "description": "One pair replaces a rack.", "price": "$200-$400", "pros": ["Compact"], "cons": ["Price"]},
  "readerQA": [
    {"question": "Is it too late to start at 50?", "answer": "No.", "answeringExpert": "Coach DT Thompson"},
    {"question": "Do I need supplements?", "answer": "Mostly not.", "answeringExpert": "Maya Santana, RD"}
  ],
  "challengeUpdate": "Keep stacking the days."
}`
