package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	markerTitle   = "TITLE:"
	markerExcerpt = "EXCERPT:"
	markerContent = "CONTENT:"
)

var (
	titleRe   = regexp.MustCompile(`(?s)TITLE:\s*(.+?)(?:\n|EXCERPT:)`)
	excerptRe = regexp.MustCompile(`(?s)EXCERPT:\s*(.+?)(?:\n\n|CONTENT:)`)
	contentRe = regexp.MustCompile(`(?s)CONTENT:\s*(.+)`)
	fenceRe   = regexp.MustCompile("^```(?:json)?\\s*\n?|\n?```\\s*$")
)

// tagVocabulary 是正文主题标签的固定词表，顺序即输出顺序。
var tagVocabulary = []string{
	"strength training", "cardio", "nutrition", "protein", "recovery",
	"sleep", "stress", "motivation", "habit", "injury", "mobility",
	"flexibility", "muscle", "weight loss", "energy", "hydration",
	"meal prep", "workout", "exercise", "core", "back pain", "joints",
}

// ParseArticle splits a TITLE/EXCERPT/CONTENT response. It never fails:
// a missing title becomes fallbackTitle, a missing excerpt is empty and a
// missing body marker makes the whole response the body.
func ParseArticle(raw, fallbackTitle string) Article {
	title := fallbackTitle
	if m := titleRe.FindStringSubmatch(raw); len(m) == 2 {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}

	var excerpt string
	if m := excerptRe.FindStringSubmatch(raw); len(m) == 2 {
		excerpt = strings.TrimSpace(m[1])
	}

	body := raw
	if m := contentRe.FindStringSubmatch(raw); len(m) == 2 {
		body = strings.TrimSpace(m[1])
	}

	return Article{
		Title:     title,
		Body:      body,
		Excerpt:   excerpt,
		WordCount: CountWords(body),
	}
}

// CountWords counts whitespace-delimited tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// ExtractTags returns the vocabulary terms found in body, in vocabulary order.
func ExtractTags(body string) []string {
	lower := strings.ToLower(body)
	tags := []string{}
	for _, term := range tagVocabulary {
		if strings.Contains(lower, term) {
			tags = append(tags, term)
		}
	}
	return tags
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceRe.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

type editorialJSON struct {
	IssueTitle      string  `json:"issueTitle"`
	EditorsLetter   string  `json:"editorsLetter"`
	QuickWins       []Tip   `json:"quickWins"`
	GearCorner      Product `json:"gearCorner"`
	ReaderQA        []QA    `json:"readerQA"`
	ChallengeUpdate string  `json:"challengeUpdate"`
}

const (
	defaultIssueTitle  = "Weekly Workout Wisdom"
	defaultTipCategory = "lifestyle"
	defaultExpert      = "The Editors"
)

// ParseEditorial decodes the editor's JSON. Shape problems are KindMalformed.
func ParseEditorial(raw string) (Editorial, error) {
	doc := stripCodeFence(raw)
	if !gjson.Valid(doc) {
		return Editorial{}, &Error{Kind: KindMalformed, Op: "editorial", Err: fmt.Errorf("response is not valid JSON")}
	}

	var missing []string
	for _, field := range []string{"editorsLetter", "quickWins", "gearCorner"} {
		v := gjson.Get(doc, field)
		if !v.Exists() || v.Type == gjson.Null || (v.Type == gjson.String && v.String() == "") {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Editorial{}, &Error{Kind: KindMalformed, Op: "editorial", Err: fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))}
	}

	var parsed editorialJSON
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return Editorial{}, &Error{Kind: KindMalformed, Op: "editorial", Err: err}
	}

	ed := Editorial{
		Title:         parsed.IssueTitle,
		Note:          parsed.EditorsLetter,
		Tips:          make([]Tip, 0, len(parsed.QuickWins)),
		Product:       parsed.GearCorner,
		QA:            make([]QA, 0, len(parsed.ReaderQA)),
		ProgramUpdate: parsed.ChallengeUpdate,
	}
	if ed.Title == "" {
		ed.Title = defaultIssueTitle
	}
	for _, t := range parsed.QuickWins {
		if t.Category == "" {
			t.Category = defaultTipCategory
		}
		ed.Tips = append(ed.Tips, t)
	}
	if ed.Product.Pros == nil {
		ed.Product.Pros = []string{}
	}
	if ed.Product.Cons == nil {
		ed.Product.Cons = []string{}
	}
	for _, qa := range parsed.ReaderQA {
		if qa.Expert == "" {
			qa.Expert = defaultExpert
		}
		ed.QA = append(ed.QA, qa)
	}
	return ed, nil
}
