package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArticle(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantTitle   string
		wantExcerpt string
		wantBody    string
	}{
		{
			name:        "all markers",
			raw:         "TITLE: Knees After 40\n\nEXCERPT: Maintenance, not miracles.\n\nCONTENT:\nSquat to a box.\nRest.",
			wantTitle:   "Knees After 40",
			wantExcerpt: "Maintenance, not miracles.",
			wantBody:    "Squat to a box.\nRest.",
		},
		{
			name:        "excerpt runs into content marker",
			raw:         "TITLE: Sleep\nEXCERPT: Go to bed. CONTENT: Seriously.",
			wantTitle:   "Sleep",
			wantExcerpt: "Go to bed.",
			wantBody:    "Seriously.",
		},
		{
			name:        "no markers",
			raw:         "Just some prose about recovery.",
			wantTitle:   "Dr. Angela Okafor on recovery",
			wantExcerpt: "",
			wantBody:    "Just some prose about recovery.",
		},
		{
			name:        "missing excerpt and title",
			raw:         "CONTENT:\nLift heavy things.",
			wantTitle:   "Dr. Angela Okafor on recovery",
			wantExcerpt: "",
			wantBody:    "Lift heavy things.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := ParseArticle(tt.raw, "Dr. Angela Okafor on recovery")
			assert.Equal(t, tt.wantTitle, art.Title)
			assert.Equal(t, tt.wantExcerpt, art.Excerpt)
			assert.Equal(t, tt.wantBody, art.Body)
			assert.Equal(t, CountWords(tt.wantBody), art.WordCount)
		})
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("   \n\t"))
	assert.Equal(t, 4, CountWords("one  two\nthree\tfour "))
}

func TestExtractTags(t *testing.T) {
	body := "Sleep drives RECOVERY. Protein helps muscle; sleep again and again. Core work."
	assert.Equal(t, []string{"protein", "recovery", "sleep", "muscle", "core"}, ExtractTags(body))
	assert.Empty(t, ExtractTags("nothing relevant here"))
}

func TestParseEditorial(t *testing.T) {
	raw := "```json\n" + `{
  "editorsLetter": "Hello dads.",
  "quickWins": [
    {"title": "Walk", "content": "Ten minutes."},
    {"title": "Eat", "content": "Protein.", "category": "nutrition"}
  ],
  "gearCorner": {"productName": "Kettlebell", "description": "Iron.", "price": "$50"},
  "readerQA": [{"question": "Why?", "answer": "Because."}]
}` + "\n```"

	ed, err := ParseEditorial(raw)
	require.NoError(t, err)

	assert.Equal(t, defaultIssueTitle, ed.Title)
	assert.Equal(t, "Hello dads.", ed.Note)
	require.Len(t, ed.Tips, 2)
	assert.Equal(t, "lifestyle", ed.Tips[0].Category)
	assert.Equal(t, "nutrition", ed.Tips[1].Category)
	assert.Equal(t, "Kettlebell", ed.Product.Name)
	assert.Empty(t, ed.Product.Pros)
	assert.NotNil(t, ed.Product.Cons)
	require.Len(t, ed.QA, 1)
	assert.Equal(t, "The Editors", ed.QA[0].Expert)
	assert.Equal(t, "", ed.ProgramUpdate)
}

func TestParseEditorialMissingProduct(t *testing.T) {
	raw := `{"editorsLetter": "Hi", "quickWins": [{"title": "a", "content": "b"}], "readerQA": []}`

	_, err := ParseEditorial(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "gearCorner")
}

func TestParseEditorialInvalidJSON(t *testing.T) {
	_, err := ParseEditorial("Sure! Here is your JSON: {")
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
