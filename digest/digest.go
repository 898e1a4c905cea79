package digest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"auto_digest_publisher/generator"
	"auto_digest_publisher/planner"
)

// Digest is the compiled issue. It is not modified after Compile.
type Digest struct {
	Sequence      int                  `json:"sequence"`
	CycleIndex    int                  `json:"cycle_index"`
	Year          int                  `json:"year"`
	Title         string               `json:"title"`
	Slug          string               `json:"slug"`
	Note          string               `json:"editors_letter"`
	Main          []generator.Article  `json:"main_articles"`
	Wildcard      generator.Article    `json:"wildcard_column"`
	Tips          []generator.Tip      `json:"quick_wins"`
	Product       generator.Product    `json:"gear_corner"`
	QA            []generator.QA       `json:"reader_qa"`
	ProgramUpdate string               `json:"challenge_update"`
	ProgramWeek   int                  `json:"challenge_week"`
	Assignments   []planner.Assignment `json:"writer_assignments"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// Parts are the generated pieces of one cycle.
type Parts struct {
	Plan      planner.Plan
	Main      []generator.Article
	Wildcard  generator.Article
	Editorial generator.Editorial
}

// ErrAssignmentMismatch is returned when the main pieces do not line up with the plan.
var ErrAssignmentMismatch = errors.New("main article count does not match assignments")

// Compile assembles the digest. Main articles keep assignment order.
func Compile(parts Parts, now time.Time) (Digest, error) {
	if len(parts.Main) != len(parts.Plan.Assignments) {
		return Digest{}, fmt.Errorf("%w: %d articles, %d assignments", ErrAssignmentMismatch, len(parts.Main), len(parts.Plan.Assignments))
	}
	for i, a := range parts.Plan.Assignments {
		if parts.Main[i].AuthorID != "" && parts.Main[i].AuthorID != a.ProducerID {
			return Digest{}, fmt.Errorf("%w: position %d written by %s, assigned to %s", ErrAssignmentMismatch, i+1, parts.Main[i].AuthorID, a.ProducerID)
		}
	}
	if parts.Wildcard.Title == "" && parts.Wildcard.Body == "" {
		return Digest{}, errors.New("wildcard column is missing")
	}

	ed := parts.Editorial
	main := make([]generator.Article, len(parts.Main))
	copy(main, parts.Main)
	assignments := make([]planner.Assignment, len(parts.Plan.Assignments))
	copy(assignments, parts.Plan.Assignments)

	// Year pairs with CycleIndex, so it is the ISO week-numbering year.
	year := parts.Plan.CycleYear
	if year == 0 {
		year, _ = now.ISOWeek()
	}

	return Digest{
		Sequence:      parts.Plan.Sequence,
		CycleIndex:    parts.Plan.CycleIndex,
		Year:          year,
		Title:         ed.Title,
		Slug:          Slug(parts.Plan.Sequence, now),
		Note:          ed.Note,
		Main:          main,
		Wildcard:      parts.Wildcard,
		Tips:          ed.Tips,
		Product:       ed.Product,
		QA:            ed.QA,
		ProgramUpdate: ed.ProgramUpdate,
		ProgramWeek:   parts.Plan.Program.Week,
		Assignments:   assignments,
		GeneratedAt:   now,
	}, nil
}

// Slug is issue-{sequence}-{YYYY-MM-DD} using the UTC date.
func Slug(sequence int, at time.Time) string {
	return fmt.Sprintf("issue-%d-%s", sequence, at.UTC().Format("2006-01-02"))
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify makes a url-safe slug of at most 100 characters.
func Slugify(text string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(text), "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
