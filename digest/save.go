package digest

import (
	"context"
	"fmt"
	"log"
	"time"

	"auto_digest_publisher/generator"
	"auto_digest_publisher/planner"
)

// Article types stored with each persisted piece.
const (
	TypeMainColumn = "main_column"
	TypeWildcard   = "wildcard"

	guestTitle = "Guest Columnist"
)

// Issue statuses.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
)

// IssueRecord is the persisted issue header.
type IssueRecord struct {
	ID            string
	Sequence      int
	CycleIndex    int
	Year          int
	Title         string
	Slug          string
	Note          string
	ProgramUpdate string
	ProgramWeek   int
	Product       generator.Product
	Status        string
	CreatedAt     time.Time

	PublishedAt    *time.Time
	EmailSentAt    *time.Time
	RecipientCount int
	ArchiveURL     string
}

// ArticleRecord is one persisted article of an issue.
type ArticleRecord struct {
	ID          string
	IssueID     string
	Position    int
	Type        string
	AuthorID    string
	AuthorName  string
	AuthorTitle string
	Title       string
	Slug        string
	Excerpt     string
	Body        string
	WordCount   int
	Tags        []string
}

// TipRecord is one persisted quick win.
type TipRecord struct {
	IssueID  string
	Position int
	Title    string
	Content  string
	Category string
}

// QARecord is one persisted reader question.
type QARecord struct {
	IssueID  string
	Position int
	Question string
	Answer   string
	Expert   string
}

// Stored is an issue read back with its pieces in position order.
type Stored struct {
	Issue    IssueRecord
	Articles []ArticleRecord
	Tips     []TipRecord
	QA       []QARecord
}

// MainArticles returns the main columns.
func (s Stored) MainArticles() []ArticleRecord {
	out := make([]ArticleRecord, 0, len(s.Articles))
	for _, a := range s.Articles {
		if a.Type == TypeMainColumn {
			out = append(out, a)
		}
	}
	return out
}

// Wildcard returns the guest column, if any.
func (s Stored) Wildcard() (ArticleRecord, bool) {
	for _, a := range s.Articles {
		if a.Type == TypeWildcard {
			return a, true
		}
	}
	return ArticleRecord{}, false
}

// Digest rebuilds the compiled digest from stored rows. A missing wildcard
// becomes an empty "Guest Column" and unattributed answers go to the editors.
func (s Stored) Digest() Digest {
	iss := s.Issue
	d := Digest{
		Sequence:      iss.Sequence,
		CycleIndex:    iss.CycleIndex,
		Year:          iss.Year,
		Title:         iss.Title,
		Slug:          iss.Slug,
		Note:          iss.Note,
		Main:          []generator.Article{},
		Tips:          make([]generator.Tip, 0, len(s.Tips)),
		Product:       iss.Product,
		QA:            make([]generator.QA, 0, len(s.QA)),
		ProgramUpdate: iss.ProgramUpdate,
		ProgramWeek:   iss.ProgramWeek,
		Assignments:   []planner.Assignment{},
		GeneratedAt:   iss.CreatedAt,
	}
	for _, a := range s.MainArticles() {
		d.Main = append(d.Main, a.article())
	}
	if wc, ok := s.Wildcard(); ok {
		d.Wildcard = wc.article()
		d.Wildcard.Tags = []string{}
	} else {
		d.Wildcard = generator.Article{Title: "Guest Column", Tags: []string{}}
	}
	for _, t := range s.Tips {
		d.Tips = append(d.Tips, generator.Tip{Title: t.Title, Content: t.Content, Category: t.Category})
	}
	for _, q := range s.QA {
		expert := q.Expert
		if expert == "" {
			expert = "The Editors"
		}
		d.QA = append(d.QA, generator.QA{Question: q.Question, Answer: q.Answer, Expert: expert})
	}
	return d
}

func (a ArticleRecord) article() generator.Article {
	return generator.Article{
		Title:       a.Title,
		Body:        a.Body,
		Excerpt:     a.Excerpt,
		WordCount:   a.WordCount,
		Tags:        a.Tags,
		AuthorID:    a.AuthorID,
		AuthorName:  a.AuthorName,
		AuthorTitle: a.AuthorTitle,
	}
}

// Repository persists a compiled digest. Implementations return the created id.
type Repository interface {
	CreateIssue(ctx context.Context, rec IssueRecord) (string, error)
	CreateArticle(ctx context.Context, rec ArticleRecord) (string, error)
	CreateTip(ctx context.Context, rec TipRecord) error
	CreateQA(ctx context.Context, rec QARecord) error
}

// Save writes the header, main articles, the wildcard, tips and Q&A in that
// order and returns the issue id. A failure stops the sequence; rows already
// written stay.
func Save(ctx context.Context, repo Repository, d Digest, logger *log.Logger) (string, error) {
	if logger == nil {
		logger = log.Default()
	}
	issueID, err := repo.CreateIssue(ctx, IssueRecord{
		Sequence:      d.Sequence,
		CycleIndex:    d.CycleIndex,
		Year:          d.Year,
		Title:         d.Title,
		Slug:          d.Slug,
		Note:          d.Note,
		ProgramUpdate: d.ProgramUpdate,
		ProgramWeek:   d.ProgramWeek,
		Product:       d.Product,
		Status:        StatusDraft,
		CreatedAt:     d.GeneratedAt,
	})
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	logger.Printf("[INFO] [persist] issue %s created (seq=%d slug=%s)", issueID, d.Sequence, d.Slug)

	for i, a := range d.Main {
		rec := articleRecord(issueID, i+1, TypeMainColumn, a)
		if _, err := repo.CreateArticle(ctx, rec); err != nil {
			return issueID, fmt.Errorf("create article %d: %w", i+1, err)
		}
	}

	wc := articleRecord(issueID, len(d.Main)+1, TypeWildcard, d.Wildcard)
	wc.AuthorTitle = guestTitle
	if _, err := repo.CreateArticle(ctx, wc); err != nil {
		return issueID, fmt.Errorf("create wildcard: %w", err)
	}

	for i, t := range d.Tips {
		if err := repo.CreateTip(ctx, TipRecord{
			IssueID:  issueID,
			Position: i + 1,
			Title:    t.Title,
			Content:  t.Content,
			Category: t.Category,
		}); err != nil {
			return issueID, fmt.Errorf("create tip %d: %w", i+1, err)
		}
	}

	for i, q := range d.QA {
		if err := repo.CreateQA(ctx, QARecord{
			IssueID:  issueID,
			Position: i + 1,
			Question: q.Question,
			Answer:   q.Answer,
			Expert:   q.Expert,
		}); err != nil {
			return issueID, fmt.Errorf("create qa %d: %w", i+1, err)
		}
	}

	logger.Printf("[INFO] [persist] saved %d articles, %d tips, %d questions", len(d.Main)+1, len(d.Tips), len(d.QA))
	return issueID, nil
}

func articleRecord(issueID string, pos int, typ string, a generator.Article) ArticleRecord {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return ArticleRecord{
		IssueID:     issueID,
		Position:    pos,
		Type:        typ,
		AuthorID:    a.AuthorID,
		AuthorName:  a.AuthorName,
		AuthorTitle: a.AuthorTitle,
		Title:       a.Title,
		Slug:        Slugify(a.Title),
		Excerpt:     a.Excerpt,
		Body:        a.Body,
		WordCount:   a.WordCount,
		Tags:        tags,
	}
}
