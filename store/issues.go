package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auto_digest_publisher/digest"
)

// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// draft -> scheduled -> published; draft may publish directly
var transitions = map[string][]string{
	digest.StatusDraft:     {digest.StatusScheduled, digest.StatusPublished},
	digest.StatusScheduled: {digest.StatusPublished, digest.StatusDraft},
}

// NextSequence returns one past the highest stored sequence, starting at 1.
func (s *Store) NextSequence(ctx context.Context) (int, error) {
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM issues`).Scan(&last); err != nil {
		return 0, err
	}
	return int(last.Int64) + 1, nil
}

func (s *Store) CreateIssue(ctx context.Context, rec digest.IssueRecord) (string, error) {
	id := uuid.New().String()
	status := rec.Status
	if status == "" {
		status = digest.StatusDraft
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	product, err := json.Marshal(rec.Product)
	if err != nil {
		return "", err
	}
	_, err = s.exec(ctx, `
		INSERT INTO issues (id, sequence, cycle_index, year, title, slug, editors_note, program_update, program_week, product, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rec.Sequence, rec.CycleIndex, rec.Year, rec.Title, rec.Slug, rec.Note, rec.ProgramUpdate, rec.ProgramWeek, string(product), status, formatTime(created))
	if err != nil {
		if isUnique(err) {
			return "", fmt.Errorf("issue slug %q: %w", rec.Slug, ErrDuplicate)
		}
		return "", err
	}
	return id, nil
}

func (s *Store) CreateArticle(ctx context.Context, rec digest.ArticleRecord) (string, error) {
	id := uuid.New().String()
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", err
	}
	_, err = s.exec(ctx, `
		INSERT INTO articles (id, issue_id, position, type, author_id, author_name, author_title, title, slug, excerpt, body, word_count, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rec.IssueID, rec.Position, rec.Type, rec.AuthorID, rec.AuthorName, rec.AuthorTitle, rec.Title, rec.Slug, rec.Excerpt, rec.Body, rec.WordCount, string(tags))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) CreateTip(ctx context.Context, rec digest.TipRecord) error {
	_, err := s.exec(ctx, `
		INSERT INTO tips (id, issue_id, position, title, content, category)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), rec.IssueID, rec.Position, rec.Title, rec.Content, rec.Category)
	return err
}

func (s *Store) CreateQA(ctx context.Context, rec digest.QARecord) error {
	_, err := s.exec(ctx, `
		INSERT INTO reader_qa (id, issue_id, position, question, answer, expert)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), rec.IssueID, rec.Position, rec.Question, rec.Answer, rec.Expert)
	return err
}

const issueColumns = `id, sequence, cycle_index, year, title, slug, editors_note, program_update, program_week, product,
	status, created_at, published_at, email_sent_at, email_recipient_count, archive_url`

// Issue loads an issue and its pieces by id.
func (s *Store) Issue(ctx context.Context, id string) (digest.Stored, error) {
	return s.loadIssue(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
}

// IssueBySlug loads an issue and its pieces by slug.
func (s *Store) IssueBySlug(ctx context.Context, slug string) (digest.Stored, error) {
	return s.loadIssue(ctx, `SELECT `+issueColumns+` FROM issues WHERE slug = ?`, slug)
}

func (s *Store) loadIssue(ctx context.Context, query, key string) (digest.Stored, error) {
	var (
		rec                            digest.IssueRecord
		note, update, archive, created sql.NullString
		product                        sql.NullString
		published, emailed             sql.NullString
		week                           sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.ID, &rec.Sequence, &rec.CycleIndex, &rec.Year, &rec.Title, &rec.Slug, &note, &update, &week, &product,
		&rec.Status, &created, &published, &emailed, &rec.RecipientCount, &archive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return digest.Stored{}, fmt.Errorf("issue %s: %w", key, ErrNotFound)
		}
		return digest.Stored{}, err
	}
	rec.Note = note.String
	rec.ProgramUpdate = update.String
	rec.ProgramWeek = int(week.Int64)
	rec.ArchiveURL = archive.String
	if product.Valid && product.String != "" {
		if err := json.Unmarshal([]byte(product.String), &rec.Product); err != nil {
			return digest.Stored{}, fmt.Errorf("issue %s product: %w", rec.ID, err)
		}
	}
	if t, err := parseTime(created); err != nil {
		return digest.Stored{}, err
	} else if t != nil {
		rec.CreatedAt = *t
	}
	if rec.PublishedAt, err = parseTime(published); err != nil {
		return digest.Stored{}, err
	}
	if rec.EmailSentAt, err = parseTime(emailed); err != nil {
		return digest.Stored{}, err
	}

	out := digest.Stored{Issue: rec}
	if out.Articles, err = s.articles(ctx, rec.ID); err != nil {
		return digest.Stored{}, err
	}
	if out.Tips, err = s.tips(ctx, rec.ID); err != nil {
		return digest.Stored{}, err
	}
	if out.QA, err = s.questions(ctx, rec.ID); err != nil {
		return digest.Stored{}, err
	}
	return out, nil
}

func (s *Store) articles(ctx context.Context, issueID string) ([]digest.ArticleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position, type, author_id, author_name, author_title, title, slug, excerpt, body, word_count, tags
		FROM articles WHERE issue_id = ? ORDER BY position
	`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []digest.ArticleRecord
	for rows.Next() {
		a := digest.ArticleRecord{IssueID: issueID}
		var authorID, authorName, authorTitle, slug, excerpt, tags sql.NullString
		if err := rows.Scan(&a.ID, &a.Position, &a.Type, &authorID, &authorName, &authorTitle, &a.Title, &slug, &excerpt, &a.Body, &a.WordCount, &tags); err != nil {
			return nil, err
		}
		a.AuthorID = authorID.String
		a.AuthorName = authorName.String
		a.AuthorTitle = authorTitle.String
		a.Slug = slug.String
		a.Excerpt = excerpt.String
		a.Tags = []string{}
		if tags.Valid && tags.String != "" {
			_ = json.Unmarshal([]byte(tags.String), &a.Tags)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) tips(ctx context.Context, issueID string) ([]digest.TipRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, title, content, category FROM tips WHERE issue_id = ? ORDER BY position
	`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []digest.TipRecord
	for rows.Next() {
		t := digest.TipRecord{IssueID: issueID}
		var content, category sql.NullString
		if err := rows.Scan(&t.Position, &t.Title, &content, &category); err != nil {
			return nil, err
		}
		t.Content = content.String
		t.Category = category.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) questions(ctx context.Context, issueID string) ([]digest.QARecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, question, answer, expert FROM reader_qa WHERE issue_id = ? ORDER BY position
	`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []digest.QARecord
	for rows.Next() {
		q := digest.QARecord{IssueID: issueID}
		var answer, expert sql.NullString
		if err := rows.Scan(&q.Position, &q.Question, &answer, &expert); err != nil {
			return nil, err
		}
		q.Answer = answer.String
		q.Expert = expert.String
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetStatus moves an issue along its lifecycle. Publishing stamps published_at.
func (s *Store) SetStatus(ctx context.Context, issueID, status string) error {
	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM issues WHERE id = ?`, issueID).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("issue %s: %w", issueID, ErrNotFound)
		}
		return err
	}
	if current == status {
		return nil
	}
	allowed := false
	for _, next := range transitions[current] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	if status == digest.StatusPublished {
		_, err = s.exec(ctx, `UPDATE issues SET status = ?, published_at = ? WHERE id = ?`, status, formatTime(s.now()), issueID)
	} else {
		_, err = s.exec(ctx, `UPDATE issues SET status = ? WHERE id = ?`, status, issueID)
	}
	return err
}

// MarkEmailSent records a completed send with its delivered count.
func (s *Store) MarkEmailSent(ctx context.Context, issueID string, recipients int, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE issues SET email_sent_at = ?, email_recipient_count = ? WHERE id = ?`, formatTime(at), recipients, issueID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("issue %s: %w", issueID, ErrNotFound)
	}
	return nil
}

// SetArchiveURL stores where the rendered issue was uploaded.
func (s *Store) SetArchiveURL(ctx context.Context, issueID, url string) error {
	res, err := s.exec(ctx, `UPDATE issues SET archive_url = ? WHERE id = ?`, url, issueID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("issue %s: %w", issueID, ErrNotFound)
	}
	return nil
}
