package store

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"auto_digest_publisher/retry"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique name or email already exists.
var ErrDuplicate = errors.New("already exists")

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed catalogue and issue archive. One handle is
// opened at startup and shared by every component for the process lifetime.
type Store struct {
	db     *sql.DB
	policy retry.Policy
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

// WithRetryPolicy replaces the write retry policy. A nil predicate keeps the busy check.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Store) {
		if p.Retryable == nil {
			p.Retryable = isBusy
		}
		s.policy = p
	}
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if strings.HasPrefix(path, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(home, path[1:])
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite 只允许单写；内存库每个连接都是独立的库
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		policy: retry.Store(isBusy),
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS topics (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			last_used TEXT,
			usage_count INTEGER NOT NULL DEFAULT 0,
			cooldown_cycles INTEGER NOT NULL DEFAULT 8
		);

		CREATE TABLE IF NOT EXISTS topic_usage (
			id TEXT PRIMARY KEY,
			topic_id TEXT NOT NULL,
			producer_id TEXT NOT NULL,
			used_at TEXT NOT NULL,
			FOREIGN KEY (topic_id) REFERENCES topics(id)
		);

		CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			milestones TEXT
		);

		CREATE TABLE IF NOT EXISTS issues (
			id TEXT PRIMARY KEY,
			sequence INTEGER NOT NULL,
			cycle_index INTEGER NOT NULL,
			year INTEGER NOT NULL,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			editors_note TEXT,
			program_update TEXT,
			program_week INTEGER,
			product TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TEXT NOT NULL,
			published_at TEXT,
			email_sent_at TEXT,
			email_recipient_count INTEGER NOT NULL DEFAULT 0,
			archive_url TEXT
		);

		CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			issue_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			type TEXT NOT NULL,
			author_id TEXT,
			author_name TEXT,
			author_title TEXT,
			title TEXT NOT NULL,
			slug TEXT,
			excerpt TEXT,
			body TEXT NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			tags TEXT,
			FOREIGN KEY (issue_id) REFERENCES issues(id)
		);

		CREATE TABLE IF NOT EXISTS tips (
			id TEXT PRIMARY KEY,
			issue_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			content TEXT,
			category TEXT,
			FOREIGN KEY (issue_id) REFERENCES issues(id)
		);

		CREATE TABLE IF NOT EXISTS reader_qa (
			id TEXT PRIMARY KEY,
			issue_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT,
			expert TEXT,
			FOREIGN KEY (issue_id) REFERENCES issues(id)
		);

		CREATE TABLE IF NOT EXISTS subscribers (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			subscribed_at TEXT NOT NULL,
			unsubscribed_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_topics_category ON topics(category);
		CREATE INDEX IF NOT EXISTS idx_topic_usage_topic ON topic_usage(topic_id);
		CREATE INDEX IF NOT EXISTS idx_articles_issue ON articles(issue_id);
		CREATE INDEX IF NOT EXISTS idx_tips_issue ON tips(issue_id);
		CREATE INDEX IF NOT EXISTS idx_qa_issue ON reader_qa(issue_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// exec runs a write, retrying while the database is busy.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	p := s.policy
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.logger.Printf("[WARN] [store] database busy, retry %d/%d in %s: %v", attempt, p.MaxAttempts, delay, err)
	}
	return retry.Do(ctx, p, func(ctx context.Context) (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isUnique(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
