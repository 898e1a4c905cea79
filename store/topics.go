package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auto_digest_publisher/planner"
)

// RecentlyUsed returns names of topics used at or after since.
func (s *Store) RecentlyUsed(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM topics
		WHERE last_used IS NOT NULL AND last_used >= ?
		ORDER BY last_used DESC, name
	`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Available returns topics in the given categories whose names are not
// excluded, never-used first, then least recently used.
func (s *Store) Available(ctx context.Context, categories, excluded []string, limit int) ([]planner.Topic, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	query := `SELECT id, name, category, last_used, usage_count, cooldown_cycles FROM topics WHERE category IN (` + placeholders(len(categories)) + `)`
	args := make([]any, 0, len(categories)+len(excluded)+1)
	for _, c := range categories {
		args = append(args, c)
	}
	if len(excluded) > 0 {
		query += ` AND name NOT IN (` + placeholders(len(excluded)) + `)`
		for _, e := range excluded {
			args = append(args, e)
		}
	}
	query += ` ORDER BY last_used IS NOT NULL, last_used ASC, name ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryTopics(ctx, query, args...)
}

// ByCategory returns every topic of category, least recently used first.
func (s *Store) ByCategory(ctx context.Context, category string) ([]planner.Topic, error) {
	return s.queryTopics(ctx, `
		SELECT id, name, category, last_used, usage_count, cooldown_cycles
		FROM topics WHERE category = ?
		ORDER BY last_used IS NOT NULL, last_used ASC, name ASC
	`, category)
}

// MarkUsed stamps the topic and appends a usage row.
func (s *Store) MarkUsed(ctx context.Context, topicID, producerID string, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE topics SET last_used = ?, usage_count = usage_count + 1 WHERE id = ?`, formatTime(at), topicID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	_, err = s.exec(ctx, `INSERT INTO topic_usage (id, topic_id, producer_id, used_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), topicID, producerID, formatTime(at))
	return err
}

// AddTopic inserts a topic and returns its id. Names are unique.
func (s *Store) AddTopic(ctx context.Context, t planner.Topic) (string, error) {
	if t.Name == "" || t.Category == "" {
		return "", fmt.Errorf("topic requires name and category")
	}
	cooldown := t.CooldownCycles
	if cooldown <= 0 {
		cooldown = planner.DefaultCooldownCycles
	}
	id := uuid.New().String()
	_, err := s.exec(ctx, `
		INSERT INTO topics (id, name, category, last_used, usage_count, cooldown_cycles)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, t.Name, t.Category, nullTime(t.LastUsed), t.UsageCount, cooldown)
	if err != nil {
		if isUnique(err) {
			return "", fmt.Errorf("topic %q: %w", t.Name, ErrDuplicate)
		}
		return "", err
	}
	return id, nil
}

func (s *Store) queryTopics(ctx context.Context, query string, args ...any) ([]planner.Topic, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []planner.Topic
	for rows.Next() {
		var t planner.Topic
		var lastUsed sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &lastUsed, &t.UsageCount, &t.CooldownCycles); err != nil {
			return nil, err
		}
		if t.LastUsed, err = parseTime(lastUsed); err != nil {
			return nil, fmt.Errorf("topic %s last_used: %w", t.ID, err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// ActiveProgram returns the active program, or nil when none is active.
func (s *Store) ActiveProgram(ctx context.Context) (*planner.Program, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, month, year, milestones
		FROM programs WHERE active = 1
		ORDER BY year DESC, month DESC LIMIT 1
	`)
	var p planner.Program
	var desc, milestones sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &desc, &p.Month, &p.Year, &milestones); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Description = desc.String
	p.Active = true
	if milestones.Valid && milestones.String != "" {
		if err := json.Unmarshal([]byte(milestones.String), &p.Milestones); err != nil {
			return nil, fmt.Errorf("program %s milestones: %w", p.ID, err)
		}
	}
	return &p, nil
}

// AddProgram inserts a program. Activating it deactivates any other.
func (s *Store) AddProgram(ctx context.Context, p planner.Program) (string, error) {
	if p.Title == "" {
		return "", fmt.Errorf("program requires a title")
	}
	milestones, err := json.Marshal(p.Milestones)
	if err != nil {
		return "", err
	}
	if p.Active {
		if _, err := s.exec(ctx, `UPDATE programs SET active = 0 WHERE active = 1`); err != nil {
			return "", err
		}
	}
	id := uuid.New().String()
	_, err = s.exec(ctx, `
		INSERT INTO programs (id, title, description, month, year, active, milestones)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, p.Title, p.Description, p.Month, p.Year, p.Active, string(milestones))
	if err != nil {
		return "", err
	}
	return id, nil
}
