package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subscriber is an email recipient of the digest.
type Subscriber struct {
	ID           string    `json:"id" yaml:"-"`
	Email        string    `json:"email" yaml:"email"`
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Active       bool      `json:"active" yaml:"-"`
	SubscribedAt time.Time `json:"subscribed_at" yaml:"-"`
}

// ActiveSubscribers returns every subscribed recipient, oldest first.
func (s *Store) ActiveSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(name, ''), subscribed_at
		FROM subscribers WHERE active = 1
		ORDER BY subscribed_at, email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscriber
	for rows.Next() {
		sub := Subscriber{Active: true}
		var at string
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Name, &at); err != nil {
			return nil, err
		}
		if sub.SubscribedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("subscriber %s: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// AddSubscriber subscribes email. A previously unsubscribed address is reactivated.
func (s *Store) AddSubscriber(ctx context.Context, email, name string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("invalid email %q", email)
	}

	res, err := s.exec(ctx, `
		UPDATE subscribers SET active = 1, unsubscribed_at = NULL, name = COALESCE(NULLIF(?, ''), name)
		WHERE email = ? AND active = 0
	`, name, email)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		var id string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM subscribers WHERE email = ?`, email).Scan(&id)
		return id, err
	}

	id := uuid.New().String()
	_, err = s.exec(ctx, `
		INSERT INTO subscribers (id, email, name, active, subscribed_at) VALUES (?, ?, ?, 1, ?)
	`, id, email, name, formatTime(s.now()))
	if err != nil {
		if isUnique(err) {
			return "", fmt.Errorf("subscriber %s: %w", email, ErrDuplicate)
		}
		return "", err
	}
	return id, nil
}

// Unsubscribe deactivates email.
func (s *Store) Unsubscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := s.exec(ctx, `
		UPDATE subscribers SET active = 0, unsubscribed_at = ? WHERE email = ? AND active = 1
	`, formatTime(s.now()), email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscriber %s: %w", email, ErrNotFound)
	}
	return nil
}
