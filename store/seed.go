package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"auto_digest_publisher/planner"
)

// SeedFile is the YAML fixture shape accepted by Seed.
type SeedFile struct {
	Topics      []planner.Topic   `yaml:"topics"`
	Programs    []planner.Program `yaml:"programs"`
	Subscribers []Subscriber      `yaml:"subscribers"`
}

// SeedReport counts what Seed inserted and skipped.
type SeedReport struct {
	Topics      int
	Programs    int
	Subscribers int
	Skipped     int
}

// Seed loads topics, programs and subscribers from YAML. Existing topic
// names and subscriber emails are skipped.
func (s *Store) Seed(ctx context.Context, r io.Reader) (SeedReport, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return SeedReport{}, fmt.Errorf("parse seed: %w", err)
	}

	var rep SeedReport
	for _, t := range f.Topics {
		if _, err := s.AddTopic(ctx, t); err != nil {
			if errors.Is(err, ErrDuplicate) {
				rep.Skipped++
				continue
			}
			return rep, err
		}
		rep.Topics++
	}
	for _, p := range f.Programs {
		if _, err := s.AddProgram(ctx, p); err != nil {
			return rep, err
		}
		rep.Programs++
	}
	for _, sub := range f.Subscribers {
		if _, err := s.AddSubscriber(ctx, sub.Email, sub.Name); err != nil {
			if errors.Is(err, ErrDuplicate) {
				rep.Skipped++
				continue
			}
			return rep, err
		}
		rep.Subscribers++
	}
	s.logger.Printf("[INFO] [seed] topics=%d programs=%d subscribers=%d skipped=%d", rep.Topics, rep.Programs, rep.Subscribers, rep.Skipped)
	return rep, nil
}
