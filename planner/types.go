package planner

import (
	"context"
	"time"
)

// Topic is a catalogue entry owned by the topic store.
type Topic struct {
	ID             string     `json:"id" yaml:"-"`
	Name           string     `json:"name" yaml:"name"`
	Category       string     `json:"category" yaml:"category"`
	LastUsed       *time.Time `json:"last_used,omitempty" yaml:"last_used,omitempty"`
	UsageCount     int        `json:"usage_count" yaml:"usage_count,omitempty"`
	CooldownCycles int        `json:"cooldown_cycles" yaml:"cooldown_cycles,omitempty"`
}

// Milestone is one week of a multi-week program.
type Milestone struct {
	Week  int    `json:"week" yaml:"week"`
	Focus string `json:"focus" yaml:"focus"`
	Goal  string `json:"goal" yaml:"goal"`
}

// Program is a multi-week challenge.
type Program struct {
	ID          string      `json:"id" yaml:"-"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Month       int         `json:"month" yaml:"month"`
	Year        int         `json:"year" yaml:"year"`
	Active      bool        `json:"active" yaml:"active"`
	Milestones  []Milestone `json:"milestones" yaml:"milestones"`
}

// ProgramStatus is the program position for the current cycle.
type ProgramStatus struct {
	Title     string `json:"title"`
	Week      int    `json:"week"`
	Milestone string `json:"milestone"`
}

// Assignment is the (identity, topic, angle) handed to one writer.
type Assignment struct {
	ProducerID string   `json:"producer_id"`
	Topic      string   `json:"topic"`
	Category   string   `json:"category,omitempty"`
	Angle      string   `json:"angle"`
	Related    []string `json:"related_topics"`
}

// Plan is created fresh each run and consumed within it.
type Plan struct {
	CycleIndex        int           `json:"cycle_index"`
	CycleYear         int           `json:"cycle_year"`
	Sequence          int           `json:"sequence"`
	Assignments       []Assignment  `json:"assignments"`
	WildcardPersonaID string        `json:"wildcard_persona_id"`
	Program           ProgramStatus `json:"program"`
	RecentTopics      []string      `json:"recent_topics"`
	PlannedAt         time.Time     `json:"planned_at"`
}

// TopicStore is the topic catalogue the planner reads.
type TopicStore interface {
	// RecentlyUsed returns names of topics used at or after since.
	RecentlyUsed(ctx context.Context, since time.Time) ([]string, error)
	// Available returns topics in categories not named in excluded,
	// least-recently-used first with never-used topics first.
	Available(ctx context.Context, categories, excluded []string, limit int) ([]Topic, error)
	ByCategory(ctx context.Context, category string) ([]Topic, error)
	// MarkUsed records usage. Planner treats failures as non-fatal.
	MarkUsed(ctx context.Context, topicID, producerID string, at time.Time) error
}

// ProgramStore resolves the active program; (nil, nil) means none.
type ProgramStore interface {
	ActiveProgram(ctx context.Context) (*Program, error)
}

// SequenceSource hands out the next digest sequence number.
type SequenceSource interface {
	NextSequence(ctx context.Context) (int, error)
}

// Ideas generates fresh topics and angles. *generator.Agent implements it.
type Ideas interface {
	FreshTopic(ctx context.Context, profileID string, avoid []string) (string, error)
	Angle(ctx context.Context, profileID, topic string) (string, error)
}
