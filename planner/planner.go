package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"auto_digest_publisher/generator"
)

const (
	// DefaultCooldownCycles is the trailing window of cycles whose topics are excluded.
	DefaultCooldownCycles = 8
	// CycleLength is one weekly issue.
	CycleLength = 7 * 24 * time.Hour

	candidateLimit = 8
	relatedLimit   = 3
	// a generated topic that collides with an excluded one is asked for once more
	freshTopicAttempts = 2
	noProgramTitle = "No active challenge"
)

// Planner selects writers, topics, angles, the wildcard persona and the
// program milestone for one cycle.
//
// Rotation policy: every registered producer identity writes every cycle,
// in registry order.
type Planner struct {
	topics    TopicStore
	programs  ProgramStore
	sequences SequenceSource
	ideas     Ideas

	rotation []generator.Profile
	personas []generator.Persona
	cooldown int
	now      func() time.Time
	rnd      *rand.Rand
	logger   *log.Logger
}

// Option configures a Planner.
type Option func(*Planner)

func WithClock(now func() time.Time) Option { return func(p *Planner) { p.now = now } }

func WithRand(r *rand.Rand) Option { return func(p *Planner) { p.rnd = r } }

func WithLogger(l *log.Logger) Option { return func(p *Planner) { p.logger = l } }

// WithCooldown sets the exclusion window in cycles. Values below 1 are ignored.
func WithCooldown(cycles int) Option {
	return func(p *Planner) {
		if cycles > 0 {
			p.cooldown = cycles
		}
	}
}

// WithRotation overrides the producer identities written each cycle.
func WithRotation(profiles []generator.Profile) Option {
	return func(p *Planner) { p.rotation = profiles }
}

// WithPersonas overrides the wildcard pool.
func WithPersonas(personas []generator.Persona) Option {
	return func(p *Planner) { p.personas = personas }
}

func New(topics TopicStore, programs ProgramStore, sequences SequenceSource, ideas Ideas, opts ...Option) (*Planner, error) {
	if topics == nil || programs == nil || sequences == nil || ideas == nil {
		return nil, errors.New("planner requires topic store, program store, sequence source and idea generator")
	}
	p := &Planner{
		topics:    topics,
		programs:  programs,
		sequences: sequences,
		ideas:     ideas,
		rotation:  generator.Profiles(),
		personas:  generator.Personas(),
		cooldown:  DefaultCooldownCycles,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.rotation) == 0 {
		return nil, errors.New("planner rotation is empty")
	}
	if len(p.personas) == 0 {
		return nil, errors.New("wildcard persona pool is empty")
	}
	return p, nil
}

// PlanCycle builds the plan for the cycle containing the current time.
// Store read failures are returned as-is; generation calls are retried by
// the idea generator.
func (p *Planner) PlanCycle(ctx context.Context) (Plan, error) {
	now := p.now()
	year, week := now.ISOWeek()
	p.logger.Printf("[INFO] [plan] planning cycle week=%d year=%d", week, year)

	seq, err := p.sequences.NextSequence(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("next sequence: %w", err)
	}

	recent, err := p.topics.RecentlyUsed(ctx, now.Add(-time.Duration(p.cooldown)*CycleLength))
	if err != nil {
		return Plan{}, fmt.Errorf("recently used topics: %w", err)
	}
	p.logger.Printf("[INFO] [plan] %d recent topics excluded", len(recent))

	used := make([]string, 0, len(recent)+len(p.rotation))
	used = append(used, recent...)

	assignments := make([]Assignment, 0, len(p.rotation))
	for _, profile := range p.rotation {
		a, err := p.assign(ctx, profile, used, now)
		if err != nil {
			return Plan{}, err
		}
		assignments = append(assignments, a)
		used = append(used, a.Topic)
	}

	program, err := p.programStatus(ctx, now)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		CycleIndex:        week,
		CycleYear:         year,
		Sequence:          seq,
		Assignments:       assignments,
		WildcardPersonaID: p.pickPersona(),
		Program:           program,
		RecentTopics:      recent,
		PlannedAt:         now,
	}
	p.logger.Printf("[INFO] [plan] sequence=%d writers=%d wildcard=%s", plan.Sequence, len(assignments), plan.WildcardPersonaID)
	return plan, nil
}

func (p *Planner) assign(ctx context.Context, profile generator.Profile, excluded []string, now time.Time) (Assignment, error) {
	candidates, err := p.topics.Available(ctx, profile.Areas, excluded, candidateLimit)
	if err != nil {
		return Assignment{}, fmt.Errorf("available topics for %s: %w", profile.ID, err)
	}

	a := Assignment{ProducerID: profile.ID, Related: []string{}}
	var chosen *Topic
	for i := range candidates {
		if contains(excluded, candidates[i].Name) || p.coolingDown(candidates[i], now) {
			continue
		}
		chosen = &candidates[i]
		break
	}

	if chosen != nil {
		a.Topic = chosen.Name
		a.Category = chosen.Category
		siblings, err := p.topics.ByCategory(ctx, chosen.Category)
		if err != nil {
			return Assignment{}, fmt.Errorf("topics in %s: %w", chosen.Category, err)
		}
		for _, s := range siblings {
			if s.Name == chosen.Name {
				continue
			}
			a.Related = append(a.Related, s.Name)
			if len(a.Related) == relatedLimit {
				break
			}
		}
		// 记录失败不影响本期生成
		if err := p.topics.MarkUsed(ctx, chosen.ID, profile.ID, now); err != nil {
			p.logger.Printf("[WARN] [plan] mark topic %q used: %v", chosen.Name, err)
		}
	} else {
		topic, err := p.freshTopic(ctx, profile.ID, excluded)
		if err != nil {
			return Assignment{}, err
		}
		a.Topic = topic
		p.logger.Printf("[INFO] [plan] no stored topic for %s, generated %q", profile.ID, topic)
	}

	angle, err := p.ideas.Angle(ctx, profile.ID, a.Topic)
	if err != nil {
		return Assignment{}, err
	}
	a.Angle = angle
	p.logger.Printf("[INFO] [plan] assigned %s topic=%q", profile.ID, a.Topic)
	return a, nil
}

// freshTopic asks the idea generator for a topic outside excluded. Names are
// compared case-insensitively.
func (p *Planner) freshTopic(ctx context.Context, profileID string, excluded []string) (string, error) {
	var topic string
	for i := 0; i < freshTopicAttempts; i++ {
		t, err := p.ideas.FreshTopic(ctx, profileID, excluded)
		if err != nil {
			return "", err
		}
		topic = strings.TrimSpace(t)
		if topic != "" && !containsFold(excluded, topic) {
			return topic, nil
		}
		p.logger.Printf("[WARN] [plan] generated topic %q for %s is excluded, asking again", topic, profileID)
	}
	return "", &generator.Error{
		Kind: generator.KindMalformed,
		Op:   "fresh topic " + profileID,
		Err:  fmt.Errorf("generated topic %q repeats an excluded topic", topic),
	}
}

func (p *Planner) coolingDown(t Topic, now time.Time) bool {
	if t.LastUsed == nil {
		return false
	}
	cycles := p.cooldown
	if t.CooldownCycles > cycles {
		cycles = t.CooldownCycles
	}
	return t.LastUsed.After(now.Add(-time.Duration(cycles) * CycleLength))
}

// pickPersona is uniform random with no memory of previous cycles.
func (p *Planner) pickPersona() string {
	return p.personas[p.rnd.Intn(len(p.personas))].ID
}

func (p *Planner) programStatus(ctx context.Context, now time.Time) (ProgramStatus, error) {
	week := WeekOfMonth(now)
	prog, err := p.programs.ActiveProgram(ctx)
	if err != nil {
		return ProgramStatus{}, fmt.Errorf("active program: %w", err)
	}
	if prog == nil {
		return ProgramStatus{Title: noProgramTitle, Week: week}, nil
	}
	status := ProgramStatus{Title: prog.Title, Week: week}
	for _, m := range prog.Milestones {
		if m.Week == week {
			status.Milestone = m.Goal
			break
		}
	}
	return status, nil
}

// WeekOfMonth returns ceil(day/7).
func WeekOfMonth(t time.Time) int {
	return (t.Day() + 6) / 7
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
