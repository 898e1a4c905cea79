package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"auto_digest_publisher/digest"
	"auto_digest_publisher/generator"
	"auto_digest_publisher/planner"
)

const (
	wildcardTopic = "Fitness wisdom from an unexpected source"
	wildcardAngle = "A fresh, humorous take on staying fit as a dad"
)

// Stage names one step of a cycle.
type Stage string

const (
	StagePlan      Stage = "plan"
	StageMain      Stage = "generate_main"
	StageWildcard  Stage = "generate_wildcard"
	StageAuxiliary Stage = "generate_auxiliary"
	StageAssemble  Stage = "assemble"
	StagePersist   Stage = "persist"
)

// StageError reports which step of the cycle failed. IssueID is set when a
// persistence failure left a partially written issue behind.
type StageError struct {
	Stage   Stage
	IssueID string
	Err     error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failed stage, or "" when err did not come from a cycle.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// IssueIDOf returns the id of the partially stored issue carried by err, if any.
func IssueIDOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.IssueID
	}
	return ""
}

// Planner produces the plan of one cycle.
type Planner interface {
	PlanCycle(ctx context.Context) (planner.Plan, error)
}

// Writers generates the pieces of an issue. *generator.Agent implements it.
type Writers interface {
	WriteColumn(ctx context.Context, profileID string, in generator.ColumnInput) (generator.Article, error)
	WriteWildcard(ctx context.Context, personaID, topic, angle string) (generator.Article, error)
	CompileEditorial(ctx context.Context, in generator.EditorialInput) (generator.Editorial, error)
}

// Result is the handle returned after a successful cycle.
type Result struct {
	IssueID  string        `json:"issueId"`
	Sequence int           `json:"sequence"`
	Slug     string        `json:"slug"`
	Digest   digest.Digest `json:"-"`
}

// Orchestrator runs one cycle from planning to persistence.
type Orchestrator struct {
	planner Planner
	writers Writers
	repo    digest.Repository
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func WithLogger(l *log.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func New(p Planner, w Writers, repo digest.Repository, opts ...Option) (*Orchestrator, error) {
	if p == nil || w == nil || repo == nil {
		return nil, errors.New("orchestrator requires planner, writers and repository")
	}
	o := &Orchestrator{
		planner: p,
		writers: w,
		repo:    repo,
		now:     time.Now,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes one cycle. Nothing is persisted unless every generation step
// succeeds. A persistence failure leaves the rows already written and returns
// their issue id both in the Result and in the StageError.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := o.now()

	plan, err := o.planner.PlanCycle(ctx)
	if err != nil {
		return Result{}, &StageError{Stage: StagePlan, Err: err}
	}

	main, err := o.generateMain(ctx, plan)
	if err != nil {
		return Result{}, &StageError{Stage: StageMain, Err: err}
	}

	o.logger.Printf("[INFO] [wildcard] persona=%s", plan.WildcardPersonaID)
	wildcard, err := o.writers.WriteWildcard(ctx, plan.WildcardPersonaID, wildcardTopic, wildcardAngle)
	if err != nil {
		return Result{}, &StageError{Stage: StageWildcard, Err: err}
	}

	o.logger.Printf("[INFO] [editor] compiling editorial for issue #%d", plan.Sequence)
	editorial, err := o.writers.CompileEditorial(ctx, generator.EditorialInput{
		CycleIndex: plan.CycleIndex,
		Sequence:   plan.Sequence,
		Main:       main,
		Wildcard:   wildcard,
		Program: generator.ProgramContext{
			Title:     plan.Program.Title,
			Week:      plan.Program.Week,
			Milestone: plan.Program.Milestone,
		},
	})
	if err != nil {
		return Result{}, &StageError{Stage: StageAuxiliary, Err: err}
	}

	d, err := digest.Compile(digest.Parts{
		Plan:      plan,
		Main:      main,
		Wildcard:  wildcard,
		Editorial: editorial,
	}, o.now())
	if err != nil {
		return Result{}, &StageError{Stage: StageAssemble, Err: err}
	}

	id, err := digest.Save(ctx, o.repo, d, o.logger)
	if err != nil {
		if id != "" {
			o.logger.Printf("[WARN] [persist] issue %s partially stored: %v", id, err)
		}
		return Result{IssueID: id, Sequence: d.Sequence, Slug: d.Slug, Digest: d},
			&StageError{Stage: StagePersist, IssueID: id, Err: err}
	}

	o.logger.Printf("[INFO] [cycle] issue #%d %s done in %s", d.Sequence, d.Slug, o.now().Sub(start).Round(time.Millisecond))
	return Result{IssueID: id, Sequence: d.Sequence, Slug: d.Slug, Digest: d}, nil
}

// generateMain writes one column per assignment concurrently. Results keep
// assignment order; the first failure cancels the rest and is returned.
func (o *Orchestrator) generateMain(ctx context.Context, plan planner.Plan) ([]generator.Article, error) {
	articles := make([]generator.Article, len(plan.Assignments))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range plan.Assignments {
		i, a := i, a
		g.Go(func() error {
			o.logger.Printf("[INFO] [write] %s: %q", a.ProducerID, a.Topic)
			art, err := o.writers.WriteColumn(gctx, a.ProducerID, generator.ColumnInput{
				Topic:   a.Topic,
				Angle:   a.Angle,
				Related: a.Related,
				Avoid:   plan.RecentTopics,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", a.ProducerID, err)
			}
			articles[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return articles, nil
}
