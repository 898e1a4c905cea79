package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"auto_digest_publisher/digest"
	"auto_digest_publisher/retry"
	"auto_digest_publisher/store"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Subscribers lists who receives the digest.
type Subscribers interface {
	ActiveSubscribers(ctx context.Context) ([]store.Subscriber, error)
}

// SendLog records that an issue went out.
type SendLog interface {
	MarkEmailSent(ctx context.Context, issueID string, recipients int, at time.Time) error
}

// Config holds the sender identity and links used in every email.
type Config struct {
	From          string
	SubjectPrefix string
	SiteURL       string
	// Pacing is the pause between two sends.
	Pacing time.Duration
}

// Failure is one recipient the digest could not be delivered to.
type Failure struct {
	Email string
	Err   error
}

// Report summarises one distribution run.
type Report struct {
	Sent     int
	Failures []Failure
}

// Publisher renders a digest and mails it to every active subscriber.
type Publisher struct {
	cfg     Config
	sender  Sender
	subs    Subscribers
	log     SendLog
	policy  retry.Policy
	now     func() time.Time
	verbose bool
	logger  *log.Logger
}

type Option func(*Publisher)

func WithLogger(l *log.Logger) Option { return func(p *Publisher) { p.logger = l } }

func WithVerbose(v bool) Option { return func(p *Publisher) { p.verbose = v } }

func WithClock(now func() time.Time) Option { return func(p *Publisher) { p.now = now } }

// WithRetryPolicy replaces the per-recipient delivery policy.
func WithRetryPolicy(rp retry.Policy) Option { return func(p *Publisher) { p.policy = rp } }

// New creates a Publisher.
func New(cfg Config, sender Sender, subs Subscribers, sendLog SendLog, opts ...Option) (*Publisher, error) {
	if sender == nil || subs == nil || sendLog == nil {
		return nil, errors.New("publisher requires a sender, a subscriber source and a send log")
	}
	if cfg.From == "" {
		return nil, errors.New("publisher requires a from address")
	}
	p := &Publisher{
		cfg:    cfg,
		sender: sender,
		subs:   subs,
		log:    sendLog,
		policy: retry.Delivery(IsTransient),
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Publisher) infof(format string, args ...interface{}) {
	if !p.verbose {
		return
	}
	p.logger.Printf("[INFO] [publish] "+format, args...)
}

// Distribute sends the digest to every active subscriber, one at a time.
// Per-recipient failures are collected; the issue is marked sent with the
// delivered count even when some recipients failed.
func (p *Publisher) Distribute(ctx context.Context, issueID string, d digest.Digest, archiveURL string) (Report, error) {
	subs, err := p.subs.ActiveSubscribers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load subscribers: %w", err)
	}
	p.infof("issue=%s active subscribers=%d", issueID, len(subs))
	if len(subs) == 0 {
		p.logger.Printf("[WARN] [publish] no active subscribers for issue=%s", issueID)
		return Report{}, nil
	}

	rendered, err := RenderDigest(d, p.cfg.SiteURL, archiveURL, p.cfg.SubjectPrefix)
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for i, sub := range subs {
		if i > 0 && p.cfg.Pacing > 0 {
			if err := pause(ctx, p.cfg.Pacing); err != nil {
				return rep, err
			}
		}
		msg := Message{From: p.cfg.From, To: []string{sub.Email}, Subject: rendered.Subject, HTML: rendered.HTML, Text: rendered.Text}
		id, err := p.sendOne(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			rep.Failures = append(rep.Failures, Failure{Email: sub.Email, Err: err})
			p.logger.Printf("[WARN] [publish] send to %s failed: %v", sub.Email, err)
			continue
		}
		rep.Sent++
		p.infof("sent to %s id=%s", sub.Email, id)
	}

	if err := p.log.MarkEmailSent(ctx, issueID, rep.Sent, p.now()); err != nil {
		return rep, fmt.Errorf("mark issue %s sent: %w", issueID, err)
	}
	if len(rep.Failures) > 0 {
		p.logger.Printf("[WARN] [publish] %d of %d emails failed for issue=%s", len(rep.Failures), len(subs), issueID)
	}
	p.logger.Printf("[INFO] [publish] issue=%s sent=%d failed=%d", issueID, rep.Sent, len(rep.Failures))
	return rep, nil
}

func (p *Publisher) sendOne(ctx context.Context, msg Message) (string, error) {
	policy := p.policy
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		p.logger.Printf("[WARN] [publish] attempt %d to %s failed: %v; retrying in %s", attempt, msg.To[0], err, delay)
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return p.sender.Send(ctx, msg)
	})
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
