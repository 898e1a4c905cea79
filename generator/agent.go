package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"auto_digest_publisher/retry"
)

// Agent 负责所有文本生成调用：专栏、特邀专栏、编辑部内容、选题与角度。
// One Agent serves every profile; the profile is data passed per call.
type Agent struct {
	llm    LLMClient
	policy retry.Policy
	logger *log.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithRetryPolicy replaces the upstream retry policy. The predicate defaults to IsTransient.
func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Agent) {
		if p.Retryable == nil {
			p.Retryable = IsTransient
		}
		a.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

func NewAgent(llm LLMClient, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:    llm,
		policy: retry.Upstream(IsTransient),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Agent) complete(ctx context.Context, op string, prompt Prompt) (string, error) {
	p := a.policy
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		a.logger.Printf("[WARN] %s: retry attempt %d/%d in %s: %v", op, attempt, p.MaxAttempts, delay, err)
	}
	return retry.Do(ctx, p, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, prompt)
	})
}

// WriteColumn generates a main column as the registered profile profileID.
func (a *Agent) WriteColumn(ctx context.Context, profileID string, in ColumnInput) (Article, error) {
	profile, ok := LookupProfile(profileID)
	if !ok {
		return Article{}, unknownIdentity("write column", profileID)
	}
	a.logger.Printf("[INFO] generating column for %s topic=%q", profile.Name, in.Topic)

	raw, err := a.complete(ctx, "column "+profileID, BuildColumnPrompt(profile, in))
	if err != nil {
		return Article{}, fmt.Errorf("column for %s: %w", profileID, err)
	}

	art := ParseArticle(raw, fmt.Sprintf("%s on %s", profile.Name, in.Topic))
	art.Tags = ExtractTags(art.Body)
	art.AuthorID = profile.ID
	art.AuthorName = profile.Name
	art.AuthorTitle = profile.Title
	a.logger.Printf("[INFO] column generated title=%q words=%d tags=%d", art.Title, art.WordCount, len(art.Tags))
	return art, nil
}

// WriteWildcard generates the guest column for persona personaID.
func (a *Agent) WriteWildcard(ctx context.Context, personaID, topic, angle string) (Article, error) {
	persona, ok := LookupPersona(personaID)
	if !ok {
		return Article{}, unknownIdentity("write wildcard", personaID)
	}
	a.logger.Printf("[INFO] generating wildcard column persona=%q topic=%q", persona.Name, topic)

	raw, err := a.complete(ctx, "wildcard "+personaID, BuildWildcardPrompt(persona, topic, angle))
	if err != nil {
		return Article{}, fmt.Errorf("wildcard %s: %w", personaID, err)
	}

	art := ParseArticle(raw, fmt.Sprintf("%s on %s", persona.Name, topic))
	art.Tags = []string{}
	art.AuthorID = persona.ID
	art.AuthorName = persona.Name
	art.AuthorTitle = persona.Title
	return art, nil
}

// CompileEditorial runs the editor step. A response with the wrong shape is
// not retried: the upstream call itself succeeded.
func (a *Agent) CompileEditorial(ctx context.Context, in EditorialInput) (Editorial, error) {
	a.logger.Printf("[INFO] compiling editorial issue=%d week=%d", in.Sequence, in.CycleIndex)

	raw, err := a.complete(ctx, "editorial", BuildEditorialPrompt(in))
	if err != nil {
		return Editorial{}, fmt.Errorf("editorial: %w", err)
	}
	ed, err := ParseEditorial(raw)
	if err != nil {
		a.logger.Printf("[WARN] failed to parse editor response: %v", err)
		return Editorial{}, err
	}
	return ed, nil
}

// FreshTopic asks for a new topic inside the profile's expertise, steering the
// model away from avoid.
func (a *Agent) FreshTopic(ctx context.Context, profileID string, avoid []string) (string, error) {
	profile, ok := LookupProfile(profileID)
	if !ok {
		return "", unknownIdentity("fresh topic", profileID)
	}
	raw, err := a.complete(ctx, "topic "+profileID, BuildTopicPrompt(profile, avoid))
	if err != nil {
		return "", fmt.Errorf("fresh topic for %s: %w", profileID, err)
	}
	return strings.TrimSpace(raw), nil
}

// Angle asks for a 1-2 sentence angle on topic for the profile.
func (a *Agent) Angle(ctx context.Context, profileID, topic string) (string, error) {
	profile, ok := LookupProfile(profileID)
	if !ok {
		return "", unknownIdentity("angle", profileID)
	}
	raw, err := a.complete(ctx, "angle "+profileID, BuildAnglePrompt(profile, topic))
	if err != nil {
		return "", fmt.Errorf("angle for %s: %w", profileID, err)
	}
	return strings.TrimSpace(raw), nil
}

// Ping issues a minimal completion; used by health checks.
func (a *Agent) Ping(ctx context.Context) error {
	_, err := a.llm.Complete(ctx, Prompt{User: `Say "ok"`, MaxTokens: 10})
	return err
}
