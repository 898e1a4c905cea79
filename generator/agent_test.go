package generator

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_digest_publisher/retry"
)

func newTestAgent(t *testing.T, fn LLMFunc) *Agent {
	t.Helper()
	a, err := NewAgent(fn,
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond}),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	require.NoError(t, err)
	return a
}

func TestNewAgentRequiresLLM(t *testing.T) {
	_, err := NewAgent(nil)
	assert.Error(t, err)
}

func TestWriteColumn(t *testing.T) {
	var got Prompt
	a := newTestAgent(t, func(_ context.Context, p Prompt) (string, error) {
		got = p
		return "TITLE: Sleep Is Training\n\nEXCERPT: Your gains happen in bed.\n\nCONTENT:\nSleep and recovery beat another workout.", nil
	})

	art, err := a.WriteColumn(context.Background(), ProfileOkafor, ColumnInput{
		Topic:   "sleep and recovery",
		Angle:   "Recovery is a skill",
		Related: []string{"naps", "stretching"},
		Avoid:   []string{"keto"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sleep Is Training", art.Title)
	assert.Equal(t, "Your gains happen in bed.", art.Excerpt)
	assert.Equal(t, 6, art.WordCount)
	assert.Equal(t, []string{"recovery", "sleep", "workout"}, art.Tags)
	assert.Equal(t, ProfileOkafor, art.AuthorID)
	assert.Equal(t, "Dr. Angela Okafor", art.AuthorName)
	assert.Equal(t, "Orthopedic Surgeon", art.AuthorTitle)

	assert.Contains(t, got.System, "Dr. Angela Okafor")
	assert.Contains(t, got.User, "**Topic:** sleep and recovery")
	assert.Contains(t, got.User, "1000-1500 words")
	assert.Contains(t, got.User, "naps, stretching")
	assert.Contains(t, got.User, "keto")
	assert.Equal(t, columnMaxTokens, got.MaxTokens)
}

func TestWriteColumnFallbackTitle(t *testing.T) {
	a := newTestAgent(t, func(context.Context, Prompt) (string, error) {
		return "Plain prose without any markers.", nil
	})
	art, err := a.WriteColumn(context.Background(), ProfileChen, ColumnInput{Topic: "gym anxiety"})
	require.NoError(t, err)
	assert.Contains(t, art.Title, "Dr. Marcus Chen")
	assert.Equal(t, "", art.Excerpt)
	assert.Equal(t, "Plain prose without any markers.", art.Body)
}

func TestWriteColumnUnknownProfile(t *testing.T) {
	var calls int32
	a := newTestAgent(t, func(context.Context, Prompt) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", nil
	})
	_, err := a.WriteColumn(context.Background(), "dr-nobody", ColumnInput{Topic: "x"})
	require.Error(t, err)
	assert.Equal(t, KindUnknownIdentity, KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestWriteColumnRetriesTransient(t *testing.T) {
	var calls int32
	a := newTestAgent(t, func(context.Context, Prompt) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", &Error{Kind: KindTransient, Op: "test", Err: errors.New("overloaded")}
		}
		return "TITLE: ok\nEXCERPT: ok\n\nCONTENT: ok", nil
	})
	_, err := a.WriteColumn(context.Background(), ProfileSantana, ColumnInput{Topic: "protein"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestWriteColumnDoesNotRetryNonText(t *testing.T) {
	var calls int32
	a := newTestAgent(t, func(context.Context, Prompt) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &Error{Kind: KindMalformed, Op: "test", Err: ErrNonText}
	})
	_, err := a.WriteColumn(context.Background(), ProfileSantana, ColumnInput{Topic: "protein"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonText)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWriteWildcard(t *testing.T) {
	var got Prompt
	a := newTestAgent(t, func(_ context.Context, p Prompt) (string, error) {
		got = p
		return "TITLE: Stairs\n\nEXCERPT: Take them.\n\nCONTENT:\nSleep and protein and workout.", nil
	})
	art, err := a.WriteWildcard(context.Background(), "linda-from-hr", "desk posture", "Chairs lie")
	require.NoError(t, err)

	assert.Equal(t, "Stairs", art.Title)
	assert.Empty(t, art.Tags)
	assert.Equal(t, "Linda from HR", art.AuthorName)
	assert.Contains(t, got.System, "Workplace wellness programs are my domain")
	assert.Contains(t, got.System, "600-800 words")
	assert.Equal(t, wildcardMaxTokens, got.MaxTokens)
}

func TestWriteWildcardUnknownPersona(t *testing.T) {
	a := newTestAgent(t, func(context.Context, Prompt) (string, error) { return "", nil })
	_, err := a.WriteWildcard(context.Background(), "mystery-guest", "t", "a")
	require.Error(t, err)
	assert.Equal(t, KindUnknownIdentity, KindOf(err))
	assert.False(t, IsTransient(err))
}

func TestCompileEditorialMalformedIsNotRetried(t *testing.T) {
	var calls int32
	a := newTestAgent(t, func(context.Context, Prompt) (string, error) {
		atomic.AddInt32(&calls, 1)
		return `{"editorsLetter": "x", "quickWins": []}`, nil
	})
	_, err := a.CompileEditorial(context.Background(), EditorialInput{Sequence: 3, CycleIndex: 12})
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCompileEditorialPromptCarriesSummaries(t *testing.T) {
	var got Prompt
	a := newTestAgent(t, func(_ context.Context, p Prompt) (string, error) {
		got = p
		return mockEditorial, nil
	})
	ed, err := a.CompileEditorial(context.Background(), EditorialInput{
		Sequence:   7,
		CycleIndex: 40,
		Main: []Article{
			{Title: "Knees", AuthorName: "Dr. Angela Okafor", AuthorTitle: "Orthopedic Surgeon", Excerpt: "Care for them."},
			{Title: "Meals", AuthorName: "Maya Santana, RD", Body: strings.Repeat("a", 300)},
		},
		Wildcard: Article{Title: "Mowing", AuthorName: "Your Father-in-Law", Excerpt: "Uphill."},
		Program:  ProgramContext{Title: "30 Days of Walking", Week: 2, Milestone: "Walk 20 minutes daily"},
	})
	require.NoError(t, err)
	assert.Len(t, ed.Tips, 3)
	assert.Len(t, ed.QA, 2)

	assert.Contains(t, got.User, "Issue #7 (Week 40)")
	assert.Contains(t, got.User, "Care for them.")
	assert.Contains(t, got.User, strings.Repeat("a", 200)+"...")
	assert.NotContains(t, got.User, strings.Repeat("a", 201))
	assert.Contains(t, got.User, "Walk 20 minutes daily")
}

func TestFreshTopicAndAngle(t *testing.T) {
	var topicPrompt string
	a := newTestAgent(t, func(_ context.Context, p Prompt) (string, error) {
		if p.MaxTokens == topicMaxTokens {
			topicPrompt = p.User
			return "  Grip strength after 40 \n", nil
		}
		return "Your handshake is a biomarker.", nil
	})
	topic, err := a.FreshTopic(context.Background(), ProfileThompson, []string{"gym anxiety", "knee pain"})
	require.NoError(t, err)
	assert.Contains(t, topicPrompt, "Do NOT suggest any of them")
	assert.Contains(t, topicPrompt, "- gym anxiety\n- knee pain\n")
	assert.Equal(t, "Grip strength after 40", topic)

	angle, err := a.Angle(context.Background(), ProfileThompson, topic)
	require.NoError(t, err)
	assert.Equal(t, "Your handshake is a biomarker.", angle)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("429 Rate limit reached")))
	assert.True(t, IsTransient(errors.New("request timeout")))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("invalid api key")))
	assert.False(t, IsTransient(&Error{Kind: KindUpstream, Err: errors.New("timeout")}))
	assert.False(t, IsTransient(nil))
}

func TestMockLLMDrivesEveryStep(t *testing.T) {
	a, err := NewAgent(MockLLM{}, WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)

	art, err := a.WriteColumn(context.Background(), ProfileChen, ColumnInput{Topic: "habits"})
	require.NoError(t, err)
	assert.Contains(t, art.Title, "habits")

	ed, err := a.CompileEditorial(context.Background(), EditorialInput{})
	require.NoError(t, err)
	assert.Equal(t, "Small Wins, Strong Dads", ed.Title)
}
