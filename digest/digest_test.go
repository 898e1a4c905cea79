package digest

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_digest_publisher/generator"
	"auto_digest_publisher/planner"
)

var testNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func sampleParts() Parts {
	return Parts{
		Plan: planner.Plan{
			CycleIndex: 11,
			Sequence:   42,
			Assignments: []planner.Assignment{
				{ProducerID: generator.ProfileChen, Topic: "gym anxiety"},
				{ProducerID: generator.ProfileSantana, Topic: "meal prep"},
			},
			Program: planner.ProgramStatus{Title: "March Mobility", Week: 2},
		},
		Main: []generator.Article{
			{Title: "Fear Is Data", Body: "b1", AuthorID: generator.ProfileChen, AuthorName: "Dr. Marcus Chen"},
			{Title: "Sunday Boxes", Body: "b2", AuthorID: generator.ProfileSantana},
		},
		Wildcard: generator.Article{Title: "Sunglasses & Squats!", Body: "w", AuthorID: "gary-sunglass-hut"},
		Editorial: generator.Editorial{
			Title:         "Small Wins",
			Note:          "Dear dads",
			Tips:          []generator.Tip{{Title: "t1"}, {Title: "t2"}, {Title: "t3"}},
			Product:       generator.Product{Name: "Band", Pros: []string{}, Cons: []string{}},
			QA:            []generator.QA{{Question: "q1"}, {Question: "q2"}},
			ProgramUpdate: "Keep going",
		},
	}
}

func TestCompile(t *testing.T) {
	d, err := Compile(sampleParts(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 42, d.Sequence)
	assert.Equal(t, 11, d.CycleIndex)
	assert.Equal(t, 2026, d.Year)
	assert.Equal(t, "issue-42-2026-03-10", d.Slug)
	assert.Equal(t, "Small Wins", d.Title)
	assert.Equal(t, "Fear Is Data", d.Main[0].Title)
	assert.Equal(t, "Sunday Boxes", d.Main[1].Title)
	assert.Len(t, d.Tips, 3)
	assert.Len(t, d.QA, 2)
	assert.Equal(t, 2, d.ProgramWeek)
	assert.Equal(t, testNow, d.GeneratedAt)
}

func TestCompileYearFollowsCycleWeek(t *testing.T) {
	newYearsDay := time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC)

	parts := sampleParts()
	parts.Plan.CycleIndex = 53
	parts.Plan.CycleYear = 2026
	d, err := Compile(parts, newYearsDay)
	require.NoError(t, err)
	assert.Equal(t, 53, d.CycleIndex)
	assert.Equal(t, 2026, d.Year)
	assert.Equal(t, "issue-42-2027-01-01", d.Slug)

	parts.Plan.CycleYear = 0
	d, err = Compile(parts, newYearsDay)
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year)
}

func TestCompileRejectsCountMismatch(t *testing.T) {
	parts := sampleParts()
	parts.Main = parts.Main[:1]
	_, err := Compile(parts, testNow)
	assert.ErrorIs(t, err, ErrAssignmentMismatch)
}

func TestCompileRejectsReorderedArticles(t *testing.T) {
	parts := sampleParts()
	parts.Main[0], parts.Main[1] = parts.Main[1], parts.Main[0]
	_, err := Compile(parts, testNow)
	assert.ErrorIs(t, err, ErrAssignmentMismatch)
}

func TestCompileRequiresWildcard(t *testing.T) {
	parts := sampleParts()
	parts.Wildcard = generator.Article{}
	_, err := Compile(parts, testNow)
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	morning := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, Slug(7, morning), Slug(7, evening))
	assert.NotEqual(t, Slug(7, morning), Slug(7, morning.Add(24*time.Hour)))

	// 东八区的 3 月 11 日凌晨仍是 UTC 3 月 10 日
	shanghai := time.FixedZone("CST", 8*3600)
	assert.Equal(t, "issue-7-2026-03-10", Slug(7, time.Date(2026, 3, 11, 2, 0, 0, 0, shanghai)))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "sunglasses-squats", Slugify("Sunglasses & Squats!"))
	assert.Equal(t, "5-a-m-club", Slugify("  5 A.M. Club "))
	assert.Len(t, Slugify(strings.Repeat("word ", 40)), 100)
}

type call struct {
	kind string
	pos  int
	typ  string
}

type recordingRepo struct {
	calls    []call
	articles []ArticleRecord
	failAt   string
}

func (r *recordingRepo) CreateIssue(_ context.Context, rec IssueRecord) (string, error) {
	r.calls = append(r.calls, call{kind: "issue"})
	if r.failAt == "issue" {
		return "", errors.New("disk full")
	}
	return "iss-1", nil
}

func (r *recordingRepo) CreateArticle(_ context.Context, rec ArticleRecord) (string, error) {
	r.calls = append(r.calls, call{kind: "article", pos: rec.Position, typ: rec.Type})
	r.articles = append(r.articles, rec)
	if r.failAt == rec.Type {
		return "", errors.New("disk full")
	}
	return "art", nil
}

func (r *recordingRepo) CreateTip(_ context.Context, rec TipRecord) error {
	r.calls = append(r.calls, call{kind: "tip", pos: rec.Position})
	return nil
}

func (r *recordingRepo) CreateQA(_ context.Context, rec QARecord) error {
	r.calls = append(r.calls, call{kind: "qa", pos: rec.Position})
	return nil
}

func TestSaveOrder(t *testing.T) {
	d, err := Compile(sampleParts(), testNow)
	require.NoError(t, err)
	repo := &recordingRepo{}

	id, err := Save(context.Background(), repo, d, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	assert.Equal(t, "iss-1", id)

	assert.Equal(t, []call{
		{kind: "issue"},
		{kind: "article", pos: 1, typ: TypeMainColumn},
		{kind: "article", pos: 2, typ: TypeMainColumn},
		{kind: "article", pos: 3, typ: TypeWildcard},
		{kind: "tip", pos: 1},
		{kind: "tip", pos: 2},
		{kind: "tip", pos: 3},
		{kind: "qa", pos: 1},
		{kind: "qa", pos: 2},
	}, repo.calls)

	wc := repo.articles[2]
	assert.Equal(t, "Guest Columnist", wc.AuthorTitle)
	assert.Equal(t, "sunglasses-squats", wc.Slug)
	assert.NotNil(t, wc.Tags)
}

func TestSaveStopsAtFirstFailure(t *testing.T) {
	d, err := Compile(sampleParts(), testNow)
	require.NoError(t, err)
	repo := &recordingRepo{failAt: TypeWildcard}

	id, err := Save(context.Background(), repo, d, log.New(io.Discard, "", 0))
	require.Error(t, err)
	assert.Equal(t, "iss-1", id)
	assert.Len(t, repo.calls, 4)
}

func TestSaveHeaderFailure(t *testing.T) {
	d, err := Compile(sampleParts(), testNow)
	require.NoError(t, err)
	repo := &recordingRepo{failAt: "issue"}

	_, err = Save(context.Background(), repo, d, log.New(io.Discard, "", 0))
	require.Error(t, err)
	assert.Len(t, repo.calls, 1)
}

func TestStoredAccessors(t *testing.T) {
	s := Stored{Articles: []ArticleRecord{
		{Position: 1, Type: TypeMainColumn, Title: "a"},
		{Position: 2, Type: TypeMainColumn, Title: "b"},
		{Position: 3, Type: TypeWildcard, Title: "w"},
	}}
	assert.Len(t, s.MainArticles(), 2)
	wc, ok := s.Wildcard()
	require.True(t, ok)
	assert.Equal(t, "w", wc.Title)

	_, ok = Stored{}.Wildcard()
	assert.False(t, ok)
}

func TestStoredDigestRebuild(t *testing.T) {
	s := Stored{
		Issue: IssueRecord{
			Sequence: 9, CycleIndex: 30, Year: 2026, Title: "Rebuilt", Slug: "issue-9-2026-07-21",
			Product:   generator.Product{Name: "Foam roller"},
			CreatedAt: testNow,
		},
		Articles: []ArticleRecord{
			{Position: 1, Type: TypeMainColumn, Title: "a", AuthorID: generator.ProfileChen, Tags: []string{"stress"}},
			{Position: 2, Type: TypeMainColumn, Title: "b", AuthorID: generator.ProfileOkafor},
		},
		Tips: []TipRecord{{Position: 1, Title: "t", Category: "lifestyle"}},
		QA:   []QARecord{{Position: 1, Question: "q", Answer: "a"}},
	}

	d := s.Digest()
	assert.Equal(t, 9, d.Sequence)
	assert.Equal(t, "issue-9-2026-07-21", d.Slug)
	require.Len(t, d.Main, 2)
	assert.Equal(t, []string{"stress"}, d.Main[0].Tags)
	assert.Equal(t, "Guest Column", d.Wildcard.Title)
	assert.Equal(t, "Foam roller", d.Product.Name)
	require.Len(t, d.QA, 1)
	assert.Equal(t, "The Editors", d.QA[0].Expert)
	assert.Equal(t, testNow, d.GeneratedAt)
}
