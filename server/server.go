package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"auto_digest_publisher/digest"
	"auto_digest_publisher/pipeline"
	"auto_digest_publisher/publisher"
	"auto_digest_publisher/store"
)

// CycleRunner runs one full generation cycle.
type CycleRunner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Issues is the read side of the issue store.
type Issues interface {
	IssueBySlug(ctx context.Context, slug string) (digest.Stored, error)
	Ping(ctx context.Context) error
}

// Options tune the server.
type Options struct {
	SiteURL string
	// CycleTimeout bounds one POST /api/cycles run; zero means 15 minutes.
	CycleTimeout time.Duration
	Logger       *log.Logger
}

type Server struct {
	runner  CycleRunner
	issues  Issues
	opts    Options
	running sync.Mutex
	router  *gin.Engine
}

func New(runner CycleRunner, issues Issues, opts Options) (*Server, error) {
	if runner == nil || issues == nil {
		return nil, errors.New("server requires a cycle runner and an issue store")
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 15 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{runner: runner, issues: issues, opts: opts}
	router := gin.New()
	router.Use(gin.Recovery(), logMiddleware(opts.Logger))

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/cycles", s.handleRunCycle)
		api.GET("/issues/:slug", s.handleIssue)
		api.GET("/issues/:slug/html", s.handleIssueHTML)
	}
	s.router = router
	return s, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler { return s.router }

// --- Handlers ---

type cycleResp struct {
	Success  bool   `json:"success"`
	IssueID  string `json:"issueId,omitempty"`
	Sequence int    `json:"sequence,omitempty"`
	Slug     string `json:"slug,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleRunCycle(c *gin.Context) {
	// 同一时间只允许一个周期在跑，避免重复的期号。
	if !s.running.TryLock() {
		c.JSON(http.StatusConflict, cycleResp{Error: "a cycle is already running"})
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.CycleTimeout)
	defer cancel()
	res, err := s.runner.Run(ctx)
	if err != nil {
		s.opts.Logger.Printf("[WARN] [http] cycle failed: %v", err)
		c.JSON(http.StatusBadGateway, cycleResp{Stage: string(pipeline.StageOf(err)), Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, cycleResp{Success: true, IssueID: res.IssueID, Sequence: res.Sequence, Slug: res.Slug})
}

type issueResp struct {
	ID             string        `json:"id"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	PublishedAt    *time.Time    `json:"publishedAt,omitempty"`
	EmailSentAt    *time.Time    `json:"emailSentAt,omitempty"`
	RecipientCount int           `json:"recipientCount"`
	ArchiveURL     string        `json:"archiveUrl,omitempty"`
	Digest         digest.Digest `json:"digest"`
}

func (s *Server) handleIssue(c *gin.Context) {
	stored, ok := s.loadIssue(c)
	if !ok {
		return
	}
	iss := stored.Issue
	c.JSON(http.StatusOK, issueResp{
		ID:             iss.ID,
		Status:         iss.Status,
		CreatedAt:      iss.CreatedAt,
		PublishedAt:    iss.PublishedAt,
		EmailSentAt:    iss.EmailSentAt,
		RecipientCount: iss.RecipientCount,
		ArchiveURL:     iss.ArchiveURL,
		Digest:         stored.Digest(),
	})
}

func (s *Server) handleIssueHTML(c *gin.Context) {
	stored, ok := s.loadIssue(c)
	if !ok {
		return
	}
	rendered, err := publisher.RenderDigest(stored.Digest(), s.opts.SiteURL, stored.Issue.ArchiveURL, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rendered.HTML))
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.issues.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Helpers ---

func (s *Server) loadIssue(c *gin.Context) (digest.Stored, bool) {
	stored, err := s.issues.IssueBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
		return digest.Stored{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return digest.Stored{}, false
	}
	return stored, true
}

func logMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if path == "" {
			path = "/"
		}
		logger.Printf("[INFO] [http] %s %s %d %s", c.Request.Method, path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
