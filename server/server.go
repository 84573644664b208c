// Package server implements the rag-chat HTTP API on top of the sqlite store, so the client can
// be exercised without the production backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/malonaz/ragchat/internal/debug"
	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Port int
	// AnswerTemplate is a text/template, with sprig functions, executed against AnswerData.
	AnswerTemplate string
	// ChunkRunes is the size of the streamed answer chunks.
	ChunkRunes int
	// ChunkDelay is the pause between two chunks.
	ChunkDelay time.Duration
}

// Server serves the session and knowledge-base APIs.
type Server struct {
	store  *store.Store
	opts   *Options
	answer *template.Template
	log    *slog.Logger
}

// New returns a server backed by s.
func New(s *store.Store, opts *Options) (*Server, error) {
	answer, err := template.New("answer").Funcs(sprig.TxtFuncMap()).Parse(opts.AnswerTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing answer template: %w", err)
	}
	if opts.ChunkRunes <= 0 {
		opts.ChunkRunes = 1
	}
	return &Server{
		store:  s,
		opts:   opts,
		answer: answer,
		log:    debug.GetLogger(),
	}, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(engine)
	return engine
}

// RegisterRoutes registers all routes.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	sessions := r.Group("/api/rag-chat/sessions")
	{
		sessions.POST("", s.createSession)
		sessions.GET("", s.listSessions)
		sessions.GET("/:id", s.getSession)
		sessions.PUT("/:id/title", s.updateSessionTitle)
		sessions.PUT("/:id/pin", s.toggleSessionPin)
		sessions.PUT("/:id/knowledge-bases", s.updateSessionKnowledgeBases)
		sessions.DELETE("/:id", s.deleteSession)
		sessions.POST("/:id/messages/stream", s.streamMessage)
	}

	knowledgeBases := r.Group("/api/knowledgebase")
	{
		knowledgeBases.GET("/list", s.listKnowledgeBases)
		knowledgeBases.GET("/search", s.searchKnowledgeBases)
		knowledgeBases.GET("/stats", s.getKnowledgeBaseStats)
		knowledgeBases.GET("/:id", s.getKnowledgeBase)
		knowledgeBases.DELETE("/:id", s.deleteKnowledgeBase)
	}
}

// requestLogger tags each request with an id, reusing the client's one when present.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(rag.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(rag.RequestIDHeader, requestID)

		start := time.Now()
		c.Next()
		s.log.Debug("request served",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.opts.Port),
		Handler: s.Handler(),
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	fmt.Printf("Server starting on http://localhost%s\n", server.Addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
