package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/agent"
	"github.com/djvaroli/cinemai/internal/observability"
	"github.com/djvaroli/cinemai/internal/session"
)

// sessionLocks serializes turns within a session. A single conversation is
// strictly sequential: one turn reaches Responded before the next utterance
// is accepted. Distinct sessions proceed concurrently.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *sessionLocks) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[id] = l
	return l
}

func (s *sessionLocks) remove(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

func registerRoutes(router *gin.Engine, dispatcher *agent.Dispatcher, sessions *session.Manager, metrics *observability.Metrics, log *zap.Logger) {
	locks := newSessionLocks()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	api := router.Group("/api")
	{
		// Start a new session
		api.POST("/session", func(c *gin.Context) {
			sess, err := sessions.Create(c.Request.Context())
			if err != nil {
				log.Error("Failed to create session", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
				return
			}
			metrics.ActiveSessions.Inc()
			c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
		})

		// Chat within a session
		api.POST("/session/:id/chat", func(c *gin.Context) {
			sess, ok := sessions.Get(c.Param("id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}

			var req struct {
				Message string `json:"message" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			l := locks.lock(sess.ID)
			l.Lock()
			turn, err := dispatcher.Handle(c.Request.Context(), req.Message, sess.Log, sess.Profile)
			l.Unlock()
			if err != nil {
				// the caller aborted the turn; memory was left unmodified
				log.Warn("turn aborted", zap.String("session", sess.ID), zap.Error(err))
				c.JSON(http.StatusRequestTimeout, gin.H{"error": "Turn cancelled"})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"reply":    turn.Reply,
				"category": turn.Category,
				"seq":      turn.Seq,
			})
		})

		// Inspect a session's conversation memory
		api.GET("/session/:id/memory", func(c *gin.Context) {
			sess, ok := sessions.Get(c.Param("id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"turns": sess.Log.All()})
		})

		// End a session, snapshotting its memory
		api.DELETE("/session/:id", func(c *gin.Context) {
			if _, ok := sessions.Get(c.Param("id")); !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			if err := sessions.End(c.Request.Context(), c.Param("id")); err != nil {
				log.Error("Failed to snapshot session", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to snapshot session"})
				return
			}
			locks.remove(c.Param("id"))
			metrics.ActiveSessions.Dec()
			c.JSON(http.StatusOK, gin.H{"status": "ended"})
		})
	}
}
