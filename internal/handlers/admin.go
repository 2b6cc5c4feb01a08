package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardiacai/riskengine/internal/monitor"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
	"github.com/cardiacai/riskengine/internal/session"
)

type AdminHandler struct {
	sessions *session.Manager
	loop     *monitor.Loop
	log      *logger.Logger
}

func NewAdminHandler(sessions *session.Manager, loop *monitor.Loop, log *logger.Logger) *AdminHandler {
	return &AdminHandler{sessions: sessions, loop: loop, log: log}
}

// RequireAuth gates the dashboard routes on an active admin session.
func (ah *AdminHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ah.sessions.Current() == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": session.ErrNotLoggedIn.Error()})
			return
		}
		c.Next()
	}
}

// Login verifies credentials, establishes the session, and starts the
// monitoring loop.
func (ah *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := ah.sessions.Login(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err := ah.loop.Start(); err != nil {
		ah.log.Error("failed to start monitor loop", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"email": sess.Email, "expires_at": sess.ExpiresAt})
}

// Logout tears down both the session and the monitoring loop.
func (ah *AdminHandler) Logout(c *gin.Context) {
	ah.loop.Stop()
	if err := ah.sessions.Logout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Dashboard returns the monitor state and the latest snapshot. The snapshot
// is null until the first poll completes.
func (ah *AdminHandler) Dashboard(c *gin.Context) {
	RespondOK(c, gin.H{
		"state":    ah.loop.State(),
		"snapshot": ah.loop.Snapshot(),
	})
}

func (ah *AdminHandler) PauseMonitor(c *gin.Context) {
	ah.loop.Pause()
	RespondOK(c, gin.H{"state": ah.loop.State()})
}

func (ah *AdminHandler) ResumeMonitor(c *gin.Context) {
	ah.loop.Resume()
	RespondOK(c, gin.H{"state": ah.loop.State()})
}
