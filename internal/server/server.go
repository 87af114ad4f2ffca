// Package server exposes the conversation service over HTTP. Routes mirror
// the mobile app's backend contract: probe endpoints, /chat, and the
// conversation CRUD surface, all bearer-authenticated except /test and
// /health.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinysteps/carebot/internal/auth"
	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/config"
	"github.com/tinysteps/carebot/internal/logger"
	"github.com/tinysteps/carebot/internal/store"
)

const defaultTitle = "New Conversation"

// Server wires the store, the responder and token verification into gin
// handlers.
type Server struct {
	store    *store.Store
	svc      *ChatService
	verifier *auth.Verifier
}

// New creates a Server.
func New(st *store.Store, svc *ChatService, verifier *auth.Verifier) *Server {
	return &Server{store: st, svc: svc, verifier: verifier}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/test", s.handleTest)
	r.GET("/health", s.handleHealth)

	authed := r.Group("/", s.requireAuth)
	authed.GET("/test-auth", s.handleTestAuth)
	authed.POST("/chat", s.handleChat)
	authed.GET("/conversations", s.handleListConversations)
	authed.POST("/conversations", s.handleCreateConversation)
	authed.GET("/conversations/:id", s.handleGetConversation)
	authed.GET("/conversations/:id/messages", s.handleGetMessages)
	authed.PUT("/conversations/:id", s.handleUpdateConversation)
	authed.DELETE("/conversations/:id", s.handleDeleteConversation)

	return r
}

// requireAuth verifies the bearer token and stashes the user id in the
// context.
func (s *Server) requireAuth(c *gin.Context) {
	token, ok := auth.FromHeader(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	userID, err := s.verifier.UserID(token)
	if err != nil {
		logger.L.Warn("token rejected", "error", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}
	c.Set("user_id", userID)
	c.Next()
}

func userID(c *gin.Context) string { return c.GetString("user_id") }

func (s *Server) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, chat.ProbeResponse{
		Message:   "Backend is reachable",
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleTestAuth(c *gin.Context) {
	c.JSON(http.StatusOK, chat.ProbeResponse{
		Message:   "Authentication successful",
		UserID:    userID(c),
		Status:    "authenticated",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "healthy"
	if err := s.store.Ping(c.Request.Context()); err != nil {
		logger.L.Error("health check: database unreachable", "error", err)
		dbStatus = "unhealthy"
	}
	llmStatus := "healthy"
	if !s.svc.LLMHealthy() {
		llmStatus = "unhealthy"
	}
	status := "healthy"
	if dbStatus != "healthy" || llmStatus != "healthy" {
		status = "unhealthy"
	}
	c.JSON(http.StatusOK, chat.HealthResponse{
		Status:    status,
		Database:  dbStatus,
		LLM:       llmStatus,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	resp, err := s.svc.Chat(c.Request.Context(), userID(c), req)
	if err != nil {
		s.fail(c, err, "chat failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListConversations(c *gin.Context) {
	convs, err := s.store.ListConversations(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err, "failed to fetch conversations")
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req chat.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	title := req.Title
	if title == "" {
		title = defaultTitle
	}
	conv, err := s.store.CreateConversation(c.Request.Context(), userID(c), title)
	if err != nil {
		s.fail(c, err, "failed to create conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleGetConversation(c *gin.Context) {
	conv, err := s.store.GetConversation(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		s.fail(c, err, "failed to fetch conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleGetMessages(c *gin.Context) {
	conv, err := s.store.GetConversationWithMessages(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		s.fail(c, err, "failed to fetch conversation with messages")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleUpdateConversation(c *gin.Context) {
	var req chat.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	conv, err := s.store.UpdateConversation(c.Request.Context(), c.Param("id"), userID(c), req)
	if err != nil {
		s.fail(c, err, "failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.store.DeleteConversation(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		s.fail(c, err, "failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

// fail maps service errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error, detail string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	default:
		logger.L.Error(detail, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": detail})
	}
}

// Addr formats the listen address from config.
func Addr(cfg config.ServerConfig) string {
	return cfg.Host + ":" + cfg.Port
}
