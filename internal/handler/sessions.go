package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caldew/workdesk/internal/domain"
)

func (h *Handler) ListSessions(c *gin.Context) {
	summaries, err := h.sessions.List(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// SaveSession upserts a whole session: the client always sends the
// full message list, so edits and retries are plain saves.
func (h *Handler) SaveSession(c *gin.Context) {
	var session domain.ChatSession
	if err := c.ShouldBindJSON(&session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid session payload"})
		return
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.UserID = userID(c)

	if err := h.sessions.Save(c.Request.Context(), &session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), userID(c), c.Param("id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	err := h.sessions.Delete(c.Request.Context(), userID(c), c.Param("id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
