package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/callbridge/callbridge/internal/auth"
	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/session"
)

type SessionHandler struct {
	Sessions *session.Service
}

type createRequest struct {
	Name            string             `json:"name"`
	MaxParticipants int                `json:"maxParticipants"`
	Type            domain.SessionType `json:"type"`
}

type sessionIDRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad request body"})
		return
	}
	if req.Type == "" {
		req.Type = domain.TypeVideoCall
	}

	summary, err := h.Sessions.Create(c.Request.Context(), claims.UserID, req.Name, req.MaxParticipants, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Join registers the membership ahead of the websocket attach; the connection
// id is provisional until the relay rebinds it on the live join.
func (h *SessionHandler) Join(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "sessionId is required"})
		return
	}

	detail, err := h.Sessions.Join(c.Request.Context(), claims.UserID, req.SessionID, uuid.NewString())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.Sessions.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *SessionHandler) ListActive(c *gin.Context) {
	summaries, err := h.Sessions.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *SessionHandler) Leave(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "sessionId is required"})
		return
	}

	left, err := h.Sessions.Leave(c.Request.Context(), claims.UserID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !left {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found or user not in session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left session"})
}

func (h *SessionHandler) End(c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "sessionId is required"})
		return
	}

	ended, err := h.Sessions.End(c.Request.Context(), claims.UserID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ended {
		c.JSON(http.StatusForbidden, gin.H{"message": "only the creator may end the session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session ended"})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
	case errors.Is(err, session.ErrSessionFull):
		c.JSON(http.StatusConflict, gin.H{"message": "session is full"})
	case errors.Is(err, session.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden"})
	case errors.Is(err, session.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
