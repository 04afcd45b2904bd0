package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// MessageHandler manages the direct-message endpoints.
type MessageHandler struct {
	repo  repositories.MessageRepository
	audit *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(repo repositories.MessageRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{repo: repo, audit: audit}
}

// PostMessage stores a new direct message from the authenticated user.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	me := usernameFromContext(c)
	if me == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	var req struct {
		ToUsername string `json:"toUsername"`
		Text       string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing toUsername or text"})
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.ToUsername == "" || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing toUsername or text"})
		return
	}
	if utf8.RuneCountInString(req.Text) > models.MaxTextLength {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Text exceeds maximum length"})
		return
	}

	msg, err := h.repo.Create(c.Request.Context(), me, req.ToUsername, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	observability.IncMessageStored()
	h.audit.Emit(c.Request.Context(), "INFO", "message created", requestIDFromContext(c), me)
	c.JSON(http.StatusCreated, msg)
}

// GetThread returns the two-way exchange between the authenticated user and
// the user named by the "with" query parameter, oldest first.
func (h *MessageHandler) GetThread(c *gin.Context) {
	me := usernameFromContext(c)
	if me == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	withUsername := c.Query("with")
	if withUsername == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing ?with=username"})
		return
	}

	msgs, err := h.repo.Thread(c.Request.Context(), me, withUsername)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, msgs)
}

// ListConversations returns one entry per counterpart the user has exchanged
// messages with, most recently active first.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	me := usernameFromContext(c)
	if me == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	msgs, err := h.repo.AllForUser(c.Request.Context(), me)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, aggregateConversations(me, msgs))
}

// ListAllMessages returns the entire message log, oldest first.
//
// Deprecated: legacy endpoint from the un-addressed broadcast-log model,
// kept for old clients. It ignores addressing entirely.
func (h *MessageHandler) ListAllMessages(c *gin.Context) {
	msgs, err := h.repo.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, msgs)
}

// aggregateConversations keeps the first message seen per counterpart.
// Input must be ordered newest first, so the kept entry is the latest
// message of each conversation and output follows recent-activity order.
func aggregateConversations(me string, msgs []models.Message) []models.Conversation {
	latest := lo.UniqBy(msgs, func(m models.Message) string {
		return counterpart(me, m)
	})
	return lo.Map(latest, func(m models.Message, _ int) models.Conversation {
		return models.Conversation{OtherUsername: counterpart(me, m), LastMessage: m}
	})
}

func counterpart(me string, m models.Message) string {
	if m.FromUsername == me {
		return m.ToUsername
	}
	return m.FromUsername
}
