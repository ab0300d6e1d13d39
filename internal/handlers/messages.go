package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"discussion-service/internal/observability"
	"discussion-service/internal/repositories"
	"discussion-service/internal/services"
	"discussion-service/internal/telemetry"
)

const defaultMessagePageSize = 50

// MessageHandler manages message endpoints.
type MessageHandler struct {
	mirror      *services.MessageMirror
	membership  *services.MembershipManager
	messageRepo repositories.MessageRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(mirror *services.MessageMirror, membership *services.MembershipManager, messageRepo repositories.MessageRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		mirror:      mirror,
		membership:  membership,
		messageRepo: messageRepo,
		audit:       audit,
	}
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// ListMessages handles GET /channels/:channel_id/messages.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	pageSize := defaultMessagePageSize
	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page size"})
			return
		}
		pageSize = parsed
	}

	items, nextToken, err := h.mirror.List(c.Request.Context(), channelID, userID, c.Query("next_token"), pageSize)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": items, "next_token": nextToken})
}

// SendMessage handles POST /channels/:channel_id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.mirror.Send(c.Request.Context(), channelID, userID, req.Content)
	if err != nil {
		h.emitAudit(c, "ERROR", "message send failed")
		c.JSON(statusForError(err), gin.H{"error": "could not send message"})
		return
	}

	headers := observability.BuildHeaders(requestIDFromContext(c), "")
	_ = observability.PublishEvent(c.Request.Context(), "message.sent", observability.EventEnvelope{
		EventType: "message",
		EventName: "sent",
		Payload:   gin.H{"channel_id": channelID, "remote_message_id": msg.RemoteMessageID},
	}, headers)

	c.JSON(http.StatusCreated, msg)
}

// MirrorMessage handles POST /channels/:channel_id/messages/mirror for
// messages a client already delivered straight to the provider.
func (h *MessageHandler) MirrorMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Content         string `json:"content" binding:"required"`
		RemoteMessageID string `json:"remote_message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.mirror.Mirror(c.Request.Context(), channelID, userID, req.Content, req.RemoteMessageID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not mirror message"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

// canModerateMessage allows the author or a channel moderator through.
func (h *MessageHandler) canModerateMessage(c *gin.Context) (channelID uuid.UUID, remoteMessageID string, allowed bool) {
	userID, ok := mustUserID(c)
	if !ok {
		return uuid.Nil, "", false
	}
	chID, ok := channelIDParam(c)
	if !ok {
		return uuid.Nil, "", false
	}
	remoteID := c.Param("message_id")

	msg, err := h.messageRepo.GetByRemoteID(c.Request.Context(), remoteID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return uuid.Nil, "", false
	}
	if msg.ChannelID != chID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to channel"})
		return uuid.Nil, "", false
	}

	if msg.AuthorID != userID {
		moderator, err := h.membership.IsModerator(c.Request.Context(), chID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify moderator"})
			return uuid.Nil, "", false
		}
		if !moderator {
			c.JSON(http.StatusForbidden, gin.H{"error": "author or moderator required"})
			return uuid.Nil, "", false
		}
	}
	return chID, remoteID, true
}

// RedactMessage handles POST /channels/:channel_id/messages/:message_id/redact.
func (h *MessageHandler) RedactMessage(c *gin.Context) {
	channelID, remoteID, ok := h.canModerateMessage(c)
	if !ok {
		return
	}
	userID, _ := authedUserID(c)

	if err := h.mirror.Redact(c.Request.Context(), channelID, remoteID, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not redact message"})
		return
	}

	h.emitAudit(c, "INFO", "Message redacted")
	c.Status(http.StatusNoContent)
}

// DeleteMessage handles DELETE /channels/:channel_id/messages/:message_id.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	channelID, remoteID, ok := h.canModerateMessage(c)
	if !ok {
		return
	}
	userID, _ := authedUserID(c)

	if err := h.mirror.Delete(c.Request.Context(), channelID, remoteID, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not delete message"})
		return
	}

	h.emitAudit(c, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

// React handles POST /channels/:channel_id/messages/:message_id/reactions.
func (h *MessageHandler) React(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Kind string `json:"kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	counts, err := h.mirror.React(c.Request.Context(), channelID, c.Param("message_id"), userID, req.Kind)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not add reaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": counts})
}

// Unreact handles DELETE /channels/:channel_id/messages/:message_id/reactions/:kind.
func (h *MessageHandler) Unreact(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	counts, err := h.mirror.Unreact(c.Request.Context(), channelID, c.Param("message_id"), userID, c.Param("kind"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not remove reaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": counts})
}
