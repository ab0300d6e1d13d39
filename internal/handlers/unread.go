package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"discussion-service/internal/services"
)

// UnreadHandler exposes read-state endpoints.
type UnreadHandler struct {
	tracker *services.UnreadCountTracker
}

// NewUnreadHandler constructs an UnreadHandler.
func NewUnreadHandler(tracker *services.UnreadCountTracker) *UnreadHandler {
	return &UnreadHandler{tracker: tracker}
}

// MarkRead handles POST /channels/:channel_id/read.
func (h *UnreadHandler) MarkRead(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	membership, err := h.tracker.MarkRead(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not mark channel read"})
		return
	}
	c.JSON(http.StatusOK, membership)
}

// ChannelUnread handles GET /channels/:channel_id/unread.
func (h *UnreadHandler) ChannelUnread(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	membership, err := h.tracker.ChannelState(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not load read state"})
		return
	}
	c.JSON(http.StatusOK, membership)
}

// UnreadSummary handles GET /unread.
func (h *UnreadHandler) UnreadSummary(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	summary, err := h.tracker.Summary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": summary})
}
