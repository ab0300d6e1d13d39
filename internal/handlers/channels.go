package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"discussion-service/internal/observability"
	"discussion-service/internal/services"
	"discussion-service/internal/telemetry"
)

// ChannelHandler manages channel lifecycle and membership endpoints.
type ChannelHandler struct {
	sync       *services.ChannelSyncEngine
	membership *services.MembershipManager
	audit      *telemetry.AuditEmitter
}

// NewChannelHandler constructs a ChannelHandler.
func NewChannelHandler(sync *services.ChannelSyncEngine, membership *services.MembershipManager, audit *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{sync: sync, membership: membership, audit: audit}
}

func (h *ChannelHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// CreateChannel handles POST /channels.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name             string `json:"name" binding:"required"`
		Description      string `json:"description"`
		IsPrivate        bool   `json:"is_private"`
		IsDefaultGeneral bool   `json:"is_default_general"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IsDefaultGeneral {
		exists, err := h.sync.HasDefaultGeneral(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check general channel"})
			return
		}
		if exists {
			c.JSON(statusForError(services.ErrGeneralExists), gin.H{"error": "default general channel already exists"})
			return
		}
	}

	channel, err := h.sync.CreateOrSync(c.Request.Context(), services.ChannelParams{
		Name:             req.Name,
		Description:      req.Description,
		IsPrivate:        req.IsPrivate,
		IsDefaultGeneral: req.IsDefaultGeneral,
	}, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "channel create failed")
		c.JSON(statusForError(err), gin.H{"error": "could not create channel"})
		return
	}

	h.emitAudit(c, "INFO", "Channel created")
	headers := observability.BuildHeaders(requestIDFromContext(c), "")
	_ = observability.PublishEvent(c.Request.Context(), "channel.created", observability.EventEnvelope{
		EventType: "channel",
		EventName: "created",
		TenantID:  channel.TenantID.String(),
		Payload:   gin.H{"channel_id": channel.ID, "name": channel.Name},
	}, headers)

	c.JSON(http.StatusCreated, channel)
}

// ListChannels returns the channels of the caller's tenant.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	channels, err := h.sync.ListForTenant(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to load channels"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// JoinGeneral handles POST /channels/general/join: the login-time hook that
// guarantees the caller ends up in the default general channel.
func (h *ChannelHandler) JoinGeneral(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	channel, err := h.sync.EnsureGeneralAndJoin(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not join general channel"})
		return
	}
	c.JSON(http.StatusOK, channel)
}

// DeleteChannel handles DELETE /channels/:channel_id. Moderators only.
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	moderator, err := h.membership.IsModerator(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify moderator"})
		return
	}
	if !moderator {
		c.JSON(http.StatusForbidden, gin.H{"error": "moderator role required"})
		return
	}

	if err := h.sync.Delete(c.Request.Context(), channelID, userID); err != nil {
		h.emitAudit(c, "ERROR", "channel delete failed")
		c.JSON(statusForError(err), gin.H{"error": "could not delete channel"})
		return
	}

	h.emitAudit(c, "INFO", "Channel deleted")
	c.Status(http.StatusNoContent)
}

// ListMembers handles GET /channels/:channel_id/members.
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	roster, err := h.membership.ListMembers(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "failed to load members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": roster})
}

// AddMember handles POST /channels/:channel_id/members.
func (h *ChannelHandler) AddMember(c *gin.Context) {
	operatorID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if _, err := h.membership.AddMember(c.Request.Context(), channelID, targetID, operatorID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not add member"})
		return
	}

	h.emitAudit(c, "INFO", "Channel member added")
	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /channels/:channel_id/members/:user_id.
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	operatorID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	targetID, ok := userIDParam(c)
	if !ok {
		return
	}

	if targetID != operatorID {
		moderator, err := h.membership.IsModerator(c.Request.Context(), channelID, operatorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify moderator"})
			return
		}
		if !moderator {
			c.JSON(http.StatusForbidden, gin.H{"error": "moderator role required"})
			return
		}
	}

	if err := h.membership.RemoveMember(c.Request.Context(), channelID, targetID, operatorID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not remove member"})
		return
	}

	h.emitAudit(c, "INFO", "Channel member removed")
	c.Status(http.StatusNoContent)
}

// GrantModerator handles POST /channels/:channel_id/moderators.
func (h *ChannelHandler) GrantModerator(c *gin.Context) {
	operatorID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	moderator, err := h.membership.IsModerator(c.Request.Context(), channelID, operatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify moderator"})
		return
	}
	if !moderator {
		c.JSON(http.StatusForbidden, gin.H{"error": "moderator role required"})
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.membership.GrantModerator(c.Request.Context(), channelID, targetID, operatorID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not grant moderator"})
		return
	}

	h.emitAudit(c, "INFO", "Moderator granted")
	c.Status(http.StatusNoContent)
}

// RevokeModerator handles DELETE /channels/:channel_id/moderators/:user_id.
func (h *ChannelHandler) RevokeModerator(c *gin.Context) {
	operatorID, ok := mustUserID(c)
	if !ok {
		return
	}
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	targetID, ok := userIDParam(c)
	if !ok {
		return
	}

	// Self-revocation is allowed; revoking someone else needs the role.
	if targetID != operatorID {
		moderator, err := h.membership.IsModerator(c.Request.Context(), channelID, operatorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify moderator"})
			return
		}
		if !moderator {
			c.JSON(http.StatusForbidden, gin.H{"error": "moderator role required"})
			return
		}
	}

	if err := h.membership.RevokeModerator(c.Request.Context(), channelID, targetID, operatorID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not revoke moderator"})
		return
	}

	h.emitAudit(c, "INFO", "Moderator revoked")
	c.Status(http.StatusNoContent)
}
