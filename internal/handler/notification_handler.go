package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
	Get(ctx context.Context, userID, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreference, error)
	UpdatePreferences(ctx context.Context, userID string, req models.UpdateNotificationPreferenceRequest) (*models.NotificationPreference, error)
	Announce(ctx context.Context, actor models.Actor, req models.AnnouncementRequest) (*models.AnnouncementResult, error)
}

// NotificationHandler exposes the in-app notification inbox and preferences.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param type query string false "Notification type"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/ [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var filter models.NotificationFilter
	filter.Page, filter.PageSize = pageParams(c)
	if unread, err := strconv.ParseBool(c.DefaultQuery("unread", "false")); err == nil {
		filter.UnreadOnly = unread
	}
	if t := strings.TrimSpace(c.Query("type")); t != "" {
		nt := models.NotificationType(t)
		filter.Type = &nt
	}
	items, pagination, err := h.service.List(c.Request.Context(), actor.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get notification
// @Description Returns one notification and marks it read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id}/ [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	n, err := h.service.Get(c.Request.Context(), actor.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, n, nil)
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id}/read/ [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), actor.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/mark-all-read/ [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	updated, err := h.service.MarkAllRead(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": updated}, nil)
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/unread-count/ [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}

// GetPreferences godoc
// @Summary Get notification preferences
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/preferences/ [get]
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	pref, err := h.service.GetPreferences(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// UpdatePreferences godoc
// @Summary Update notification preferences
// @Description Only the supplied fields change
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.UpdateNotificationPreferenceRequest true "Preferences"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/preferences/ [post]
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.UpdateNotificationPreferenceRequest
	if !bindJSON(c, &req, "invalid preferences payload") {
		return
	}
	pref, err := h.service.UpdatePreferences(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// Announce godoc
// @Summary Broadcast announcement
// @Description Sends an announcement to every user, or to one role
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.AnnouncementRequest true "Announcement"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/announce/ [post]
func (h *NotificationHandler) Announce(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.AnnouncementRequest
	if !bindJSON(c, &req, "invalid announcement payload") {
		return
	}
	result, err := h.service.Announce(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
