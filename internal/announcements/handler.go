package announcements

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/expo-venue/backend/internal/middleware"
	"github.com/expo-venue/backend/internal/models"
	"github.com/expo-venue/backend/internal/notify"
	"github.com/expo-venue/backend/pkg/response"
)

// Notifier pushes change notifications to connected observers.
type Notifier interface {
	Broadcast(kind notify.EventKind)
}

// CreateRequest is the body for POST /announcements.
type CreateRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// Handler handles announcement HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier Notifier
}

// NewHandler creates an announcements handler.
func NewHandler(repo *Repository, notifier Notifier) *Handler {
	return &Handler{repo: repo, notifier: notifier}
}

// Create handles POST /announcements (admin only). Observers are told that
// something changed; they refetch the list themselves.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	a := &models.Announcement{
		Title:     req.Title,
		Body:      req.Body,
		CreatedBy: userID,
	}
	if err := h.repo.Create(c.Request.Context(), a); err != nil {
		response.Internal(c, "failed to create announcement")
		return
	}

	h.notifier.Broadcast(notify.EventAnnouncement)
	response.Created(c, a)
}

// List handles GET /announcements.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), 50)
	if err != nil {
		response.Internal(c, "failed to list announcements")
		return
	}
	response.OK(c, gin.H{"announcements": list})
}

// Delete handles DELETE /announcements/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid announcement id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete announcement")
		return
	}
	h.notifier.Broadcast(notify.EventAnnouncement)
	response.NoContent(c)
}
