package checkins

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/models"
	"github.com/expo-venue/backend/internal/notify"
	"github.com/expo-venue/backend/pkg/response"
)

// Notifier pushes change notifications to connected observers.
type Notifier interface {
	Broadcast(kind notify.EventKind)
}

// CreateRequest is the body for POST /checkins, filled in at the venue desk.
// Walk-ins without an account leave user_id empty and carry demographics
// inline; count lets the desk register a group in one submission.
type CreateRequest struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Major    string `json:"major"`
	Gender   string `json:"gender"`
	GradDate string `json:"grad_date"` // YYYY-MM-DD
	Count    int    `json:"count"`
}

// Handler handles in-person check-in HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier Notifier
	loc      *time.Location
	logger   *zap.Logger
}

// NewHandler creates a check-ins handler.
func NewHandler(repo *Repository, notifier Notifier, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, notifier: notifier, loc: loc, logger: logger}
}

// Create handles POST /checkins (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	ci := &models.CheckIn{
		FullName: req.FullName,
		Role:     models.ParseRole(req.Role),
		Major:    req.Major,
		Gender:   models.ParseGender(req.Gender),
		Count:    req.Count,
	}
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			response.BadRequest(c, "invalid user_id")
			return
		}
		ci.UserID = &id
	}
	if req.GradDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.GradDate, h.loc)
		if err != nil {
			response.BadRequest(c, "invalid grad_date, want YYYY-MM-DD")
			return
		}
		ci.GradDate = &d
	}

	if err := h.repo.Create(c.Request.Context(), ci); err != nil {
		response.Internal(c, "failed to record check-in")
		return
	}

	// Attendance moved, so live progress displays should refresh.
	h.notifier.Broadcast(notify.EventProgress)
	response.Created(c, ci)
}

// List handles GET /checkins[?date=YYYY-MM-DD] (admin only).
func (h *Handler) List(c *gin.Context) {
	day := time.Now().In(h.loc)
	if s := c.Query("date"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			response.BadRequest(c, "invalid date, want YYYY-MM-DD")
			return
		}
		day = d
	}
	list, err := h.repo.ListByDate(c.Request.Context(), day, h.loc)
	if err != nil {
		response.Internal(c, "failed to list check-ins")
		return
	}
	response.OK(c, gin.H{"checkins": list})
}
