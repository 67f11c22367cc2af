package rooms

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/middleware"
	"github.com/expo-venue/backend/internal/models"
	"github.com/expo-venue/backend/internal/notify"
	"github.com/expo-venue/backend/pkg/queue"
	"github.com/expo-venue/backend/pkg/response"
)

// MeetingService is the subset of the presence client used by the schedule
// handlers.
type MeetingService interface {
	CreateMeeting(ctx context.Context, name, meetingID, moderatorPW, attendeePW string) error
	IsRunning(ctx context.Context, meetingID string) (bool, error)
	JoinURL(meetingID, fullName, userID, role, password string) string
}

// Notifier pushes change notifications to connected observers.
type Notifier interface {
	Broadcast(kind notify.EventKind)
}

// CreateRequest is the body for POST /rooms.
type CreateRequest struct {
	ProjectID       int64  `json:"project_id" binding:"required"`
	Title           string `json:"title" binding:"required"`
	StartsAt        string `json:"starts_at" binding:"required"` // RFC3339
	DurationMinutes int    `json:"duration_minutes"`
	RosterUserIDs   []string `json:"roster_user_ids"` // optional; platform user IDs to seed the roster
}

// Handler handles schedule, status and join HTTP endpoints. It is the
// per-request orchestrator: roster fetch, reconciliation and notification all
// sequence through here.
type Handler struct {
	repo     *Repository
	reconc   *Reconciler
	meetings MeetingService
	notifier Notifier
	jobs     *queue.Queue
	loc      *time.Location
	logger   *zap.Logger
}

// NewHandler creates a rooms handler.
func NewHandler(repo *Repository, reconc *Reconciler, meetings MeetingService, notifier Notifier, jobs *queue.Queue, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, reconc: reconc, meetings: meetings, notifier: notifier, jobs: jobs, loc: loc, logger: logger}
}

func (h *Handler) targetDate(c *gin.Context) (time.Time, bool) {
	if s := c.Query("date"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			response.BadRequest(c, "invalid date, want YYYY-MM-DD")
			return time.Time{}, false
		}
		return d, true
	}
	return time.Now().In(h.loc), true
}

// Create handles POST /rooms (admin only). The external meeting is created
// right away so the room is joinable as soon as it appears on the schedule.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	room := &models.Room{
		ProjectID:       req.ProjectID,
		Title:           req.Title,
		StartsAt:        startsAt,
		DurationMinutes: req.DurationMinutes,
		MeetingID:       uuid.New().String(),
		AttendeePW:      uuid.New().String(),
		ModeratorPW:     uuid.New().String(),
		CreatedBy:       userID,
	}
	if err := h.repo.Create(c.Request.Context(), room); err != nil {
		response.Internal(c, "failed to create room")
		return
	}
	for _, idStr := range req.RosterUserIDs {
		rosterID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		_ = h.repo.AddRosterEntry(c.Request.Context(), room.ID, rosterID)
	}
	if err := h.meetings.CreateMeeting(c.Request.Context(), room.Title, room.MeetingID, room.ModeratorPW, room.AttendeePW); err != nil {
		h.logger.Warn("meeting create failed, room kept", zap.String("room_id", room.ID.String()), zap.Error(err))
	}
	h.notifier.Broadcast(notify.EventSchedule)
	response.Created(c, room)
}

// List handles GET /rooms[?date=YYYY-MM-DD].
func (h *Handler) List(c *gin.Context) {
	day, ok := h.targetDate(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByDate(c.Request.Context(), day, h.loc)
	if err != nil {
		response.Internal(c, "failed to list rooms")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /rooms/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	room, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "room not found")
		return
	}
	response.OK(c, room)
}

// Update handles PATCH /rooms/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	room, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "room not found")
		return
	}
	var req struct {
		Title           *string `json:"title"`
		StartsAt        *string `json:"starts_at"`
		DurationMinutes *int    `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	title := room.Title
	if req.Title != nil {
		title = *req.Title
	}
	var startsAt *time.Time
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		startsAt = &t
	}
	if err := h.repo.Update(c.Request.Context(), id, title, startsAt, req.DurationMinutes); err != nil {
		response.Internal(c, "failed to update room")
		return
	}
	h.notifier.Broadcast(notify.EventSchedule)
	updated, _ := h.repo.GetByID(c.Request.Context(), id)
	response.OK(c, updated)
}

// Delete handles DELETE /rooms/:id (admin only). Ending the external meeting
// goes through the job queue so the request never blocks on the upstream.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	room, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "room not found")
		return
	}
	if err := h.jobs.EnqueueEndMeeting(c.Request.Context(), queue.EndMeetingPayload{
		RoomID:      room.ID,
		MeetingID:   room.MeetingID,
		ModeratorPW: room.ModeratorPW,
	}); err != nil {
		h.logger.Warn("end-meeting enqueue failed", zap.String("room_id", room.ID.String()), zap.Error(err))
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete room")
		return
	}
	h.notifier.Broadcast(notify.EventSchedule)
	response.NoContent(c)
}

// Status handles GET /rooms/status[?date=YYYY-MM-DD]: the reconciliation
// entrypoint. Results come back in schedule order.
func (h *Handler) Status(c *gin.Context) {
	day, ok := h.targetDate(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByDate(c.Request.Context(), day, h.loc)
	if err != nil {
		response.Internal(c, "failed to list rooms")
		return
	}
	results := h.reconc.Reconcile(c.Request.Context(), list)
	response.OK(c, results)
}

// Join handles GET /rooms/:id/join: returns the signed join URL and records a
// live-join for statistics. Roster members of the room's project join as
// moderators, everyone else as attendees.
func (h *Handler) Join(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}
	room, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "room not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	fullName, _ := c.MustGet(middleware.ContextUserName).(string)

	running, err := h.meetings.IsRunning(c.Request.Context(), room.MeetingID)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	if !running {
		if err := h.meetings.CreateMeeting(c.Request.Context(), room.Title, room.MeetingID, room.ModeratorPW, room.AttendeePW); err != nil {
			response.Internal(c, err.Error())
			return
		}
	}

	role, password := "attendee", room.AttendeePW
	if member, err := h.repo.IsProjectMember(c.Request.Context(), userID, room.ProjectID); err == nil && member {
		role, password = "moderator", room.ModeratorPW
	}

	if err := h.repo.LogLiveJoin(c.Request.Context(), room.ID, userID); err != nil {
		h.logger.Warn("live join log failed", zap.String("room_id", room.ID.String()), zap.Error(err))
	}
	url := h.meetings.JoinURL(room.MeetingID, fullName, userID.String(), role, password)
	response.OK(c, gin.H{"join_url": url, "role": role})
}
