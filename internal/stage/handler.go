// Package stage keeps the main-stage program state: which segment is showing,
// whether the stage is live, and how far the day's program has progressed.
// State lives in Redis so server and worker replicas agree on it; every change
// fans out to websocket observers as a typed notification.
package stage

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	rediswrap "github.com/expo-venue/backend/pkg/redis"

	"github.com/expo-venue/backend/internal/notify"
	"github.com/expo-venue/backend/pkg/response"
)

const stateKey = "venue:stage:state"

// State is the current main-stage program state.
type State struct {
	Segment         string    `json:"segment"`
	Live            bool      `json:"live"`
	ProgressPercent int       `json:"progress_percent"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Notifier pushes change notifications to connected observers.
type Notifier interface {
	Broadcast(kind notify.EventKind)
}

// Handler handles main-stage HTTP endpoints.
type Handler struct {
	rdb      *rediswrap.Client
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a stage handler.
func NewHandler(rdb *rediswrap.Client, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{rdb: rdb, notifier: notifier, logger: logger}
}

func (h *Handler) load(c *gin.Context) (State, error) {
	var st State
	raw, err := h.rdb.Get(c.Request.Context(), stateKey).Result()
	if err == redis.Nil {
		return State{Segment: "idle"}, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		h.logger.Warn("corrupt stage state, resetting", zap.Error(err))
		return State{Segment: "idle"}, nil
	}
	return st, nil
}

func (h *Handler) store(c *gin.Context, st State) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return h.rdb.Set(c.Request.Context(), stateKey, raw, 0).Err()
}

// Get handles GET /stage.
func (h *Handler) Get(c *gin.Context) {
	st, err := h.load(c)
	if err != nil {
		response.Internal(c, "failed to load stage state")
		return
	}
	response.OK(c, st)
}

// Update handles PUT /stage (admin only): switches the current segment.
func (h *Handler) Update(c *gin.Context) {
	var req struct {
		Segment string `json:"segment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	st, err := h.load(c)
	if err != nil {
		response.Internal(c, "failed to load stage state")
		return
	}
	st.Segment = req.Segment
	if err := h.store(c, st); err != nil {
		response.Internal(c, "failed to store stage state")
		return
	}
	h.notifier.Broadcast(notify.EventStageUpdate)
	response.OK(c, st)
}

// SetLive handles POST /stage/live (admin only): toggles the live flag.
func (h *Handler) SetLive(c *gin.Context) {
	var req struct {
		Live bool `json:"live"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	st, err := h.load(c)
	if err != nil {
		response.Internal(c, "failed to load stage state")
		return
	}
	st.Live = req.Live
	if err := h.store(c, st); err != nil {
		response.Internal(c, "failed to store stage state")
		return
	}
	h.notifier.Broadcast(notify.EventStageLive)
	response.OK(c, st)
}

// SetProgress handles POST /stage/progress (admin only).
func (h *Handler) SetProgress(c *gin.Context) {
	var req struct {
		ProgressPercent int `json:"progress_percent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.ProgressPercent < 0 || req.ProgressPercent > 100 {
		response.BadRequest(c, "progress_percent must be 0-100")
		return
	}
	st, err := h.load(c)
	if err != nil {
		response.Internal(c, "failed to load stage state")
		return
	}
	st.ProgressPercent = req.ProgressPercent
	if err := h.store(c, st); err != nil {
		response.Internal(c, "failed to store stage state")
		return
	}
	h.notifier.Broadcast(notify.EventProgress)
	response.OK(c, st)
}
