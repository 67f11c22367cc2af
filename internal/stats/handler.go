package stats

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expo-venue/backend/pkg/response"
)

// Handler handles GET /stats.
type Handler struct {
	repo *Repository
	agg  *Aggregator
}

// NewHandler creates a stats handler.
func NewHandler(repo *Repository, agg *Aggregator) *Handler {
	return &Handler{repo: repo, agg: agg}
}

// Get handles GET /stats[?date=YYYY-MM-DD]. Live joins are loaded before
// check-ins because only the former are deduplicated by user.
func (h *Handler) Get(c *gin.Context) {
	loc := h.agg.Location()
	day := time.Now().In(loc)
	if s := c.Query("date"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			response.BadRequest(c, "invalid date, want YYYY-MM-DD")
			return
		}
		day = d
	}

	ctx := c.Request.Context()
	live, err := h.repo.ListLiveJoins(ctx, day, loc)
	if err != nil {
		response.Internal(c, "failed to load live joins")
		return
	}
	inPerson, err := h.repo.ListCheckIns(ctx, day, loc)
	if err != nil {
		response.Internal(c, "failed to load check-ins")
		return
	}
	response.OK(c, h.agg.Aggregate(live, inPerson, day))
}
