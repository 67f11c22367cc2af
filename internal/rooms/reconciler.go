package rooms

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/expo-venue/backend/internal/models"
	"github.com/expo-venue/backend/internal/presence"
)

// RosterStore is the roster-side collaborator of the reconciler. Implemented
// by Repository; narrowed here so tests can fake it.
type RosterStore interface {
	ListRosterByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RosterEntry, error)
	IsProjectMember(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error)
}

// PresenceSource is the live-presence side of the reconciler.
type PresenceSource interface {
	GetLivePresence(ctx context.Context, meetingID string) ([]presence.Attendee, bool, error)
}

// Reconciler merges roster membership with live presence into per-room
// occupancy classifications. Room reconciliations run under a shared
// concurrency limit because the conferencing service is rate-sensitive; the
// default limit of 1 makes the pass effectively sequential.
type Reconciler struct {
	roster   RosterStore
	presence PresenceSource
	limit    int
	logger   *zap.Logger
}

// NewReconciler creates a reconciler with the given concurrency limit.
func NewReconciler(roster RosterStore, src PresenceSource, limit int, logger *zap.Logger) *Reconciler {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{roster: roster, presence: src, limit: limit, logger: logger}
}

// Reconcile returns one occupancy result per input room, in input order.
// A failed room yields zero counts with its error string set; the batch never
// aborts, so one broken meeting cannot blank the whole dashboard.
func (r *Reconciler) Reconcile(ctx context.Context, roomList []models.Room) []models.OccupancyResult {
	results := make([]models.OccupancyResult, len(roomList))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i := range roomList {
		i := i
		room := roomList[i]
		g.Go(func() error {
			res, err := r.reconcileRoom(gctx, &room)
			if err != nil {
				r.logger.Warn("room reconciliation failed",
					zap.String("room_id", room.ID.String()),
					zap.Error(err))
				res = models.OccupancyResult{RoomID: room.ID, Title: room.Title, Error: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Reconciler) reconcileRoom(ctx context.Context, room *models.Room) (models.OccupancyResult, error) {
	res := models.OccupancyResult{RoomID: room.ID, Title: room.Title}

	roster, err := r.roster.ListRosterByRoom(ctx, room.ID)
	if err != nil {
		return res, err
	}
	// Nobody assigned: zero occupancy without touching the external service.
	if len(roster) == 0 {
		return res, nil
	}

	attendees, running, err := r.presence.GetLivePresence(ctx, room.MeetingID)
	if err != nil {
		return res, err
	}
	if !running {
		return res, nil
	}

	live := make(map[string]struct{}, len(attendees))
	for _, a := range attendees {
		if a.Participating() {
			live[a.UserID] = struct{}{}
		}
	}

	for _, entry := range roster {
		if _, ok := live[entry.UserID.String()]; !ok {
			continue
		}
		switch entry.Role {
		case models.RoleCompanyRep:
			res.CompanyRepCount++
		case models.RoleStudentResearcher:
			own, err := r.roster.IsProjectMember(ctx, entry.UserID, room.ProjectID)
			if err != nil {
				return models.OccupancyResult{RoomID: room.ID, Title: room.Title}, err
			}
			if own {
				res.HasActiveStudentResearcher = true
			} else {
				// A researcher visiting someone else's room is just an
				// attendee there.
				res.GeneralUserCount++
			}
		default:
			res.GeneralUserCount++
		}
	}
	return res, nil
}
