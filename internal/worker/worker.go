package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/presence"
	"github.com/expo-venue/backend/internal/rooms"
	"github.com/expo-venue/backend/pkg/queue"
)

// SweepInterval is how often the sweeper looks for rooms that ran past their
// scheduled end without being closed.
const SweepInterval = time.Minute

// MeetingSweeper processes end-meeting jobs and periodically closes overdue
// rooms on the conferencing service.
type MeetingSweeper struct {
	roomRepo *rooms.Repository
	client   *presence.Client
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewMeetingSweeper creates a meeting sweeper.
func NewMeetingSweeper(roomRepo *rooms.Repository, client *presence.Client, q *queue.Queue, logger *zap.Logger) *MeetingSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingSweeper{roomRepo: roomRepo, client: client, queue: q, logger: logger}
}

// Process executes one end-meeting job.
func (s *MeetingSweeper) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEndMeeting {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EndMeetingPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := s.client.EndMeeting(ctx, payload.MeetingID, payload.ModeratorPW); err != nil {
		// A meeting that was never started or already gone counts as ended.
		var upstream *presence.UpstreamError
		if !errors.As(err, &upstream) || upstream.Message != "notFound" {
			return fmt.Errorf("end meeting %s: %w", payload.MeetingID, err)
		}
		s.logger.Info("meeting already gone upstream", zap.String("meeting_id", payload.MeetingID))
	}
	if err := s.roomRepo.MarkEnded(ctx, payload.RoomID); err != nil {
		return fmt.Errorf("mark ended: %w", err)
	}

	s.logger.Info("meeting ended", zap.String("room_id", payload.RoomID.String()), zap.String("meeting_id", payload.MeetingID))
	return nil
}

// sweepOverdue enqueues end-meeting jobs for rooms whose scheduled slot has
// passed but which were never closed.
func (s *MeetingSweeper) sweepOverdue(ctx context.Context) {
	overdue, err := s.roomRepo.ListOverdue(ctx, time.Now())
	if err != nil {
		s.logger.Warn("overdue sweep query failed", zap.Error(err))
		return
	}
	for _, room := range overdue {
		err := s.queue.EnqueueEndMeeting(ctx, queue.EndMeetingPayload{
			RoomID:      room.ID,
			MeetingID:   room.MeetingID,
			ModeratorPW: room.ModeratorPW,
		})
		if err != nil {
			s.logger.Warn("overdue enqueue failed", zap.String("room_id", room.ID.String()), zap.Error(err))
		}
	}
	if len(overdue) > 0 {
		s.logger.Info("overdue rooms queued for closing", zap.Int("count", len(overdue)))
	}
}

// Run starts the worker loops: a blocking dequeue/process/retry loop and a
// periodic overdue sweep. Blocks until ctx is done.
func (s *MeetingSweeper) Run(ctx context.Context) {
	go s.runSweeper(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("meeting worker stopping")
			return
		default:
		}

		job, _, err := s.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		s.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := s.Process(ctx, job); err != nil {
			s.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := s.queue.Retry(ctx, job); reErr != nil {
				s.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}

func (s *MeetingSweeper) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOverdue(ctx)
		}
	}
}
