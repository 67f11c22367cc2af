package rooms

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/models"
	"github.com/expo-venue/backend/internal/presence"
)

type fakeRoster struct {
	entries map[uuid.UUID][]models.RosterEntry
	members map[uuid.UUID]int64 // userID -> project they belong to
}

func (f *fakeRoster) ListRosterByRoom(_ context.Context, roomID uuid.UUID) ([]models.RosterEntry, error) {
	return f.entries[roomID], nil
}

func (f *fakeRoster) IsProjectMember(_ context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	return f.members[userID] == projectID, nil
}

type fakePresence struct {
	mu      sync.Mutex
	calls   []string
	byRoom  map[string][]presence.Attendee
	running map[string]bool
	fail    map[string]error
}

func (f *fakePresence) GetLivePresence(_ context.Context, meetingID string) ([]presence.Attendee, bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, meetingID)
	f.mu.Unlock()
	if err := f.fail[meetingID]; err != nil {
		return nil, false, err
	}
	return f.byRoom[meetingID], f.running[meetingID], nil
}

func joined(userID uuid.UUID) presence.Attendee {
	return presence.Attendee{UserID: userID.String(), HasJoinedVoice: true}
}

func TestReconciler_ClassifiesRosterAgainstPresence(t *testing.T) {
	roomID := uuid.New()
	researcher := uuid.New()
	visitor := uuid.New()
	rep := uuid.New()
	general := uuid.New()
	absent := uuid.New()

	roster := &fakeRoster{
		entries: map[uuid.UUID][]models.RosterEntry{
			roomID: {
				{UserID: researcher, Role: models.RoleStudentResearcher},
				{UserID: visitor, Role: models.RoleStudentResearcher},
				{UserID: rep, Role: models.RoleCompanyRep},
				{UserID: general, Role: models.RoleGeneral},
				{UserID: absent, Role: models.RoleGeneral},
			},
		},
		members: map[uuid.UUID]int64{researcher: 7, visitor: 99},
	}
	src := &fakePresence{
		byRoom: map[string][]presence.Attendee{
			"m-1": {joined(researcher), joined(visitor), joined(rep), joined(general)},
		},
		running: map[string]bool{"m-1": true},
	}

	r := NewReconciler(roster, src, 1, zap.NewNop())
	got := r.Reconcile(context.Background(), []models.Room{
		{ID: roomID, ProjectID: 7, Title: "Booth 7", MeetingID: "m-1"},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	res := got[0]
	if !res.HasActiveStudentResearcher {
		t.Fatal("researcher on their own project must raise the active flag")
	}
	if res.CompanyRepCount != 1 {
		t.Fatalf("companyRepCount = %d, want 1", res.CompanyRepCount)
	}
	// the visiting researcher counts as a plain attendee here
	if res.GeneralUserCount != 2 {
		t.Fatalf("generalUserCount = %d, want 2 (general + visiting researcher)", res.GeneralUserCount)
	}
	if res.Error != "" {
		t.Fatalf("unexpected error: %q", res.Error)
	}
}

func TestReconciler_RosterOnlyNeverCounts(t *testing.T) {
	roomID := uuid.New()
	u := uuid.New()
	roster := &fakeRoster{
		entries: map[uuid.UUID][]models.RosterEntry{
			roomID: {{UserID: u, Role: models.RoleCompanyRep}},
		},
	}
	src := &fakePresence{running: map[string]bool{"m-1": true}}

	r := NewReconciler(roster, src, 1, zap.NewNop())
	got := r.Reconcile(context.Background(), []models.Room{{ID: roomID, MeetingID: "m-1"}})
	if got[0].CompanyRepCount != 0 || got[0].GeneralUserCount != 0 {
		t.Fatalf("roster entry without live presence counted: %+v", got[0])
	}
}

func TestReconciler_NonParticipatingAttendeeIgnored(t *testing.T) {
	roomID := uuid.New()
	u := uuid.New()
	roster := &fakeRoster{
		entries: map[uuid.UUID][]models.RosterEntry{
			roomID: {{UserID: u, Role: models.RoleGeneral}},
		},
	}
	src := &fakePresence{
		byRoom:  map[string][]presence.Attendee{"m-1": {{UserID: u.String()}}}, // connected, no media
		running: map[string]bool{"m-1": true},
	}

	r := NewReconciler(roster, src, 1, zap.NewNop())
	got := r.Reconcile(context.Background(), []models.Room{{ID: roomID, MeetingID: "m-1"}})
	if got[0].GeneralUserCount != 0 {
		t.Fatalf("silent attendee counted: %+v", got[0])
	}
}

func TestReconciler_EmptyRosterSkipsPresenceCall(t *testing.T) {
	roomID := uuid.New()
	roster := &fakeRoster{entries: map[uuid.UUID][]models.RosterEntry{}}
	src := &fakePresence{}

	r := NewReconciler(roster, src, 1, zap.NewNop())
	got := r.Reconcile(context.Background(), []models.Room{{ID: roomID, MeetingID: "m-1"}})

	if got[0].Error != "" || got[0].CompanyRepCount != 0 {
		t.Fatalf("empty roster must yield clean zero result: %+v", got[0])
	}
	if len(src.calls) != 0 {
		t.Fatalf("presence service queried for an empty room: %v", src.calls)
	}
}

func TestReconciler_NotRunningYieldsZero(t *testing.T) {
	roomID := uuid.New()
	u := uuid.New()
	roster := &fakeRoster{
		entries: map[uuid.UUID][]models.RosterEntry{
			roomID: {{UserID: u, Role: models.RoleCompanyRep}},
		},
	}
	src := &fakePresence{running: map[string]bool{"m-1": false}}

	r := NewReconciler(roster, src, 1, zap.NewNop())
	got := r.Reconcile(context.Background(), []models.Room{{ID: roomID, MeetingID: "m-1"}})
	if got[0].CompanyRepCount != 0 || got[0].Error != "" {
		t.Fatalf("expected clean zero for idle meeting: %+v", got[0])
	}
}

func TestReconciler_FailureIsolatedPerRoom(t *testing.T) {
	goodID, badID := uuid.New(), uuid.New()
	u := uuid.New()
	roster := &fakeRoster{
		entries: map[uuid.UUID][]models.RosterEntry{
			goodID: {{UserID: u, Role: models.RoleGeneral}},
			badID:  {{UserID: u, Role: models.RoleGeneral}},
		},
	}
	src := &fakePresence{
		byRoom:  map[string][]presence.Attendee{"m-good": {joined(u)}},
		running: map[string]bool{"m-good": true},
		fail:    map[string]error{"m-bad": &presence.UpstreamError{Action: "getMeetingInfo", Message: "notFound"}},
	}

	r := NewReconciler(roster, src, 2, zap.NewNop())
	got := r.Reconcile(context.Background(), []models.Room{
		{ID: badID, Title: "Broken", MeetingID: "m-bad"},
		{ID: goodID, Title: "Healthy", MeetingID: "m-good"},
	})

	if got[0].RoomID != badID || got[1].RoomID != goodID {
		t.Fatalf("results out of input order: %+v", got)
	}
	if got[0].Error == "" || !strings.Contains(got[0].Error, "notFound") {
		t.Fatalf("broken room must carry its error: %+v", got[0])
	}
	if got[0].CompanyRepCount != 0 || got[0].GeneralUserCount != 0 {
		t.Fatalf("broken room must report zero counts: %+v", got[0])
	}
	if got[1].GeneralUserCount != 1 || got[1].Error != "" {
		t.Fatalf("healthy room affected by neighbor's failure: %+v", got[1])
	}
}

func TestReconciler_PreservesInputOrderUnderConcurrency(t *testing.T) {
	const n = 12
	roster := &fakeRoster{entries: map[uuid.UUID][]models.RosterEntry{}}
	src := &fakePresence{running: map[string]bool{}}

	u := uuid.New()
	roomList := make([]models.Room, n)
	for i := range roomList {
		id := uuid.New()
		roomList[i] = models.Room{ID: id, MeetingID: id.String()}
		roster.entries[id] = []models.RosterEntry{{UserID: u, Role: models.RoleGeneral}}
		src.running[id.String()] = false
	}

	r := NewReconciler(roster, src, 4, zap.NewNop())
	got := r.Reconcile(context.Background(), roomList)
	if len(got) != n {
		t.Fatalf("expected %d results, got %d", n, len(got))
	}
	for i := range roomList {
		if got[i].RoomID != roomList[i].ID {
			t.Fatalf("result %d is for room %s, want %s", i, got[i].RoomID, roomList[i].ID)
		}
	}
}
