package stats

import (
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/models"
)

const venueOffset = -240 // UTC-4

func newTestAggregator() *Aggregator {
	a := NewAggregator(venueOffset, zap.NewNop())
	// pin "current year" so graduating-this-year is stable
	a.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, a.loc) }
	return a
}

func venueTime(a *Aggregator, hour int) time.Time {
	return time.Date(2026, 3, 14, hour, 0, 0, 0, a.loc)
}

func TestAggregator_DedupLiveByUser(t *testing.T) {
	a := newTestAggregator()
	day := venueTime(a, 0)

	live := []Record{
		{UserID: "u1", Role: models.RoleGeneral, Gender: models.GenderMale, JoinedAt: venueTime(a, 9)},
		{UserID: "u1", Role: models.RoleCompanyRep, Gender: models.GenderFemale, JoinedAt: venueTime(a, 14)},
	}
	snap := a.Aggregate(live, nil, day)

	if snap.MaxParticipants != 1 {
		t.Fatalf("expected 1 participant after dedup, got %d", snap.MaxParticipants)
	}
	// first record's attributes win
	if snap.GeneralParticipants != 1 || snap.TotalMen != 1 {
		t.Fatalf("expected earlier record to classify: general=%d men=%d", snap.GeneralParticipants, snap.TotalMen)
	}
	if snap.CompanyRepParticipants != 0 || snap.TotalWomen != 0 {
		t.Fatalf("later record leaked into counters: %+v", snap)
	}
}

func TestAggregator_InPersonNotDeduplicated(t *testing.T) {
	a := newTestAggregator()
	day := venueTime(a, 0)

	inPerson := []Record{
		{UserID: "u1", Role: models.RoleGeneral, Gender: models.GenderMale, JoinedAt: venueTime(a, 10), Count: 1},
		{UserID: "u1", Role: models.RoleGeneral, Gender: models.GenderMale, JoinedAt: venueTime(a, 15), Count: 1},
	}
	snap := a.Aggregate(nil, inPerson, day)
	if snap.MaxParticipants != 2 {
		t.Fatalf("each physical check-in must count: got %d", snap.MaxParticipants)
	}
}

func TestAggregator_CountWeighting(t *testing.T) {
	// live company rep (count 1) + batched in-person check-in (count 2)
	a := newTestAggregator()
	day := venueTime(a, 0)

	live := []Record{
		{UserID: "u1", Role: models.RoleCompanyRep, Gender: models.GenderFemale, JoinedAt: venueTime(a, 9), Count: 1},
	}
	inPerson := []Record{
		{Role: models.RoleCompanyRep, Gender: models.GenderFemale, JoinedAt: venueTime(a, 11), Count: 2},
	}
	snap := a.Aggregate(live, inPerson, day)

	if snap.CompanyRepParticipants != 3 {
		t.Fatalf("companyRepParticipants = %d, want 3", snap.CompanyRepParticipants)
	}
	if snap.TotalWomen != 3 {
		t.Fatalf("totalWomen = %d, want 3", snap.TotalWomen)
	}
	if snap.MaxParticipants != 3 {
		t.Fatalf("maxParticipants = %d, want 3", snap.MaxParticipants)
	}
}

func TestAggregator_RoleClassification(t *testing.T) {
	a := newTestAggregator()
	day := venueTime(a, 0)
	grad2026 := time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)
	grad2027 := time.Date(2027, 5, 30, 0, 0, 0, 0, time.UTC)

	live := []Record{
		{UserID: "s1", Role: models.RoleStudentResearcher, Department: "ICOM", Gender: models.GenderFemale, GradDate: &grad2026, JoinedAt: venueTime(a, 9)},
		{UserID: "s2", Role: models.RoleStudentResearcher, Major: "INEL", Gender: models.GenderMale, GradDate: &grad2027, JoinedAt: venueTime(a, 9)},
		{UserID: "p1", Role: models.RoleAdvisor, Gender: models.GenderMale, JoinedAt: venueTime(a, 10)},
		{UserID: "c1", Role: models.RoleCompanyRep, Gender: models.GenderNotDisclosed, JoinedAt: venueTime(a, 10)},
		{UserID: "g1", Role: models.RoleGeneral, Gender: models.GenderFemale, JoinedAt: venueTime(a, 11)},
	}
	snap := a.Aggregate(live, nil, day)

	if snap.ResearchStudParticipants != 2 {
		t.Fatalf("researchStudParticipants = %d, want 2", snap.ResearchStudParticipants)
	}
	// department and major are aliases for the same field
	want := map[string]int{"ICOM": 1, "INEL": 1}
	if !reflect.DeepEqual(snap.ResearchStudByDepartment, want) {
		t.Fatalf("department counters = %v, want %v", snap.ResearchStudByDepartment, want)
	}
	if snap.ResearchStudWomen != 1 || snap.ResearchStudMen != 1 {
		t.Fatalf("research gender split wrong: men=%d women=%d", snap.ResearchStudMen, snap.ResearchStudWomen)
	}
	if snap.GraduatingThisYear != 1 {
		t.Fatalf("graduatingThisYear = %d, want 1 (only s1 graduates in 2026)", snap.GraduatingThisYear)
	}
	if snap.ProfessorParticipants != 1 || snap.CompanyRepParticipants != 1 || snap.GeneralParticipants != 1 {
		t.Fatalf("role counters wrong: %+v", snap)
	}
	if snap.MaxParticipants != 5 {
		t.Fatalf("maxParticipants = %d, want 5", snap.MaxParticipants)
	}
	if snap.TotalMen != 2 || snap.TotalWomen != 2 || snap.TotalNotDisclosed != 1 {
		t.Fatalf("gender totals wrong: %+v", snap)
	}
	// category counts never exceed the total
	roleSum := snap.ResearchStudParticipants + snap.ProfessorParticipants + snap.CompanyRepParticipants + snap.GeneralParticipants
	if roleSum > snap.MaxParticipants {
		t.Fatalf("role counters (%d) exceed total (%d)", roleSum, snap.MaxParticipants)
	}
}

func TestAggregator_TargetDateFiltering(t *testing.T) {
	a := newTestAggregator()
	day := venueTime(a, 0)

	t.Run("other days excluded", func(t *testing.T) {
		live := []Record{
			{UserID: "u1", Role: models.RoleGeneral, JoinedAt: venueTime(a, 9).AddDate(0, 0, -1)},
			{UserID: "u2", Role: models.RoleGeneral, JoinedAt: venueTime(a, 9).AddDate(0, 0, 1)},
		}
		snap := a.Aggregate(live, nil, day)
		if snap.MaxParticipants != 0 {
			t.Fatalf("expected 0 on-day participants, got %d", snap.MaxParticipants)
		}
	})

	t.Run("timezone offset decides the day", func(t *testing.T) {
		// 02:00 UTC on the 15th is 22:00 on the 14th at UTC-4
		utcJoin := time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
		live := []Record{{UserID: "u1", Role: models.RoleGeneral, JoinedAt: utcJoin}}
		snap := a.Aggregate(live, nil, day)
		if snap.MaxParticipants != 1 {
			t.Fatalf("expected join at 02:00 UTC to land on the venue's 14th, got %d", snap.MaxParticipants)
		}
	})

	t.Run("off-day duplicate does not block on-day record", func(t *testing.T) {
		live := []Record{
			{UserID: "u1", Role: models.RoleGeneral, JoinedAt: venueTime(a, 9).AddDate(0, 0, -1)},
			{UserID: "u1", Role: models.RoleCompanyRep, JoinedAt: venueTime(a, 9)},
		}
		snap := a.Aggregate(live, nil, day)
		if snap.CompanyRepParticipants != 1 {
			t.Fatalf("on-day record must count even after an off-day one: %+v", snap)
		}
	})
}

func TestAggregator_MalformedRecordsSkippedButObservable(t *testing.T) {
	a := newTestAggregator()
	day := venueTime(a, 0)

	live := []Record{
		{UserID: "", Role: models.RoleGeneral, JoinedAt: venueTime(a, 9)}, // no user id, cannot dedup
		{UserID: "u1", Role: models.RoleGeneral},                         // zero timestamp
		{UserID: "u2", Role: models.RoleGeneral, Gender: models.GenderMale, JoinedAt: venueTime(a, 10)},
	}
	inPerson := []Record{
		{Role: models.RoleGeneral, Count: 2}, // zero timestamp
	}
	snap := a.Aggregate(live, inPerson, day)

	if snap.SkippedRecords != 3 {
		t.Fatalf("skippedRecords = %d, want 3", snap.SkippedRecords)
	}
	if snap.MaxParticipants != 1 {
		t.Fatalf("only the well-formed record may count, got %d", snap.MaxParticipants)
	}
}

func TestAggregator_Idempotent(t *testing.T) {
	a := newTestAggregator()
	day := venueTime(a, 0)
	grad := time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)

	live := []Record{
		{UserID: "s1", Role: models.RoleStudentResearcher, Department: "CIIC", Gender: models.GenderFemale, GradDate: &grad, JoinedAt: venueTime(a, 9)},
		{UserID: "g1", Role: models.RoleGeneral, Gender: models.GenderMale, JoinedAt: venueTime(a, 10)},
	}
	inPerson := []Record{
		{Role: models.RoleCompanyRep, Gender: models.GenderNotDisclosed, JoinedAt: venueTime(a, 11), Count: 3},
	}

	first := a.Aggregate(live, inPerson, day)
	second := a.Aggregate(live, inPerson, day)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
