package stats

import (
	"time"

	"go.uber.org/zap"

	"github.com/expo-venue/backend/internal/models"
)

// Record is one participation event: a live-session join or an in-person
// check-in. Department and Major are aliases for the same semantic field;
// live records carry Department, desk check-ins may only carry Major.
type Record struct {
	UserID     string
	Role       models.Role
	Department string
	Major      string
	Gender     models.Gender
	GradDate   *time.Time
	JoinedAt   time.Time
	Count      int
}

// Snapshot is the daily participation counter set. Rebuilt from scratch for a
// target date on every request, never partially updated.
type Snapshot struct {
	MaxParticipants          int            `json:"maxParticipants"`
	GeneralParticipants      int            `json:"generalParticipants"`
	CompanyRepParticipants   int            `json:"companyRepParticipants"`
	ProfessorParticipants    int            `json:"professorParticipants"`
	ResearchStudParticipants int            `json:"researchStudParticipants"`
	ResearchStudMen          int            `json:"researchStudMen"`
	ResearchStudWomen        int            `json:"researchStudWomen"`
	GraduatingThisYear       int            `json:"graduatingThisYear"`
	TotalMen                 int            `json:"totalMen"`
	TotalWomen               int            `json:"totalWomen"`
	TotalNotDisclosed        int            `json:"totalNotDisclosed"`
	ResearchStudByDepartment map[string]int `json:"researchStudByDepartment"`
	SkippedRecords           int            `json:"skippedRecords"`
}

// departmentUnknown buckets research students whose record carries neither
// department nor major.
const departmentUnknown = "unknown"

// Aggregator folds participation records into daily snapshots. The venue
// timezone decides which calendar day a timestamp belongs to.
type Aggregator struct {
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewAggregator creates an aggregator for a venue at the given UTC offset.
func NewAggregator(utcOffsetMinutes int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		loc:    time.FixedZone("venue", utcOffsetMinutes*60),
		now:    time.Now,
		logger: logger,
	}
}

// Location returns the venue timezone.
func (a *Aggregator) Location() *time.Location { return a.loc }

func (a *Aggregator) sameDay(t, day time.Time) bool {
	ty, tm, td := t.In(a.loc).Date()
	dy, dm, dd := day.In(a.loc).Date()
	return ty == dy && tm == dm && td == dd
}

// Aggregate builds the snapshot for a target date. Live records are processed
// first and deduplicated by user: the first record on the day wins, later
// joins by the same user do not double count. In-person records each represent
// a distinct physical check-in and all count, weighted by Count. Malformed
// records are skipped, logged and surfaced via SkippedRecords.
func (a *Aggregator) Aggregate(live, inPerson []Record, day time.Time) Snapshot {
	snap := Snapshot{ResearchStudByDepartment: make(map[string]int)}

	seen := make(map[string]struct{}, len(live))
	for _, rec := range live {
		if rec.JoinedAt.IsZero() || rec.UserID == "" {
			a.logger.Warn("skipping malformed live record", zap.String("user_id", rec.UserID))
			snap.SkippedRecords++
			continue
		}
		if !a.sameDay(rec.JoinedAt, day) {
			continue
		}
		if _, dup := seen[rec.UserID]; dup {
			continue
		}
		seen[rec.UserID] = struct{}{}
		a.apply(&snap, rec)
	}

	for _, rec := range inPerson {
		if rec.JoinedAt.IsZero() {
			a.logger.Warn("skipping malformed check-in record")
			snap.SkippedRecords++
			continue
		}
		if !a.sameDay(rec.JoinedAt, day) {
			continue
		}
		a.apply(&snap, rec)
	}
	return snap
}

func (a *Aggregator) apply(snap *Snapshot, rec Record) {
	n := rec.Count
	if n <= 0 {
		n = 1
	}

	switch rec.Role {
	case models.RoleStudentResearcher:
		snap.ResearchStudParticipants += n
		dept := rec.Department
		if dept == "" {
			dept = rec.Major
		}
		if dept == "" {
			dept = departmentUnknown
		}
		snap.ResearchStudByDepartment[dept] += n
		switch rec.Gender {
		case models.GenderMale:
			snap.ResearchStudMen += n
		case models.GenderFemale:
			snap.ResearchStudWomen += n
		}
		if rec.GradDate != nil && rec.GradDate.Year() == a.now().In(a.loc).Year() {
			snap.GraduatingThisYear += n
		}
	case models.RoleAdvisor:
		snap.ProfessorParticipants += n
	case models.RoleCompanyRep:
		snap.CompanyRepParticipants += n
	default:
		snap.GeneralParticipants += n
	}

	snap.MaxParticipants += n
	switch rec.Gender {
	case models.GenderMale:
		snap.TotalMen += n
	case models.GenderFemale:
		snap.TotalWomen += n
	default:
		snap.TotalNotDisclosed += n
	}
}
