package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eltaworks/workshop-suite/internal/shared"
)

// AuditPort abstracts audit trail recording.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the machine register, the preventive maintenance schedule and
// the breakdown log.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) record(ctx context.Context, action, entity, entityID, actor string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "maintenance:" + action,
		Entity:   entity,
		EntityID: entityID,
	})
}

// ---------------- machines ----------------

// AddMachine registers a machine. Codes are uppercased and must be unique.
func (s *Service) AddMachine(ctx context.Context, m Machine) (Machine, error) {
	m.MachineCode = strings.ToUpper(strings.TrimSpace(m.MachineCode))
	if m.MachineCode == "" || strings.TrimSpace(m.MachineName) == "" {
		return Machine{}, fmt.Errorf("%w: machine code and name required", ErrInvalidInput)
	}
	if m.Status == "" {
		m.Status = "ACTIVE"
	}
	id, err := s.repo.InsertMachine(ctx, m)
	if err != nil {
		return Machine{}, err
	}
	m.ID = id
	s.record(ctx, "machine-add", "machine", m.MachineCode, "")
	return m, nil
}

// EditMachine updates a machine's descriptive fields.
func (s *Service) EditMachine(ctx context.Context, m Machine) error {
	m.MachineCode = strings.ToUpper(strings.TrimSpace(m.MachineCode))
	if err := s.repo.UpdateMachine(ctx, m); err != nil {
		return err
	}
	s.record(ctx, "machine-edit", "machine", m.MachineCode, "")
	return nil
}

func (s *Service) Machines(ctx context.Context) ([]Machine, error) {
	return s.repo.ListMachines(ctx)
}

const (
	recentPMRunLimit     = 5
	recentBreakdownLimit = 8
)

// MachineHistory assembles the single-machine view: PM counts by derived
// status, the most urgent upcoming task, recent completed runs, the open
// breakdown count and downtime over the last thirty days.
func (s *Service) MachineHistory(ctx context.Context, code string) (MachineHistory, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	machine, err := s.repo.GetMachine(ctx, code)
	if err != nil {
		return MachineHistory{}, err
	}
	hist := MachineHistory{Machine: machine}

	entries, err := s.repo.ScheduleForMachine(ctx, code)
	if err != nil {
		return MachineHistory{}, err
	}
	today := s.now()
	for i := range entries {
		entries[i].Status = entries[i].DeriveStatus(today)
		switch entries[i].Status {
		case PMStatusOverdue:
			hist.PMCounts.Overdue++
		case PMStatusDue:
			hist.PMCounts.Due++
		default:
			hist.PMCounts.OK++
		}
		hist.PMCounts.Total++
	}
	hist.NextPM = nextDuePM(entries)

	if hist.RecentPMRuns, err = s.repo.RecentPMRuns(ctx, code, recentPMRunLimit); err != nil {
		return MachineHistory{}, err
	}

	_, counts, err := s.repo.ListBreakdowns(ctx, BreakdownFilter{MachineCode: code})
	if err != nil {
		return MachineHistory{}, err
	}
	hist.OpenBreakdowns = counts.Open

	cutoff := today.AddDate(0, 0, -DowntimeWindowDays)
	closed, _, err := s.repo.ListBreakdowns(ctx, BreakdownFilter{MachineCode: code, Status: BreakdownClosed, From: cutoff})
	if err != nil {
		return MachineHistory{}, err
	}
	for _, b := range closed {
		hist.DowntimeMin += b.DowntimeMin
	}

	if hist.RecentBreakdowns, err = s.repo.RecentBreakdowns(ctx, code, recentBreakdownLimit); err != nil {
		return MachineHistory{}, err
	}
	return hist, nil
}

// nextDuePM picks the most pressing schedule entry: overdue before due
// before ok, earliest due date breaking ties.
func nextDuePM(entries []PMScheduleEntry) *PMScheduleEntry {
	rank := func(status string) int {
		switch status {
		case PMStatusOverdue:
			return 0
		case PMStatusDue:
			return 1
		default:
			return 2
		}
	}
	var best *PMScheduleEntry
	for i := range entries {
		e := &entries[i]
		if best == nil || rank(e.Status) < rank(best.Status) ||
			(rank(e.Status) == rank(best.Status) && e.NextDueDate.Before(best.NextDueDate)) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	picked := *best
	return &picked
}

// ---------------- preventive maintenance ----------------

// AddPlan creates a PM plan; its first due date is frequency days from
// today.
func (s *Service) AddPlan(ctx context.Context, plan PMPlan) (int64, error) {
	if strings.TrimSpace(plan.MachineCode) == "" || strings.TrimSpace(plan.PMName) == "" {
		return 0, fmt.Errorf("%w: machine and task name required", ErrInvalidInput)
	}
	if plan.FrequencyDays <= 0 {
		return 0, fmt.Errorf("%w: frequency must be positive", ErrInvalidInput)
	}
	plan.MachineCode = strings.ToUpper(strings.TrimSpace(plan.MachineCode))
	if _, err := s.repo.GetMachine(ctx, plan.MachineCode); err != nil {
		return 0, err
	}
	plan.Active = true
	nextDue := s.now().AddDate(0, 0, plan.FrequencyDays).Format("2006-01-02")
	id, err := s.repo.InsertPlan(ctx, plan, nextDue)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "pm-add", "pm_plan", fmt.Sprintf("%d", id), "")
	return id, nil
}

// Schedule lists the PM board with freshly derived statuses, persisting any
// changes so the register and the worker agree.
func (s *Service) Schedule(ctx context.Context) ([]PMScheduleEntry, error) {
	entries, err := s.repo.ListSchedule(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	updates := map[int64]string{}
	for i := range entries {
		derived := entries[i].DeriveStatus(today)
		if derived != entries[i].Status {
			entries[i].Status = derived
			updates[entries[i].ScheduleID] = derived
		}
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateScheduleStatuses(ctx, updates); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// RefreshStatuses recomputes every schedule status. Run by the worker.
func (s *Service) RefreshStatuses(ctx context.Context) (int, error) {
	entries, err := s.repo.ListSchedule(ctx)
	if err != nil {
		return 0, err
	}
	today := s.now()
	updates := map[int64]string{}
	for _, e := range entries {
		if derived := e.DeriveStatus(today); derived != e.Status {
			updates[e.ScheduleID] = derived
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}
	return len(updates), s.repo.UpdateScheduleStatuses(ctx, updates)
}

// MarkDone records a completed maintenance run and rolls the next due date
// forward from the completion date by the plan's own frequency.
func (s *Service) MarkDone(ctx context.Context, planID int64, doneDate time.Time, doneBy, remarks string) error {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if doneDate.IsZero() {
		doneDate = s.now()
	}
	nextDue := doneDate.AddDate(0, 0, plan.FrequencyDays).Format("2006-01-02")
	err = s.repo.MarkPlanDone(ctx, planID, PMHistoryEntry{
		PMID:     planID,
		DoneDate: doneDate,
		DoneBy:   doneBy,
		Remarks:  remarks,
	}, nextDue)
	if err != nil {
		return err
	}
	s.record(ctx, "pm-done", "pm_plan", fmt.Sprintf("%d", planID), doneBy)
	return nil
}

func (s *Service) PlanHistory(ctx context.Context, planID int64) ([]PMHistoryEntry, error) {
	return s.repo.PlanHistory(ctx, planID)
}

// ---------------- breakdowns ----------------

// ReportBreakdown opens a breakdown record.
func (s *Service) ReportBreakdown(ctx context.Context, b Breakdown) (int64, error) {
	b.MachineCode = strings.ToUpper(strings.TrimSpace(b.MachineCode))
	if b.MachineCode == "" || strings.TrimSpace(b.Problem) == "" {
		return 0, fmt.Errorf("%w: machine and problem required", ErrInvalidInput)
	}
	if _, err := time.Parse("15:04", b.StartTime); err != nil {
		return 0, fmt.Errorf("%w: start time %q", ErrInvalidTime, b.StartTime)
	}
	if _, err := s.repo.GetMachine(ctx, b.MachineCode); err != nil {
		return 0, err
	}
	if b.BreakdownDate.IsZero() {
		b.BreakdownDate = s.now()
	}
	id, err := s.repo.InsertBreakdown(ctx, b)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "breakdown-open", "breakdown", fmt.Sprintf("%d", id), b.HandledBy)
	return id, nil
}

// CloseBreakdown records the fix. Downtime is the span between the start and
// end clock times, floored at zero.
func (s *Service) CloseBreakdown(ctx context.Context, id int64, endTime, rootCause, actionTaken string) error {
	b, err := s.repo.GetBreakdown(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == BreakdownClosed {
		return ErrAlreadyClosed
	}
	minutes, err := DowntimeMinutes(b.StartTime, endTime)
	if err != nil {
		return err
	}
	b.EndTime = endTime
	b.DowntimeMin = minutes
	b.RootCause = rootCause
	b.ActionTaken = actionTaken
	if err := s.repo.CloseBreakdown(ctx, b); err != nil {
		return err
	}
	s.record(ctx, "breakdown-close", "breakdown", fmt.Sprintf("%d", id), "")
	return nil
}

func (s *Service) Breakdowns(ctx context.Context, filter BreakdownFilter) ([]Breakdown, BreakdownCounts, error) {
	return s.repo.ListBreakdowns(ctx, filter)
}
