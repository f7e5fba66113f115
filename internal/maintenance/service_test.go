package maintenance

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	machines   map[string]*Machine
	plans      map[int64]*PMPlan
	schedules  map[int64]*PMScheduleEntry
	history    []PMHistoryEntry
	breakdowns map[int64]*Breakdown
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		machines:   map[string]*Machine{},
		plans:      map[int64]*PMPlan{},
		schedules:  map[int64]*PMScheduleEntry{},
		breakdowns: map[int64]*Breakdown{},
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) InsertMachine(_ context.Context, mc Machine) (int64, error) {
	if _, exists := m.machines[mc.MachineCode]; exists {
		return 0, ErrDuplicateMachine
	}
	mc.ID = m.id()
	m.machines[mc.MachineCode] = &mc
	return mc.ID, nil
}

func (m *memoryRepo) UpdateMachine(_ context.Context, mc Machine) error {
	existing, ok := m.machines[mc.MachineCode]
	if !ok {
		return ErrMachineNotFound
	}
	mc.ID = existing.ID
	*existing = mc
	return nil
}

func (m *memoryRepo) ListMachines(context.Context) ([]Machine, error) {
	var out []Machine
	for _, mc := range m.machines {
		out = append(out, *mc)
	}
	return out, nil
}

func (m *memoryRepo) GetMachine(_ context.Context, code string) (Machine, error) {
	mc, ok := m.machines[code]
	if !ok {
		return Machine{}, ErrMachineNotFound
	}
	return *mc, nil
}

func (m *memoryRepo) InsertPlan(_ context.Context, plan PMPlan, nextDue string) (int64, error) {
	plan.ID = m.id()
	m.plans[plan.ID] = &plan
	due, _ := time.Parse("2006-01-02", nextDue)
	m.schedules[plan.ID] = &PMScheduleEntry{
		PMPlan: plan, ScheduleID: plan.ID, NextDueDate: due, Status: PMStatusOK,
	}
	return plan.ID, nil
}

func (m *memoryRepo) GetPlan(_ context.Context, id int64) (PMPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return PMPlan{}, ErrPlanNotFound
	}
	return *p, nil
}

func (m *memoryRepo) ListSchedule(context.Context) ([]PMScheduleEntry, error) {
	var out []PMScheduleEntry
	for _, e := range m.schedules {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryRepo) ScheduleForMachine(_ context.Context, code string) ([]PMScheduleEntry, error) {
	var out []PMScheduleEntry
	for _, e := range m.schedules {
		if e.Active && e.MachineCode == code {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memoryRepo) RecentPMRuns(_ context.Context, code string, limit int) ([]PMRun, error) {
	var runs []PMRun
	for _, e := range m.history {
		plan, ok := m.plans[e.PMID]
		if !ok || plan.MachineCode != code {
			continue
		}
		runs = append(runs, PMRun{PMHistoryEntry: e, PMName: plan.PMName})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].DoneDate.After(runs[j].DoneDate) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *memoryRepo) UpdateScheduleStatuses(_ context.Context, updates map[int64]string) error {
	for scheduleID, status := range updates {
		m.schedules[scheduleID].Status = status
	}
	return nil
}

func (m *memoryRepo) MarkPlanDone(_ context.Context, planID int64, entry PMHistoryEntry, nextDue string) error {
	sched, ok := m.schedules[planID]
	if !ok {
		return ErrPlanNotFound
	}
	due, _ := time.Parse("2006-01-02", nextDue)
	sched.LastDoneDate = entry.DoneDate
	sched.NextDueDate = due
	sched.Status = PMStatusOK
	m.history = append(m.history, entry)
	return nil
}

func (m *memoryRepo) PlanHistory(_ context.Context, planID int64) ([]PMHistoryEntry, error) {
	var out []PMHistoryEntry
	for _, e := range m.history {
		if e.PMID == planID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertBreakdown(_ context.Context, b Breakdown) (int64, error) {
	b.ID = m.id()
	b.Status = BreakdownOpen
	m.breakdowns[b.ID] = &b
	return b.ID, nil
}

func (m *memoryRepo) GetBreakdown(_ context.Context, id int64) (Breakdown, error) {
	b, ok := m.breakdowns[id]
	if !ok {
		return Breakdown{}, ErrBreakdownNotFound
	}
	return *b, nil
}

func (m *memoryRepo) CloseBreakdown(_ context.Context, b Breakdown) error {
	stored := m.breakdowns[b.ID]
	stored.EndTime = b.EndTime
	stored.DowntimeMin = b.DowntimeMin
	stored.RootCause = b.RootCause
	stored.ActionTaken = b.ActionTaken
	stored.Status = BreakdownClosed
	return nil
}

func (m *memoryRepo) ListBreakdowns(_ context.Context, filter BreakdownFilter) ([]Breakdown, BreakdownCounts, error) {
	var out []Breakdown
	var counts BreakdownCounts
	for _, b := range m.breakdowns {
		if filter.MachineCode != "" && b.MachineCode != filter.MachineCode {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && b.BreakdownDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && b.BreakdownDate.After(filter.To) {
			continue
		}
		out = append(out, *b)
		counts.Total++
		if b.Status == BreakdownOpen {
			counts.Open++
		} else {
			counts.Closed++
		}
	}
	return out, counts, nil
}

func (m *memoryRepo) RecentBreakdowns(_ context.Context, code string, limit int) ([]Breakdown, error) {
	var out []Breakdown
	for _, b := range m.breakdowns {
		if b.MachineCode == code {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Status == BreakdownOpen) != (out[j].Status == BreakdownOpen) {
			return out[i].Status == BreakdownOpen
		}
		return out[i].BreakdownDate.After(out[j].BreakdownDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func newTestService(now time.Time) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func addMachine(t *testing.T, svc *Service, code string) {
	t.Helper()
	_, err := svc.AddMachine(context.Background(), Machine{MachineCode: code, MachineName: code, MachineType: "CNC"})
	require.NoError(t, err)
}

func TestAddMachineRejectsDuplicateCode(t *testing.T) {
	svc, _ := newTestService(day("2026-08-01"))
	ctx := context.Background()

	m, err := svc.AddMachine(ctx, Machine{MachineCode: "vmc-1", MachineName: "Haas VF2", MachineType: "VMC"})
	require.NoError(t, err)
	assert.Equal(t, "VMC-1", m.MachineCode)
	assert.Equal(t, "ACTIVE", m.Status)

	_, err = svc.AddMachine(ctx, Machine{MachineCode: "VMC-1", MachineName: "other", MachineType: "VMC"})
	require.ErrorIs(t, err, ErrDuplicateMachine)
}

func TestPMStatusWindows(t *testing.T) {
	e := PMScheduleEntry{NextDueDate: day("2026-09-10")}

	assert.Equal(t, PMStatusOK, e.DeriveStatus(day("2026-09-01")))
	// exactly seven days out is DUE
	assert.Equal(t, PMStatusDue, e.DeriveStatus(day("2026-09-03")))
	assert.Equal(t, PMStatusDue, e.DeriveStatus(day("2026-09-10")))
	assert.Equal(t, PMStatusOverdue, e.DeriveStatus(day("2026-09-11")))
}

func TestAddPlanSeedsSchedule(t *testing.T) {
	svc, repo := newTestService(day("2026-08-01"))
	ctx := context.Background()
	addMachine(t, svc, "VMC-1")

	id, err := svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-1", PMName: "Spindle lube", FrequencyDays: 30})
	require.NoError(t, err)

	sched := repo.schedules[id]
	assert.Equal(t, day("2026-08-31"), sched.NextDueDate)

	// plans for unregistered machines are rejected
	_, err = svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-9", PMName: "x", FrequencyDays: 30})
	require.ErrorIs(t, err, ErrMachineNotFound)
}

func TestMarkDoneRollsScheduleForward(t *testing.T) {
	svc, repo := newTestService(day("2026-08-01"))
	ctx := context.Background()
	addMachine(t, svc, "VMC-1")

	id, err := svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-1", PMName: "Way oil", FrequencyDays: 30})
	require.NoError(t, err)

	require.NoError(t, svc.MarkDone(ctx, id, day("2026-09-05"), "fitter", "done late"))

	sched := repo.schedules[id]
	assert.Equal(t, day("2026-09-05"), sched.LastDoneDate)
	assert.Equal(t, day("2026-10-05"), sched.NextDueDate)
	assert.Equal(t, PMStatusOK, sched.Status)

	history, _ := svc.PlanHistory(ctx, id)
	require.Len(t, history, 1)
	assert.Equal(t, "fitter", history[0].DoneBy)
}

func TestScheduleRefreshPersistsStatuses(t *testing.T) {
	svc, repo := newTestService(day("2026-08-01"))
	ctx := context.Background()
	addMachine(t, svc, "VMC-1")

	id, err := svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-1", PMName: "Filter", FrequencyDays: 10})
	require.NoError(t, err)

	svc.now = func() time.Time { return day("2026-08-20") }
	changed, err := svc.RefreshStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, PMStatusOverdue, repo.schedules[id].Status)
}

func TestMachineHistoryAggregates(t *testing.T) {
	svc, repo := newTestService(day("2026-08-01"))
	ctx := context.Background()
	addMachine(t, svc, "VMC-1")
	addMachine(t, svc, "VMC-2")

	lube, err := svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-1", PMName: "Spindle lube", FrequencyDays: 10})
	require.NoError(t, err)
	_, err = svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-1", PMName: "Coolant check", FrequencyDays: 25})
	require.NoError(t, err)
	_, err = svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-1", PMName: "Geometry audit", FrequencyDays: 60})
	require.NoError(t, err)
	_, err = svc.AddPlan(ctx, PMPlan{MachineCode: "VMC-2", PMName: "Belt check", FrequencyDays: 10})
	require.NoError(t, err)

	for _, d := range []string{"2026-05-01", "2026-05-11", "2026-05-21", "2026-06-01", "2026-06-11", "2026-06-21"} {
		repo.history = append(repo.history, PMHistoryEntry{PMID: lube, DoneDate: day(d), DoneBy: "fitter"})
	}

	repo.breakdowns[91] = &Breakdown{ID: 91, MachineCode: "VMC-1", BreakdownDate: day("2026-08-18"), Status: BreakdownOpen, Problem: "spindle noise"}
	repo.breakdowns[92] = &Breakdown{ID: 92, MachineCode: "VMC-1", BreakdownDate: day("2026-08-05"), Status: BreakdownClosed, DowntimeMin: 120}
	repo.breakdowns[93] = &Breakdown{ID: 93, MachineCode: "VMC-1", BreakdownDate: day("2026-07-01"), Status: BreakdownClosed, DowntimeMin: 500}
	repo.breakdowns[94] = &Breakdown{ID: 94, MachineCode: "VMC-2", BreakdownDate: day("2026-08-10"), Status: BreakdownOpen}

	svc.now = func() time.Time { return day("2026-08-20") }
	hist, err := svc.MachineHistory(ctx, "vmc-1")
	require.NoError(t, err)

	assert.Equal(t, PMStatusCounts{Overdue: 1, Due: 1, OK: 1, Total: 3}, hist.PMCounts)
	require.NotNil(t, hist.NextPM)
	assert.Equal(t, "Spindle lube", hist.NextPM.PMName)
	assert.Equal(t, PMStatusOverdue, hist.NextPM.Status)

	require.Len(t, hist.RecentPMRuns, 5)
	assert.Equal(t, day("2026-06-21"), hist.RecentPMRuns[0].DoneDate)
	assert.Equal(t, "Spindle lube", hist.RecentPMRuns[0].PMName)

	assert.Equal(t, 1, hist.OpenBreakdowns)
	// only closures inside the thirty day window count
	assert.Equal(t, 120, hist.DowntimeMin)
	require.Len(t, hist.RecentBreakdowns, 3)
	assert.Equal(t, BreakdownOpen, hist.RecentBreakdowns[0].Status)

	_, err = svc.MachineHistory(ctx, "XX-9")
	require.ErrorIs(t, err, ErrMachineNotFound)
}

func TestDowntimeMinutes(t *testing.T) {
	min, err := DowntimeMinutes("09:15", "11:40")
	require.NoError(t, err)
	assert.Equal(t, 145, min)

	// end before start floors at zero
	min, err = DowntimeMinutes("14:00", "13:00")
	require.NoError(t, err)
	assert.Equal(t, 0, min)

	_, err = DowntimeMinutes("9am", "10:00")
	require.ErrorIs(t, err, ErrInvalidTime)
}

func TestBreakdownLifecycle(t *testing.T) {
	svc, repo := newTestService(day("2026-08-01"))
	ctx := context.Background()
	addMachine(t, svc, "VMC-1")

	id, err := svc.ReportBreakdown(ctx, Breakdown{
		MachineCode: "vmc-1", StartTime: "10:30", Problem: "spindle noise", HandledBy: "fitter",
	})
	require.NoError(t, err)

	_, counts, _ := svc.Breakdowns(ctx, BreakdownFilter{})
	assert.Equal(t, 1, counts.Open)

	require.NoError(t, svc.CloseBreakdown(ctx, id, "12:15", "bearing worn", "bearing replaced"))

	b, _ := repo.GetBreakdown(ctx, id)
	assert.Equal(t, BreakdownClosed, b.Status)
	assert.Equal(t, 105, b.DowntimeMin)

	err = svc.CloseBreakdown(ctx, id, "13:00", "", "")
	require.ErrorIs(t, err, ErrAlreadyClosed)

	// unknown machine rejected up front
	_, err = svc.ReportBreakdown(ctx, Breakdown{MachineCode: "XX-9", StartTime: "10:00", Problem: "x"})
	require.ErrorIs(t, err, ErrMachineNotFound)
}
