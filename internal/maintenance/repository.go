package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eltaworks/workshop-suite/internal/platform/db"
	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

// RepositoryPort abstracts maintenance persistence.
type RepositoryPort interface {
	InsertMachine(ctx context.Context, m Machine) (int64, error)
	UpdateMachine(ctx context.Context, m Machine) error
	ListMachines(ctx context.Context) ([]Machine, error)
	GetMachine(ctx context.Context, code string) (Machine, error)

	InsertPlan(ctx context.Context, plan PMPlan, nextDue string) (int64, error)
	GetPlan(ctx context.Context, id int64) (PMPlan, error)
	ListSchedule(ctx context.Context) ([]PMScheduleEntry, error)
	ScheduleForMachine(ctx context.Context, machineCode string) ([]PMScheduleEntry, error)
	RecentPMRuns(ctx context.Context, machineCode string, limit int) ([]PMRun, error)
	UpdateScheduleStatuses(ctx context.Context, updates map[int64]string) error
	MarkPlanDone(ctx context.Context, planID int64, entry PMHistoryEntry, nextDue string) error
	PlanHistory(ctx context.Context, planID int64) ([]PMHistoryEntry, error)

	InsertBreakdown(ctx context.Context, b Breakdown) (int64, error)
	GetBreakdown(ctx context.Context, id int64) (Breakdown, error)
	CloseBreakdown(ctx context.Context, b Breakdown) error
	ListBreakdowns(ctx context.Context, filter BreakdownFilter) ([]Breakdown, BreakdownCounts, error)
	RecentBreakdowns(ctx context.Context, machineCode string, limit int) ([]Breakdown, error)
}

// Repository persists maintenance data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ---------------- machines ----------------

func (r *Repository) InsertMachine(ctx context.Context, m Machine) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO machine_master (machine_code, machine_name, machine_type, controller, location, status, install_date, notes)
VALUES ($1,$2,$3,$4,$5,$6, NULLIF($7, '0001-01-01'::date), $8)
RETURNING id`,
		m.MachineCode, m.MachineName, m.MachineType, m.Controller, m.Location, m.Status, m.InstallDate, m.Notes).Scan(&id)
	if httpx.IsUniqueViolation(err) {
		return 0, ErrDuplicateMachine
	}
	return id, err
}

func (r *Repository) UpdateMachine(ctx context.Context, m Machine) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE machine_master SET machine_name = $2, machine_type = $3, controller = $4,
       location = $5, status = $6, notes = $7
WHERE machine_code = $1`,
		m.MachineCode, m.MachineName, m.MachineType, m.Controller, m.Location, m.Status, m.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMachineNotFound
	}
	return nil
}

const machineColumns = `id, machine_code, machine_name, machine_type, controller, location, status,
       COALESCE(install_date, '0001-01-01'), notes`

func (r *Repository) ListMachines(ctx context.Context) ([]Machine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+machineColumns+` FROM machine_master ORDER BY machine_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var machines []Machine
	for rows.Next() {
		var m Machine
		if err := rows.Scan(&m.ID, &m.MachineCode, &m.MachineName, &m.MachineType, &m.Controller,
			&m.Location, &m.Status, &m.InstallDate, &m.Notes); err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

func (r *Repository) GetMachine(ctx context.Context, code string) (Machine, error) {
	var m Machine
	err := r.pool.QueryRow(ctx, `SELECT `+machineColumns+` FROM machine_master WHERE machine_code = $1`, code).
		Scan(&m.ID, &m.MachineCode, &m.MachineName, &m.MachineType, &m.Controller,
			&m.Location, &m.Status, &m.InstallDate, &m.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Machine{}, ErrMachineNotFound
	}
	return m, err
}

// ---------------- preventive maintenance ----------------

// InsertPlan stores the plan and seeds its schedule row in one transaction.
func (r *Repository) InsertPlan(ctx context.Context, plan PMPlan, nextDue string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO pm_master (machine_code, pm_name, frequency_days, responsibility, checklist, active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			plan.MachineCode, plan.PMName, plan.FrequencyDays, plan.Responsibility, plan.Checklist, plan.Active).Scan(&id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
INSERT INTO pm_schedule (pm_id, next_due_date, status) VALUES ($1, $2::date, 'OK')`, id, nextDue)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) GetPlan(ctx context.Context, id int64) (PMPlan, error) {
	var p PMPlan
	err := r.pool.QueryRow(ctx, `
SELECT id, machine_code, pm_name, frequency_days, responsibility, checklist, active
FROM pm_master WHERE id = $1`, id).
		Scan(&p.ID, &p.MachineCode, &p.PMName, &p.FrequencyDays, &p.Responsibility, &p.Checklist, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return PMPlan{}, ErrPlanNotFound
	}
	return p, err
}

const scheduleColumns = `p.id, p.machine_code, p.pm_name, p.frequency_days, p.responsibility, p.checklist, p.active,
       s.id, COALESCE(s.last_done_date, '0001-01-01'), s.next_due_date, s.status`

func scanScheduleRows(rows pgx.Rows) ([]PMScheduleEntry, error) {
	defer rows.Close()

	var entries []PMScheduleEntry
	for rows.Next() {
		var e PMScheduleEntry
		if err := rows.Scan(&e.ID, &e.MachineCode, &e.PMName, &e.FrequencyDays, &e.Responsibility,
			&e.Checklist, &e.Active, &e.ScheduleID, &e.LastDoneDate, &e.NextDueDate, &e.Status); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) ListSchedule(ctx context.Context) ([]PMScheduleEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+scheduleColumns+`
FROM pm_master p
JOIN pm_schedule s ON s.pm_id = p.id
WHERE p.active
ORDER BY s.next_due_date, p.machine_code`)
	if err != nil {
		return nil, err
	}
	return scanScheduleRows(rows)
}

func (r *Repository) ScheduleForMachine(ctx context.Context, machineCode string) ([]PMScheduleEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+scheduleColumns+`
FROM pm_master p
JOIN pm_schedule s ON s.pm_id = p.id
WHERE p.active AND p.machine_code = $1
ORDER BY s.next_due_date`, machineCode)
	if err != nil {
		return nil, err
	}
	return scanScheduleRows(rows)
}

func (r *Repository) RecentPMRuns(ctx context.Context, machineCode string, limit int) ([]PMRun, error) {
	rows, err := r.pool.Query(ctx, `
SELECT h.id, h.pm_id, h.done_date, h.done_by, h.remarks, p.pm_name
FROM pm_history h
JOIN pm_master p ON p.id = h.pm_id
WHERE p.machine_code = $1
ORDER BY h.done_date DESC, h.id DESC
LIMIT $2`, machineCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PMRun
	for rows.Next() {
		var run PMRun
		if err := rows.Scan(&run.ID, &run.PMID, &run.DoneDate, &run.DoneBy, &run.Remarks, &run.PMName); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Repository) UpdateScheduleStatuses(ctx context.Context, updates map[int64]string) error {
	for scheduleID, status := range updates {
		if _, err := r.pool.Exec(ctx, `UPDATE pm_schedule SET status = $2 WHERE id = $1`, scheduleID, status); err != nil {
			return err
		}
	}
	return nil
}

// MarkPlanDone appends the history record and rolls the schedule forward in
// one transaction.
func (r *Repository) MarkPlanDone(ctx context.Context, planID int64, entry PMHistoryEntry, nextDue string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE pm_schedule SET last_done_date = $2, next_due_date = $3::date, status = 'OK' WHERE pm_id = $1`,
			planID, entry.DoneDate, nextDue)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrPlanNotFound
		}
		_, err = tx.Exec(ctx, `
INSERT INTO pm_history (pm_id, done_date, done_by, remarks) VALUES ($1,$2,$3,$4)`,
			planID, entry.DoneDate, entry.DoneBy, entry.Remarks)
		return err
	})
}

func (r *Repository) PlanHistory(ctx context.Context, planID int64) ([]PMHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, pm_id, done_date, done_by, remarks FROM pm_history
WHERE pm_id = $1 ORDER BY done_date DESC, id DESC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []PMHistoryEntry
	for rows.Next() {
		var e PMHistoryEntry
		if err := rows.Scan(&e.ID, &e.PMID, &e.DoneDate, &e.DoneBy, &e.Remarks); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ---------------- breakdowns ----------------

const breakdownColumns = `id, machine_code, breakdown_date, start_time, end_time, downtime_min,
       problem, root_cause, action_taken, handled_by, status, created_at`

func (r *Repository) InsertBreakdown(ctx context.Context, b Breakdown) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO breakdown_log (machine_code, breakdown_date, start_time, problem, handled_by, status)
VALUES ($1,$2,$3,$4,$5,'OPEN') RETURNING id`,
		b.MachineCode, b.BreakdownDate, b.StartTime, b.Problem, b.HandledBy).Scan(&id)
	return id, err
}

func (r *Repository) GetBreakdown(ctx context.Context, id int64) (Breakdown, error) {
	var b Breakdown
	err := r.pool.QueryRow(ctx, `SELECT `+breakdownColumns+` FROM breakdown_log WHERE id = $1`, id).
		Scan(&b.ID, &b.MachineCode, &b.BreakdownDate, &b.StartTime, &b.EndTime, &b.DowntimeMin,
			&b.Problem, &b.RootCause, &b.ActionTaken, &b.HandledBy, &b.Status, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Breakdown{}, ErrBreakdownNotFound
	}
	return b, err
}

func (r *Repository) CloseBreakdown(ctx context.Context, b Breakdown) error {
	_, err := r.pool.Exec(ctx, `
UPDATE breakdown_log SET end_time = $2, downtime_min = $3, root_cause = $4,
       action_taken = $5, status = 'CLOSED'
WHERE id = $1`,
		b.ID, b.EndTime, b.DowntimeMin, b.RootCause, b.ActionTaken)
	return err
}

func (r *Repository) ListBreakdowns(ctx context.Context, filter BreakdownFilter) ([]Breakdown, BreakdownCounts, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + breakdownColumns + ` FROM breakdown_log WHERE 1=1`)
	var args []any
	if filter.MachineCode != "" {
		args = append(args, filter.MachineCode)
		fmt.Fprintf(&sb, " AND machine_code = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND breakdown_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND breakdown_date <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY breakdown_date DESC, id DESC")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, BreakdownCounts{}, err
	}
	defer rows.Close()

	var out []Breakdown
	var counts BreakdownCounts
	for rows.Next() {
		var b Breakdown
		if err := rows.Scan(&b.ID, &b.MachineCode, &b.BreakdownDate, &b.StartTime, &b.EndTime,
			&b.DowntimeMin, &b.Problem, &b.RootCause, &b.ActionTaken, &b.HandledBy, &b.Status, &b.CreatedAt); err != nil {
			return nil, BreakdownCounts{}, err
		}
		out = append(out, b)
		counts.Total++
		if b.Status == BreakdownOpen {
			counts.Open++
		} else {
			counts.Closed++
		}
	}
	return out, counts, rows.Err()
}

// RecentBreakdowns lists the latest reports for one machine, open ones first.
func (r *Repository) RecentBreakdowns(ctx context.Context, machineCode string, limit int) ([]Breakdown, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+breakdownColumns+` FROM breakdown_log
WHERE machine_code = $1
ORDER BY (status = 'OPEN') DESC, breakdown_date DESC, start_time DESC
LIMIT $2`, machineCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Breakdown
	for rows.Next() {
		var b Breakdown
		if err := rows.Scan(&b.ID, &b.MachineCode, &b.BreakdownDate, &b.StartTime, &b.EndTime,
			&b.DowntimeMin, &b.Problem, &b.RootCause, &b.ActionTaken, &b.HandledBy, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
