package production

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

// RepositoryPort abstracts shift log persistence.
type RepositoryPort interface {
	CreateShift(ctx context.Context, log ShiftLog) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]ShiftSummary, error)
	Get(ctx context.Context, id int64) (ShiftLog, error)
}

// Repository persists shift logs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateShift writes the header and every child row in one transaction. A
// duplicate (date, shift) pair trips the unique constraint and surfaces as
// ErrDuplicate.
func (r *Repository) CreateShift(ctx context.Context, log ShiftLog) (int64, error) {
	var shiftID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return r.insertShift(ctx, tx, log, &shiftID)
	})
	if err != nil {
		return 0, err
	}
	return shiftID, nil
}

func (r *Repository) insertShift(ctx context.Context, tx pgx.Tx, log ShiftLog, shiftID *int64) error {
	err := tx.QueryRow(ctx, `
INSERT INTO shift_header (shift_date, shift, shift_incharge, remarks)
VALUES ($1, $2, $3, $4) RETURNING id`,
		log.Header.ShiftDate, log.Header.Shift, log.Header.ShiftIncharge, log.Header.Remarks).Scan(shiftID)
	if err != nil {
		if httpx.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	for _, p := range log.Production {
		if _, err := tx.Exec(ctx, `
INSERT INTO shift_production (shift_id, item_code, machine, operator, ok_qty, rej_qty, remarks)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			*shiftID, p.ItemCode, p.Machine, p.Operator, p.OkQty, p.RejQty, p.Remarks); err != nil {
			return err
		}
	}
	for _, s := range log.Setups {
		if _, err := tx.Exec(ctx, `
INSERT INTO shift_setup (shift_id, machine, job_name, change_time, start_time)
VALUES ($1,$2,$3,$4,$5)`,
			*shiftID, s.Machine, s.JobName, s.ChangeTime, s.StartTime); err != nil {
			return err
		}
	}
	for _, a := range log.Attendance {
		if _, err := tx.Exec(ctx, `
INSERT INTO shift_attendance (shift_id, operator, status) VALUES ($1,$2,$3)`,
			*shiftID, a.Operator, a.Status); err != nil {
			return err
		}
	}
	for _, d := range log.Downtime {
		if _, err := tx.Exec(ctx, `
INSERT INTO shift_downtime (shift_id, machine, reason, minutes) VALUES ($1,$2,$3,$4)`,
			*shiftID, d.Machine, d.Reason, d.Minutes); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]ShiftSummary, error) {
	var sb strings.Builder
	sb.WriteString(`
SELECT h.id, h.shift_date, h.shift, h.shift_incharge, h.remarks, h.created_at,
       COALESCE(SUM(p.ok_qty), 0), COALESCE(SUM(p.rej_qty), 0),
       COALESCE((SELECT SUM(d.minutes) FROM shift_downtime d WHERE d.shift_id = h.id), 0)
FROM shift_header h
LEFT JOIN shift_production p ON p.shift_id = h.id
WHERE 1=1`)
	var args []any
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND h.shift_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND h.shift_date <= $%d", len(args))
	}
	if filter.Shift != "" {
		args = append(args, filter.Shift)
		fmt.Fprintf(&sb, " AND h.shift = $%d", len(args))
	}
	sb.WriteString(`
GROUP BY h.id, h.shift_date, h.shift, h.shift_incharge, h.remarks, h.created_at
ORDER BY h.shift_date DESC, h.shift`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShiftSummary
	for rows.Next() {
		var s ShiftSummary
		if err := rows.Scan(&s.ID, &s.ShiftDate, &s.Shift, &s.ShiftIncharge, &s.Remarks, &s.CreatedAt,
			&s.TotalOk, &s.TotalRej, &s.DowntimeMinutes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (ShiftLog, error) {
	var log ShiftLog
	err := r.pool.QueryRow(ctx, `
SELECT id, shift_date, shift, shift_incharge, remarks, created_at
FROM shift_header WHERE id = $1`, id).
		Scan(&log.Header.ID, &log.Header.ShiftDate, &log.Header.Shift, &log.Header.ShiftIncharge,
			&log.Header.Remarks, &log.Header.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ShiftLog{}, ErrShiftNotFound
	}
	if err != nil {
		return ShiftLog{}, err
	}

	prodRows, err := r.pool.Query(ctx, `
SELECT id, shift_id, item_code, machine, operator, ok_qty, rej_qty, remarks
FROM shift_production WHERE shift_id = $1 ORDER BY id`, id)
	if err != nil {
		return ShiftLog{}, err
	}
	defer prodRows.Close()
	for prodRows.Next() {
		var p ProductionRow
		if err := prodRows.Scan(&p.ID, &p.ShiftID, &p.ItemCode, &p.Machine, &p.Operator, &p.OkQty, &p.RejQty, &p.Remarks); err != nil {
			return ShiftLog{}, err
		}
		log.Production = append(log.Production, p)
	}
	if err := prodRows.Err(); err != nil {
		return ShiftLog{}, err
	}

	setupRows, err := r.pool.Query(ctx, `
SELECT id, shift_id, machine, job_name, change_time, start_time
FROM shift_setup WHERE shift_id = $1 ORDER BY id`, id)
	if err != nil {
		return ShiftLog{}, err
	}
	defer setupRows.Close()
	for setupRows.Next() {
		var s SetupRow
		if err := setupRows.Scan(&s.ID, &s.ShiftID, &s.Machine, &s.JobName, &s.ChangeTime, &s.StartTime); err != nil {
			return ShiftLog{}, err
		}
		log.Setups = append(log.Setups, s)
	}
	if err := setupRows.Err(); err != nil {
		return ShiftLog{}, err
	}

	attRows, err := r.pool.Query(ctx, `
SELECT id, shift_id, operator, status FROM shift_attendance WHERE shift_id = $1 ORDER BY id`, id)
	if err != nil {
		return ShiftLog{}, err
	}
	defer attRows.Close()
	for attRows.Next() {
		var a AttendanceRow
		if err := attRows.Scan(&a.ID, &a.ShiftID, &a.Operator, &a.Status); err != nil {
			return ShiftLog{}, err
		}
		log.Attendance = append(log.Attendance, a)
	}
	if err := attRows.Err(); err != nil {
		return ShiftLog{}, err
	}

	dtRows, err := r.pool.Query(ctx, `
SELECT id, shift_id, machine, reason, minutes FROM shift_downtime WHERE shift_id = $1 ORDER BY id`, id)
	if err != nil {
		return ShiftLog{}, err
	}
	defer dtRows.Close()
	for dtRows.Next() {
		var d DowntimeRow
		if err := dtRows.Scan(&d.ID, &d.ShiftID, &d.Machine, &d.Reason, &d.Minutes); err != nil {
			return ShiftLog{}, err
		}
		log.Downtime = append(log.Downtime, d)
	}
	return log, dtRows.Err()
}
