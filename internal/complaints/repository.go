package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eltaworks/workshop-suite/internal/platform/db"
)

// RepositoryPort exposes the read side and the transactional entry point.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	List(ctx context.Context, f ListFilter) ([]Complaint, error)
	Get(ctx context.Context, id int64) (Complaint, error)
	Logs(ctx context.Context, complaintID int64) ([]ActionLog, error)
}

// TxRepository is the write side, scoped to one transaction.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Complaint, error)
	NextSequence(ctx context.Context, year int) (int, error)
	Insert(ctx context.Context, c Complaint) (Complaint, error)
	Update(ctx context.Context, id int64, u Update) error
	InsertLog(ctx context.Context, l ActionLog) (ActionLog, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const complaintColumns = `id, complaint_no, complaint_date, customer_id, customer_ref_no,
	item_code, batch_no, qty_affected, issue_category, issue_description,
	severity, status, machine_code, job_no, shift_date, shift, assigned_to,
	containment_action, root_cause_5why, corrective_action, preventive_action,
	closure_date, closure_remarks, created_at, COALESCE(updated_at, created_at)`

func scanComplaint(row pgx.Row) (Complaint, error) {
	var c Complaint
	err := row.Scan(&c.ID, &c.ComplaintNo, &c.ComplaintDate, &c.CustomerID, &c.CustomerRefNo,
		&c.ItemCode, &c.BatchNo, &c.QtyAffected, &c.IssueCategory, &c.IssueDescription,
		&c.Severity, &c.Status, &c.MachineCode, &c.JobNo, &c.ShiftDate, &c.Shift, &c.AssignedTo,
		&c.ContainmentAction, &c.RootCause5Why, &c.CorrectiveAction, &c.PreventiveAction,
		&c.ClosureDate, &c.ClosureRemarks, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Complaint, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		conds = append(conds, "c.status = "+arg(f.Status))
	}
	if f.Severity != "" {
		conds = append(conds, "c.severity = "+arg(f.Severity))
	}
	if f.CustomerID != 0 {
		conds = append(conds, "c.customer_id = "+arg(f.CustomerID))
	}
	if !f.From.IsZero() {
		conds = append(conds, "c.complaint_date >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "c.complaint_date <= "+arg(f.To))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	q := `SELECT c.id, c.complaint_no, c.complaint_date, c.customer_id, m.customer_name,
			c.customer_ref_no, c.item_code, c.batch_no, c.qty_affected, c.issue_category,
			c.issue_description, c.severity, c.status, c.machine_code, c.job_no,
			c.shift_date, c.shift, c.assigned_to, c.containment_action, c.root_cause_5why,
			c.corrective_action, c.preventive_action, c.closure_date, c.closure_remarks,
			c.created_at, COALESCE(c.updated_at, c.created_at)
		FROM customer_complaint c
		JOIN customer_master m ON m.id = c.customer_id` + where + `
		ORDER BY c.complaint_date DESC, c.id DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []Complaint
	for rows.Next() {
		var c Complaint
		if err := rows.Scan(&c.ID, &c.ComplaintNo, &c.ComplaintDate, &c.CustomerID, &c.CustomerName,
			&c.CustomerRefNo, &c.ItemCode, &c.BatchNo, &c.QtyAffected, &c.IssueCategory,
			&c.IssueDescription, &c.Severity, &c.Status, &c.MachineCode, &c.JobNo,
			&c.ShiftDate, &c.Shift, &c.AssignedTo, &c.ContainmentAction, &c.RootCause5Why,
			&c.CorrectiveAction, &c.PreventiveAction, &c.ClosureDate, &c.ClosureRemarks,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Complaint, error) {
	c, err := scanComplaint(r.pool.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM customer_complaint WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Complaint{}, ErrComplaintNotFound
	}
	if err != nil {
		return Complaint{}, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

func (r *Repository) Logs(ctx context.Context, complaintID int64) ([]ActionLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, complaint_id, action_date, action_type, notes, by_user, created_at
		 FROM complaint_action_log WHERE complaint_id = $1
		 ORDER BY action_date, id`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("list action logs: %w", err)
	}
	defer rows.Close()

	var out []ActionLog
	for rows.Next() {
		var l ActionLog
		if err := rows.Scan(&l.ID, &l.ComplaintID, &l.ActionDate, &l.ActionType,
			&l.Notes, &l.ByUser, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) Get(ctx context.Context, id int64) (Complaint, error) {
	c, err := scanComplaint(t.tx.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM customer_complaint WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Complaint{}, ErrComplaintNotFound
	}
	if err != nil {
		return Complaint{}, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

func (t *txRepo) NextSequence(ctx context.Context, year int) (int, error) {
	var max int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(CAST(SUBSTRING(complaint_no FROM $1) AS INT)), 0)
		 FROM customer_complaint WHERE complaint_no LIKE $2`,
		fmt.Sprintf(`^CC-%d-(\d+)$`, year), fmt.Sprintf("CC-%d-%%", year)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("next complaint sequence: %w", err)
	}
	return max + 1, nil
}

func (t *txRepo) Insert(ctx context.Context, c Complaint) (Complaint, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO customer_complaint (complaint_no, complaint_date, customer_id,
			customer_ref_no, item_code, batch_no, qty_affected, issue_category,
			issue_description, severity, status, machine_code, job_no, shift_date,
			shift, assigned_to)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 RETURNING id, created_at`,
		c.ComplaintNo, c.ComplaintDate, c.CustomerID, c.CustomerRefNo, c.ItemCode,
		c.BatchNo, c.QtyAffected, c.IssueCategory, c.IssueDescription, c.Severity,
		c.Status, c.MachineCode, c.JobNo, c.ShiftDate, c.Shift, c.AssignedTo).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Complaint{}, fmt.Errorf("insert complaint: %w", err)
	}
	c.UpdatedAt = c.CreatedAt
	return c, nil
}

func (t *txRepo) Update(ctx context.Context, id int64, u Update) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE customer_complaint SET
			status = $2, severity = $3, assigned_to = $4,
			containment_action = $5, root_cause_5why = $6,
			corrective_action = $7, preventive_action = $8,
			closure_date = $9, closure_remarks = $10, updated_at = NOW()
		 WHERE id = $1`,
		id, u.Status, u.Severity, u.AssignedTo, u.ContainmentAction,
		u.RootCause5Why, u.CorrectiveAction, u.PreventiveAction,
		u.ClosureDate, u.ClosureRemarks)
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

func (t *txRepo) InsertLog(ctx context.Context, l ActionLog) (ActionLog, error) {
	if l.ActionDate.IsZero() {
		l.ActionDate = time.Now().UTC()
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO complaint_action_log (complaint_id, action_date, action_type, notes, by_user)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		l.ComplaintID, l.ActionDate, l.ActionType, l.Notes, l.ByUser).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return ActionLog{}, fmt.Errorf("insert action log: %w", err)
	}
	return l, nil
}
