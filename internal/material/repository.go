package material

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eltaworks/workshop-suite/internal/platform/db"
)

// RepositoryPort abstracts challan persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListChallans(ctx context.Context, filter ListFilter) ([]ChallanSummary, error)
	GetChallan(ctx context.Context, id int64) (Challan, error)
	LinesByChallan(ctx context.Context, challanID int64) ([]InwardLine, error)
	DispatchesByChallan(ctx context.Context, challanID int64) ([]Dispatch, error)
	DispatchesByChallanNo(ctx context.Context, dispatchChallanNo string) ([]Dispatch, error)
}

// TxRepository exposes the transactional challan operations. Guarded
// quantity moves return false when the availability check rejects them.
type TxRepository interface {
	GetOrCreateChallan(ctx context.Context, customerID int64, challanNo string, challanDate, remarks string) (Challan, error)
	UpsertInwardLine(ctx context.Context, line InwardLine) (InwardLine, error)
	GetLine(ctx context.Context, id int64) (InwardLine, error)
	ApplyDeplete(ctx context.Context, lineID int64, qty int) (bool, error)
	ApplyRestore(ctx context.Context, lineID int64, qty int) (bool, error)
	SetLineInward(ctx context.Context, lineID int64, inwardQty, availableQty int) error
	DeleteLine(ctx context.Context, lineID int64) error
	CountDispatchesForLine(ctx context.Context, lineID int64) (int, error)

	InsertDispatch(ctx context.Context, d Dispatch) (int64, error)
	GetDispatch(ctx context.Context, id int64) (Dispatch, error)
	UpdateDispatch(ctx context.Context, d Dispatch) error
	DeleteDispatch(ctx context.Context, id int64) error

	RecomputeChallanStatus(ctx context.Context, challanID int64) (string, error)
}

// Repository persists challans in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListChallans builds the challan register. The dispatch date range is an
// EXISTS clause so a challan shows up when any of its dispatches fall in the
// window.
func (r *Repository) ListChallans(ctx context.Context, filter ListFilter) ([]ChallanSummary, error) {
	var sb strings.Builder
	sb.WriteString(`
SELECT c.id, c.customer_id, m.customer_name, c.challan_no, c.challan_date, c.status, c.remarks,
       COALESCE(SUM(l.inward_qty), 0), COALESCE(SUM(l.available_qty), 0)
FROM customer_challan c
JOIN customer_master m ON m.id = c.customer_id
LEFT JOIN material_inward l ON l.challan_id = c.id
WHERE 1=1`)
	var args []any
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		fmt.Fprintf(&sb, " AND c.customer_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&sb, " AND c.status = $%d", len(args))
	}
	if filter.ItemCode != "" {
		args = append(args, filter.ItemCode)
		fmt.Fprintf(&sb, ` AND EXISTS (
			SELECT 1 FROM material_inward li WHERE li.challan_id = c.id AND li.item_code = $%d)`, len(args))
	}
	if !filter.DispatchFrom.IsZero() || !filter.DispatchTo.IsZero() {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM material_dispatch d WHERE d.challan_id = c.id`)
		if !filter.DispatchFrom.IsZero() {
			args = append(args, filter.DispatchFrom)
			fmt.Fprintf(&sb, " AND d.dispatch_date >= $%d", len(args))
		}
		if !filter.DispatchTo.IsZero() {
			args = append(args, filter.DispatchTo)
			fmt.Fprintf(&sb, " AND d.dispatch_date <= $%d", len(args))
		}
		sb.WriteString(")")
	}
	sb.WriteString(`
GROUP BY c.id, c.customer_id, m.customer_name, c.challan_no, c.challan_date, c.status, c.remarks
ORDER BY c.challan_date DESC, c.id DESC`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChallanSummary
	for rows.Next() {
		var s ChallanSummary
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.CustomerName, &s.ChallanNo, &s.ChallanDate,
			&s.Status, &s.Remarks, &s.TotalInward, &s.TotalAvailable); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) GetChallan(ctx context.Context, id int64) (Challan, error) {
	var c Challan
	err := r.pool.QueryRow(ctx, `
SELECT c.id, c.customer_id, m.customer_name, c.challan_no, c.challan_date, c.status, c.remarks
FROM customer_challan c JOIN customer_master m ON m.id = c.customer_id
WHERE c.id = $1`, id).Scan(&c.ID, &c.CustomerID, &c.CustomerName, &c.ChallanNo, &c.ChallanDate, &c.Status, &c.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return Challan{}, ErrChallanNotFound
	}
	return c, err
}

func (r *Repository) LinesByChallan(ctx context.Context, challanID int64) ([]InwardLine, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, challan_id, item_code, process, inward_qty, available_qty, box_tray, remarks
FROM material_inward WHERE challan_id = $1 ORDER BY item_code, process`, challanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []InwardLine
	for rows.Next() {
		var l InwardLine
		if err := rows.Scan(&l.ID, &l.ChallanID, &l.ItemCode, &l.Process, &l.InwardQty,
			&l.AvailableQty, &l.BoxTray, &l.Remarks); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const dispatchColumns = `id, challan_id, inward_id, dispatch_challan_no, dispatch_date,
       ok_qty, rej_qty, cd_qty, nd_qty, nd_pw_qty, total_qty, remarks`

func scanDispatches(rows pgx.Rows) ([]Dispatch, error) {
	defer rows.Close()
	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(&d.ID, &d.ChallanID, &d.InwardID, &d.DispatchChallanNo, &d.DispatchDate,
			&d.OkQty, &d.RejQty, &d.CdQty, &d.NdQty, &d.NdPwQty, &d.TotalQty, &d.Remarks); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) DispatchesByChallan(ctx context.Context, challanID int64) ([]Dispatch, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+dispatchColumns+` FROM material_dispatch
WHERE challan_id = $1 ORDER BY dispatch_date DESC, id DESC`, challanID)
	if err != nil {
		return nil, err
	}
	return scanDispatches(rows)
}

func (r *Repository) DispatchesByChallanNo(ctx context.Context, no string) ([]Dispatch, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+dispatchColumns+` FROM material_dispatch
WHERE dispatch_challan_no = $1 ORDER BY id`, no)
	if err != nil {
		return nil, err
	}
	return scanDispatches(rows)
}

// ---------------- transactional ----------------

func (r *txRepo) GetOrCreateChallan(ctx context.Context, customerID int64, challanNo string, challanDate, remarks string) (Challan, error) {
	var c Challan
	err := r.tx.QueryRow(ctx, `
INSERT INTO customer_challan (customer_id, challan_no, challan_date, status, remarks)
VALUES ($1, $2, $3::date, 'OPEN', $4)
ON CONFLICT (customer_id, challan_no) DO UPDATE SET status = 'OPEN'
RETURNING id, customer_id, challan_no, challan_date, status, remarks`,
		customerID, challanNo, challanDate, remarks).
		Scan(&c.ID, &c.CustomerID, &c.ChallanNo, &c.ChallanDate, &c.Status, &c.Remarks)
	return c, err
}

func (r *txRepo) UpsertInwardLine(ctx context.Context, line InwardLine) (InwardLine, error) {
	err := r.tx.QueryRow(ctx, `
INSERT INTO material_inward (challan_id, item_code, process, inward_qty, available_qty, box_tray, remarks)
VALUES ($1, $2, $3, $4, $4, $5, $6)
ON CONFLICT (challan_id, item_code, process) DO UPDATE SET
  inward_qty    = material_inward.inward_qty + EXCLUDED.inward_qty,
  available_qty = material_inward.available_qty + EXCLUDED.inward_qty,
  box_tray      = EXCLUDED.box_tray,
  remarks       = EXCLUDED.remarks
RETURNING id, inward_qty, available_qty`,
		line.ChallanID, line.ItemCode, line.Process, line.InwardQty, line.BoxTray, line.Remarks).
		Scan(&line.ID, &line.InwardQty, &line.AvailableQty)
	return line, err
}

func (r *txRepo) GetLine(ctx context.Context, id int64) (InwardLine, error) {
	var l InwardLine
	err := r.tx.QueryRow(ctx, `
SELECT id, challan_id, item_code, process, inward_qty, available_qty, box_tray, remarks
FROM material_inward WHERE id = $1 FOR UPDATE`, id).
		Scan(&l.ID, &l.ChallanID, &l.ItemCode, &l.Process, &l.InwardQty, &l.AvailableQty, &l.BoxTray, &l.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return InwardLine{}, ErrLineNotFound
	}
	return l, err
}

// ApplyDeplete subtracts qty from the line's availability. The guard is in
// the statement; zero rows affected means not enough material.
func (r *txRepo) ApplyDeplete(ctx context.Context, lineID int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE material_inward SET available_qty = available_qty - $2
WHERE id = $1 AND available_qty >= $2`, lineID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyRestore adds qty back, capped at the inward quantity.
func (r *txRepo) ApplyRestore(ctx context.Context, lineID int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE material_inward SET available_qty = available_qty + $2
WHERE id = $1 AND inward_qty - available_qty >= $2`, lineID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) SetLineInward(ctx context.Context, lineID int64, inwardQty, availableQty int) error {
	_, err := r.tx.Exec(ctx, `
UPDATE material_inward SET inward_qty = $2, available_qty = $3 WHERE id = $1`,
		lineID, inwardQty, availableQty)
	return err
}

func (r *txRepo) DeleteLine(ctx context.Context, lineID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM material_inward WHERE id = $1`, lineID)
	return err
}

func (r *txRepo) CountDispatchesForLine(ctx context.Context, lineID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM material_dispatch WHERE inward_id = $1`, lineID).Scan(&n)
	return n, err
}

func (r *txRepo) InsertDispatch(ctx context.Context, d Dispatch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
INSERT INTO material_dispatch (challan_id, inward_id, dispatch_challan_no, dispatch_date,
                               ok_qty, rej_qty, cd_qty, nd_qty, nd_pw_qty, total_qty, remarks)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`,
		d.ChallanID, d.InwardID, d.DispatchChallanNo, d.DispatchDate,
		d.OkQty, d.RejQty, d.CdQty, d.NdQty, d.NdPwQty, d.TotalQty, d.Remarks).Scan(&id)
	return id, err
}

func (r *txRepo) GetDispatch(ctx context.Context, id int64) (Dispatch, error) {
	var d Dispatch
	err := r.tx.QueryRow(ctx, `
SELECT `+dispatchColumns+` FROM material_dispatch WHERE id = $1 FOR UPDATE`, id).
		Scan(&d.ID, &d.ChallanID, &d.InwardID, &d.DispatchChallanNo, &d.DispatchDate,
			&d.OkQty, &d.RejQty, &d.CdQty, &d.NdQty, &d.NdPwQty, &d.TotalQty, &d.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dispatch{}, ErrDispatchNotFound
	}
	return d, err
}

func (r *txRepo) UpdateDispatch(ctx context.Context, d Dispatch) error {
	_, err := r.tx.Exec(ctx, `
UPDATE material_dispatch SET dispatch_challan_no = $2, dispatch_date = $3,
       ok_qty = $4, rej_qty = $5, cd_qty = $6, nd_qty = $7, nd_pw_qty = $8,
       total_qty = $9, remarks = $10
WHERE id = $1`,
		d.ID, d.DispatchChallanNo, d.DispatchDate, d.OkQty, d.RejQty, d.CdQty, d.NdQty, d.NdPwQty,
		d.TotalQty, d.Remarks)
	return err
}

func (r *txRepo) DeleteDispatch(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM material_dispatch WHERE id = $1`, id)
	return err
}

// RecomputeChallanStatus closes a challan when no line has material left and
// reopens it otherwise. Runs inside the same transaction as the quantity
// move it follows.
func (r *txRepo) RecomputeChallanStatus(ctx context.Context, challanID int64) (string, error) {
	var status string
	err := r.tx.QueryRow(ctx, `
UPDATE customer_challan SET status = CASE
  WHEN EXISTS (SELECT 1 FROM material_inward WHERE challan_id = $1 AND available_qty > 0)
  THEN 'OPEN' ELSE 'CLOSED' END
WHERE id = $1
RETURNING status`, challanID).Scan(&status)
	return status, err
}
