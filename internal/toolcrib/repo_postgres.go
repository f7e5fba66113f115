package toolcrib

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eltaworks/workshop-suite/internal/platform/db"
)

// Repository persists crib stock in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ---------------- upserts ----------------

// UpsertTool merges stock into the variant row matching the natural key,
// adding the incoming quantity to the running total.
func (r *Repository) UpsertTool(ctx context.Context, t Tool) (Tool, error) {
	const q = `
INSERT INTO cutting_tools
  (tool_type, tool_subtype, cutting_diameter, cutting_length, overall_length,
   shank_type, shank_diameter, material, location, remarks, total_qty, reorder_level)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (tool_type, cutting_diameter, cutting_length, shank_type, shank_diameter, material)
DO UPDATE SET
  total_qty     = cutting_tools.total_qty + EXCLUDED.total_qty,
  tool_subtype  = EXCLUDED.tool_subtype,
  overall_length = EXCLUDED.overall_length,
  location      = EXCLUDED.location,
  remarks       = EXCLUDED.remarks,
  reorder_level = EXCLUDED.reorder_level
RETURNING id, total_qty, issued_qty, broken_qty`
	err := r.pool.QueryRow(ctx, q,
		t.ToolType, t.ToolSubtype, t.CuttingDiameter, t.CuttingLength, t.OverallLength,
		t.ShankType, t.ShankDiameter, t.Material, t.Location, t.Remarks, t.TotalQty, t.ReorderLevel,
	).Scan(&t.ID, &t.TotalQty, &t.IssuedQty, &t.BrokenQty)
	if err != nil {
		return Tool{}, fmt.Errorf("upsert tool: %w", err)
	}
	return t, nil
}

func (r *Repository) UpsertHolder(ctx context.Context, h Holder) (Holder, error) {
	const q = `
INSERT INTO holders (holder_type, holder_interface, size, projection, location, remarks, total_qty, reorder_level)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (holder_type, holder_interface, size, projection)
DO UPDATE SET
  total_qty     = holders.total_qty + EXCLUDED.total_qty,
  location      = EXCLUDED.location,
  remarks       = EXCLUDED.remarks,
  reorder_level = EXCLUDED.reorder_level
RETURNING id, total_qty, issued_qty`
	err := r.pool.QueryRow(ctx, q,
		h.HolderType, h.Interface, h.Size, h.Projection, h.Location, h.Remarks, h.TotalQty, h.ReorderLevel,
	).Scan(&h.ID, &h.TotalQty, &h.IssuedQty)
	if err != nil {
		return Holder{}, fmt.Errorf("upsert holder: %w", err)
	}
	return h, nil
}

func (r *Repository) UpsertInsert(ctx context.Context, ins Insert) (Insert, error) {
	const q = `
INSERT INTO inserts (insert_type, size, grade, edges, total_qty, available_qty, reorder_level, remarks)
VALUES ($1,$2,$3,$4,$5,$5,$6,$7)
ON CONFLICT (insert_type, size, grade)
DO UPDATE SET
  total_qty     = inserts.total_qty + EXCLUDED.total_qty,
  available_qty = inserts.available_qty + EXCLUDED.total_qty,
  edges         = EXCLUDED.edges,
  reorder_level = EXCLUDED.reorder_level,
  remarks       = EXCLUDED.remarks
RETURNING id, total_qty, available_qty`
	err := r.pool.QueryRow(ctx, q,
		ins.InsertType, ins.Size, ins.Grade, ins.Edges, ins.TotalQty, ins.ReorderLevel, ins.Remarks,
	).Scan(&ins.ID, &ins.TotalQty, &ins.AvailableQty)
	if err != nil {
		return Insert{}, fmt.Errorf("upsert insert: %w", err)
	}
	return ins, nil
}

func (r *Repository) UpsertCollet(ctx context.Context, c Collet) (Collet, error) {
	const q = `
INSERT INTO collets (collet_type, collet_interface, size_range, location, total_qty, available_qty, reorder_level, remarks)
VALUES ($1,$2,$3,$4,$5,$5,$6,$7)
ON CONFLICT (collet_type, collet_interface, size_range, location)
DO UPDATE SET
  total_qty     = collets.total_qty + EXCLUDED.total_qty,
  available_qty = collets.available_qty + EXCLUDED.total_qty,
  reorder_level = EXCLUDED.reorder_level,
  remarks       = EXCLUDED.remarks
RETURNING id, total_qty, available_qty`
	err := r.pool.QueryRow(ctx, q,
		c.ColletType, c.Interface, c.SizeRange, c.Location, c.TotalQty, c.ReorderLevel, c.Remarks,
	).Scan(&c.ID, &c.TotalQty, &c.AvailableQty)
	if err != nil {
		return Collet{}, fmt.Errorf("upsert collet: %w", err)
	}
	return c, nil
}

// ---------------- lists ----------------

func (r *Repository) ListTools(ctx context.Context) ([]Tool, error) {
	const q = `
SELECT id, tool_type, tool_subtype, cutting_diameter, cutting_length, overall_length,
       shank_type, shank_diameter, material, location, remarks,
       total_qty, issued_qty, broken_qty, reorder_level
FROM cutting_tools
ORDER BY tool_type, cutting_diameter`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []Tool
	for rows.Next() {
		var t Tool
		if err := rows.Scan(&t.ID, &t.ToolType, &t.ToolSubtype, &t.CuttingDiameter, &t.CuttingLength,
			&t.OverallLength, &t.ShankType, &t.ShankDiameter, &t.Material, &t.Location, &t.Remarks,
			&t.TotalQty, &t.IssuedQty, &t.BrokenQty, &t.ReorderLevel); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

func (r *Repository) ListHolders(ctx context.Context) ([]Holder, error) {
	const q = `
SELECT id, holder_type, holder_interface, size, projection, location, remarks,
       total_qty, issued_qty, reorder_level
FROM holders
ORDER BY holder_type, size`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []Holder
	for rows.Next() {
		var h Holder
		if err := rows.Scan(&h.ID, &h.HolderType, &h.Interface, &h.Size, &h.Projection,
			&h.Location, &h.Remarks, &h.TotalQty, &h.IssuedQty, &h.ReorderLevel); err != nil {
			return nil, err
		}
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

func (r *Repository) ListInserts(ctx context.Context) ([]Insert, error) {
	const q = `
SELECT id, insert_type, size, grade, edges, total_qty, available_qty, reorder_level, remarks
FROM inserts
ORDER BY insert_type, size`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inserts []Insert
	for rows.Next() {
		var ins Insert
		if err := rows.Scan(&ins.ID, &ins.InsertType, &ins.Size, &ins.Grade, &ins.Edges,
			&ins.TotalQty, &ins.AvailableQty, &ins.ReorderLevel, &ins.Remarks); err != nil {
			return nil, err
		}
		inserts = append(inserts, ins)
	}
	return inserts, rows.Err()
}

func (r *Repository) ListCollets(ctx context.Context) ([]Collet, error) {
	const q = `
SELECT id, collet_type, collet_interface, size_range, location,
       total_qty, available_qty, reorder_level, remarks
FROM collets
ORDER BY collet_type, size_range`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collets []Collet
	for rows.Next() {
		var c Collet
		if err := rows.Scan(&c.ID, &c.ColletType, &c.Interface, &c.SizeRange, &c.Location,
			&c.TotalQty, &c.AvailableQty, &c.ReorderLevel, &c.Remarks); err != nil {
			return nil, err
		}
		collets = append(collets, c)
	}
	return collets, rows.Err()
}

// ---------------- history ----------------

func historyQuery(txnTable, itemTable, descExpr string, filter HistoryFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + descExpr + `, t.action, t.qty, t.edges_used, t.operator, t.machine,
       t.shift, t.job_name, t.condition, t.remarks, t.txn_date
FROM ` + txnTable + ` t
JOIN ` + itemTable + ` i ON i.id = t.item_id
WHERE 1=1`)

	var args []any
	if filter.ItemID != 0 {
		args = append(args, filter.ItemID)
		fmt.Fprintf(&sb, " AND t.item_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		fmt.Fprintf(&sb, " AND t.action = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND t.txn_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND t.txn_date <= $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY t.txn_date DESC, t.id DESC LIMIT $%d", len(args))
	return sb.String(), args
}

func (r *Repository) scanHistory(ctx context.Context, q string, args []any) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ItemDesc, &e.Action, &e.Qty, &e.EdgesUsed, &e.Operator,
			&e.Machine, &e.Shift, &e.JobName, &e.Condition, &e.Remarks, &e.TxnDate); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) ToolHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	q, args := historyQuery("tool_txn", "cutting_tools",
		`i.tool_type || ' Ø' || i.cutting_diameter`, filter)
	return r.scanHistory(ctx, q, args)
}

func (r *Repository) HolderHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	q, args := historyQuery("holder_txn", "holders",
		`i.holder_type || ' ' || i.size`, filter)
	return r.scanHistory(ctx, q, args)
}

func (r *Repository) InsertHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	q, args := historyQuery("insert_txn", "inserts",
		`i.insert_type || ' ' || i.size || ' ' || i.grade`, filter)
	return r.scanHistory(ctx, q, args)
}

func (r *Repository) ColletHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	q, args := historyQuery("collet_txn", "collets",
		`i.collet_type || ' ' || i.size_range`, filter)
	return r.scanHistory(ctx, q, args)
}

// CountBelowReorder tallies variants at or below their reorder level in each
// of the four ledgers.
func (r *Repository) CountBelowReorder(ctx context.Context) ([]ReorderAlert, error) {
	const q = `
SELECT 'tools', COUNT(*) FROM cutting_tools
  WHERE reorder_level > 0 AND total_qty - issued_qty - broken_qty <= reorder_level
UNION ALL
SELECT 'holders', COUNT(*) FROM holders
  WHERE reorder_level > 0 AND total_qty - issued_qty <= reorder_level
UNION ALL
SELECT 'inserts', COUNT(*) FROM inserts
  WHERE reorder_level > 0 AND available_qty <= reorder_level
UNION ALL
SELECT 'collets', COUNT(*) FROM collets
  WHERE reorder_level > 0 AND available_qty <= reorder_level`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []ReorderAlert
	for rows.Next() {
		var a ReorderAlert
		if err := rows.Scan(&a.Kind, &a.Count); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ---------------- transactional ----------------

func (r *txRepo) GetTool(ctx context.Context, id int64) (Tool, error) {
	const q = `
SELECT id, tool_type, tool_subtype, cutting_diameter, cutting_length, overall_length,
       shank_type, shank_diameter, material, location, remarks,
       total_qty, issued_qty, broken_qty, reorder_level
FROM cutting_tools WHERE id = $1`
	var t Tool
	err := r.tx.QueryRow(ctx, q, id).Scan(&t.ID, &t.ToolType, &t.ToolSubtype, &t.CuttingDiameter,
		&t.CuttingLength, &t.OverallLength, &t.ShankType, &t.ShankDiameter, &t.Material,
		&t.Location, &t.Remarks, &t.TotalQty, &t.IssuedQty, &t.BrokenQty, &t.ReorderLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tool{}, ErrItemNotFound
	}
	return t, err
}

// ApplyToolIssue moves qty into the issued counter. The availability guard
// is part of the statement; zero rows affected means the guard rejected it.
func (r *txRepo) ApplyToolIssue(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE cutting_tools SET issued_qty = issued_qty + $2
WHERE id = $1 AND total_qty - issued_qty - broken_qty >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) ApplyToolReturn(ctx context.Context, id int64, qty int, broken bool) (bool, error) {
	q := `
UPDATE cutting_tools SET issued_qty = issued_qty - $2
WHERE id = $1 AND issued_qty >= $2`
	if broken {
		q = `
UPDATE cutting_tools SET issued_qty = issued_qty - $2, broken_qty = broken_qty + $2
WHERE id = $1 AND issued_qty >= $2`
	}
	tag, err := r.tx.Exec(ctx, q, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) InsertToolTxn(ctx context.Context, txn Txn) error {
	return r.insertTxn(ctx, "tool_txn", txn)
}

func (r *txRepo) GetHolder(ctx context.Context, id int64) (Holder, error) {
	const q = `
SELECT id, holder_type, holder_interface, size, projection, location, remarks,
       total_qty, issued_qty, reorder_level
FROM holders WHERE id = $1`
	var h Holder
	err := r.tx.QueryRow(ctx, q, id).Scan(&h.ID, &h.HolderType, &h.Interface, &h.Size,
		&h.Projection, &h.Location, &h.Remarks, &h.TotalQty, &h.IssuedQty, &h.ReorderLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return Holder{}, ErrItemNotFound
	}
	return h, err
}

func (r *txRepo) ApplyHolderIssue(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE holders SET issued_qty = issued_qty + $2
WHERE id = $1 AND total_qty - issued_qty >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) ApplyHolderReturn(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE holders SET issued_qty = issued_qty - $2
WHERE id = $1 AND issued_qty >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) InsertHolderTxn(ctx context.Context, txn Txn) error {
	return r.insertTxn(ctx, "holder_txn", txn)
}

func (r *txRepo) GetInsert(ctx context.Context, id int64) (Insert, error) {
	const q = `
SELECT id, insert_type, size, grade, edges, total_qty, available_qty, reorder_level, remarks
FROM inserts WHERE id = $1`
	var ins Insert
	err := r.tx.QueryRow(ctx, q, id).Scan(&ins.ID, &ins.InsertType, &ins.Size, &ins.Grade,
		&ins.Edges, &ins.TotalQty, &ins.AvailableQty, &ins.ReorderLevel, &ins.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return Insert{}, ErrItemNotFound
	}
	return ins, err
}

func (r *txRepo) ApplyInsertConsume(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE inserts SET available_qty = available_qty - $2
WHERE id = $1 AND available_qty >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) InsertInsertTxn(ctx context.Context, txn Txn) error {
	return r.insertTxn(ctx, "insert_txn", txn)
}

func (r *txRepo) GetCollet(ctx context.Context, id int64) (Collet, error) {
	const q = `
SELECT id, collet_type, collet_interface, size_range, location,
       total_qty, available_qty, reorder_level, remarks
FROM collets WHERE id = $1`
	var c Collet
	err := r.tx.QueryRow(ctx, q, id).Scan(&c.ID, &c.ColletType, &c.Interface, &c.SizeRange,
		&c.Location, &c.TotalQty, &c.AvailableQty, &c.ReorderLevel, &c.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return Collet{}, ErrItemNotFound
	}
	return c, err
}

func (r *txRepo) ApplyColletIssue(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE collets SET available_qty = available_qty - $2
WHERE id = $1 AND available_qty >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) ApplyColletReturn(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
UPDATE collets SET available_qty = available_qty + $2
WHERE id = $1 AND total_qty - available_qty >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepo) InsertColletTxn(ctx context.Context, txn Txn) error {
	return r.insertTxn(ctx, "collet_txn", txn)
}

func (r *txRepo) insertTxn(ctx context.Context, table string, txn Txn) error {
	q := `
INSERT INTO ` + table + ` (item_id, action, qty, edges_used, operator, machine, shift, job_name, condition, remarks, txn_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.tx.Exec(ctx, q,
		txn.ItemID, string(txn.Action), txn.Qty, txn.EdgesUsed, txn.Operator, txn.Machine,
		txn.Shift, txn.JobName, string(txn.Condition), txn.Remarks, txn.TxnDate)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}
