package gauges

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eltaworks/workshop-suite/internal/platform/db"
)

// RepositoryPort abstracts gauge persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	List(ctx context.Context, filter ListFilter) ([]Gauge, error)
	Get(ctx context.Context, id int64) (Gauge, error)
	GetByCode(ctx context.Context, code string) (Gauge, error)
	UpdateStatuses(ctx context.Context, updates map[int64]Status) error
	IssueHistory(ctx context.Context, gaugeID int64) ([]IssueTxn, error)
	CalibrationHistory(ctx context.Context, gaugeID int64) ([]CalibrationTxn, error)
}

// TxRepository exposes the transactional gauge operations.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Gauge, error)
	NextSequence(ctx context.Context, prefix string) (int, error)
	Insert(ctx context.Context, g Gauge) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	SetCalibration(ctx context.Context, id int64, g Gauge) error
	InsertIssueTxn(ctx context.Context, txn IssueTxn) error
	InsertCalibrationTxn(ctx context.Context, txn CalibrationTxn) error
}

// Repository persists gauges in PostgreSQL.
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

const gaugeColumns = `id, gauge_code, category, subtype, mechanism, measuring_range, least_count,
       make, serial_no, location, calibration_freq,
       COALESCE(last_calibration, '0001-01-01'), COALESCE(next_calibration, '0001-01-01'),
       status, remarks`

func scanGauge(row pgx.Row) (Gauge, error) {
	var g Gauge
	err := row.Scan(&g.ID, &g.Code, &g.Category, &g.Subtype, &g.Mechanism, &g.MeasuringRange,
		&g.LeastCount, &g.Make, &g.SerialNo, &g.Location, &g.CalibrationFreq,
		&g.LastCalibration, &g.NextCalibration, &g.Status, &g.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return Gauge{}, ErrGaugeNotFound
	}
	return g, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Gauge, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + gaugeColumns + ` FROM gauges WHERE 1=1`)
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		fmt.Fprintf(&sb, " AND category = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		fmt.Fprintf(&sb, " AND (gauge_code ILIKE $%d OR serial_no ILIKE $%d)", len(args), len(args))
	}
	sb.WriteString(" ORDER BY gauge_code")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gauges []Gauge
	for rows.Next() {
		g, err := scanGauge(rows)
		if err != nil {
			return nil, err
		}
		gauges = append(gauges, g)
	}
	return gauges, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Gauge, error) {
	return scanGauge(r.pool.QueryRow(ctx, `SELECT `+gaugeColumns+` FROM gauges WHERE id = $1`, id))
}

func (r *Repository) GetByCode(ctx context.Context, code string) (Gauge, error) {
	return scanGauge(r.pool.QueryRow(ctx, `SELECT `+gaugeColumns+` FROM gauges WHERE gauge_code = $1`, code))
}

// UpdateStatuses persists recomputed statuses after a list refresh.
func (r *Repository) UpdateStatuses(ctx context.Context, updates map[int64]Status) error {
	for id, status := range updates {
		if _, err := r.pool.Exec(ctx, `UPDATE gauges SET status = $2 WHERE id = $1`, id, string(status)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) IssueHistory(ctx context.Context, gaugeID int64) ([]IssueTxn, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, gauge_id, action, operator, machine, job_name, shift, condition_on_return, remarks, txn_date
FROM gauge_issue_txn WHERE gauge_id = $1 ORDER BY txn_date DESC, id DESC`, gaugeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []IssueTxn
	for rows.Next() {
		var t IssueTxn
		if err := rows.Scan(&t.ID, &t.GaugeID, &t.Action, &t.Operator, &t.Machine, &t.JobName,
			&t.Shift, &t.ConditionOnReturn, &t.Remarks, &t.TxnDate); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *Repository) CalibrationHistory(ctx context.Context, gaugeID int64) ([]CalibrationTxn, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, gauge_id, calibration_date, calibrated_by, result, certificate_no, remarks
FROM gauge_calibration_txn WHERE gauge_id = $1 ORDER BY calibration_date DESC, id DESC`, gaugeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []CalibrationTxn
	for rows.Next() {
		var t CalibrationTxn
		if err := rows.Scan(&t.ID, &t.GaugeID, &t.CalibrationDate, &t.CalibratedBy, &t.Result,
			&t.CertificateNo, &t.Remarks); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ---------------- transactional ----------------

func (r *txRepo) Get(ctx context.Context, id int64) (Gauge, error) {
	return scanGauge(r.tx.QueryRow(ctx, `SELECT `+gaugeColumns+` FROM gauges WHERE id = $1 FOR UPDATE`, id))
}

// NextSequence finds the highest numeric suffix already used for the prefix.
// Two concurrent registrations can still read the same MAX under repeatable
// read; the UNIQUE constraint on gauge_code catches the collision.
func (r *txRepo) NextSequence(ctx context.Context, prefix string) (int, error) {
	var max int
	err := r.tx.QueryRow(ctx, `
SELECT COALESCE(MAX(CAST(SUBSTRING(gauge_code FROM $1) AS INT)), 0)
FROM gauges WHERE gauge_code LIKE $2`,
		"^"+prefix+`-(\d+)$`, prefix+"-%").Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *txRepo) Insert(ctx context.Context, g Gauge) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
INSERT INTO gauges (gauge_code, category, subtype, mechanism, measuring_range, least_count,
                    make, serial_no, location, calibration_freq, last_calibration, next_calibration, status, remarks)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NULLIF($11, '0001-01-01'::date), NULLIF($12, '0001-01-01'::date), $13, $14)
RETURNING id`,
		g.Code, g.Category, g.Subtype, g.Mechanism, g.MeasuringRange, g.LeastCount,
		g.Make, g.SerialNo, g.Location, g.CalibrationFreq, g.LastCalibration, g.NextCalibration,
		string(g.Status), g.Remarks).Scan(&id)
	return id, err
}

func (r *txRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE gauges SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

func (r *txRepo) SetCalibration(ctx context.Context, id int64, g Gauge) error {
	_, err := r.tx.Exec(ctx, `
UPDATE gauges SET last_calibration = $2, next_calibration = $3, status = $4 WHERE id = $1`,
		id, g.LastCalibration, g.NextCalibration, string(g.Status))
	return err
}

func (r *txRepo) InsertIssueTxn(ctx context.Context, txn IssueTxn) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO gauge_issue_txn (gauge_id, action, operator, machine, job_name, shift, condition_on_return, remarks, txn_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		txn.GaugeID, txn.Action, txn.Operator, txn.Machine, txn.JobName, txn.Shift,
		txn.ConditionOnReturn, txn.Remarks, txn.TxnDate)
	return err
}

func (r *txRepo) InsertCalibrationTxn(ctx context.Context, txn CalibrationTxn) error {
	_, err := r.tx.Exec(ctx, `
INSERT INTO gauge_calibration_txn (gauge_id, calibration_date, calibrated_by, result, certificate_no, remarks)
VALUES ($1,$2,$3,$4,$5,$6)`,
		txn.GaugeID, txn.CalibrationDate, txn.CalibratedBy, txn.Result, txn.CertificateNo, txn.Remarks)
	return err
}
