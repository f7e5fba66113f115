package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eltaworks/workshop-suite/internal/platform/db"
	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

// RepositoryPort covers the master data tables and the transactional entry
// point used for document versioning.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	InsertCustomer(ctx context.Context, c Customer) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)

	InsertItemCode(ctx context.Context, ic ItemCode) (ItemCode, error)
	UpdateItemCode(ctx context.Context, ic ItemCode) error
	ListItemCodes(ctx context.Context) ([]ItemCode, error)
	GetItemCode(ctx context.Context, id int64) (ItemCode, error)

	ListDocs(ctx context.Context, itemCodeID int64) ([]Doc, error)
	GetDoc(ctx context.Context, id int64) (Doc, error)
	DeleteDoc(ctx context.Context, id int64) error
}

// TxRepository is the write side of document versioning.
type TxRepository interface {
	GetItemCode(ctx context.Context, id int64) (ItemCode, error)
	RetireCurrent(ctx context.Context, itemCodeID int64, category string) error
	NextVersion(ctx context.Context, itemCodeID int64, category string) (int, error)
	InsertDoc(ctx context.Context, d Doc) (Doc, error)
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

func (r *Repository) InsertCustomer(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customer_master (customer_name, short_code, remarks)
		 VALUES ($1,$2,$3) RETURNING id`,
		c.CustomerName, c.ShortCode, c.Remarks).Scan(&c.ID)
	if httpx.IsUniqueViolation(err) {
		return Customer{}, ErrDuplicateCustomer
	}
	if err != nil {
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_name, short_code, remarks FROM customer_master ORDER BY customer_name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.CustomerName, &c.ShortCode, &c.Remarks); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertItemCode(ctx context.Context, ic ItemCode) (ItemCode, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO item_code_master (item_code, description, remarks)
		 VALUES ($1,$2,$3) RETURNING id`,
		ic.ItemCode, ic.Description, ic.Remarks).Scan(&ic.ID)
	if httpx.IsUniqueViolation(err) {
		return ItemCode{}, ErrDuplicateItemCode
	}
	if err != nil {
		return ItemCode{}, fmt.Errorf("insert item code: %w", err)
	}
	return ic, nil
}

func (r *Repository) UpdateItemCode(ctx context.Context, ic ItemCode) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE item_code_master SET item_code = $2, description = $3, remarks = $4 WHERE id = $1`,
		ic.ID, ic.ItemCode, ic.Description, ic.Remarks)
	if httpx.IsUniqueViolation(err) {
		return ErrDuplicateItemCode
	}
	if err != nil {
		return fmt.Errorf("update item code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemCodeNotFound
	}
	return nil
}

func (r *Repository) ListItemCodes(ctx context.Context) ([]ItemCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_code, description, remarks FROM item_code_master ORDER BY item_code`)
	if err != nil {
		return nil, fmt.Errorf("list item codes: %w", err)
	}
	defer rows.Close()

	var out []ItemCode
	for rows.Next() {
		var ic ItemCode
		if err := rows.Scan(&ic.ID, &ic.ItemCode, &ic.Description, &ic.Remarks); err != nil {
			return nil, fmt.Errorf("scan item code: %w", err)
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

func (r *Repository) GetItemCode(ctx context.Context, id int64) (ItemCode, error) {
	return getItemCode(ctx, r.pool, id)
}

func (r *Repository) ListDocs(ctx context.Context, itemCodeID int64) ([]Doc, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_code_id, doc_name, stored_name, doc_category, version_no, is_current, notes, uploaded_at
		 FROM item_code_docs WHERE item_code_id = $1
		 ORDER BY doc_category, version_no DESC`, itemCodeID)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var d Doc
		if err := rows.Scan(&d.ID, &d.ItemCodeID, &d.DocName, &d.StoredName, &d.DocCategory,
			&d.VersionNo, &d.IsCurrent, &d.Notes, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) GetDoc(ctx context.Context, id int64) (Doc, error) {
	var d Doc
	err := r.pool.QueryRow(ctx,
		`SELECT id, item_code_id, doc_name, stored_name, doc_category, version_no, is_current, notes, uploaded_at
		 FROM item_code_docs WHERE id = $1`, id).
		Scan(&d.ID, &d.ItemCodeID, &d.DocName, &d.StoredName, &d.DocCategory,
			&d.VersionNo, &d.IsCurrent, &d.Notes, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Doc{}, ErrDocNotFound
	}
	if err != nil {
		return Doc{}, fmt.Errorf("get doc: %w", err)
	}
	return d, nil
}

func (r *Repository) DeleteDoc(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM item_code_docs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocNotFound
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getItemCode(ctx context.Context, q querier, id int64) (ItemCode, error) {
	var ic ItemCode
	err := q.QueryRow(ctx,
		`SELECT id, item_code, description, remarks FROM item_code_master WHERE id = $1`, id).
		Scan(&ic.ID, &ic.ItemCode, &ic.Description, &ic.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return ItemCode{}, ErrItemCodeNotFound
	}
	if err != nil {
		return ItemCode{}, fmt.Errorf("get item code: %w", err)
	}
	return ic, nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetItemCode(ctx context.Context, id int64) (ItemCode, error) {
	return getItemCode(ctx, t.tx, id)
}

func (t *txRepo) RetireCurrent(ctx context.Context, itemCodeID int64, category string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE item_code_docs SET is_current = FALSE
		 WHERE item_code_id = $1 AND doc_category = $2 AND is_current`,
		itemCodeID, category)
	if err != nil {
		return fmt.Errorf("retire current doc: %w", err)
	}
	return nil
}

func (t *txRepo) NextVersion(ctx context.Context, itemCodeID int64, category string) (int, error) {
	var max int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_no), 0) FROM item_code_docs
		 WHERE item_code_id = $1 AND doc_category = $2`,
		itemCodeID, category).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("next doc version: %w", err)
	}
	return max + 1, nil
}

func (t *txRepo) InsertDoc(ctx context.Context, d Doc) (Doc, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO item_code_docs (item_code_id, doc_name, stored_name, doc_category, version_no, is_current, notes)
		 VALUES ($1,$2,$3,$4,$5,TRUE,$6) RETURNING id, uploaded_at`,
		d.ItemCodeID, d.DocName, d.StoredName, d.DocCategory, d.VersionNo, d.Notes).
		Scan(&d.ID, &d.UploadedAt)
	if err != nil {
		return Doc{}, fmt.Errorf("insert doc: %w", err)
	}
	d.IsCurrent = true
	return d, nil
}
