package toolcrib

import (
	"context"
	"errors"
)

// RepositoryPort abstracts persistence for the service. Upserts are single
// atomic statements; everything that moves counters and appends a ledger
// record runs through WithTx.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	UpsertTool(ctx context.Context, tool Tool) (Tool, error)
	UpsertHolder(ctx context.Context, holder Holder) (Holder, error)
	UpsertInsert(ctx context.Context, ins Insert) (Insert, error)
	UpsertCollet(ctx context.Context, collet Collet) (Collet, error)

	ListTools(ctx context.Context) ([]Tool, error)
	ListHolders(ctx context.Context) ([]Holder, error)
	ListInserts(ctx context.Context) ([]Insert, error)
	ListCollets(ctx context.Context) ([]Collet, error)

	ToolHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error)
	HolderHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error)
	InsertHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error)
	ColletHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error)

	CountBelowReorder(ctx context.Context) ([]ReorderAlert, error)
}

// TxRepository exposes the transactional operations used by the service.
// The Apply* methods perform guarded conditional updates: the availability
// check and the counter move are one statement, and a false result means the
// guard rejected the move (no rows changed).
type TxRepository interface {
	GetTool(ctx context.Context, id int64) (Tool, error)
	ApplyToolIssue(ctx context.Context, id int64, qty int) (bool, error)
	ApplyToolReturn(ctx context.Context, id int64, qty int, broken bool) (bool, error)
	InsertToolTxn(ctx context.Context, txn Txn) error

	GetHolder(ctx context.Context, id int64) (Holder, error)
	ApplyHolderIssue(ctx context.Context, id int64, qty int) (bool, error)
	ApplyHolderReturn(ctx context.Context, id int64, qty int) (bool, error)
	InsertHolderTxn(ctx context.Context, txn Txn) error

	GetInsert(ctx context.Context, id int64) (Insert, error)
	ApplyInsertConsume(ctx context.Context, id int64, qty int) (bool, error)
	InsertInsertTxn(ctx context.Context, txn Txn) error

	GetCollet(ctx context.Context, id int64) (Collet, error)
	ApplyColletIssue(ctx context.Context, id int64, qty int) (bool, error)
	ApplyColletReturn(ctx context.Context, id int64, qty int) (bool, error)
	InsertColletTxn(ctx context.Context, txn Txn) error
}

// ErrItemNotFound indicates a missing stock item row.
var ErrItemNotFound = errors.New("toolcrib: stock item not found")
