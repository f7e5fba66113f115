package toolcrib

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

// Service coordinates the four crib ledgers. Each mutating operation
// validates first, then performs the counter move and the ledger append in
// one database transaction.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func txnDate(d time.Time) time.Time {
	if d.IsZero() {
		return time.Now().UTC()
	}
	return d
}

func (s *Service) record(ctx context.Context, entity string, id int64, action Action, qty int, mc MoveContext) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    mc.Operator,
		Action:   fmt.Sprintf("toolcrib:%s", action),
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", id),
		Meta: map[string]any{
			"qty":     qty,
			"machine": mc.Machine,
			"shift":   mc.Shift,
		},
	})
}

// ---------------- tools ----------------

// AddTool restocks a tool variant, merging into an existing row when the
// natural key already exists.
func (s *Service) AddTool(ctx context.Context, tool Tool) (Tool, error) {
	if strings.TrimSpace(tool.ToolType) == "" {
		return Tool{}, fmt.Errorf("%w: tool type required", ErrInvalidQuantity)
	}
	if tool.TotalQty <= 0 {
		return Tool{}, ErrInvalidQuantity
	}
	return s.repo.UpsertTool(ctx, tool)
}

// IssueTool moves qty from available to issued.
func (s *Service) IssueTool(ctx context.Context, id int64, qty int, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		tool, err := tx.GetTool(ctx, id)
		if err != nil {
			return err
		}
		ok, err := tx.ApplyToolIssue(ctx, id, qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, qty, tool.Available())
		}
		return tx.InsertToolTxn(ctx, Txn{
			ItemID:   id,
			Action:   ActionIssue,
			Qty:      qty,
			Operator: mc.Operator,
			Machine:  mc.Machine,
			Shift:    mc.Shift,
			JobName:  mc.JobName,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "tool", id, ActionIssue, qty, mc)
	return nil
}

// ReturnTool puts qty back. Good and Blunt restore availability; Broken
// retires the quantity into the broken counter so it never becomes
// available again.
func (s *Service) ReturnTool(ctx context.Context, id int64, qty int, condition Condition, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	switch condition {
	case ConditionGood, ConditionBlunt, ConditionBroken:
	default:
		return ErrInvalidCondition
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetTool(ctx, id); err != nil {
			return err
		}
		ok, err := tx.ApplyToolReturn(ctx, id, qty, condition == ConditionBroken)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: returning %d", ErrReturnExceedsIssued, qty)
		}
		return tx.InsertToolTxn(ctx, Txn{
			ItemID:    id,
			Action:    ActionReturn,
			Qty:       qty,
			Operator:  mc.Operator,
			Machine:   mc.Machine,
			Shift:     mc.Shift,
			Condition: condition,
			Remarks:   mc.Remarks,
			TxnDate:   txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "tool", id, ActionReturn, qty, mc)
	return nil
}

// RegrindTool sends issued tools out for regrinding; the quantity returns to
// the available pool.
func (s *Service) RegrindTool(ctx context.Context, id int64, qty int, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetTool(ctx, id); err != nil {
			return err
		}
		ok, err := tx.ApplyToolReturn(ctx, id, qty, false)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: regrinding %d", ErrReturnExceedsIssued, qty)
		}
		return tx.InsertToolTxn(ctx, Txn{
			ItemID:   id,
			Action:   ActionRegrind,
			Qty:      qty,
			Operator: mc.Operator,
			Remarks:  mc.Remarks,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "tool", id, ActionRegrind, qty, mc)
	return nil
}

// Tools lists every tool variant.
func (s *Service) Tools(ctx context.Context) ([]Tool, error) {
	return s.repo.ListTools(ctx)
}

// ToolHistory lists ledger entries for tools.
func (s *Service) ToolHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	return s.repo.ToolHistory(ctx, filter)
}

// ---------------- holders ----------------

func (s *Service) AddHolder(ctx context.Context, holder Holder) (Holder, error) {
	if strings.TrimSpace(holder.HolderType) == "" {
		return Holder{}, fmt.Errorf("%w: holder type required", ErrInvalidQuantity)
	}
	if holder.TotalQty <= 0 {
		return Holder{}, ErrInvalidQuantity
	}
	return s.repo.UpsertHolder(ctx, holder)
}

func (s *Service) IssueHolder(ctx context.Context, id int64, qty int, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		holder, err := tx.GetHolder(ctx, id)
		if err != nil {
			return err
		}
		ok, err := tx.ApplyHolderIssue(ctx, id, qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, qty, holder.Available())
		}
		return tx.InsertHolderTxn(ctx, Txn{
			ItemID:   id,
			Action:   ActionIssue,
			Qty:      qty,
			Operator: mc.Operator,
			Machine:  mc.Machine,
			Shift:    mc.Shift,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "holder", id, ActionIssue, qty, mc)
	return nil
}

func (s *Service) ReturnHolder(ctx context.Context, id int64, qty int, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetHolder(ctx, id); err != nil {
			return err
		}
		ok, err := tx.ApplyHolderReturn(ctx, id, qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: returning %d", ErrReturnExceedsIssued, qty)
		}
		return tx.InsertHolderTxn(ctx, Txn{
			ItemID:   id,
			Action:   ActionReturn,
			Qty:      qty,
			Operator: mc.Operator,
			Shift:    mc.Shift,
			Remarks:  mc.Remarks,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "holder", id, ActionReturn, qty, mc)
	return nil
}

func (s *Service) Holders(ctx context.Context) ([]Holder, error) {
	return s.repo.ListHolders(ctx)
}

func (s *Service) HolderHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	return s.repo.HolderHistory(ctx, filter)
}

// ---------------- inserts ----------------

func (s *Service) AddInsert(ctx context.Context, ins Insert) (Insert, error) {
	if strings.TrimSpace(ins.InsertType) == "" {
		return Insert{}, fmt.Errorf("%w: insert type required", ErrInvalidQuantity)
	}
	if ins.TotalQty <= 0 {
		return Insert{}, ErrInvalidQuantity
	}
	return s.repo.UpsertInsert(ctx, ins)
}

func (s *Service) IssueInsert(ctx context.Context, id int64, qty int, mc MoveContext) error {
	return s.consumeInsert(ctx, id, qty, ActionIssue, mc)
}

// ScrapInsert removes worn-out inserts from the pool. The same
// insufficient-stock guard as issue applies.
func (s *Service) ScrapInsert(ctx context.Context, id int64, qty int, mc MoveContext) error {
	return s.consumeInsert(ctx, id, qty, ActionScrap, mc)
}

func (s *Service) consumeInsert(ctx context.Context, id int64, qty int, action Action, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ins, err := tx.GetInsert(ctx, id)
		if err != nil {
			return err
		}
		ok, err := tx.ApplyInsertConsume(ctx, id, qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, qty, ins.AvailableQty)
		}
		return tx.InsertInsertTxn(ctx, Txn{
			ItemID:   id,
			Action:   action,
			Qty:      qty,
			Operator: mc.Operator,
			Machine:  mc.Machine,
			Shift:    mc.Shift,
			JobName:  mc.JobName,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "insert", id, action, qty, mc)
	return nil
}

// RecordEdgeUse logs cutting-edge wear without moving any quantity.
func (s *Service) RecordEdgeUse(ctx context.Context, id int64, edges int, mc MoveContext) error {
	if edges <= 0 {
		return fmt.Errorf("%w: edges used must be positive", ErrInvalidQuantity)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetInsert(ctx, id); err != nil {
			return err
		}
		return tx.InsertInsertTxn(ctx, Txn{
			ItemID:    id,
			Action:    ActionEdgeUsed,
			EdgesUsed: edges,
			Operator:  mc.Operator,
			Machine:   mc.Machine,
			Shift:     mc.Shift,
			JobName:   mc.JobName,
			TxnDate:   txnDate(mc.Date),
		})
	})
}

func (s *Service) Inserts(ctx context.Context) ([]Insert, error) {
	return s.repo.ListInserts(ctx)
}

func (s *Service) InsertHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	return s.repo.InsertHistory(ctx, filter)
}

// ---------------- collets ----------------

func (s *Service) AddCollet(ctx context.Context, collet Collet) (Collet, error) {
	if strings.TrimSpace(collet.ColletType) == "" {
		return Collet{}, fmt.Errorf("%w: collet type required", ErrInvalidQuantity)
	}
	if collet.TotalQty <= 0 {
		return Collet{}, ErrInvalidQuantity
	}
	return s.repo.UpsertCollet(ctx, collet)
}

func (s *Service) IssueCollet(ctx context.Context, id int64, qty int, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		collet, err := tx.GetCollet(ctx, id)
		if err != nil {
			return err
		}
		ok, err := tx.ApplyColletIssue(ctx, id, qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, qty, collet.AvailableQty)
		}
		return tx.InsertColletTxn(ctx, Txn{
			ItemID:   id,
			Action:   ActionIssue,
			Qty:      qty,
			Operator: mc.Operator,
			Machine:  mc.Machine,
			Shift:    mc.Shift,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "collet", id, ActionIssue, qty, mc)
	return nil
}

func (s *Service) ReturnCollet(ctx context.Context, id int64, qty int, mc MoveContext) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetCollet(ctx, id); err != nil {
			return err
		}
		ok, err := tx.ApplyColletReturn(ctx, id, qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: returning %d", ErrReturnExceedsIssued, qty)
		}
		return tx.InsertColletTxn(ctx, Txn{
			ItemID:   id,
			Action:   ActionReturn,
			Qty:      qty,
			Operator: mc.Operator,
			Shift:    mc.Shift,
			TxnDate:  txnDate(mc.Date),
		})
	})
	if err != nil {
		return err
	}
	s.record(ctx, "collet", id, ActionReturn, qty, mc)
	return nil
}

func (s *Service) Collets(ctx context.Context) ([]Collet, error) {
	return s.repo.ListCollets(ctx)
}

func (s *Service) ColletHistory(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, error) {
	return s.repo.ColletHistory(ctx, filter)
}

// ReorderAlerts counts variants at or below their reorder level per domain.
func (s *Service) ReorderAlerts(ctx context.Context) ([]ReorderAlert, error) {
	return s.repo.CountBelowReorder(ctx)
}
