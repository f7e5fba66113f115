package material

import (
	"context"
	"fmt"
	"strings"

	"github.com/eltaworks/workshop-suite/internal/shared"
)

// AuditPort abstracts audit trail recording.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the challan balance tracker: inward receipts, dispatches and
// the OPEN/CLOSED lifecycle they drive.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) record(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   "material:" + action,
		Entity:   "challan",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

// RecordInward books a multi-row inward entry against a customer challan.
// The challan header is created on first use of the number; rows with a
// blank item code or non-positive quantity are skipped. Repeat rows for the
// same (item, process) accumulate into the existing line.
func (s *Service) RecordInward(ctx context.Context, customerID int64, challanNo, challanDate, remarks string, rows []InwardRow) (Challan, []InwardLine, error) {
	if customerID == 0 || strings.TrimSpace(challanNo) == "" {
		return Challan{}, nil, fmt.Errorf("%w: customer and challan number required", ErrInvalidInput)
	}
	var valid []InwardRow
	for _, row := range rows {
		if strings.TrimSpace(row.ItemCode) == "" || row.Qty <= 0 {
			continue
		}
		valid = append(valid, row)
	}
	if len(valid) == 0 {
		return Challan{}, nil, fmt.Errorf("%w: no usable inward rows", ErrInvalidInput)
	}

	var challan Challan
	var lines []InwardLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		challan, err = tx.GetOrCreateChallan(ctx, customerID, strings.TrimSpace(challanNo), challanDate, remarks)
		if err != nil {
			return err
		}
		for _, row := range valid {
			line, err := tx.UpsertInwardLine(ctx, InwardLine{
				ChallanID: challan.ID,
				ItemCode:  strings.TrimSpace(row.ItemCode),
				Process:   strings.TrimSpace(row.Process),
				InwardQty: row.Qty,
				BoxTray:   row.BoxTray,
				Remarks:   row.Remarks,
			})
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}
		challan.Status, err = tx.RecomputeChallanStatus(ctx, challan.ID)
		return err
	})
	if err != nil {
		return Challan{}, nil, err
	}
	s.record(ctx, "inward", challan.ID, map[string]any{"rows": len(valid)})
	return challan, lines, nil
}

// RecordDispatch books an outgoing movement against an inward line. The five
// buckets must sum to a positive total, the line must have that much left,
// and the challan status is recomputed in the same transaction.
func (s *Service) RecordDispatch(ctx context.Context, d Dispatch) (Dispatch, error) {
	d.TotalQty = d.Total()
	if d.TotalQty <= 0 {
		return Dispatch{}, ErrEmptyDispatch
	}
	if strings.TrimSpace(d.DispatchChallanNo) == "" {
		return Dispatch{}, fmt.Errorf("%w: dispatch challan number required", ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		line, err := tx.GetLine(ctx, d.InwardID)
		if err != nil {
			return err
		}
		d.ChallanID = line.ChallanID
		ok, err := tx.ApplyDeplete(ctx, line.ID, d.TotalQty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: requested %d, available %d", ErrExceedsAvailable, d.TotalQty, line.AvailableQty)
		}
		d.ID, err = tx.InsertDispatch(ctx, d)
		if err != nil {
			return err
		}
		_, err = tx.RecomputeChallanStatus(ctx, line.ChallanID)
		return err
	})
	if err != nil {
		return Dispatch{}, err
	}
	s.record(ctx, "dispatch", d.ChallanID, map[string]any{"dispatch_id": d.ID, "qty": d.TotalQty})
	return d, nil
}

// EditDispatch replaces a dispatch's buckets. Only a positive quantity delta
// is re-validated against the line; shrinking a dispatch always succeeds and
// hands the difference back.
func (s *Service) EditDispatch(ctx context.Context, d Dispatch) error {
	d.TotalQty = d.Total()
	if d.TotalQty <= 0 {
		return ErrEmptyDispatch
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDispatch(ctx, d.ID)
		if err != nil {
			return err
		}
		line, err := tx.GetLine(ctx, current.InwardID)
		if err != nil {
			return err
		}
		delta := d.TotalQty - current.TotalQty
		switch {
		case delta > 0:
			ok, err := tx.ApplyDeplete(ctx, line.ID, delta)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: extra %d, available %d", ErrExceedsAvailable, delta, line.AvailableQty)
			}
		case delta < 0:
			if _, err := tx.ApplyRestore(ctx, line.ID, -delta); err != nil {
				return err
			}
		}
		d.ChallanID = current.ChallanID
		d.InwardID = current.InwardID
		if d.DispatchChallanNo == "" {
			d.DispatchChallanNo = current.DispatchChallanNo
		}
		if d.DispatchDate.IsZero() {
			d.DispatchDate = current.DispatchDate
		}
		if err := tx.UpdateDispatch(ctx, d); err != nil {
			return err
		}
		_, err = tx.RecomputeChallanStatus(ctx, current.ChallanID)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "dispatch-edit", d.ChallanID, map[string]any{"dispatch_id": d.ID})
	return nil
}

// DeleteDispatch removes a dispatch and hands its full quantity back to the
// line, which can flip a CLOSED challan back to OPEN.
func (s *Service) DeleteDispatch(ctx context.Context, id int64) error {
	var challanID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.GetDispatch(ctx, id)
		if err != nil {
			return err
		}
		challanID = d.ChallanID
		if _, err := tx.ApplyRestore(ctx, d.InwardID, d.TotalQty); err != nil {
			return err
		}
		if err := tx.DeleteDispatch(ctx, id); err != nil {
			return err
		}
		_, err = tx.RecomputeChallanStatus(ctx, d.ChallanID)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "dispatch-delete", challanID, map[string]any{"dispatch_id": id})
	return nil
}

// EditInward changes a line's received quantity. The availability follows
// the delta and may not drop below zero or exceed the new inward quantity.
func (s *Service) EditInward(ctx context.Context, lineID int64, inwardQty int, boxTray, remarks string) error {
	if inwardQty <= 0 {
		return fmt.Errorf("%w: inward quantity must be positive", ErrInvalidInput)
	}
	var challanID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		line, err := tx.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		challanID = line.ChallanID
		dispatched := line.InwardQty - line.AvailableQty
		if inwardQty < dispatched {
			return fmt.Errorf("%w: %d already dispatched against this line", ErrExceedsAvailable, dispatched)
		}
		if err := tx.SetLineInward(ctx, lineID, inwardQty, inwardQty-dispatched); err != nil {
			return err
		}
		_, err = tx.RecomputeChallanStatus(ctx, line.ChallanID)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "inward-edit", challanID, map[string]any{"line_id": lineID, "inward_qty": inwardQty})
	return nil
}

// DeleteInward removes an inward line. Lines with dispatches recorded
// against them cannot be deleted; the dispatches must go first.
func (s *Service) DeleteInward(ctx context.Context, lineID int64) error {
	var challanID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		line, err := tx.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		challanID = line.ChallanID
		n, err := tx.CountDispatchesForLine(ctx, lineID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d dispatches", ErrLineInUse, n)
		}
		if err := tx.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		_, err = tx.RecomputeChallanStatus(ctx, line.ChallanID)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "inward-delete", challanID, map[string]any{"line_id": lineID})
	return nil
}

// Challans lists the register.
func (s *Service) Challans(ctx context.Context, filter ListFilter) ([]ChallanSummary, error) {
	return s.repo.ListChallans(ctx, filter)
}

// ChallanDetail returns one challan with its lines and dispatches.
func (s *Service) ChallanDetail(ctx context.Context, id int64) (Challan, []InwardLine, []Dispatch, error) {
	challan, err := s.repo.GetChallan(ctx, id)
	if err != nil {
		return Challan{}, nil, nil, err
	}
	lines, err := s.repo.LinesByChallan(ctx, id)
	if err != nil {
		return Challan{}, nil, nil, err
	}
	dispatches, err := s.repo.DispatchesByChallan(ctx, id)
	if err != nil {
		return Challan{}, nil, nil, err
	}
	return challan, lines, dispatches, nil
}

// DispatchesByChallanNo looks up dispatches by the outgoing challan number.
func (s *Service) DispatchesByChallanNo(ctx context.Context, no string) ([]Dispatch, error) {
	return s.repo.DispatchesByChallanNo(ctx, no)
}
