package gauges

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

// Service owns gauge registration, the issue/return cycle and the
// calibration lifecycle.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) record(ctx context.Context, action string, code string, actor string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "gauges:" + action,
		Entity:   "gauge",
		EntityID: code,
	})
}

// Register assigns the next code for the gauge's category and stores it.
// The sequence lookup and the insert share one transaction.
func (s *Service) Register(ctx context.Context, g Gauge) (Gauge, error) {
	if strings.TrimSpace(g.Category) == "" {
		return Gauge{}, fmt.Errorf("%w: category required", ErrInvalidInput)
	}
	if g.CalibrationFreq <= 0 {
		g.CalibrationFreq = 365
	}
	if !g.LastCalibration.IsZero() {
		g.NextCalibration = g.LastCalibration.AddDate(0, 0, g.CalibrationFreq)
	} else if g.NextCalibration.IsZero() {
		g.NextCalibration = s.now().AddDate(0, 0, g.CalibrationFreq)
	}
	g.Status = g.DeriveStatus(s.now())

	prefix := PrefixFor(g.Category)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx, prefix)
		if err != nil {
			return err
		}
		g.Code = fmt.Sprintf("%s-%03d", prefix, seq)
		g.ID, err = tx.Insert(ctx, g)
		return err
	})
	if err != nil {
		return Gauge{}, err
	}
	s.record(ctx, "register", g.Code, "")
	return g, nil
}

// List returns gauges with freshly derived statuses. Status changes found
// during the scan are written back so filters and the worker see the same
// values.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Gauge, error) {
	gauges, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	today := s.now()
	updates := map[int64]Status{}
	for i := range gauges {
		derived := gauges[i].DeriveStatus(today)
		if derived != gauges[i].Status {
			gauges[i].Status = derived
			updates[gauges[i].ID] = derived
		}
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateStatuses(ctx, updates); err != nil {
			return nil, err
		}
	}
	return gauges, nil
}

// RefreshStatuses recomputes every gauge status. The worker runs this on a
// schedule so OVERDUE flips even when nobody opens the register.
func (s *Service) RefreshStatuses(ctx context.Context) (int, error) {
	gauges, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return 0, err
	}
	today := s.now()
	updates := map[int64]Status{}
	for _, g := range gauges {
		if derived := g.DeriveStatus(today); derived != g.Status {
			updates[g.ID] = derived
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}
	return len(updates), s.repo.UpdateStatuses(ctx, updates)
}

// Get returns one gauge with its derived status.
func (s *Service) Get(ctx context.Context, id int64) (Gauge, error) {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return Gauge{}, err
	}
	g.Status = g.DeriveStatus(s.now())
	return g, nil
}

// Issue hands a gauge to an operator. Only OK and DUE gauges may go out;
// OVERDUE and DAMAGED stay in the cabinet.
func (s *Service) Issue(ctx context.Context, id int64, txn IssueTxn) error {
	if strings.TrimSpace(txn.Operator) == "" {
		return fmt.Errorf("%w: operator required", ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		derived := g.DeriveStatus(s.now())
		switch derived {
		case StatusOK, StatusDue:
		default:
			return fmt.Errorf("%w: %s is %s", ErrNotIssuable, g.Code, derived)
		}
		txn.GaugeID = id
		txn.Action = ActionIssue
		if txn.TxnDate.IsZero() {
			txn.TxnDate = s.now()
		}
		return tx.InsertIssueTxn(ctx, txn)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "issue", fmt.Sprintf("%d", id), txn.Operator)
	return nil
}

// Return records a gauge coming back. A DAMAGED condition marks the gauge
// itself damaged until it passes calibration.
func (s *Service) Return(ctx context.Context, id int64, txn IssueTxn) error {
	switch txn.ConditionOnReturn {
	case "", ReturnConditionOK, ReturnConditionDamaged:
	default:
		return fmt.Errorf("%w: condition must be OK or DAMAGED", ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return err
		}
		txn.GaugeID = id
		txn.Action = ActionReturn
		if txn.TxnDate.IsZero() {
			txn.TxnDate = s.now()
		}
		if err := tx.InsertIssueTxn(ctx, txn); err != nil {
			return err
		}
		if txn.ConditionOnReturn == ReturnConditionDamaged {
			return tx.SetStatus(ctx, id, StatusDamaged)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, "return", fmt.Sprintf("%d", id), txn.Operator)
	return nil
}

// Calibrate appends a calibration record. A PASS result advances the
// calibration dates and clears any DAMAGED flag; a FAIL leaves the dates
// untouched and marks the gauge damaged.
func (s *Service) Calibrate(ctx context.Context, id int64, txn CalibrationTxn) error {
	switch txn.Result {
	case ResultPass, ResultFail:
	default:
		return ErrInvalidResult
	}
	if txn.CalibrationDate.IsZero() {
		txn.CalibrationDate = s.now()
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		txn.GaugeID = id
		if err := tx.InsertCalibrationTxn(ctx, txn); err != nil {
			return err
		}
		if txn.Result == ResultFail {
			return tx.SetStatus(ctx, id, StatusDamaged)
		}
		g.LastCalibration = txn.CalibrationDate
		g.NextCalibration = txn.CalibrationDate.AddDate(0, 0, g.CalibrationFreq)
		g.Status = StatusOK
		g.Status = g.DeriveStatus(s.now()) // a short frequency can land straight back in DUE
		return tx.SetCalibration(ctx, id, g)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "calibrate", fmt.Sprintf("%d", id), txn.CalibratedBy)
	return nil
}

// IssueHistory lists issue and return movements for a gauge.
func (s *Service) IssueHistory(ctx context.Context, id int64) ([]IssueTxn, error) {
	return s.repo.IssueHistory(ctx, id)
}

// CalibrationHistory lists calibration records for a gauge.
func (s *Service) CalibrationHistory(ctx context.Context, id int64) ([]CalibrationTxn, error) {
	return s.repo.CalibrationHistory(ctx, id)
}
