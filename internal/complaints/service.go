package complaints

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

// Service owns the customer complaint register and its CAPA timeline.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// Register files a new complaint. The complaint number is minted inside the
// transaction so concurrent registrations in the same year cannot collide,
// and a NOTE log marks the registration on the timeline.
func (s *Service) Register(ctx context.Context, c Complaint) (Complaint, error) {
	c.IssueCategory = strings.ToUpper(strings.TrimSpace(c.IssueCategory))
	c.Severity = strings.ToUpper(strings.TrimSpace(c.Severity))
	if c.Severity == "" {
		c.Severity = SeverityMed
	}
	if c.CustomerID == 0 {
		return Complaint{}, fmt.Errorf("%w: customer required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.ItemCode) == "" {
		return Complaint{}, fmt.Errorf("%w: item code required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.IssueDescription) == "" {
		return Complaint{}, fmt.Errorf("%w: issue description required", ErrInvalidInput)
	}
	if !ValidCategories[c.IssueCategory] {
		return Complaint{}, fmt.Errorf("%w: unknown issue category %q", ErrInvalidVocab, c.IssueCategory)
	}
	if !ValidSeverities[c.Severity] {
		return Complaint{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidVocab, c.Severity)
	}
	if c.ComplaintDate.IsZero() {
		c.ComplaintDate = s.now()
	}
	c.Status = StatusOpen

	var created Complaint
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := c.ComplaintDate.Year()
		seq, err := tx.NextSequence(ctx, year)
		if err != nil {
			return err
		}
		c.ComplaintNo = fmt.Sprintf("CC-%d-%03d", year, seq)

		created, err = tx.Insert(ctx, c)
		if err != nil {
			return err
		}
		_, err = tx.InsertLog(ctx, ActionLog{
			ComplaintID: created.ID,
			ActionDate:  c.ComplaintDate,
			ActionType:  LogNote,
			Notes:       "Complaint registered",
			ByUser:      c.AssignedTo,
		})
		return err
	})
	if err != nil {
		return Complaint{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "complaints:register",
			Entity:   "complaint",
			EntityID: created.ComplaintNo,
			Meta:     map[string]any{"customer_id": created.CustomerID, "severity": created.Severity},
		})
	}
	return created, nil
}

// UpdateComplaint applies an investigation update. Moving to CLOSED requires
// a closure date; every status change lands a matching timeline entry.
func (s *Service) UpdateComplaint(ctx context.Context, id int64, u Update) (Complaint, error) {
	u.Status = strings.ToUpper(strings.TrimSpace(u.Status))
	u.Severity = strings.ToUpper(strings.TrimSpace(u.Severity))
	if !ValidStatuses[u.Status] {
		return Complaint{}, fmt.Errorf("%w: unknown status %q", ErrInvalidVocab, u.Status)
	}
	if !ValidSeverities[u.Severity] {
		return Complaint{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidVocab, u.Severity)
	}
	if u.Status == StatusClosed && strings.TrimSpace(u.ClosureDate) == "" {
		return Complaint{}, ErrClosureDate
	}

	var updated Complaint
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, id, u); err != nil {
			return err
		}
		if before.Status != u.Status {
			_, err = tx.InsertLog(ctx, ActionLog{
				ComplaintID: id,
				ActionDate:  s.now(),
				ActionType:  statusLogType(u.Status),
				Notes:       fmt.Sprintf("Status changed from %s to %s", before.Status, u.Status),
				ByUser:      u.By,
			})
			if err != nil {
				return err
			}
		}
		updated, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return Complaint{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    u.By,
			Action:   "complaints:update",
			Entity:   "complaint",
			EntityID: updated.ComplaintNo,
			Meta:     map[string]any{"status": updated.Status},
		})
	}
	return updated, nil
}

// AddLog appends a free-form timeline entry.
func (s *Service) AddLog(ctx context.Context, complaintID int64, logType, notes, by string) (ActionLog, error) {
	logType = strings.ToUpper(strings.TrimSpace(logType))
	if !ValidLogTypes[logType] {
		return ActionLog{}, fmt.Errorf("%w: unknown log type %q", ErrInvalidVocab, logType)
	}
	if strings.TrimSpace(notes) == "" {
		return ActionLog{}, fmt.Errorf("%w: notes required", ErrInvalidInput)
	}

	var created ActionLog
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Get(ctx, complaintID); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertLog(ctx, ActionLog{
			ComplaintID: complaintID,
			ActionDate:  s.now(),
			ActionType:  logType,
			Notes:       notes,
			ByUser:      by,
		})
		return err
	})
	if err != nil {
		return ActionLog{}, err
	}
	return created, nil
}

// Complaints lists the register under the given filter.
func (s *Service) Complaints(ctx context.Context, f ListFilter) ([]Complaint, error) {
	return s.repo.List(ctx, f)
}

// Detail returns one complaint with its full timeline.
func (s *Service) Detail(ctx context.Context, id int64) (Complaint, []ActionLog, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Complaint{}, nil, err
	}
	logs, err := s.repo.Logs(ctx, id)
	if err != nil {
		return Complaint{}, nil, err
	}
	return c, logs, nil
}

// statusLogType picks the timeline entry type matching a status transition.
func statusLogType(status string) string {
	switch status {
	case StatusUnderInvestigation:
		return LogRCA
	case StatusWaitingCustomer:
		return LogCustomerReply
	case StatusCAPAImplemented:
		return LogCAPA
	case StatusClosed, StatusRejected:
		return LogClose
	default:
		return LogNote
	}
}
