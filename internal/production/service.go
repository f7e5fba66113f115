package production

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

// Shift names accepted on a log header.
var validShifts = map[string]bool{"DAY": true, "NIGHT": true, "A": true, "B": true, "C": true, "GENERAL": true}

// Service owns shift production logging.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateShift stores a complete shift log. Child rows with nothing in them
// are dropped; the header alone is enough to submit a shift.
func (s *Service) CreateShift(ctx context.Context, log ShiftLog) (int64, error) {
	if log.Header.ShiftDate.IsZero() {
		return 0, fmt.Errorf("%w: shift date required", ErrInvalidInput)
	}
	log.Header.Shift = strings.ToUpper(strings.TrimSpace(log.Header.Shift))
	if !validShifts[log.Header.Shift] {
		return 0, fmt.Errorf("%w: unknown shift %q", ErrInvalidInput, log.Header.Shift)
	}
	if strings.TrimSpace(log.Header.ShiftIncharge) == "" {
		return 0, fmt.Errorf("%w: shift incharge required", ErrInvalidInput)
	}

	log.Production = compactProduction(log.Production)
	log.Setups = compactSetups(log.Setups)
	log.Attendance = compactAttendance(log.Attendance)
	log.Downtime = compactDowntime(log.Downtime)

	id, err := s.repo.CreateShift(ctx, log)
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    log.Header.ShiftIncharge,
			Action:   "production:shift-log",
			Entity:   "shift",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"date": log.Header.ShiftDate.Format("2006-01-02"), "shift": log.Header.Shift},
		})
	}
	return id, nil
}

func compactProduction(rows []ProductionRow) []ProductionRow {
	var out []ProductionRow
	for _, r := range rows {
		if strings.TrimSpace(r.ItemCode) == "" && r.OkQty == 0 && r.RejQty == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

func compactSetups(rows []SetupRow) []SetupRow {
	var out []SetupRow
	for _, r := range rows {
		if strings.TrimSpace(r.Machine) == "" && strings.TrimSpace(r.JobName) == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func compactAttendance(rows []AttendanceRow) []AttendanceRow {
	var out []AttendanceRow
	for _, r := range rows {
		if strings.TrimSpace(r.Operator) == "" {
			continue
		}
		if r.Status == "" {
			r.Status = "PRESENT"
		}
		out = append(out, r)
	}
	return out
}

func compactDowntime(rows []DowntimeRow) []DowntimeRow {
	var out []DowntimeRow
	for _, r := range rows {
		if strings.TrimSpace(r.Machine) == "" && r.Minutes == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// List returns the shift register.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ShiftSummary, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one complete shift log.
func (s *Service) Get(ctx context.Context, id int64) (ShiftLog, error) {
	return s.repo.Get(ctx, id)
}
