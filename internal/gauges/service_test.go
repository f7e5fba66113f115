package gauges

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	gauges       map[int64]*Gauge
	issues       []IssueTxn
	calibrations []CalibrationTxn
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{gauges: map[int64]*Gauge{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Gauge, error) {
	var out []Gauge
	for _, g := range m.gauges {
		if filter.Category != "" && g.Category != filter.Category {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Gauge, error) {
	g, ok := m.gauges[id]
	if !ok {
		return Gauge{}, ErrGaugeNotFound
	}
	return *g, nil
}

func (m *memoryRepo) GetByCode(_ context.Context, code string) (Gauge, error) {
	for _, g := range m.gauges {
		if g.Code == code {
			return *g, nil
		}
	}
	return Gauge{}, ErrGaugeNotFound
}

func (m *memoryRepo) UpdateStatuses(_ context.Context, updates map[int64]Status) error {
	for id, status := range updates {
		m.gauges[id].Status = status
	}
	return nil
}

func (m *memoryRepo) IssueHistory(_ context.Context, gaugeID int64) ([]IssueTxn, error) {
	var out []IssueTxn
	for _, t := range m.issues {
		if t.GaugeID == gaugeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryRepo) CalibrationHistory(_ context.Context, gaugeID int64) ([]CalibrationTxn, error) {
	var out []CalibrationTxn
	for _, t := range m.calibrations {
		if t.GaugeID == gaugeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryRepo) NextSequence(_ context.Context, prefix string) (int, error) {
	max := 0
	for _, g := range m.gauges {
		rest, ok := strings.CutPrefix(g.Code, prefix+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (m *memoryRepo) Insert(_ context.Context, g Gauge) (int64, error) {
	m.nextID++
	g.ID = m.nextID
	m.gauges[g.ID] = &g
	return g.ID, nil
}

func (m *memoryRepo) SetStatus(_ context.Context, id int64, status Status) error {
	m.gauges[id].Status = status
	return nil
}

func (m *memoryRepo) SetCalibration(_ context.Context, id int64, g Gauge) error {
	stored := m.gauges[id]
	stored.LastCalibration = g.LastCalibration
	stored.NextCalibration = g.NextCalibration
	stored.Status = g.Status
	return nil
}

func (m *memoryRepo) InsertIssueTxn(_ context.Context, txn IssueTxn) error {
	m.issues = append(m.issues, txn)
	return nil
}

func (m *memoryRepo) InsertCalibrationTxn(_ context.Context, txn CalibrationTxn) error {
	m.calibrations = append(m.calibrations, txn)
	return nil
}

func newTestService(now time.Time) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRegisterAssignsSequentialCodes(t *testing.T) {
	svc, _ := newTestService(day("2026-01-10"))
	ctx := context.Background()

	first, err := svc.Register(ctx, Gauge{Category: "Micrometer", CalibrationFreq: 365})
	require.NoError(t, err)
	assert.Equal(t, "MIC-001", first.Code)

	second, err := svc.Register(ctx, Gauge{Category: "Micrometer"})
	require.NoError(t, err)
	assert.Equal(t, "MIC-002", second.Code)

	caliper, err := svc.Register(ctx, Gauge{Category: "Vernier Caliper"})
	require.NoError(t, err)
	assert.Equal(t, "VER-001", caliper.Code)

	// unknown categories get the catch-all prefix
	odd, err := svc.Register(ctx, Gauge{Category: "Granite Surface Plate"})
	require.NoError(t, err)
	assert.Equal(t, "CUS-001", odd.Code)
}

func TestStatusWindows(t *testing.T) {
	g := Gauge{Status: StatusOK, NextCalibration: day("2026-03-01")}

	assert.Equal(t, StatusOK, g.DeriveStatus(day("2026-01-15")))
	// exactly 30 days out is already DUE
	assert.Equal(t, StatusDue, g.DeriveStatus(day("2026-01-30")))
	assert.Equal(t, StatusDue, g.DeriveStatus(day("2026-03-01")))
	assert.Equal(t, StatusOverdue, g.DeriveStatus(day("2026-03-02")))

	damaged := Gauge{Status: StatusDamaged, NextCalibration: day("2026-03-01")}
	assert.Equal(t, StatusDamaged, damaged.DeriveStatus(day("2026-01-15")))
}

func TestIssueBlockedWhenOverdueOrDamaged(t *testing.T) {
	svc, repo := newTestService(day("2026-06-01"))
	ctx := context.Background()

	g, err := svc.Register(ctx, Gauge{Category: "Bore Gauge", CalibrationFreq: 30, LastCalibration: day("2026-01-01")})
	require.NoError(t, err)

	// next calibration was 2026-01-31, long past
	err = svc.Issue(ctx, g.ID, IssueTxn{Operator: "ravi"})
	require.ErrorIs(t, err, ErrNotIssuable)
	assert.Empty(t, repo.issues)

	// a passed calibration brings it back into service
	require.NoError(t, svc.Calibrate(ctx, g.ID, CalibrationTxn{CalibratedBy: "lab", Result: ResultPass, CalibrationDate: day("2026-05-30")}))
	require.NoError(t, svc.Issue(ctx, g.ID, IssueTxn{Operator: "ravi"}))
	assert.Len(t, repo.issues, 1)
}

func TestIssueErrorReportsDerivedStatus(t *testing.T) {
	svc, repo := newTestService(day("2026-06-01"))
	ctx := context.Background()

	g, err := svc.Register(ctx, Gauge{Category: "Bore Gauge", CalibrationFreq: 30, LastCalibration: day("2026-01-01")})
	require.NoError(t, err)

	// the stored row still says OK; the message must reflect the rolled-over status
	repo.gauges[g.ID].Status = StatusOK
	err = svc.Issue(ctx, g.ID, IssueTxn{Operator: "ravi"})
	require.ErrorIs(t, err, ErrNotIssuable)
	assert.ErrorContains(t, err, string(StatusOverdue))
}

func TestDamagedReturnIsSticky(t *testing.T) {
	svc, repo := newTestService(day("2026-02-01"))
	ctx := context.Background()

	g, err := svc.Register(ctx, Gauge{Category: "Plain Plug Gauge", CalibrationFreq: 365, LastCalibration: day("2026-01-15")})
	require.NoError(t, err)

	require.NoError(t, svc.Issue(ctx, g.ID, IssueTxn{Operator: "amit"}))
	require.NoError(t, svc.Return(ctx, g.ID, IssueTxn{Operator: "amit", ConditionOnReturn: ReturnConditionDamaged}))

	stored, _ := repo.Get(ctx, g.ID)
	assert.Equal(t, StatusDamaged, stored.Status)

	// damaged outlives any status refresh
	_, err = svc.RefreshStatuses(ctx)
	require.NoError(t, err)
	stored, _ = repo.Get(ctx, g.ID)
	assert.Equal(t, StatusDamaged, stored.Status)

	err = svc.Issue(ctx, g.ID, IssueTxn{Operator: "amit"})
	require.ErrorIs(t, err, ErrNotIssuable)

	// only a PASS clears it
	require.NoError(t, svc.Calibrate(ctx, g.ID, CalibrationTxn{CalibratedBy: "lab", Result: ResultPass}))
	stored, _ = repo.Get(ctx, g.ID)
	assert.Equal(t, StatusOK, stored.Status)
}

func TestFailedCalibrationMarksDamaged(t *testing.T) {
	svc, repo := newTestService(day("2026-02-01"))
	ctx := context.Background()

	g, err := svc.Register(ctx, Gauge{Category: "Thread Plug Gauge", CalibrationFreq: 180, LastCalibration: day("2026-01-01")})
	require.NoError(t, err)
	before, _ := repo.Get(ctx, g.ID)

	require.NoError(t, svc.Calibrate(ctx, g.ID, CalibrationTxn{CalibratedBy: "lab", Result: ResultFail}))

	after, _ := repo.Get(ctx, g.ID)
	assert.Equal(t, StatusDamaged, after.Status)
	// a failed calibration must not advance the schedule
	assert.Equal(t, before.NextCalibration, after.NextCalibration)

	err = svc.Calibrate(ctx, g.ID, CalibrationTxn{CalibratedBy: "lab", Result: "MAYBE"})
	require.ErrorIs(t, err, ErrInvalidResult)
}

func TestListPersistsDerivedStatuses(t *testing.T) {
	svc, repo := newTestService(day("2026-01-01"))
	ctx := context.Background()

	g, err := svc.Register(ctx, Gauge{Category: "Dial Indicator", CalibrationFreq: 90, LastCalibration: day("2025-12-20")})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, g.Status)

	// jump past the due window
	svc.now = func() time.Time { return day("2026-03-01") }
	listed, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, StatusDue, listed[0].Status)

	stored, _ := repo.Get(ctx, g.ID)
	assert.Equal(t, StatusDue, stored.Status)
}
