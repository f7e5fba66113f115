package complaints

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
	complaints map[int64]Complaint
	logs       []ActionLog
	nextID     int64
	nextLogID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{complaints: map[int64]Complaint{}, nextID: 1, nextLogID: 1}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Complaint, error) {
	var out []Complaint
	for _, c := range m.complaints {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Severity != "" && c.Severity != f.Severity {
			continue
		}
		if f.CustomerID != 0 && c.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Complaint, error) {
	c, ok := m.complaints[id]
	if !ok {
		return Complaint{}, ErrComplaintNotFound
	}
	return c, nil
}

func (m *memoryRepo) Logs(_ context.Context, complaintID int64) ([]ActionLog, error) {
	var out []ActionLog
	for _, l := range m.logs {
		if l.ComplaintID == complaintID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryRepo) NextSequence(_ context.Context, year int) (int, error) {
	prefix := "CC-" + strconv.Itoa(year) + "-"
	max := 0
	for _, c := range m.complaints {
		rest, ok := strings.CutPrefix(c.ComplaintNo, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (m *memoryRepo) Insert(_ context.Context, c Complaint) (Complaint, error) {
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.complaints[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, u Update) error {
	c, ok := m.complaints[id]
	if !ok {
		return ErrComplaintNotFound
	}
	c.Status = u.Status
	c.Severity = u.Severity
	c.AssignedTo = u.AssignedTo
	c.ContainmentAction = u.ContainmentAction
	c.RootCause5Why = u.RootCause5Why
	c.CorrectiveAction = u.CorrectiveAction
	c.PreventiveAction = u.PreventiveAction
	c.ClosureDate = u.ClosureDate
	c.ClosureRemarks = u.ClosureRemarks
	m.complaints[id] = c
	return nil
}

func (m *memoryRepo) InsertLog(_ context.Context, l ActionLog) (ActionLog, error) {
	l.ID = m.nextLogID
	m.nextLogID++
	m.logs = append(m.logs, l)
	return l, nil
}

func newTestService(repo *memoryRepo) *Service {
	s := NewService(repo, nil)
	s.now = func() time.Time { return time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func validComplaint() Complaint {
	return Complaint{
		CustomerID:       7,
		ItemCode:         "BRG-204",
		IssueCategory:    "DIMENSIONAL",
		IssueDescription: "Bore oversize on 12 pcs",
		Severity:         "HIGH",
	}
}

func TestRegisterMintsYearlyNumbers(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Register(ctx, validComplaint())
	require.NoError(t, err)
	assert.Equal(t, "CC-2026-001", first.ComplaintNo)
	assert.Equal(t, StatusOpen, first.Status)

	second, err := svc.Register(ctx, validComplaint())
	require.NoError(t, err)
	assert.Equal(t, "CC-2026-002", second.ComplaintNo)

	c := validComplaint()
	c.ComplaintDate = time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	prev, err := svc.Register(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "CC-2025-001", prev.ComplaintNo)
}

func TestRegisterWritesOpeningLog(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	created, err := svc.Register(context.Background(), validComplaint())
	require.NoError(t, err)

	logs, err := repo.Logs(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, LogNote, logs[0].ActionType)
	assert.Equal(t, "Complaint registered", logs[0].Notes)
}

func TestRegisterRejectsUnknownVocabulary(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	c := validComplaint()
	c.IssueCategory = "COSMIC"
	_, err := svc.Register(ctx, c)
	assert.ErrorIs(t, err, ErrInvalidVocab)

	c = validComplaint()
	c.Severity = "EXTREME"
	_, err = svc.Register(ctx, c)
	assert.ErrorIs(t, err, ErrInvalidVocab)

	c = validComplaint()
	c.IssueDescription = "   "
	_, err = svc.Register(ctx, c)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDefaultsSeverityToMed(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	c := validComplaint()
	c.Severity = ""
	created, err := svc.Register(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, SeverityMed, created.Severity)
}

func TestCloseRequiresClosureDate(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, validComplaint())
	require.NoError(t, err)

	_, err = svc.UpdateComplaint(ctx, created.ID, Update{Status: StatusClosed, Severity: "HIGH"})
	assert.ErrorIs(t, err, ErrClosureDate)

	updated, err := svc.UpdateComplaint(ctx, created.ID, Update{
		Status: StatusClosed, Severity: "HIGH", ClosureDate: "2026-05-20",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, updated.Status)
}

func TestStatusChangeLogsTransition(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, validComplaint())
	require.NoError(t, err)

	_, err = svc.UpdateComplaint(ctx, created.ID, Update{
		Status: StatusUnderInvestigation, Severity: "HIGH", By: "qa.lead",
	})
	require.NoError(t, err)

	logs, err := repo.Logs(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, LogRCA, logs[1].ActionType)
	assert.Equal(t, "Status changed from OPEN to UNDER_INVESTIGATION", logs[1].Notes)

	// Unchanged status should not add timeline noise.
	_, err = svc.UpdateComplaint(ctx, created.ID, Update{
		Status: StatusUnderInvestigation, Severity: "HIGH",
	})
	require.NoError(t, err)
	logs, _ = repo.Logs(ctx, created.ID)
	assert.Len(t, logs, 2)
}

func TestAddLogValidatesType(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, validComplaint())
	require.NoError(t, err)

	_, err = svc.AddLog(ctx, created.ID, "GOSSIP", "heard something", "qa")
	assert.ErrorIs(t, err, ErrInvalidVocab)

	_, err = svc.AddLog(ctx, created.ID, "containment", "100% inspection on WIP lot", "qa")
	require.NoError(t, err)

	_, err = svc.AddLog(ctx, 999, LogNote, "orphan", "qa")
	assert.ErrorIs(t, err, ErrComplaintNotFound)
}

func TestDetailReturnsTimeline(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, validComplaint())
	require.NoError(t, err)
	_, err = svc.AddLog(ctx, created.ID, LogCAPA, "Fixture rework completed", "maint")
	require.NoError(t, err)

	c, logs, err := svc.Detail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ComplaintNo, c.ComplaintNo)
	assert.Len(t, logs, 2)
}
