package material

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	challans   map[int64]*Challan
	lines      map[int64]*InwardLine
	dispatches map[int64]*Dispatch
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		challans:   map[int64]*Challan{},
		lines:      map[int64]*InwardLine{},
		dispatches: map[int64]*Dispatch{},
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ListChallans(_ context.Context, filter ListFilter) ([]ChallanSummary, error) {
	var out []ChallanSummary
	for _, c := range m.challans {
		if filter.CustomerID != 0 && c.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		s := ChallanSummary{Challan: *c}
		for _, l := range m.lines {
			if l.ChallanID == c.ID {
				s.TotalInward += l.InwardQty
				s.TotalAvailable += l.AvailableQty
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) GetChallan(_ context.Context, id int64) (Challan, error) {
	c, ok := m.challans[id]
	if !ok {
		return Challan{}, ErrChallanNotFound
	}
	return *c, nil
}

func (m *memoryRepo) LinesByChallan(_ context.Context, challanID int64) ([]InwardLine, error) {
	var out []InwardLine
	for _, l := range m.lines {
		if l.ChallanID == challanID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memoryRepo) DispatchesByChallan(_ context.Context, challanID int64) ([]Dispatch, error) {
	var out []Dispatch
	for _, d := range m.dispatches {
		if d.ChallanID == challanID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryRepo) DispatchesByChallanNo(_ context.Context, no string) ([]Dispatch, error) {
	var out []Dispatch
	for _, d := range m.dispatches {
		if d.DispatchChallanNo == no {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetOrCreateChallan(_ context.Context, customerID int64, challanNo string, challanDate, remarks string) (Challan, error) {
	for _, c := range m.challans {
		if c.CustomerID == customerID && c.ChallanNo == challanNo {
			c.Status = StatusOpen
			return *c, nil
		}
	}
	c := Challan{ID: m.id(), CustomerID: customerID, ChallanNo: challanNo, Status: StatusOpen, Remarks: remarks}
	m.challans[c.ID] = &c
	return c, nil
}

func (m *memoryRepo) UpsertInwardLine(_ context.Context, line InwardLine) (InwardLine, error) {
	for _, l := range m.lines {
		if l.ChallanID == line.ChallanID && l.ItemCode == line.ItemCode && l.Process == line.Process {
			l.InwardQty += line.InwardQty
			l.AvailableQty += line.InwardQty
			return *l, nil
		}
	}
	line.ID = m.id()
	line.AvailableQty = line.InwardQty
	m.lines[line.ID] = &line
	return line, nil
}

func (m *memoryRepo) GetLine(_ context.Context, id int64) (InwardLine, error) {
	l, ok := m.lines[id]
	if !ok {
		return InwardLine{}, ErrLineNotFound
	}
	return *l, nil
}

func (m *memoryRepo) ApplyDeplete(_ context.Context, lineID int64, qty int) (bool, error) {
	l := m.lines[lineID]
	if l.AvailableQty < qty {
		return false, nil
	}
	l.AvailableQty -= qty
	return true, nil
}

func (m *memoryRepo) ApplyRestore(_ context.Context, lineID int64, qty int) (bool, error) {
	l := m.lines[lineID]
	if l.InwardQty-l.AvailableQty < qty {
		return false, nil
	}
	l.AvailableQty += qty
	return true, nil
}

func (m *memoryRepo) SetLineInward(_ context.Context, lineID int64, inwardQty, availableQty int) error {
	l := m.lines[lineID]
	l.InwardQty = inwardQty
	l.AvailableQty = availableQty
	return nil
}

func (m *memoryRepo) DeleteLine(_ context.Context, lineID int64) error {
	delete(m.lines, lineID)
	return nil
}

func (m *memoryRepo) CountDispatchesForLine(_ context.Context, lineID int64) (int, error) {
	n := 0
	for _, d := range m.dispatches {
		if d.InwardID == lineID {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) InsertDispatch(_ context.Context, d Dispatch) (int64, error) {
	d.ID = m.id()
	m.dispatches[d.ID] = &d
	return d.ID, nil
}

func (m *memoryRepo) GetDispatch(_ context.Context, id int64) (Dispatch, error) {
	d, ok := m.dispatches[id]
	if !ok {
		return Dispatch{}, ErrDispatchNotFound
	}
	return *d, nil
}

func (m *memoryRepo) UpdateDispatch(_ context.Context, d Dispatch) error {
	*m.dispatches[d.ID] = d
	return nil
}

func (m *memoryRepo) DeleteDispatch(_ context.Context, id int64) error {
	delete(m.dispatches, id)
	return nil
}

func (m *memoryRepo) RecomputeChallanStatus(_ context.Context, challanID int64) (string, error) {
	status := StatusClosed
	for _, l := range m.lines {
		if l.ChallanID == challanID && l.AvailableQty > 0 {
			status = StatusOpen
			break
		}
	}
	m.challans[challanID].Status = status
	return status, nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, nil), repo
}

func inwardOne(t *testing.T, svc *Service, qty int) (Challan, InwardLine) {
	t.Helper()
	challan, lines, err := svc.RecordInward(context.Background(), 1, "CH-100", "2026-08-01", "",
		[]InwardRow{{ItemCode: "PN-42", Process: "Turning", Qty: qty}})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	return challan, lines[0]
}

func TestInwardSkipsBlankRows(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, lines, err := svc.RecordInward(ctx, 1, "CH-1", "2026-08-01", "", []InwardRow{
		{ItemCode: "PN-1", Qty: 10},
		{ItemCode: "", Qty: 5},
		{ItemCode: "PN-2", Qty: 0},
		{ItemCode: "PN-3", Qty: -2},
	})
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Len(t, repo.lines, 1)

	// all rows unusable is an error, not an empty challan
	_, _, err = svc.RecordInward(ctx, 1, "CH-2", "2026-08-01", "", []InwardRow{{ItemCode: "", Qty: 3}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInwardAccumulatesByItemAndProcess(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, lines, err := svc.RecordInward(ctx, 1, "CH-1", "2026-08-01", "", []InwardRow{
		{ItemCode: "PN-1", Process: "Milling", Qty: 10},
	})
	require.NoError(t, err)

	// same challan number, same item and process: quantities merge
	_, lines2, err := svc.RecordInward(ctx, 1, "CH-1", "2026-08-02", "", []InwardRow{
		{ItemCode: "PN-1", Process: "Milling", Qty: 15},
	})
	require.NoError(t, err)
	assert.Equal(t, lines[0].ID, lines2[0].ID)
	assert.Equal(t, 25, lines2[0].InwardQty)
	assert.Equal(t, 25, lines2[0].AvailableQty)
}

func TestDispatchClosesChallanAndDeleteReopens(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	challan, line := inwardOne(t, svc, 20)
	assert.Equal(t, StatusOpen, challan.Status)

	d, err := svc.RecordDispatch(ctx, Dispatch{
		InwardID: line.ID, DispatchChallanNo: "OUT-7", OkQty: 18, RejQty: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, d.TotalQty)

	// everything dispatched, challan closes
	stored, _ := repo.GetChallan(ctx, challan.ID)
	assert.Equal(t, StatusClosed, stored.Status)

	// deleting the dispatch restores the balance and reopens
	require.NoError(t, svc.DeleteDispatch(ctx, d.ID))
	stored, _ = repo.GetChallan(ctx, challan.ID)
	assert.Equal(t, StatusOpen, stored.Status)
	gotLine, _ := repo.GetLine(ctx, line.ID)
	assert.Equal(t, 20, gotLine.AvailableQty)
}

func TestDispatchCannotExceedAvailable(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, line := inwardOne(t, svc, 10)

	_, err := svc.RecordDispatch(ctx, Dispatch{InwardID: line.ID, DispatchChallanNo: "OUT-1", OkQty: 11})
	require.ErrorIs(t, err, ErrExceedsAvailable)

	// the failed dispatch must leave the line untouched
	gotLine, _ := repo.GetLine(ctx, line.ID)
	assert.Equal(t, 10, gotLine.AvailableQty)
	assert.Empty(t, repo.dispatches)

	_, err = svc.RecordDispatch(ctx, Dispatch{InwardID: line.ID, DispatchChallanNo: "OUT-1"})
	require.ErrorIs(t, err, ErrEmptyDispatch)
}

func TestEditDispatchRevalidatesOnlyPositiveDelta(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, line := inwardOne(t, svc, 10)
	d, err := svc.RecordDispatch(ctx, Dispatch{InwardID: line.ID, DispatchChallanNo: "OUT-1", OkQty: 6})
	require.NoError(t, err)

	// growing by 5 needs 5 more than the 4 left
	grown := d
	grown.OkQty = 11
	err = svc.EditDispatch(ctx, grown)
	require.ErrorIs(t, err, ErrExceedsAvailable)

	// growing within the remainder works
	grown.OkQty = 10
	require.NoError(t, svc.EditDispatch(ctx, grown))
	gotLine, _ := repo.GetLine(ctx, line.ID)
	assert.Equal(t, 0, gotLine.AvailableQty)

	// shrinking always works and hands the difference back
	shrunk := grown
	shrunk.OkQty = 3
	require.NoError(t, svc.EditDispatch(ctx, shrunk))
	gotLine, _ = repo.GetLine(ctx, line.ID)
	assert.Equal(t, 7, gotLine.AvailableQty)
}

func TestEditInwardRespectsDispatchedQuantity(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, line := inwardOne(t, svc, 20)
	_, err := svc.RecordDispatch(ctx, Dispatch{InwardID: line.ID, DispatchChallanNo: "OUT-1", OkQty: 12})
	require.NoError(t, err)

	// cannot shrink below what is already gone
	err = svc.EditInward(ctx, line.ID, 10, "", "")
	require.ErrorIs(t, err, ErrExceedsAvailable)

	require.NoError(t, svc.EditInward(ctx, line.ID, 30, "", ""))
	gotLine, _ := repo.GetLine(ctx, line.ID)
	assert.Equal(t, 30, gotLine.InwardQty)
	assert.Equal(t, 18, gotLine.AvailableQty)
}

func TestDeleteInwardBlockedWhileDispatchesExist(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	challan, line := inwardOne(t, svc, 20)
	d, err := svc.RecordDispatch(ctx, Dispatch{InwardID: line.ID, DispatchChallanNo: "OUT-1", OkQty: 5})
	require.NoError(t, err)

	err = svc.DeleteInward(ctx, line.ID)
	require.ErrorIs(t, err, ErrLineInUse)

	require.NoError(t, svc.DeleteDispatch(ctx, d.ID))
	require.NoError(t, svc.DeleteInward(ctx, line.ID))
	assert.Empty(t, repo.lines)

	// with no lines left nothing is dispatchable, the challan closes
	stored, _ := repo.GetChallan(ctx, challan.ID)
	assert.Equal(t, StatusClosed, stored.Status)
}
