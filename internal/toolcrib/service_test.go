package toolcrib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo keeps everything in maps and implements both RepositoryPort and
// TxRepository. WithTx runs the callback directly; rollback behaviour is not
// modelled because the service never mutates after a failed guard.
type memoryRepo struct {
	tools   map[int64]*Tool
	holders map[int64]*Holder
	inserts map[int64]*Insert
	collets map[int64]*Collet

	toolTxns   []Txn
	holderTxns []Txn
	insertTxns []Txn
	colletTxns []Txn

	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		tools:   map[int64]*Tool{},
		holders: map[int64]*Holder{},
		inserts: map[int64]*Insert{},
		collets: map[int64]*Collet{},
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) UpsertTool(_ context.Context, t Tool) (Tool, error) {
	for _, existing := range m.tools {
		if existing.ToolType == t.ToolType && existing.CuttingDiameter == t.CuttingDiameter &&
			existing.ShankDiameter == t.ShankDiameter && existing.Material == t.Material {
			existing.TotalQty += t.TotalQty
			existing.ReorderLevel = t.ReorderLevel
			return *existing, nil
		}
	}
	t.ID = m.id()
	m.tools[t.ID] = &t
	return t, nil
}

func (m *memoryRepo) UpsertHolder(_ context.Context, h Holder) (Holder, error) {
	for _, existing := range m.holders {
		if existing.HolderType == h.HolderType && existing.Interface == h.Interface && existing.Size == h.Size {
			existing.TotalQty += h.TotalQty
			return *existing, nil
		}
	}
	h.ID = m.id()
	m.holders[h.ID] = &h
	return h, nil
}

func (m *memoryRepo) UpsertInsert(_ context.Context, ins Insert) (Insert, error) {
	for _, existing := range m.inserts {
		if existing.InsertType == ins.InsertType && existing.Size == ins.Size && existing.Grade == ins.Grade {
			existing.TotalQty += ins.TotalQty
			existing.AvailableQty += ins.TotalQty
			return *existing, nil
		}
	}
	ins.ID = m.id()
	ins.AvailableQty = ins.TotalQty
	m.inserts[ins.ID] = &ins
	return ins, nil
}

func (m *memoryRepo) UpsertCollet(_ context.Context, c Collet) (Collet, error) {
	for _, existing := range m.collets {
		if existing.ColletType == c.ColletType && existing.SizeRange == c.SizeRange {
			existing.TotalQty += c.TotalQty
			existing.AvailableQty += c.TotalQty
			return *existing, nil
		}
	}
	c.ID = m.id()
	c.AvailableQty = c.TotalQty
	m.collets[c.ID] = &c
	return c, nil
}

func (m *memoryRepo) ListTools(context.Context) ([]Tool, error) {
	var out []Tool
	for _, t := range m.tools {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memoryRepo) ListHolders(context.Context) ([]Holder, error) {
	var out []Holder
	for _, h := range m.holders {
		out = append(out, *h)
	}
	return out, nil
}

func (m *memoryRepo) ListInserts(context.Context) ([]Insert, error) {
	var out []Insert
	for _, ins := range m.inserts {
		out = append(out, *ins)
	}
	return out, nil
}

func (m *memoryRepo) ListCollets(context.Context) ([]Collet, error) {
	var out []Collet
	for _, c := range m.collets {
		out = append(out, *c)
	}
	return out, nil
}

func filterTxns(txns []Txn, filter HistoryFilter) []LedgerEntry {
	var out []LedgerEntry
	for _, txn := range txns {
		if filter.ItemID != 0 && txn.ItemID != filter.ItemID {
			continue
		}
		if filter.Action != "" && txn.Action != filter.Action {
			continue
		}
		out = append(out, LedgerEntry{Action: txn.Action, Qty: txn.Qty, EdgesUsed: txn.EdgesUsed,
			Operator: txn.Operator, Condition: txn.Condition, TxnDate: txn.TxnDate})
	}
	return out
}

func (m *memoryRepo) ToolHistory(_ context.Context, f HistoryFilter) ([]LedgerEntry, error) {
	return filterTxns(m.toolTxns, f), nil
}

func (m *memoryRepo) HolderHistory(_ context.Context, f HistoryFilter) ([]LedgerEntry, error) {
	return filterTxns(m.holderTxns, f), nil
}

func (m *memoryRepo) InsertHistory(_ context.Context, f HistoryFilter) ([]LedgerEntry, error) {
	return filterTxns(m.insertTxns, f), nil
}

func (m *memoryRepo) ColletHistory(_ context.Context, f HistoryFilter) ([]LedgerEntry, error) {
	return filterTxns(m.colletTxns, f), nil
}

func (m *memoryRepo) CountBelowReorder(context.Context) ([]ReorderAlert, error) {
	var alerts []ReorderAlert
	count := 0
	for _, t := range m.tools {
		if t.ReorderLevel > 0 && t.Available() <= t.ReorderLevel {
			count++
		}
	}
	alerts = append(alerts, ReorderAlert{Kind: "tools", Count: count})
	return alerts, nil
}

func (m *memoryRepo) GetTool(_ context.Context, id int64) (Tool, error) {
	t, ok := m.tools[id]
	if !ok {
		return Tool{}, ErrItemNotFound
	}
	return *t, nil
}

func (m *memoryRepo) ApplyToolIssue(_ context.Context, id int64, qty int) (bool, error) {
	t := m.tools[id]
	if t.Available() < qty {
		return false, nil
	}
	t.IssuedQty += qty
	return true, nil
}

func (m *memoryRepo) ApplyToolReturn(_ context.Context, id int64, qty int, broken bool) (bool, error) {
	t := m.tools[id]
	if t.IssuedQty < qty {
		return false, nil
	}
	t.IssuedQty -= qty
	if broken {
		t.BrokenQty += qty
	}
	return true, nil
}

func (m *memoryRepo) InsertToolTxn(_ context.Context, txn Txn) error {
	m.toolTxns = append(m.toolTxns, txn)
	return nil
}

func (m *memoryRepo) GetHolder(_ context.Context, id int64) (Holder, error) {
	h, ok := m.holders[id]
	if !ok {
		return Holder{}, ErrItemNotFound
	}
	return *h, nil
}

func (m *memoryRepo) ApplyHolderIssue(_ context.Context, id int64, qty int) (bool, error) {
	h := m.holders[id]
	if h.Available() < qty {
		return false, nil
	}
	h.IssuedQty += qty
	return true, nil
}

func (m *memoryRepo) ApplyHolderReturn(_ context.Context, id int64, qty int) (bool, error) {
	h := m.holders[id]
	if h.IssuedQty < qty {
		return false, nil
	}
	h.IssuedQty -= qty
	return true, nil
}

func (m *memoryRepo) InsertHolderTxn(_ context.Context, txn Txn) error {
	m.holderTxns = append(m.holderTxns, txn)
	return nil
}

func (m *memoryRepo) GetInsert(_ context.Context, id int64) (Insert, error) {
	ins, ok := m.inserts[id]
	if !ok {
		return Insert{}, ErrItemNotFound
	}
	return *ins, nil
}

func (m *memoryRepo) ApplyInsertConsume(_ context.Context, id int64, qty int) (bool, error) {
	ins := m.inserts[id]
	if ins.AvailableQty < qty {
		return false, nil
	}
	ins.AvailableQty -= qty
	return true, nil
}

func (m *memoryRepo) InsertInsertTxn(_ context.Context, txn Txn) error {
	m.insertTxns = append(m.insertTxns, txn)
	return nil
}

func (m *memoryRepo) GetCollet(_ context.Context, id int64) (Collet, error) {
	c, ok := m.collets[id]
	if !ok {
		return Collet{}, ErrItemNotFound
	}
	return *c, nil
}

func (m *memoryRepo) ApplyColletIssue(_ context.Context, id int64, qty int) (bool, error) {
	c := m.collets[id]
	if c.AvailableQty < qty {
		return false, nil
	}
	c.AvailableQty -= qty
	return true, nil
}

func (m *memoryRepo) ApplyColletReturn(_ context.Context, id int64, qty int) (bool, error) {
	c := m.collets[id]
	if c.TotalQty-c.AvailableQty < qty {
		return false, nil
	}
	c.AvailableQty += qty
	return true, nil
}

func (m *memoryRepo) InsertColletTxn(_ context.Context, txn Txn) error {
	m.colletTxns = append(m.colletTxns, txn)
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, nil), repo
}

func TestToolIssueReturnLifecycle(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	tool, err := svc.AddTool(ctx, Tool{ToolType: "Endmill", CuttingDiameter: 10, TotalQty: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, tool.Available())

	require.NoError(t, svc.IssueTool(ctx, tool.ID, 7, MoveContext{Operator: "ravi"}))

	got, _ := repo.GetTool(ctx, tool.ID)
	assert.Equal(t, 3, got.Available())
	assert.Equal(t, 7, got.IssuedQty)

	// not enough left for another five
	err = svc.IssueTool(ctx, tool.ID, 5, MoveContext{Operator: "ravi"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// failed issue must not move any counter or write a ledger record
	got, _ = repo.GetTool(ctx, tool.ID)
	assert.Equal(t, 3, got.Available())
	assert.Len(t, repo.toolTxns, 1)

	// everything issued comes back broken
	require.NoError(t, svc.ReturnTool(ctx, tool.ID, 7, ConditionBroken, MoveContext{Operator: "ravi"}))

	got, _ = repo.GetTool(ctx, tool.ID)
	assert.Equal(t, 0, got.IssuedQty)
	assert.Equal(t, 7, got.BrokenQty)
	assert.Equal(t, 3, got.Available())
}

func TestToolReturnValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tool, err := svc.AddTool(ctx, Tool{ToolType: "Drill", TotalQty: 5})
	require.NoError(t, err)

	err = svc.ReturnTool(ctx, tool.ID, 1, Condition("Melted"), MoveContext{})
	require.ErrorIs(t, err, ErrInvalidCondition)

	// nothing issued yet, return must be rejected
	err = svc.ReturnTool(ctx, tool.ID, 1, ConditionGood, MoveContext{})
	require.ErrorIs(t, err, ErrReturnExceedsIssued)

	err = svc.IssueTool(ctx, tool.ID, 0, MoveContext{})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = svc.IssueTool(ctx, 999, 1, MoveContext{})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestToolUpsertMergesByNaturalKey(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.AddTool(ctx, Tool{ToolType: "Endmill", CuttingDiameter: 8, Material: "Carbide", TotalQty: 4})
	require.NoError(t, err)

	second, err := svc.AddTool(ctx, Tool{ToolType: "Endmill", CuttingDiameter: 8, Material: "Carbide", TotalQty: 6})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 10, second.TotalQty)
}

func TestRegrindRestoresAvailability(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	tool, err := svc.AddTool(ctx, Tool{ToolType: "Reamer", TotalQty: 6})
	require.NoError(t, err)
	require.NoError(t, svc.IssueTool(ctx, tool.ID, 4, MoveContext{Operator: "amit"}))

	require.NoError(t, svc.RegrindTool(ctx, tool.ID, 4, MoveContext{Operator: "amit"}))

	got, _ := repo.GetTool(ctx, tool.ID)
	assert.Equal(t, 6, got.Available())
	assert.Equal(t, 0, got.BrokenQty)

	entries, _ := svc.ToolHistory(ctx, HistoryFilter{Action: ActionRegrind})
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Qty)
}

func TestHolderIssueReturn(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	holder, err := svc.AddHolder(ctx, Holder{HolderType: "BT40", Size: "ER32", TotalQty: 3})
	require.NoError(t, err)

	require.NoError(t, svc.IssueHolder(ctx, holder.ID, 2, MoveContext{Operator: "sunil"}))
	err = svc.IssueHolder(ctx, holder.ID, 2, MoveContext{Operator: "sunil"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, svc.ReturnHolder(ctx, holder.ID, 2, MoveContext{Operator: "sunil"}))
	got, _ := repo.GetHolder(ctx, holder.ID)
	assert.Equal(t, 3, got.Available())
}

func TestInsertConsumeAndEdgeUse(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	ins, err := svc.AddInsert(ctx, Insert{InsertType: "CNMG", Size: "120408", Grade: "P25", Edges: 4, TotalQty: 20})
	require.NoError(t, err)
	assert.Equal(t, 20, ins.AvailableQty)

	require.NoError(t, svc.IssueInsert(ctx, ins.ID, 12, MoveContext{Operator: "kiran"}))
	require.NoError(t, svc.ScrapInsert(ctx, ins.ID, 5, MoveContext{Operator: "kiran"}))

	got, _ := repo.GetInsert(ctx, ins.ID)
	assert.Equal(t, 3, got.AvailableQty)

	err = svc.IssueInsert(ctx, ins.ID, 4, MoveContext{Operator: "kiran"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// edge use is a log-only event, availability stays put
	require.NoError(t, svc.RecordEdgeUse(ctx, ins.ID, 2, MoveContext{Operator: "kiran"}))
	got, _ = repo.GetInsert(ctx, ins.ID)
	assert.Equal(t, 3, got.AvailableQty)

	entries, _ := svc.InsertHistory(ctx, HistoryFilter{Action: ActionEdgeUsed})
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].EdgesUsed)
}

func TestColletReturnCannotExceedIssued(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	collet, err := svc.AddCollet(ctx, Collet{ColletType: "ER32", SizeRange: "6-7", TotalQty: 4})
	require.NoError(t, err)

	require.NoError(t, svc.IssueCollet(ctx, collet.ID, 3, MoveContext{Operator: "deepak"}))
	require.NoError(t, svc.ReturnCollet(ctx, collet.ID, 2, MoveContext{Operator: "deepak"}))

	err = svc.ReturnCollet(ctx, collet.ID, 2, MoveContext{Operator: "deepak"})
	require.ErrorIs(t, err, ErrReturnExceedsIssued)

	got, _ := repo.GetCollet(ctx, collet.ID)
	assert.Equal(t, 3, got.AvailableQty)
}
