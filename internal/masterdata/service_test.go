package masterdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	customers map[int64]Customer
	itemCodes map[int64]ItemCode
	docs      map[int64]Doc
	nextID    int64
	nextDocID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		customers: map[int64]Customer{},
		itemCodes: map[int64]ItemCode{},
		docs:      map[int64]Doc{},
		nextID:    1,
		nextDocID: 1,
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) InsertCustomer(_ context.Context, c Customer) (Customer, error) {
	for _, existing := range m.customers {
		if existing.CustomerName == c.CustomerName {
			return Customer{}, ErrDuplicateCustomer
		}
	}
	c.ID = m.nextID
	m.nextID++
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) ListCustomers(context.Context) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) InsertItemCode(_ context.Context, ic ItemCode) (ItemCode, error) {
	for _, existing := range m.itemCodes {
		if existing.ItemCode == ic.ItemCode {
			return ItemCode{}, ErrDuplicateItemCode
		}
	}
	ic.ID = m.nextID
	m.nextID++
	m.itemCodes[ic.ID] = ic
	return ic, nil
}

func (m *memoryRepo) UpdateItemCode(_ context.Context, ic ItemCode) error {
	if _, ok := m.itemCodes[ic.ID]; !ok {
		return ErrItemCodeNotFound
	}
	m.itemCodes[ic.ID] = ic
	return nil
}

func (m *memoryRepo) ListItemCodes(context.Context) ([]ItemCode, error) {
	var out []ItemCode
	for _, ic := range m.itemCodes {
		out = append(out, ic)
	}
	return out, nil
}

func (m *memoryRepo) GetItemCode(_ context.Context, id int64) (ItemCode, error) {
	ic, ok := m.itemCodes[id]
	if !ok {
		return ItemCode{}, ErrItemCodeNotFound
	}
	return ic, nil
}

func (m *memoryRepo) ListDocs(_ context.Context, itemCodeID int64) ([]Doc, error) {
	var out []Doc
	for _, d := range m.docs {
		if d.ItemCodeID == itemCodeID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetDoc(_ context.Context, id int64) (Doc, error) {
	d, ok := m.docs[id]
	if !ok {
		return Doc{}, ErrDocNotFound
	}
	return d, nil
}

func (m *memoryRepo) DeleteDoc(_ context.Context, id int64) error {
	if _, ok := m.docs[id]; !ok {
		return ErrDocNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memoryRepo) RetireCurrent(_ context.Context, itemCodeID int64, category string) error {
	for id, d := range m.docs {
		if d.ItemCodeID == itemCodeID && d.DocCategory == category {
			d.IsCurrent = false
			m.docs[id] = d
		}
	}
	return nil
}

func (m *memoryRepo) NextVersion(_ context.Context, itemCodeID int64, category string) (int, error) {
	max := 0
	for _, d := range m.docs {
		if d.ItemCodeID == itemCodeID && d.DocCategory == category && d.VersionNo > max {
			max = d.VersionNo
		}
	}
	return max + 1, nil
}

func (m *memoryRepo) InsertDoc(_ context.Context, d Doc) (Doc, error) {
	d.ID = m.nextDocID
	m.nextDocID++
	d.IsCurrent = true
	d.UploadedAt = time.Now()
	m.docs[d.ID] = d
	return d, nil
}

func TestAddCustomerRejectsDuplicateName(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, t.TempDir(), 1<<20)
	ctx := context.Background()

	_, err := svc.AddCustomer(ctx, Customer{CustomerName: "Precision Forgings", ShortCode: "pf"})
	require.NoError(t, err)

	_, err = svc.AddCustomer(ctx, Customer{CustomerName: "Precision Forgings"})
	assert.ErrorIs(t, err, ErrDuplicateCustomer)

	_, err = svc.AddCustomer(ctx, Customer{CustomerName: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestItemCodeUppercased(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, t.TempDir(), 1<<20)

	created, err := svc.AddItemCode(context.Background(), ItemCode{ItemCode: " brg-204 ", Description: "Bearing race"})
	require.NoError(t, err)
	assert.Equal(t, "BRG-204", created.ItemCode)

	_, err = svc.AddItemCode(context.Background(), ItemCode{ItemCode: "brg-204"})
	assert.ErrorIs(t, err, ErrDuplicateItemCode)
}

func TestUploadDocVersionsPerCategory(t *testing.T) {
	repo := newMemoryRepo()
	dir := t.TempDir()
	svc := NewService(repo, dir, 1<<20)
	ctx := context.Background()

	ic, err := svc.AddItemCode(ctx, ItemCode{ItemCode: "BRG-204"})
	require.NoError(t, err)

	first, err := svc.UploadDoc(ctx, ic.ID, "DRAWING", "rev-a.pdf", "", strings.NewReader("rev a"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.VersionNo)
	assert.True(t, first.IsCurrent)

	second, err := svc.UploadDoc(ctx, ic.ID, "drawing", "rev-b.pdf", "", strings.NewReader("rev b"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.VersionNo)
	assert.True(t, second.IsCurrent)

	// A different category keeps its own numbering.
	ppap, err := svc.UploadDoc(ctx, ic.ID, "PPAP", "ppap.xlsx", "", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, ppap.VersionNo)

	_, docs, err := svc.ItemCodeDocs(ctx, ic.ID)
	require.NoError(t, err)
	current := 0
	for _, d := range docs {
		if d.DocCategory == "DRAWING" && d.IsCurrent {
			current++
		}
	}
	assert.Equal(t, 1, current)

	// Stored names are uuids, not the original filename.
	assert.NotEqual(t, "rev-a.pdf", first.StoredName)
	assert.True(t, strings.HasSuffix(first.StoredName, ".pdf"))
	_, err = os.Stat(filepath.Join(dir, first.StoredName))
	assert.NoError(t, err)
}

func TestUploadDocRejectsBadInput(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, t.TempDir(), 1<<20)
	ctx := context.Background()

	ic, err := svc.AddItemCode(ctx, ItemCode{ItemCode: "BRG-204"})
	require.NoError(t, err)

	_, err = svc.UploadDoc(ctx, ic.ID, "DRAWING", "malware.exe", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrBadExtension)

	_, err = svc.UploadDoc(ctx, ic.ID, "SELFIES", "pic.png", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadDoc(ctx, 999, "DRAWING", "rev-a.pdf", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrItemCodeNotFound)
}

func TestDeleteDocRemovesFile(t *testing.T) {
	repo := newMemoryRepo()
	dir := t.TempDir()
	svc := NewService(repo, dir, 1<<20)
	ctx := context.Background()

	ic, err := svc.AddItemCode(ctx, ItemCode{ItemCode: "BRG-204"})
	require.NoError(t, err)
	doc, err := svc.UploadDoc(ctx, ic.ID, "DRAWING", "rev-a.pdf", "", strings.NewReader("rev a"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDoc(ctx, doc.ID))
	_, err = os.Stat(filepath.Join(dir, doc.StoredName))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, svc.DeleteDoc(ctx, doc.ID), ErrDocNotFound)
}
