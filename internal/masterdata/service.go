package masterdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Service owns customers, item codes and their document attachments.
// Uploaded files live under dir with uuid names; the original filename is
// kept only in the database.
type Service struct {
	repo     RepositoryPort
	dir      string
	maxBytes int64
}

func NewService(repo RepositoryPort, uploadDir string, maxBytes int64) *Service {
	return &Service{repo: repo, dir: uploadDir, maxBytes: maxBytes}
}

// MaxUploadBytes is the request body cap for document uploads.
func (s *Service) MaxUploadBytes() int64 { return s.maxBytes }

func (s *Service) AddCustomer(ctx context.Context, c Customer) (Customer, error) {
	c.CustomerName = strings.TrimSpace(c.CustomerName)
	c.ShortCode = strings.ToUpper(strings.TrimSpace(c.ShortCode))
	if c.CustomerName == "" {
		return Customer{}, fmt.Errorf("%w: customer name required", ErrInvalidInput)
	}
	return s.repo.InsertCustomer(ctx, c)
}

func (s *Service) Customers(ctx context.Context) ([]Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) AddItemCode(ctx context.Context, ic ItemCode) (ItemCode, error) {
	ic.ItemCode = strings.ToUpper(strings.TrimSpace(ic.ItemCode))
	if ic.ItemCode == "" {
		return ItemCode{}, fmt.Errorf("%w: item code required", ErrInvalidInput)
	}
	return s.repo.InsertItemCode(ctx, ic)
}

func (s *Service) EditItemCode(ctx context.Context, ic ItemCode) error {
	ic.ItemCode = strings.ToUpper(strings.TrimSpace(ic.ItemCode))
	if ic.ItemCode == "" {
		return fmt.Errorf("%w: item code required", ErrInvalidInput)
	}
	return s.repo.UpdateItemCode(ctx, ic)
}

func (s *Service) ItemCodes(ctx context.Context) ([]ItemCode, error) {
	return s.repo.ListItemCodes(ctx)
}

func (s *Service) ItemCodeDocs(ctx context.Context, itemCodeID int64) (ItemCode, []Doc, error) {
	ic, err := s.repo.GetItemCode(ctx, itemCodeID)
	if err != nil {
		return ItemCode{}, nil, err
	}
	docs, err := s.repo.ListDocs(ctx, itemCodeID)
	if err != nil {
		return ItemCode{}, nil, err
	}
	return ic, docs, nil
}

// UploadDoc stores the file and records it as the new current version of its
// category. The file is written first; if the database transaction fails the
// orphan on disk is removed.
func (s *Service) UploadDoc(ctx context.Context, itemCodeID int64, category, filename, notes string, src io.Reader) (Doc, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	if !ValidDocCategories[category] {
		return Doc{}, fmt.Errorf("%w: unknown document category %q", ErrInvalidInput, category)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return Doc{}, fmt.Errorf("%w: %s", ErrBadExtension, ext)
	}

	stored := uuid.NewString() + ext
	path := filepath.Join(s.dir, stored)
	if err := s.writeFile(path, src); err != nil {
		return Doc{}, err
	}

	var doc Doc
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetItemCode(ctx, itemCodeID); err != nil {
			return err
		}
		if err := tx.RetireCurrent(ctx, itemCodeID, category); err != nil {
			return err
		}
		version, err := tx.NextVersion(ctx, itemCodeID, category)
		if err != nil {
			return err
		}
		doc, err = tx.InsertDoc(ctx, Doc{
			ItemCodeID:  itemCodeID,
			DocName:     filepath.Base(filename),
			StoredName:  stored,
			DocCategory: category,
			VersionNo:   version,
			Notes:       notes,
		})
		return err
	})
	if err != nil {
		_ = os.Remove(path)
		return Doc{}, err
	}
	return doc, nil
}

func (s *Service) writeFile(path string, src io.Reader) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, s.maxBytes)); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}

// DocPath resolves a document to its on-disk path for download.
func (s *Service) DocPath(ctx context.Context, id int64) (Doc, string, error) {
	doc, err := s.repo.GetDoc(ctx, id)
	if err != nil {
		return Doc{}, "", err
	}
	return doc, filepath.Join(s.dir, doc.StoredName), nil
}

// DeleteDoc removes the record; the stored file is removed best-effort.
func (s *Service) DeleteDoc(ctx context.Context, id int64) error {
	doc, err := s.repo.GetDoc(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDoc(ctx, id); err != nil {
		return err
	}
	_ = os.Remove(filepath.Join(s.dir, doc.StoredName))
	return nil
}
