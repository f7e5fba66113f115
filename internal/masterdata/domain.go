package masterdata

import (
	"errors"
	"time"
)

// Customer is one row of the customer master.
type Customer struct {
	ID           int64
	CustomerName string
	ShortCode    string
	Remarks      string
}

// ItemCode is one part number in the item code master.
type ItemCode struct {
	ID          int64
	ItemCode    string
	Description string
	Remarks     string
}

// Doc is one stored attachment. Within an item code and category only one
// version carries is_current.
type Doc struct {
	ID          int64
	ItemCodeID  int64
	DocName     string
	StoredName  string
	DocCategory string
	VersionNo   int
	IsCurrent   bool
	Notes       string
	UploadedAt  time.Time
}

// Document categories accepted on upload.
var ValidDocCategories = map[string]bool{
	"PPAP": true, "DRAWING": true, "CONTROL_PLAN": true, "PFMEA": true,
	"MSA": true, "INSPECTION_REPORT": true, "WORK_INSTRUCTION": true, "OTHER": true,
}

// Extensions accepted on upload, lowercase with the leading dot.
var allowedExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".xls": true, ".xlsx": true, ".doc": true, ".docx": true,
	".dwg": true, ".dxf": true, ".csv": true,
}

var (
	ErrCustomerNotFound  = errors.New("masterdata: customer not found")
	ErrItemCodeNotFound  = errors.New("masterdata: item code not found")
	ErrDocNotFound       = errors.New("masterdata: document not found")
	ErrDuplicateCustomer = errors.New("masterdata: customer name already exists")
	ErrDuplicateItemCode = errors.New("masterdata: item code already exists")
	ErrBadExtension      = errors.New("masterdata: file type not accepted")
	ErrInvalidInput      = errors.New("masterdata: invalid input")
)
