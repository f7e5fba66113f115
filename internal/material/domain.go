package material

import (
	"errors"
	"time"
)

// Challan status values. A challan is CLOSED exactly when none of its inward
// lines has material left to dispatch.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Challan is one customer delivery challan heading a set of inward lines.
type Challan struct {
	ID           int64
	CustomerID   int64
	CustomerName string
	ChallanNo    string
	ChallanDate  time.Time
	Status       string
	Remarks      string
}

// InwardLine is the received quantity of one item/process on a challan.
// AvailableQty depletes as dispatches are recorded against the line.
type InwardLine struct {
	ID           int64
	ChallanID    int64
	ItemCode     string
	Process      string
	InwardQty    int
	AvailableQty int
	BoxTray      string
	Remarks      string
}

// InwardRow is one row of an inward entry form. Blank or zero rows are
// skipped silently.
type InwardRow struct {
	ItemCode string
	Process  string
	Qty      int
	BoxTray  string
	Remarks  string
}

// Dispatch is one outgoing movement against an inward line, split into the
// five quality buckets.
type Dispatch struct {
	ID                int64
	ChallanID         int64
	InwardID          int64
	DispatchChallanNo string
	DispatchDate      time.Time
	OkQty             int
	RejQty            int
	CdQty             int
	NdQty             int
	NdPwQty           int
	TotalQty          int
	Remarks           string
}

// Total sums the five buckets.
func (d Dispatch) Total() int {
	return d.OkQty + d.RejQty + d.CdQty + d.NdQty + d.NdPwQty
}

// ChallanSummary is a register row: the challan plus its aggregate
// quantities.
type ChallanSummary struct {
	Challan
	TotalInward    int
	TotalAvailable int
}

// ListFilter narrows the challan register.
type ListFilter struct {
	CustomerID   int64
	ItemCode     string
	Status       string
	DispatchFrom time.Time
	DispatchTo   time.Time
}

var (
	ErrChallanNotFound  = errors.New("material: challan not found")
	ErrLineNotFound     = errors.New("material: inward line not found")
	ErrDispatchNotFound = errors.New("material: dispatch not found")
	ErrExceedsAvailable = errors.New("material: dispatch exceeds available quantity")
	ErrEmptyDispatch    = errors.New("material: dispatch total must be positive")
	ErrLineInUse        = errors.New("material: inward line has dispatches recorded against it")
	ErrInvalidInput     = errors.New("material: invalid input")
)
