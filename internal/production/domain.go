package production

import (
	"errors"
	"time"
)

// ShiftHeader is one shift's log header. (ShiftDate, Shift) is unique; a
// second submission for the same shift is rejected.
type ShiftHeader struct {
	ID            int64
	ShiftDate     time.Time
	Shift         string
	ShiftIncharge string
	Remarks       string
	CreatedAt     time.Time
}

// ProductionRow is one machine/item production line inside a shift.
type ProductionRow struct {
	ID       int64
	ShiftID  int64
	ItemCode string
	Machine  string
	Operator string
	OkQty    int
	RejQty   int
	Remarks  string
}

// SetupRow records a job changeover during the shift.
type SetupRow struct {
	ID         int64
	ShiftID    int64
	Machine    string
	JobName    string
	ChangeTime string
	StartTime  string
}

// AttendanceRow records one operator's presence for the shift.
type AttendanceRow struct {
	ID       int64
	ShiftID  int64
	Operator string
	Status   string
}

// DowntimeRow records machine downtime minutes inside the shift.
type DowntimeRow struct {
	ID      int64
	ShiftID int64
	Machine string
	Reason  string
	Minutes int
}

// ShiftLog is one complete shift entry.
type ShiftLog struct {
	Header     ShiftHeader
	Production []ProductionRow
	Setups     []SetupRow
	Attendance []AttendanceRow
	Downtime   []DowntimeRow
}

// ShiftSummary is a register row with aggregate quantities.
type ShiftSummary struct {
	ShiftHeader
	TotalOk         int
	TotalRej        int
	DowntimeMinutes int
}

// ListFilter narrows the shift register.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Shift string
}

var (
	ErrShiftNotFound = errors.New("production: shift not found")
	ErrDuplicate     = errors.New("production: a log for this date and shift already exists")
	ErrInvalidInput  = errors.New("production: invalid input")
)
