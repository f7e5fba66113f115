package maintenance

import (
	"errors"
	"fmt"
	"time"
)

// Machine is one machine on the floor, keyed by its short code.
type Machine struct {
	ID          int64
	MachineCode string
	MachineName string
	MachineType string
	Controller  string
	Location    string
	Status      string
	InstallDate time.Time
	Notes       string
}

// PM plan status values. A plan is DUE once its next date is inside the
// warning window and OVERDUE once the date has passed.
const (
	PMStatusOK      = "OK"
	PMStatusDue     = "DUE"
	PMStatusOverdue = "OVERDUE"
)

// PMDueWindowDays is how far ahead a preventive maintenance task is flagged
// DUE.
const PMDueWindowDays = 7

// PMPlan is one recurring preventive maintenance task for a machine.
type PMPlan struct {
	ID             int64
	MachineCode    string
	PMName         string
	FrequencyDays  int
	Responsibility string
	Checklist      string
	Active         bool
}

// PMScheduleEntry is a plan joined with its schedule state.
type PMScheduleEntry struct {
	PMPlan
	ScheduleID   int64
	LastDoneDate time.Time
	NextDueDate  time.Time
	Status       string
}

// DeriveStatus computes the PM status for a reference day.
func (e PMScheduleEntry) DeriveStatus(today time.Time) string {
	day := today.Truncate(24 * time.Hour)
	due := e.NextDueDate.Truncate(24 * time.Hour)
	switch {
	case day.After(due):
		return PMStatusOverdue
	case !day.AddDate(0, 0, PMDueWindowDays).Before(due):
		return PMStatusDue
	default:
		return PMStatusOK
	}
}

// PMHistoryEntry is one completed maintenance run.
type PMHistoryEntry struct {
	ID       int64
	PMID     int64
	DoneDate time.Time
	DoneBy   string
	Remarks  string
}

// PMRun is a completed run joined with its plan name for the history view.
type PMRun struct {
	PMHistoryEntry
	PMName string
}

// PMStatusCounts summarises the active schedule of one machine.
type PMStatusCounts struct {
	Overdue int `json:"overdue"`
	Due     int `json:"due"`
	OK      int `json:"ok"`
	Total   int `json:"total"`
}

// Breakdown status values.
const (
	BreakdownOpen   = "OPEN"
	BreakdownClosed = "CLOSED"
)

// Breakdown is one machine breakdown report. Times are clock strings
// ("HH:MM") on the breakdown date; the downtime is computed at close.
type Breakdown struct {
	ID            int64
	MachineCode   string
	BreakdownDate time.Time
	StartTime     string
	EndTime       string
	DowntimeMin   int
	Problem       string
	RootCause     string
	ActionTaken   string
	HandledBy     string
	Status        string
	CreatedAt     time.Time
}

// DowntimeMinutes computes whole minutes between two same-day HH:MM clock
// readings. An end before the start counts as zero rather than negative.
func DowntimeMinutes(start, end string) (int, error) {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return 0, fmt.Errorf("%w: start time %q", ErrInvalidTime, start)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return 0, fmt.Errorf("%w: end time %q", ErrInvalidTime, end)
	}
	min := int(e.Sub(s).Minutes())
	if min < 0 {
		min = 0
	}
	return min, nil
}

// BreakdownFilter narrows the breakdown register.
type BreakdownFilter struct {
	MachineCode string
	Status      string
	From        time.Time
	To          time.Time
}

// BreakdownCounts summarises the register.
type BreakdownCounts struct {
	Open   int `json:"open"`
	Closed int `json:"closed"`
	Total  int `json:"total"`
}

// DowntimeWindowDays is the lookback for the history view's downtime sum.
const DowntimeWindowDays = 30

// MachineHistory is the single-machine maintenance summary: PM standing,
// the most recent completed runs and the breakdown trail.
type MachineHistory struct {
	Machine          Machine
	PMCounts         PMStatusCounts
	NextPM           *PMScheduleEntry
	RecentPMRuns     []PMRun
	OpenBreakdowns   int
	DowntimeMin      int
	RecentBreakdowns []Breakdown
}

var (
	ErrMachineNotFound   = errors.New("maintenance: machine not found")
	ErrPlanNotFound      = errors.New("maintenance: pm plan not found")
	ErrBreakdownNotFound = errors.New("maintenance: breakdown not found")
	ErrAlreadyClosed     = errors.New("maintenance: breakdown already closed")
	ErrDuplicateMachine  = errors.New("maintenance: machine code already exists")
	ErrInvalidInput      = errors.New("maintenance: invalid input")
	ErrInvalidTime       = errors.New("maintenance: time must be HH:MM")
)
