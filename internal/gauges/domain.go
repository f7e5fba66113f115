package gauges

import (
	"errors"
	"time"
)

// Status is the calibration state of a gauge.
type Status string

const (
	StatusOK      Status = "OK"
	StatusDue     Status = "DUE"
	StatusOverdue Status = "OVERDUE"
	StatusDamaged Status = "DAMAGED"
)

// DueWindowDays is how far ahead of the next calibration date a gauge is
// flagged DUE.
const DueWindowDays = 30

// categoryPrefix maps gauge categories to their code prefix. Unknown
// categories fall back to CUS.
var categoryPrefix = map[string]string{
	"Vernier Caliper":   "VER",
	"Micrometer":        "MIC",
	"Bore Gauge":        "BG",
	"Height Gauge":      "HG",
	"Dial Indicator":    "DI",
	"Slip Gauge":        "SG",
	"Snap Gauge":        "SNAP",
	"Plain Plug Gauge":  "PPG",
	"Thread Plug Gauge": "TPG",
	"Thread Ring Gauge": "TRG",
	"Air Plug Gauge":    "APG",
	"Air Ring Gauge":    "ARG",
	"Qualifying Gauge":  "QG",
	"Wear Check Ring":   "WCR",
	"Wear Check Plug":   "WCP",
	"Custom":            "CUS",
}

// PrefixFor returns the code prefix for a category.
func PrefixFor(category string) string {
	if p, ok := categoryPrefix[category]; ok {
		return p
	}
	return "CUS"
}

// Gauge is one physical measuring instrument tracked by its unique code.
type Gauge struct {
	ID              int64
	Code            string
	Category        string
	Subtype         string
	Mechanism       string
	MeasuringRange  string
	LeastCount      string
	Make            string
	SerialNo        string
	Location        string
	CalibrationFreq int
	LastCalibration time.Time
	NextCalibration time.Time
	Status          Status
	Remarks         string
}

// DeriveStatus computes the calibration status for a reference day.
// DAMAGED is sticky and only a passed calibration clears it.
func (g Gauge) DeriveStatus(today time.Time) Status {
	if g.Status == StatusDamaged {
		return StatusDamaged
	}
	if g.NextCalibration.IsZero() {
		return StatusOK
	}
	day := today.Truncate(24 * time.Hour)
	next := g.NextCalibration.Truncate(24 * time.Hour)
	switch {
	case day.After(next):
		return StatusOverdue
	case !day.AddDate(0, 0, DueWindowDays).Before(next):
		return StatusDue
	default:
		return StatusOK
	}
}

// IssueTxn is one issue or return movement of a gauge.
type IssueTxn struct {
	ID                int64
	GaugeID           int64
	Action            string
	Operator          string
	Machine           string
	JobName           string
	Shift             string
	ConditionOnReturn string
	Remarks           string
	TxnDate           time.Time
}

const (
	ActionIssue  = "ISSUE"
	ActionReturn = "RETURN"
)

// Return conditions.
const (
	ReturnConditionOK      = "OK"
	ReturnConditionDamaged = "DAMAGED"
)

// CalibrationTxn is one calibration event.
type CalibrationTxn struct {
	ID              int64
	GaugeID         int64
	CalibrationDate time.Time
	CalibratedBy    string
	Result          string
	CertificateNo   string
	Remarks         string
}

// Calibration results.
const (
	ResultPass = "PASS"
	ResultFail = "FAIL"
)

// ListFilter narrows gauge listings.
type ListFilter struct {
	Category string
	Status   Status
	Search   string
}

var (
	ErrGaugeNotFound = errors.New("gauges: gauge not found")
	ErrNotIssuable   = errors.New("gauges: gauge not issuable in its current status")
	ErrInvalidInput  = errors.New("gauges: invalid input")
	ErrInvalidResult = errors.New("gauges: calibration result must be PASS or FAIL")
)
