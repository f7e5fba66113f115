package complaints

import (
	"errors"
	"time"
)

// Complaint statuses, in rough lifecycle order.
const (
	StatusOpen               = "OPEN"
	StatusUnderInvestigation = "UNDER_INVESTIGATION"
	StatusWaitingCustomer    = "WAITING_CUSTOMER"
	StatusCAPAImplemented    = "CAPA_IMPLEMENTED"
	StatusClosed             = "CLOSED"
	StatusRejected           = "REJECTED"
)

// ValidStatuses is the accepted status vocabulary.
var ValidStatuses = map[string]bool{
	StatusOpen: true, StatusUnderInvestigation: true, StatusWaitingCustomer: true,
	StatusCAPAImplemented: true, StatusClosed: true, StatusRejected: true,
}

// Severities.
const (
	SeverityLow  = "LOW"
	SeverityMed  = "MED"
	SeverityHigh = "HIGH"
)

var ValidSeverities = map[string]bool{SeverityLow: true, SeverityMed: true, SeverityHigh: true}

// Issue categories.
var ValidCategories = map[string]bool{
	"DIMENSIONAL": true, "VISUAL": true, "MATERIAL": true, "PLATING": true,
	"PACKING": true, "QUANTITY": true, "DELIVERY": true, "DOCUMENTATION": true, "OTHER": true,
}

// Action log types.
const (
	LogNote          = "NOTE"
	LogContainment   = "CONTAINMENT"
	LogRCA           = "RCA"
	LogCAPA          = "CAPA"
	LogCustomerReply = "CUSTOMER_REPLY"
	LogClose         = "CLOSE"
)

var ValidLogTypes = map[string]bool{
	LogNote: true, LogContainment: true, LogRCA: true, LogCAPA: true,
	LogCustomerReply: true, LogClose: true,
}

// Complaint is one customer complaint tracked under its CC-YYYY-NNN number.
type Complaint struct {
	ID                int64
	ComplaintNo       string
	ComplaintDate     time.Time
	CustomerID        int64
	CustomerName      string
	CustomerRefNo     string
	ItemCode          string
	BatchNo           string
	QtyAffected       int
	IssueCategory     string
	IssueDescription  string
	Severity          string
	Status            string
	MachineCode       string
	JobNo             string
	ShiftDate         string
	Shift             string
	AssignedTo        string
	ContainmentAction string
	RootCause5Why     string
	CorrectiveAction  string
	PreventiveAction  string
	ClosureDate       string
	ClosureRemarks    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Update carries the editable investigation fields of a complaint.
type Update struct {
	Status            string
	Severity          string
	AssignedTo        string
	ContainmentAction string
	RootCause5Why     string
	CorrectiveAction  string
	PreventiveAction  string
	ClosureDate       string
	ClosureRemarks    string
	By                string
}

// ActionLog is one timeline entry on a complaint.
type ActionLog struct {
	ID          int64
	ComplaintID int64
	ActionDate  time.Time
	ActionType  string
	Notes       string
	ByUser      string
	CreatedAt   time.Time
}

// ListFilter narrows the complaint register.
type ListFilter struct {
	Status     string
	Severity   string
	CustomerID int64
	From       time.Time
	To         time.Time
}

var (
	ErrComplaintNotFound = errors.New("complaints: complaint not found")
	ErrInvalidVocab      = errors.New("complaints: value outside the accepted vocabulary")
	ErrClosureDate       = errors.New("complaints: closure date required to close a complaint")
	ErrInvalidInput      = errors.New("complaints: invalid input")
)
