package toolcrib

import (
	"errors"
	"time"
)

// Action tags the immutable transaction records appended by every stock move.
type Action string

const (
	ActionIssue    Action = "ISSUE"
	ActionReturn   Action = "RETURN"
	ActionScrap    Action = "SCRAP"
	ActionEdgeUsed Action = "EDGE_USED"
	ActionRegrind  Action = "REGRIND"
)

// Condition qualifies a return and decides which counters move. Good and
// Blunt put the quantity back into the pool; Broken retires it.
type Condition string

const (
	ConditionGood   Condition = "Good"
	ConditionBlunt  Condition = "Blunt"
	ConditionBroken Condition = "Broken"
)

// Tool is one cutting-tool variant. Identity is the natural key
// (type, cutting Ø, cutting length, shank type, shank Ø, material);
// re-adding stock for the same key merges into the existing row.
type Tool struct {
	ID              int64
	ToolType        string
	ToolSubtype     string
	CuttingDiameter float64
	CuttingLength   float64
	OverallLength   float64
	ShankType       string
	ShankDiameter   float64
	Material        string
	Location        string
	Remarks         string
	TotalQty        int
	IssuedQty       int
	BrokenQty       int
	ReorderLevel    int
}

// Available is the quantity still in the crib.
func (t Tool) Available() int { return t.TotalQty - t.IssuedQty - t.BrokenQty }

// Holder is a tool-holder variant keyed on (type, interface, size, projection).
type Holder struct {
	ID           int64
	HolderType   string
	Interface    string
	Size         string
	Projection   float64
	Location     string
	Remarks      string
	TotalQty     int
	IssuedQty    int
	ReorderLevel int
}

func (h Holder) Available() int { return h.TotalQty - h.IssuedQty }

// Insert is an indexable-insert variant keyed on (type, size, grade).
// Edge wear is logged separately from quantity.
type Insert struct {
	ID           int64
	InsertType   string
	Size         string
	Grade        string
	Edges        int
	TotalQty     int
	AvailableQty int
	ReorderLevel int
	Remarks      string
}

// Collet is a collet variant keyed on (type, interface, size range, location).
type Collet struct {
	ID           int64
	ColletType   string
	Interface    string
	SizeRange    string
	Location     string
	TotalQty     int
	AvailableQty int
	ReorderLevel int
	Remarks      string
}

// Txn is one immutable ledger record. ItemID refers to the owning variant
// in the domain the record was written for.
type Txn struct {
	ID        int64
	ItemID    int64
	Action    Action
	Qty       int
	EdgesUsed int
	Operator  string
	Machine   string
	Shift     string
	JobName   string
	Condition Condition
	Remarks   string
	TxnDate   time.Time
}

// LedgerEntry is a history row joined with the item description.
type LedgerEntry struct {
	ItemDesc  string
	Action    Action
	Qty       int
	EdgesUsed int
	Operator  string
	Machine   string
	Shift     string
	JobName   string
	Condition Condition
	Remarks   string
	TxnDate   time.Time
}

// HistoryFilter narrows ledger queries.
type HistoryFilter struct {
	ItemID int64
	Action Action
	From   time.Time
	To     time.Time
	Limit  int
}

// MoveContext carries the operator metadata stamped onto every transaction.
type MoveContext struct {
	Operator string
	Machine  string
	Shift    string
	JobName  string
	Remarks  string
	Date     time.Time
}

// ReorderAlert summarises variants at or below their reorder level.
type ReorderAlert struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// ErrInsufficientStock is returned when a requested quantity exceeds what is
// currently available. The wrapped message carries the available amount.
var ErrInsufficientStock = errors.New("toolcrib: insufficient stock")

// ErrReturnExceedsIssued is returned when a return or regrind would push the
// issued counter below zero.
var ErrReturnExceedsIssued = errors.New("toolcrib: return exceeds issued quantity")

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("toolcrib: quantity must be positive")

// ErrInvalidCondition indicates an unknown return condition.
var ErrInvalidCondition = errors.New("toolcrib: invalid return condition")
