package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltaworks/workshop-suite/internal/complaints"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/material"
)

func TestMaterialInventoryHTMLFormatsQuantities(t *testing.T) {
	challans := []material.ChallanSummary{
		{
			Challan: material.Challan{
				ChallanNo:    "CH-1001",
				ChallanDate:  time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
				CustomerName: "Precision Forgings",
				Status:       material.StatusOpen,
			},
			TotalInward:    12500,
			TotalAvailable: 4200,
		},
	}
	html, err := MaterialInventoryHTML(challans, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, html, "CH-1001")
	assert.Contains(t, html, "12,500")
	assert.Contains(t, html, "4,200")
	assert.Contains(t, html, "12-Apr-2026")
}

func TestMaterialInventoryHTMLEmpty(t *testing.T) {
	html, err := MaterialInventoryHTML(nil, time.Now())
	require.NoError(t, err)
	assert.Contains(t, html, "No challans match the filter.")
}

func TestComplaintHTMLEscapesDescription(t *testing.T) {
	c := complaints.Complaint{
		ComplaintNo:      "CC-2026-001",
		ComplaintDate:    time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		CustomerName:     "Precision Forgings",
		ItemCode:         "BRG-204",
		QtyAffected:      12,
		IssueCategory:    "DIMENSIONAL",
		IssueDescription: "Bore <0.02 oversize",
		Severity:         "HIGH",
		Status:           complaints.StatusOpen,
	}
	logs := []complaints.ActionLog{
		{ActionDate: c.ComplaintDate, ActionType: complaints.LogNote, Notes: "Complaint registered"},
	}
	html, err := ComplaintHTML(c, logs)
	require.NoError(t, err)
	assert.Contains(t, html, "CC-2026-001")
	assert.Contains(t, html, "Bore &lt;0.02 oversize")
	assert.Contains(t, html, "Complaint registered")
}

func TestPMScheduleHTML(t *testing.T) {
	entries := []maintenance.PMScheduleEntry{
		{
			PMPlan: maintenance.PMPlan{
				MachineCode:    "CNC-01",
				PMName:         "Spindle lubrication",
				FrequencyDays:  30,
				Responsibility: "Maintenance",
			},
			NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			Status:      maintenance.PMStatusDue,
		},
	}
	html, err := PMScheduleHTML(entries, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, html, "CNC-01")
	assert.Contains(t, html, "Spindle lubrication")
	assert.Contains(t, html, "10-Sep-2026")
	assert.Contains(t, html, "DUE")
}
