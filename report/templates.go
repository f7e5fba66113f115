package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eltaworks/workshop-suite/internal/complaints"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/material"
)

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"qty": func(n int) string {
		return printer.Sprintf("%d", n)
	},
	"day": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02-Jan-2006")
	},
}

const pageStyle = `<style>
body { font-family: Arial, sans-serif; font-size: 12px; margin: 24px; }
h1 { font-size: 18px; border-bottom: 2px solid #333; padding-bottom: 4px; }
h2 { font-size: 14px; margin-top: 18px; }
table { border-collapse: collapse; width: 100%; margin-top: 8px; }
th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
th { background: #eee; }
td.num { text-align: right; }
.meta { color: #555; margin-top: 2px; }
.badge { font-weight: bold; }
</style>`

var materialTmpl = template.Must(template.New("material").Funcs(funcs).Parse(pageStyle + `
<h1>Material Inventory</h1>
<p class="meta">Generated {{day .GeneratedAt}}</p>
<table>
<tr><th>Challan No</th><th>Date</th><th>Customer</th><th>Status</th><th>Inward</th><th>Available</th></tr>
{{range .Challans}}
<tr>
<td>{{.ChallanNo}}</td>
<td>{{day .ChallanDate}}</td>
<td>{{.CustomerName}}</td>
<td class="badge">{{.Status}}</td>
<td class="num">{{qty .TotalInward}}</td>
<td class="num">{{qty .TotalAvailable}}</td>
</tr>
{{else}}
<tr><td colspan="6">No challans match the filter.</td></tr>
{{end}}
</table>`))

type materialData struct {
	GeneratedAt time.Time
	Challans    []material.ChallanSummary
}

// MaterialInventoryHTML renders the challan register for PDF export.
func MaterialInventoryHTML(challans []material.ChallanSummary, now time.Time) (string, error) {
	return render(materialTmpl, materialData{GeneratedAt: now, Challans: challans})
}

var complaintTmpl = template.Must(template.New("complaint").Funcs(funcs).Parse(pageStyle + `
<h1>Customer Complaint {{.Complaint.ComplaintNo}}</h1>
<p class="meta">Registered {{day .Complaint.ComplaintDate}} &middot; Status <span class="badge">{{.Complaint.Status}}</span> &middot; Severity {{.Complaint.Severity}}</p>
<table>
<tr><th>Customer</th><td>{{.Complaint.CustomerName}}</td><th>Customer Ref</th><td>{{.Complaint.CustomerRefNo}}</td></tr>
<tr><th>Item Code</th><td>{{.Complaint.ItemCode}}</td><th>Batch</th><td>{{.Complaint.BatchNo}}</td></tr>
<tr><th>Qty Affected</th><td>{{qty .Complaint.QtyAffected}}</td><th>Category</th><td>{{.Complaint.IssueCategory}}</td></tr>
<tr><th>Machine</th><td>{{.Complaint.MachineCode}}</td><th>Assigned To</th><td>{{.Complaint.AssignedTo}}</td></tr>
</table>
<h2>Issue</h2>
<p>{{.Complaint.IssueDescription}}</p>
{{if .Complaint.ContainmentAction}}<h2>Containment</h2><p>{{.Complaint.ContainmentAction}}</p>{{end}}
{{if .Complaint.RootCause5Why}}<h2>Root Cause (5 Why)</h2><p>{{.Complaint.RootCause5Why}}</p>{{end}}
{{if .Complaint.CorrectiveAction}}<h2>Corrective Action</h2><p>{{.Complaint.CorrectiveAction}}</p>{{end}}
{{if .Complaint.PreventiveAction}}<h2>Preventive Action</h2><p>{{.Complaint.PreventiveAction}}</p>{{end}}
{{if .Complaint.ClosureRemarks}}<h2>Closure</h2><p>{{.Complaint.ClosureDate}}: {{.Complaint.ClosureRemarks}}</p>{{end}}
<h2>Timeline</h2>
<table>
<tr><th>Date</th><th>Type</th><th>Notes</th><th>By</th></tr>
{{range .Logs}}
<tr><td>{{day .ActionDate}}</td><td>{{.ActionType}}</td><td>{{.Notes}}</td><td>{{.ByUser}}</td></tr>
{{end}}
</table>`))

type complaintData struct {
	Complaint complaints.Complaint
	Logs      []complaints.ActionLog
}

// ComplaintHTML renders one complaint with its CAPA timeline.
func ComplaintHTML(c complaints.Complaint, logs []complaints.ActionLog) (string, error) {
	return render(complaintTmpl, complaintData{Complaint: c, Logs: logs})
}

var pmTmpl = template.Must(template.New("pm").Funcs(funcs).Parse(pageStyle + `
<h1>Preventive Maintenance Schedule</h1>
<p class="meta">Generated {{day .GeneratedAt}}</p>
<table>
<tr><th>Machine</th><th>PM Task</th><th>Frequency (days)</th><th>Last Done</th><th>Next Due</th><th>Status</th><th>Responsibility</th></tr>
{{range .Entries}}
<tr>
<td>{{.MachineCode}}</td>
<td>{{.PMName}}</td>
<td class="num">{{qty .FrequencyDays}}</td>
<td>{{day .LastDoneDate}}</td>
<td>{{day .NextDueDate}}</td>
<td class="badge">{{.Status}}</td>
<td>{{.Responsibility}}</td>
</tr>
{{else}}
<tr><td colspan="7">No active PM plans.</td></tr>
{{end}}
</table>`))

type pmData struct {
	GeneratedAt time.Time
	Entries     []maintenance.PMScheduleEntry
}

// PMScheduleHTML renders the PM dashboard.
func PMScheduleHTML(entries []maintenance.PMScheduleEntry, now time.Time) (string, error) {
	return render(pmTmpl, pmData{GeneratedAt: now, Entries: entries})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}
