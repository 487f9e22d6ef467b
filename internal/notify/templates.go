package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

var warrantyAlertTmpl = template.Must(template.New("warranty").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="margin: 0;">Warranty Alert</h1>
  <p>IT Asset Management System</p>
  <p>Hello,</p>
  <p>The following assets have warranties that {{.Message}}:</p>
  {{range .Assets}}
  <div style="background: white; padding: 15px; margin: 10px 0; border-left: 4px solid {{.Color}};">
    <strong>{{.Name}}</strong><br>
    <small>Asset Tag: {{.Tag}} | Serial: {{.Serial}}<br>
    Warranty End: {{.WarrantyEnd}} | <span style="color: {{.Color}}; font-weight: bold;">{{.DaysText}}</span></small>
    {{if .AssignedTo}}<br><small>Assigned to: {{.AssignedTo}}</small>{{end}}
  </div>
  {{end}}
  <p>Please review these assets and take appropriate action:</p>
  <ul>
    <li>Contact vendor for warranty extension options</li>
    <li>Plan for replacement if needed</li>
    <li>Update asset records if warranty has been renewed</li>
  </ul>
  <p style="text-align: center;"><a href="{{.Link}}">View All Warranties</a></p>
  <p style="font-size: 12px; color: #64748b;">This is an automated message from the IT Asset Management System.<br>Do not reply to this email.</p>
</div>
</body>
</html>
`))

var assignmentTmpl = template.Must(template.New("assignment").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="margin: 0;">Equipment Assignment</h1>
  <p>Hello {{.EmployeeName}},</p>
  <p>The following IT equipment has been assigned to you:</p>
  <h3>{{.Name}}</h3>
  <table style="width: 100%;">
    <tr><td><strong>Asset Tag:</strong></td><td>{{.Tag}}</td></tr>
    <tr><td><strong>Type:</strong></td><td>{{.Type}}</td></tr>
    <tr><td><strong>Serial Number:</strong></td><td>{{.Serial}}</td></tr>
    <tr><td><strong>Assigned Date:</strong></td><td>{{.AssignedDate}}</td></tr>
  </table>
  <p>Please take care of this equipment and report any issues to the IT department.</p>
</div>
</body>
</html>
`))

var tierMessages = map[lifecycle.Tier]string{
	lifecycle.TierWarning:  "will expire within 90 days",
	lifecycle.TierCritical: "will expire within 30 days",
	lifecycle.TierExpired:  "have already expired",
}

type alertRow struct {
	Name        string
	Tag         string
	Serial      string
	WarrantyEnd string
	DaysText    string
	Color       string
	AssignedTo  string
}

// WarrantyAlert renders one grouped alert email for notifications of a single tier.
func WarrantyAlert(tier lifecycle.Tier, notes []lifecycle.Notification, frontendURL string) (string, string, error) {
	message, ok := tierMessages[tier]
	if !ok {
		message = "require attention"
	}

	rows := make([]alertRow, 0, len(notes))
	for _, n := range notes {
		row := alertRow{
			Name:        n.AssetName,
			Tag:         n.AssetTag,
			Serial:      orNA(n.SerialNumber),
			WarrantyEnd: n.WarrantyEnd.String(),
			Color:       "#f59e0b",
		}
		if n.DaysRemaining < 0 {
			row.DaysText = fmt.Sprintf("Expired %d days ago", -n.DaysRemaining)
		} else {
			row.DaysText = fmt.Sprintf("%d days remaining", n.DaysRemaining)
		}
		if n.DaysRemaining <= lifecycle.CriticalWindowDays {
			row.Color = "#ef4444"
		}
		if n.AssignedToName != nil {
			row.AssignedTo = *n.AssignedToName
		}
		rows = append(rows, row)
	}

	var body bytes.Buffer
	err := warrantyAlertTmpl.Execute(&body, map[string]any{
		"Message": message,
		"Assets":  rows,
		"Link":    strings.TrimRight(frontendURL, "/") + "/warranties",
	})
	if err != nil {
		return "", "", fmt.Errorf("render warranty alert: %w", err)
	}

	subject := fmt.Sprintf("Warranty Alert: %d asset(s) %s", len(notes), message)
	return subject, body.String(), nil
}

// Assignment renders the email sent to an employee who received an asset.
func Assignment(employee models.Employee, asset models.Asset) (string, string, error) {
	assigned := ""
	if asset.AssignedDate != nil {
		assigned = asset.AssignedDate.Format("January 02, 2006")
	}

	var body bytes.Buffer
	err := assignmentTmpl.Execute(&body, map[string]any{
		"EmployeeName": employee.FullName,
		"Name":         asset.Name,
		"Tag":          asset.AssetTag,
		"Type":         string(asset.AssetType),
		"Serial":       orNA(asset.SerialNumber),
		"AssignedDate": assigned,
	})
	if err != nil {
		return "", "", fmt.Errorf("render assignment: %w", err)
	}
	return "IT Equipment Assigned: " + asset.Name, body.String(), nil
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}
