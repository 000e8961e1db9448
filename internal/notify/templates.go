package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/mmynk/churchboard/internal/models"
)

var newRequirementTmpl = template.Must(template.New("new").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif">
<h2>New purchase request{{if .Urgent}} (urgent){{end}}</h2>
<p><strong>{{.Req.RequesterName}}</strong> submitted a new request:</p>
<table cellpadding="4">
<tr><td>Item</td><td><strong>{{.Req.Text}}</strong></td></tr>
{{if .Req.Description}}<tr><td>Details</td><td>{{.Req.Description}}</td></tr>{{end}}
{{if .Req.AccountingCategory}}<tr><td>Category</td><td>{{.Req.AccountingCategory}}</td></tr>{{end}}
</table>
{{if .Link}}<p><a href="{{.Link}}">Open the board</a></p>{{end}}
<p style="color:#888;font-size:12px">You can turn these emails off in your notification preferences.</p>
</body></html>`))

var purchasedTmpl = template.Must(template.New("purchased").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif">
<h2>Your request was purchased</h2>
<p><strong>{{.Req.PurchaserName}}</strong> bought <strong>{{.Req.Text}}</strong>.</p>
<table cellpadding="4">
<tr><td>Amount</td><td>{{.Amount}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
</table>
{{if .Link}}<p><a href="{{.Link}}">Open the board</a></p>{{end}}
<p style="color:#888;font-size:12px">You can turn these emails off in your notification preferences.</p>
</body></html>`))

type templateData struct {
	Req    models.Requirement
	Urgent bool
	Amount string
	Date   string
	Link   string
}

func renderNewRequirement(req models.Requirement, link string) (Message, error) {
	var buf bytes.Buffer
	err := newRequirementTmpl.Execute(&buf, templateData{
		Req:    req,
		Urgent: req.Priority == models.PriorityUrgent,
		Link:   link,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render new requirement email: %w", err)
	}
	subject := "New purchase request: " + req.Text
	if req.Priority == models.PriorityUrgent {
		subject = "[Urgent] " + subject
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

func renderPurchased(req models.Requirement, link string) (Message, error) {
	data := templateData{Req: req, Link: link}
	if req.PurchaseAmount != nil {
		data.Amount = fmt.Sprintf("%.2f", *req.PurchaseAmount)
	}
	if req.PurchaseDate != nil {
		data.Date = req.PurchaseDate.Format("2006-01-02")
	}

	var buf bytes.Buffer
	if err := purchasedTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render purchased email: %w", err)
	}
	return Message{Subject: "Purchased: " + req.Text, HTML: buf.String()}, nil
}
