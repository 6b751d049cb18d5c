package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// SignedLink is a time-bound read URL for one stored document.
type SignedLink struct {
	ObjectPath string
	FieldName  string
	URL        string
	ExpiresAt  int64 // epoch seconds
}

var reviewerTmpl = template.Must(template.New("reviewer").Parse(`
<h2>New DSA onboarding submission</h2>
<p><strong>{{.EntityName}}</strong> ({{.PartnerType}}) submitted by {{.FullName}}, {{.Mobile}}.</p>
{{if .Email}}<p>Applicant email: {{.Email}}</p>{{end}}
{{if .HasAttachments}}
<p>The review workbook{{if .HasArchive}} and document archive{{end}} are attached.</p>
{{else}}
<p>Attachments could not be generated for this submission; use the document links below.</p>
{{end}}
{{if .Links}}
<h3>Document links (valid until {{.Expiry}})</h3>
<ul>
{{range .Links}}<li><a href="{{.URL}}">{{.FieldName}}</a></li>
{{end}}</ul>
{{end}}
`))

var applicantTmpl = template.Must(template.New("applicant").Parse(`
<h2>We received your application</h2>
<p>Dear {{.FullName}},</p>
<p>Your onboarding application for <strong>{{.EntityName}}</strong> has been received.
Our team will review the submitted documents and reach out on {{.Mobile}}.</p>
<p>Regards,<br>Kiranafin Onboarding</p>
`))

type templateData struct {
	EntityName     string
	PartnerType    string
	FullName       string
	Mobile         string
	Email          string
	HasAttachments bool
	HasArchive     bool
	Links          []SignedLink
	Expiry         string
}

func renderReviewerHTML(d templateData) (string, error) {
	if len(d.Links) > 0 {
		d.Expiry = time.Unix(d.Links[0].ExpiresAt, 0).UTC().Format("02 Jan 2006")
	}
	var sb strings.Builder
	if err := reviewerTmpl.Execute(&sb, d); err != nil {
		return "", fmt.Errorf("render reviewer template: %w", err)
	}
	return sb.String(), nil
}

func renderApplicantHTML(d templateData) (string, error) {
	var sb strings.Builder
	if err := applicantTmpl.Execute(&sb, d); err != nil {
		return "", fmt.Errorf("render applicant template: %w", err)
	}
	return sb.String(), nil
}
