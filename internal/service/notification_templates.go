package service

import (
	"bytes"
	"fmt"
	"text/template"
)

// Message audiences. Students get the applicant-facing wording, owners the
// agent/account wording, admins the operational wording.
const (
	audienceStudent = "student"
	audienceOwner   = "owner"
	audienceAdmin   = "admin"
)

type templateData struct {
	ApplicationID   uint
	StudentName     string
	Program         string
	University      string
	Status          string
	Notes           string
	RejectionReason string
	OfferTerms      string
	FullName        string
	Email           string
	TempPassword    string
}

type messageTemplate struct {
	subject string
	body    string
}

var messageTemplates = map[EventKind]map[string]messageTemplate{
	EventSubmitted: {
		audienceStudent: {
			subject: "Your application has been submitted",
			body: `Dear {{.StudentName}},

Your application{{if .Program}} for {{.Program}}{{if .University}} at {{.University}}{{end}}{{end}} has been submitted and will be reviewed by the admissions team.

Application reference: #{{.ApplicationID}}
`,
		},
		audienceOwner: {
			subject: "Application #{{.ApplicationID}} submitted",
			body: `Application #{{.ApplicationID}} for {{.StudentName}} has been submitted{{if .Program}} to {{.Program}}{{end}} and is awaiting review.
`,
		},
		audienceAdmin: {
			subject: "New application submitted: #{{.ApplicationID}}",
			body: `A new application has been submitted.

Applicant: {{.StudentName}}
{{if .Program}}Program: {{.Program}}{{if .University}} ({{.University}}){{end}}
{{end}}Reference: #{{.ApplicationID}}
`,
		},
	},
	EventUnderReview: {
		audienceStudent: {
			subject: "Your application is under review",
			body: `Dear {{.StudentName}},

Your application #{{.ApplicationID}} is now under review.{{if .Notes}}

Reviewer notes: {{.Notes}}{{end}}
`,
		},
		audienceOwner: {
			subject: "Application #{{.ApplicationID}} moved to under-review",
			body: `Application #{{.ApplicationID}} for {{.StudentName}} is now under review.{{if .Notes}}

Notes: {{.Notes}}{{end}}
`,
		},
		audienceAdmin: {
			subject: "Application #{{.ApplicationID}} under review",
			body: `Application #{{.ApplicationID}} ({{.StudentName}}) has moved to under-review.
`,
		},
	},
	EventApproved: {
		audienceStudent: {
			subject: "Congratulations! Your application has been approved",
			body: `Dear {{.StudentName}},

Your application #{{.ApplicationID}}{{if .Program}} for {{.Program}}{{if .University}} at {{.University}}{{end}}{{end}} has been approved.{{if .OfferTerms}}

Offer conditions: {{.OfferTerms}}{{end}}

The admissions team will contact you with the next steps.
`,
		},
		audienceOwner: {
			subject: "Application #{{.ApplicationID}} approved",
			body: `Application #{{.ApplicationID}} for {{.StudentName}} has been approved.{{if .OfferTerms}}

Offer conditions: {{.OfferTerms}}{{end}}
`,
		},
		audienceAdmin: {
			subject: "Application #{{.ApplicationID}} approved",
			body: `Application #{{.ApplicationID}} ({{.StudentName}}) has been approved.{{if .OfferTerms}}
Offer conditions: {{.OfferTerms}}{{end}}
`,
		},
	},
	EventRejected: {
		audienceStudent: {
			subject: "Update on your application",
			body: `Dear {{.StudentName}},

We regret to inform you that your application #{{.ApplicationID}} was not successful.{{if .RejectionReason}}

Reason: {{.RejectionReason}}{{end}}

You are welcome to apply for other programs through the portal.
`,
		},
		audienceOwner: {
			subject: "Application #{{.ApplicationID}} rejected",
			body: `Application #{{.ApplicationID}} for {{.StudentName}} has been rejected.{{if .RejectionReason}}

Reason: {{.RejectionReason}}{{end}}
`,
		},
		audienceAdmin: {
			subject: "Application #{{.ApplicationID}} rejected",
			body: `Application #{{.ApplicationID}} ({{.StudentName}}) has been rejected.{{if .RejectionReason}}
Reason: {{.RejectionReason}}{{end}}
`,
		},
	},
	EventIncomplete: {
		audienceStudent: {
			subject: "Action required: your application is incomplete",
			body: `Dear {{.StudentName}},

Your application #{{.ApplicationID}} has been marked incomplete.{{if .Notes}}

What is missing: {{.Notes}}{{end}}

Please update your application and resubmit.
`,
		},
		audienceOwner: {
			subject: "Application #{{.ApplicationID}} marked incomplete",
			body: `Application #{{.ApplicationID}} for {{.StudentName}} requires attention.{{if .Notes}}

What is missing: {{.Notes}}{{end}}
`,
		},
		audienceAdmin: {
			subject: "Application #{{.ApplicationID}} marked incomplete",
			body: `Application #{{.ApplicationID}} ({{.StudentName}}) has been marked incomplete.
`,
		},
	},
	EventUserCreated: {
		audienceOwner: {
			subject: "Your agent account is ready",
			body: `Dear {{.FullName}},

An agent account has been created for you on the admissions portal.

Login: {{.Email}}
Temporary password: {{.TempPassword}}

Please sign in and change your password.
`,
		},
	},
	EventSubAdminWelcome: {
		audienceOwner: {
			subject: "Welcome to the admissions team",
			body: `Dear {{.FullName}},

A sub-admin account has been created for you on the admissions portal. You can review applications and update their status.

Login: {{.Email}}
`,
		},
	},
}

// renderMessage renders the subject and body for one kind/audience pair.
func renderMessage(kind EventKind, audience string, data templateData) (string, string, error) {
	byAudience, ok := messageTemplates[kind]
	if !ok {
		return "", "", fmt.Errorf("no templates for event kind %q", kind)
	}
	tmpl, ok := byAudience[audience]
	if !ok {
		return "", "", fmt.Errorf("no %s template for event kind %q", audience, kind)
	}

	subject, err := renderTemplate(tmpl.subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := renderTemplate(tmpl.body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func renderTemplate(text string, data templateData) (string, error) {
	tmpl, err := template.New("message").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
