package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/mail"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

var (
	applicationApprovedEmail = mail.MustTemplate("application_approved",
		`Your HalalTech freelancer application has been approved`,
		`Hi {{.Name}},

Your freelancer application has been approved. Your profile is now listed in
the HalalTech marketplace and our team can assign you to client projects.

{{if .PortalURL}}Sign in: {{.PortalURL}}
{{end}}
HalalTech
`)

	applicationRejectedEmail = mail.MustTemplate("application_rejected",
		`Update on your HalalTech freelancer application`,
		`Hi {{.Name}},

Thank you for applying to join HalalTech. We are unable to approve your
application at this time.
{{if .Reason}}
Reason: {{.Reason}}
{{end}}
You can update your profile and submit it again at any time.

HalalTech
`)

	// InvoiceOverdueEmail reminds a client that an invoice is past due.
	InvoiceOverdueEmail = mail.MustTemplate("invoice_overdue",
		`Invoice {{.InvoiceNumber}} is overdue`,
		`Hi {{.Name}},

Invoice {{.InvoiceNumber}} for "{{.ProjectTitle}}" was due on {{.DueDate}}.
Amount outstanding: {{.Currency}} {{printf "%.2f" .Total}}

Please arrange payment at your earliest convenience.

HalalTech
`)
)

// SendEmail renders tmpl and delivers it. A nil mailer is a no-op. Callers
// treat email as best effort and only log the returned error.
func SendEmail(ctx context.Context, mailer mail.Mailer, tmpl *mail.Template, data any, to ...string) error {
	if mailer == nil || tmpl == nil || len(to) == 0 {
		return nil
	}
	msg, err := tmpl.Render(data, to...)
	if err != nil {
		metrics.EmailDeliveries.WithLabelValues(tmpl.Name, "error").Inc()
		return err
	}
	if err := mailer.Send(ensureContext(ctx), msg); err != nil {
		metrics.EmailDeliveries.WithLabelValues(tmpl.Name, "error").Inc()
		return err
	}
	metrics.EmailDeliveries.WithLabelValues(tmpl.Name, "sent").Inc()
	return nil
}

func sendBestEffort(ctx context.Context, mailer mail.Mailer, tmpl *mail.Template, data any, to ...string) {
	if err := SendEmail(ctx, mailer, tmpl, data, to...); err != nil {
		logger.WithModule("mail").Warn("failed to send email",
			zap.String("template", tmpl.Name),
			zap.Strings("to", to),
			zap.Error(err),
		)
	}
}
