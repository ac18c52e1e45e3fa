package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// Email delivers notifications to the requester's contact email through
// Resend. Messages from the requester notify the shop address instead, so the
// artisan learns about replies without watching the dashboard.
type Email struct {
	client *resend.Client

	// From is the sender shown to recipients, e.g. "Atelier <no-reply@...>".
	From string
	// ShopEmail receives artisan-side notifications (new requests, replies).
	ShopEmail string
	// SiteURL is the base URL used in links, without a trailing slash.
	SiteURL string
}

// NewEmail constructs the Resend-backed notifier.
func NewEmail(apiKey, from, shopEmail, siteURL string) *Email {
	return &Email{
		client:    resend.NewClient(apiKey),
		From:      from,
		ShopEmail: shopEmail,
		SiteURL:   siteURL,
	}
}

// titleCaser renders category slugs as display names for subject lines.
var titleCaser = cases.Title(language.English)

func (e *Email) categoryName(c domain.Category) string {
	return titleCaser.String(string(c))
}

// RequestCreated confirms receipt to the requester and pings the shop inbox.
func (e *Email) RequestCreated(ctx context.Context, req *domain.CommissionRequest) error {
	subject := fmt.Sprintf("%s commission request received", e.categoryName(req.Category))
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Thanks for your %s commission request. We will review it and get back to you with a quote.</p>"+
			"<p>You can follow its progress at <a href=\"%s/requests/%s\">%s/requests/%s</a>.</p>",
		req.ContactName, e.categoryName(req.Category),
		e.SiteURL, req.ID, e.SiteURL, req.ID,
	)
	if err := e.send(req.ContactEmail, subject, body); err != nil {
		return err
	}

	shopSubject := fmt.Sprintf("New %s request from %s", e.categoryName(req.Category), req.ContactName)
	shopBody := fmt.Sprintf(
		"<p>A new commission request arrived.</p>"+
			"<p>Category: %s<br>Contact: %s &lt;%s&gt;</p>",
		e.categoryName(req.Category), req.ContactName, req.ContactEmail,
	)
	return e.send(e.ShopEmail, shopSubject, shopBody)
}

// StatusChanged tells the requester their request moved to a new state.
func (e *Email) StatusChanged(ctx context.Context, req *domain.CommissionRequest, from, to domain.Status) error {
	subject := fmt.Sprintf("Your %s request is now %s", e.categoryName(req.Category), to)
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Your commission request moved from <strong>%s</strong> to <strong>%s</strong>.</p>"+
			"<p>Details: <a href=\"%s/requests/%s\">%s/requests/%s</a></p>",
		req.ContactName, from, to,
		e.SiteURL, req.ID, e.SiteURL, req.ID,
	)
	return e.send(req.ContactEmail, subject, body)
}

// MessagePosted notifies the counterpart of the message author.
func (e *Email) MessagePosted(ctx context.Context, req *domain.CommissionRequest, msg *domain.Message) error {
	// Message bodies are free text; escape them before embedding in HTML.
	quoted := html.EscapeString(msg.Body)

	if msg.Sender == domain.SenderRequester {
		subject := fmt.Sprintf("New reply on %s request %s", e.categoryName(req.Category), req.ID)
		body := fmt.Sprintf("<p>%s wrote:</p><blockquote>%s</blockquote>", html.EscapeString(req.ContactName), quoted)
		return e.send(e.ShopEmail, subject, body)
	}

	subject := fmt.Sprintf("New message about your %s request", e.categoryName(req.Category))
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>There is a new message on your commission request:</p>"+
			"<blockquote>%s</blockquote>"+
			"<p>Reply at <a href=\"%s/requests/%s\">%s/requests/%s</a>.</p>",
		req.ContactName, quoted,
		e.SiteURL, req.ID, e.SiteURL, req.ID,
	)
	return e.send(req.ContactEmail, subject, body)
}

func (e *Email) send(to, subject, html string) error {
	_, err := e.client.Emails.Send(&resend.SendEmailRequest{
		From:    e.From,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	return err
}
