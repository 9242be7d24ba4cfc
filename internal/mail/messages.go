package mail

import (
	"fmt"
	"html"
	"strings"

	"github.com/roach88/storefront/internal/domain"
)

// Welcome is sent after a successful signup.
func Welcome(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Signup succeeded!",
		Text:    fmt.Sprintf("Hi %s,\n\nYou successfully signed up!\n", name),
		HTML:    fmt.Sprintf("<h1>You successfully signed up!</h1><p>Welcome, %s.</p>", html.EscapeString(name)),
	}
}

// PasswordReset carries the one-time reset link.
func PasswordReset(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Password reset",
		Text: "You requested a password reset.\n\n" +
			"Open this link to set a new password (valid for one hour):\n" + link + "\n",
		HTML: fmt.Sprintf(
			`<p>You requested a password reset</p><p>Click this <a href="%s">link</a> to set a new password. The link is valid for one hour.</p>`,
			html.EscapeString(link)),
	}
}

// OrderConfirmation summarizes a placed order. invoiceText is the plain-text
// invoice; pdf, when non-empty, is attached as the invoice file.
func OrderConfirmation(order domain.Order, invoiceText string, pdfName string, pdf []byte) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\n")
	b.WriteString(invoiceText)

	var h strings.Builder
	fmt.Fprintf(&h, "<h1>Thank you for your order!</h1><p>Order %s</p><ul>", html.EscapeString(order.Number))
	for _, l := range order.Lines {
		fmt.Fprintf(&h, "<li>%s &times; %d &mdash; %s</li>", html.EscapeString(l.Title), l.Quantity, l.Subtotal())
	}
	fmt.Fprintf(&h, "</ul><p><strong>Total: %s</strong></p>", order.Total)

	msg := Message{
		To:      order.Email,
		Subject: "Order confirmation " + order.Number,
		Text:    b.String(),
		HTML:    h.String(),
	}
	if len(pdf) > 0 {
		msg.Attachments = []Attachment{{Name: pdfName, ContentType: "application/pdf", Data: pdf}}
	}
	return msg
}
