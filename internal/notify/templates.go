package notify

import (
	"fmt"
	"time"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

// Builders de mensajes. La plantilla por clase de invitado cambia el tono del
// email, no la mecánica de la invitación.

func MagicLinkMessage(url string, ttl time.Duration) (subject, html, text string) {
	subject = "Your sign-in link"
	text = fmt.Sprintf(
		"Use this link to sign in:\n\n%s\n\nThe link expires in %d minutes and can be used once.",
		url, int(ttl.Minutes()),
	)
	html = fmt.Sprintf(
		`<p>Use this link to sign in:</p><p><a href="%s">Sign in</a></p><p>The link expires in %d minutes and can be used once.</p>`,
		url, int(ttl.Minutes()),
	)
	return subject, html, text
}

func OTPMessage(code string, ttl time.Duration) (subject, html, text string) {
	subject = "Your sign-in code"
	text = fmt.Sprintf(
		"Your one-time code is: %s\n\nIt expires in %d minutes.",
		code, int(ttl.Minutes()),
	)
	html = fmt.Sprintf(
		`<p>Your one-time code is:</p><p style="font-size:24px"><b>%s</b></p><p>It expires in %d minutes.</p>`,
		code, int(ttl.Minutes()),
	)
	return subject, html, text
}

func InvitationMessage(class core.InviteeClass, tenantName, inviterName, url, personal string) (subject, html, text string) {
	var intro string
	switch class {
	case core.InviteeClient:
		subject = fmt.Sprintf("%s invited you to your loan portal", tenantName)
		intro = fmt.Sprintf("%s has invited you to access your loan file at %s.", inviterName, tenantName)
	case core.InviteePartner:
		subject = fmt.Sprintf("Partner access to %s", tenantName)
		intro = fmt.Sprintf("%s has invited you to collaborate with %s as a partner.", inviterName, tenantName)
	default: // staff
		subject = fmt.Sprintf("Join %s on loandesk", tenantName)
		intro = fmt.Sprintf("%s has invited you to join the %s team.", inviterName, tenantName)
	}

	text = intro + "\n\n"
	if personal != "" {
		text += fmt.Sprintf("%q\n\n", personal)
	}
	text += fmt.Sprintf("Accept the invitation:\n\n%s\n\nThe invitation expires in 7 days.", url)

	html = "<p>" + intro + "</p>"
	if personal != "" {
		html += fmt.Sprintf("<blockquote>%s</blockquote>", personal)
	}
	html += fmt.Sprintf(`<p><a href="%s">Accept invitation</a></p><p>The invitation expires in 7 days.</p>`, url)

	return subject, html, text
}
