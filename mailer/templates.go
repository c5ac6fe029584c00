package mailer

import (
	"fmt"
	"html"
	"strings"
)

const layout = `
<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>Hello %s,</p>
  %s
  <hr/>
  <p style="color:#666">This message was sent by %s. If you did not expect it, you can safely ignore it.</p>
</div>
`

func render(appName, name string, paragraphs ...string) string {
	var b strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>\n", p)
	}
	return fmt.Sprintf(layout, html.EscapeString(name), b.String(), html.EscapeString(appName))
}

func Invite(appName, to, link string, expiresDays int) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s Invitation", appName),
		Text:    fmt.Sprintf("You have been invited to join %s. Open %s to create your passkey. The invitation expires in %d day(s).", appName, link, expiresDays),
		HTML: render(appName, to,
			fmt.Sprintf("You have been invited to join <b>%s</b>. Click the button below to create your passkey and sign in:", html.EscapeString(appName)),
			fmt.Sprintf(`<a href="%s" style="display:inline-block; padding:10px 16px; background:#2563EB; color:#fff; text-decoration:none; border-radius:6px;">Accept Invitation</a>`, html.EscapeString(link)),
			fmt.Sprintf("This invitation will expire in %d day(s).", expiresDays),
		),
	}
}

// AccessStatus 借用请求状态变化通知；reason 为空时不显示
func AccessStatus(appName, to, name, assetName, status, reason string) Message {
	var lead string
	switch status {
	case "Approved":
		lead = fmt.Sprintf("Your request for %s has been approved. Please pick it up at the department office.", assetName)
	case "Active":
		lead = fmt.Sprintf("%s has been checked out to you. Please return it by the agreed date.", assetName)
	case "Returned":
		lead = fmt.Sprintf("We have recorded the return of %s. Thank you.", assetName)
	default:
		lead = fmt.Sprintf("Your request for %s is now %s.", assetName, strings.ToLower(status))
	}
	text := lead
	paras := []string{html.EscapeString(lead)}
	if reason != "" {
		text += " Reason: " + reason
		paras = append(paras, "Reason: "+html.EscapeString(reason))
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] Request %s: %s", appName, strings.ToLower(status), assetName),
		Text:    text,
		HTML:    render(appName, name, paras...),
	}
}

func Overdue(appName, to, name, assetName, dueDate string, lateFee float64) Message {
	lead := fmt.Sprintf("%s was due back on %s and is now overdue. Your late fee so far is %.2f.", assetName, dueDate, lateFee)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] Overdue: %s", appName, assetName),
		Text:    lead + " Please return it as soon as possible.",
		HTML:    render(appName, name, html.EscapeString(lead), "Please return it as soon as possible."),
	}
}

func DueSoon(appName, to, name, assetName, dueAt string) Message {
	lead := fmt.Sprintf("Reminder: %s is due back by %s.", assetName, dueAt)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] Due soon: %s", appName, assetName),
		Text:    lead,
		HTML:    render(appName, name, html.EscapeString(lead)),
	}
}

func BookingStatus(appName, to, name, roomName, date, slot, status string) Message {
	lead := fmt.Sprintf("Your booking of %s on %s at %s is now %s.", roomName, date, slot, status)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] Booking %s: %s", appName, status, roomName),
		Text:    lead,
		HTML:    render(appName, name, html.EscapeString(lead)),
	}
}
