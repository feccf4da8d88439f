package reminder

import (
	"fmt"
	"time"
)

// Message is a rendered notification payload.
type Message struct {
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	DaysRemaining int    `json:"days_remaining"`
}

// Render turns a certification and its days-remaining into an email
// payload. Pure and deterministic: identical inputs always produce the
// identical message, which keeps dispatcher tests independent of the
// transport.
func Render(certName string, expirationAt time.Time, daysRemaining int) Message {
	expires := expirationAt.Format("January 2, 2006")

	var subject, lead string
	switch {
	case daysRemaining <= 0:
		subject = fmt.Sprintf("Certification expiring today: %s", certName)
		lead = fmt.Sprintf("Your %s certification expires today (%s).", certName, expires)
	case daysRemaining == 1:
		subject = fmt.Sprintf("Certification expires tomorrow: %s", certName)
		lead = fmt.Sprintf("Your %s certification expires tomorrow, on %s.", certName, expires)
	default:
		subject = fmt.Sprintf("Certification expires in %d days: %s", daysRemaining, certName)
		lead = fmt.Sprintf("Your %s certification expires in %d days, on %s.", certName, daysRemaining, expires)
	}

	body := lead + "\n\n" +
		"Please renew it before the expiration date to keep your credentials current.\n\n" +
		"You can manage your certifications and reminder settings from your account."

	return Message{
		Subject:       subject,
		Body:          body,
		DaysRemaining: daysRemaining,
	}
}
