package mailer

import "fmt"

// Message is a rendered notification ready for delivery.
type Message struct {
	Subject string
	Body    string
}

func displayOrFallback(displayName string) string {
	if displayName == "" {
		return "there"
	}
	return displayName
}

// VerificationMessage renders the email-verification notification around a
// provider-generated action link.
func VerificationMessage(displayName, link string) Message {
	return Message{
		Subject: "Verify your email address",
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="%s">Verify email</a></p>
<p>The link is valid for a limited time and can be used once. If you did not create an account, you can ignore this message.</p>`,
			displayOrFallback(displayName), link),
	}
}

// PasswordResetMessage renders the password-reset notification around a
// provider-generated action link.
func PasswordResetMessage(displayName, link string) Message {
	return Message{
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			`<p>Hi %s,</p>
<p>We received a request to reset your password. Follow the link below to choose a new one:</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not request a reset, no action is needed.</p>`,
			displayOrFallback(displayName), link),
	}
}
