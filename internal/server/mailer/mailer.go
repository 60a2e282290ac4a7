// Package mailer delivers the email-lifecycle notifications (verification
// and password-reset links). The service treats delivery as fire-and-forget
// once the identity mutation has committed; failures are reported but must
// not abort the enclosing flow.
package mailer

import "context"

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
