// Package emailx checks that an email address is deliverable before an
// account is created for it: syntax, a block list of disposable-mail
// domains, and an MX lookup on the domain.
package emailx

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/jkalnina/authgate/internal/common"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// defaultDisposableDomains lists well-known throwaway mail providers.
var defaultDisposableDomains = []string{
	"10minutemail.com",
	"tempmail.org",
	"guerrillamail.com",
	"mailinator.com",
	"yopmail.com",
	"throwaway.email",
}

// MXResolver is the subset of net.Resolver the validator needs.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Validator performs deliverability checks on email addresses.
type Validator struct {
	resolver   MXResolver
	disposable map[string]struct{}
	timeout    time.Duration
}

func NewValidator() *Validator {
	return NewValidatorWithResolver(net.DefaultResolver)
}

func NewValidatorWithResolver(r MXResolver) *Validator {
	disposable := make(map[string]struct{}, len(defaultDisposableDomains))
	for _, d := range defaultDisposableDomains {
		disposable[d] = struct{}{}
	}
	return &Validator{
		resolver:   r,
		disposable: disposable,
		timeout:    5 * time.Second,
	}
}

// Validate returns nil when the address looks deliverable. All failures
// wrap common.ErrInvalidInput so callers can classify with errors.Is.
func (v *Validator) Validate(ctx context.Context, email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", common.ErrInvalidInput)
	}

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])

	if _, ok := v.disposable[domain]; ok {
		return fmt.Errorf("%w: disposable email addresses are not allowed", common.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil || len(records) == 0 {
		return fmt.Errorf("%w: email domain has no mail exchanger", common.ErrInvalidInput)
	}

	return nil
}
