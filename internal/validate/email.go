// Package validate filters registration input before it reaches the waitlist
// core: syntactically broken emails and throwaway domains are rejected at the
// HTTP boundary.
package validate

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// disposableDomains lists throwaway email providers that are rejected to keep
// waitlists from filling with dead addresses.
var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"mailinator.com":    {},
	"trashmail.com":     {},
	"getairmail.com":    {},
	"yopmail.com":       {},
	"maildrop.cc":       {},
	"throwaway.email":   {},
	"fakeinbox.com":     {},
}

// IsValidEmail reports whether email has a plausible address shape. This is
// not full RFC 5322 parsing, just a cheap gate before the store is touched.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsDisposableEmail reports whether the email's domain is a known throwaway
// provider.
func IsDisposableEmail(email string) bool {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 || parts[1] == "" {
		return false
	}
	_, found := disposableDomains[strings.ToLower(parts[1])]
	return found
}
