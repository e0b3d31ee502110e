// Package sms defines the boundary to the device message source.
package sms

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrPermissionDenied signals that the message source refused access.
// This is user-actionable (grant access) and must not be retried
// automatically.
var ErrPermissionDenied = errors.New("sms: inbox permission denied")

// providerPattern is the coarse pre-filter identifying provider
// traffic. It matches the sender address or the body and deliberately
// does not depend on the parser succeeding, so unparseable-but-relevant
// messages stay visible for diagnostics.
var providerPattern = regexp.MustCompile(`(?i)m-?pesa`)

type (
	// Message is the validated input record at the system boundary.
	// Records missing required fields are rejected before parsing.
	Message struct {
		NativeID  string `json:"native_id"`
		Body      string `json:"body"`
		Timestamp int64  `json:"timestamp"` // receipt time, Unix milliseconds
		Sender    string `json:"sender"`
	}

	// Filter narrows a message listing.
	Filter struct {
		Box          string // e.g. "inbox"
		MinTimestamp int64  // inclusive; 0 means full available history
	}
)

// Ports for the inbound message source.
type (
	MessageLister interface {
		// List returns messages matching the filter, in no particular
		// order. A permission failure surfaces as ErrPermissionDenied.
		List(ctx context.Context, f Filter) ([]Message, error)
	}

	PermissionChecker interface {
		// CheckPermission reports whether inbox access is granted.
		CheckPermission(ctx context.Context) (bool, error)
	}
)

// Validate rejects records that cannot be processed downstream.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("sms: empty message body")
	}
	if m.Timestamp <= 0 {
		return errors.New("sms: missing message timestamp")
	}
	return nil
}

// FromProvider reports whether the message belongs to the mobile-money
// provider, matching a provider name fragment in the sender address or
// body, case-insensitively.
func (m Message) FromProvider() bool {
	return providerPattern.MatchString(m.Sender) || providerPattern.MatchString(m.Body)
}
