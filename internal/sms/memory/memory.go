// Package memory provides an in-memory message inbox used by tests and
// local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/victoroki/MPESAAnalyzer/internal/sms"
)

type Inbox struct {
	mu      sync.Mutex
	items   []sms.Message
	granted bool
}

func New() *Inbox {
	return &Inbox{granted: true}
}

// NewFromFile seeds an inbox from a JSON file holding an array of
// messages. A missing file yields an empty inbox so local setups work
// without seed data.
func NewFromFile(path string) (*Inbox, error) {
	in := New()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return in, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inbox file: %w", err)
	}

	var msgs []sms.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse inbox file %s: %w", path, err)
	}
	in.Deliver(msgs...)
	return in, nil
}

// Deliver appends messages to the inbox.
func (in *Inbox) Deliver(msgs ...sms.Message) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items = append(in.items, msgs...)
}

// SetPermission toggles whether listing is allowed.
func (in *Inbox) SetPermission(granted bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.granted = granted
}

// List implements sms.MessageLister.
func (in *Inbox) List(_ context.Context, f sms.Filter) ([]sms.Message, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.granted {
		return nil, sms.ErrPermissionDenied
	}
	var out []sms.Message
	for _, m := range in.items {
		if f.MinTimestamp > 0 && m.Timestamp < f.MinTimestamp {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// CheckPermission implements sms.PermissionChecker.
func (in *Inbox) CheckPermission(_ context.Context) (bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.granted, nil
}
